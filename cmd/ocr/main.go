// Package main runs the OCR stage: consume OCR jobs, invoke the engine,
// persist the intermediate output, and hand off to field extraction.
package main

import (
	"context"

	"github.com/healthfolio/labtrends-backend/internal/awsutil"
	"github.com/healthfolio/labtrends-backend/internal/config"
	"github.com/healthfolio/labtrends-backend/internal/ddb"
	"github.com/healthfolio/labtrends-backend/internal/logging"
	"github.com/healthfolio/labtrends-backend/internal/models"
	"github.com/healthfolio/labtrends-backend/internal/ocr"
	"github.com/healthfolio/labtrends-backend/internal/pipeline"
	"github.com/healthfolio/labtrends-backend/internal/queue"
	"github.com/healthfolio/labtrends-backend/internal/s3io"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"go.uber.org/zap"
)

// App holds the application state.
type App struct {
	worker  *pipeline.OCRWorker
	markers pipeline.Markers
	logger  *zap.Logger
}

func main() {
	env := config.MustLoad()
	cfg, err := awsutil.Load(context.Background(), env.Region)
	logger := logging.New("ocr")
	if err != nil {
		logger.Fatal("aws config", zap.Error(err))
	}

	s3c := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if awsutil.DevEndpoint() != "" {
			o.UsePathStyle = true
		}
	})
	repo := &ddb.Repo{DB: dynamodb.NewFromConfig(cfg), Table: env.Table}

	app := &App{
		worker: &pipeline.OCRWorker{
			Engine:    &ocr.Engine{Client: textract.NewFromConfig(cfg), Timeout: env.OCRTimeout},
			Docs:      &s3io.Store{Client: s3c, Bucket: env.ResultsBucket},
			Markers:   repo,
			FieldJobs: &queue.Publisher{Client: sqs.NewFromConfig(cfg), URL: env.FieldQueueURL},
			RawBucket: env.RawBucket,
			Logger:    logger,
		},
		markers: repo,
		logger:  logger,
	}
	lambda.Start(app.handler)
}

// handler consumes a batch of OCR jobs.
func (a *App) handler(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	return pipeline.HandleBatch(ctx, models.StageOCR, a.markers, a.logger, ev.Records, a.worker.Process), nil
}
