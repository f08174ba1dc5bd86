// Package main turns raw-image write notifications into OCR jobs, exactly
// once per object.
package main

import (
	"context"
	"net/url"

	"github.com/healthfolio/labtrends-backend/internal/awsutil"
	"github.com/healthfolio/labtrends-backend/internal/config"
	"github.com/healthfolio/labtrends-backend/internal/ddb"
	"github.com/healthfolio/labtrends-backend/internal/logging"
	"github.com/healthfolio/labtrends-backend/internal/pipeline"
	"github.com/healthfolio/labtrends-backend/internal/queue"
	"github.com/healthfolio/labtrends-backend/internal/s3io"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

// App holds the application state.
type App struct {
	trigger *pipeline.Trigger
	logger  *zap.Logger
}

func main() {
	env := config.MustLoad()
	cfg, err := awsutil.Load(context.Background(), env.Region)
	logger := logging.New("trigger")
	if err != nil {
		logger.Fatal("aws config", zap.Error(err))
	}

	app := &App{
		trigger: &pipeline.Trigger{
			Markers: &ddb.Repo{DB: dynamodb.NewFromConfig(cfg), Table: env.Table},
			OCRJobs: &queue.Publisher{Client: sqs.NewFromConfig(cfg), URL: env.OCRQueueURL},
			Logger:  logger,
		},
		logger: logger,
	}
	lambda.Start(app.handler)
}

// handler processes S3 event records. A failed record fails the invocation
// so the notification is redelivered; a job is never dropped without a
// retry.
func (a *App) handler(ctx context.Context, ev events.S3Event) error {
	for _, rec := range ev.Records {
		key, err := url.QueryUnescape(rec.S3.Object.Key)
		if err != nil {
			a.logger.Error("undecodable object key",
				zap.String("raw_key", rec.S3.Object.Key), zap.Error(err))
			continue
		}
		if !s3io.IsRawKey(key) {
			// Results-bucket writes and stray objects are not uploads.
			a.logger.Info("ignoring object outside raw-image area",
				zap.String("object_key", key))
			continue
		}
		if err := a.trigger.HandleObjectCreated(ctx, key); err != nil {
			a.logger.Error("trigger failed", zap.String("object_key", key), zap.Error(err))
			return err
		}
	}
	return nil
}
