// Package main drains the dead-letter queue: pin the failure, mark the
// upload FAILED, and alert an operator.
package main

import (
	"context"

	"github.com/healthfolio/labtrends-backend/internal/awsutil"
	"github.com/healthfolio/labtrends-backend/internal/config"
	"github.com/healthfolio/labtrends-backend/internal/ddb"
	"github.com/healthfolio/labtrends-backend/internal/logging"
	"github.com/healthfolio/labtrends-backend/internal/pipeline"
	"github.com/healthfolio/labtrends-backend/internal/queue"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.uber.org/zap"
)

// App holds the application state.
type App struct {
	worker *pipeline.DeadLetterWorker
	logger *zap.Logger
}

func main() {
	env := config.MustLoad()
	cfg, err := awsutil.Load(context.Background(), env.Region)
	logger := logging.New("deadletter")
	if err != nil {
		logger.Fatal("aws config", zap.Error(err))
	}

	repo := &ddb.Repo{DB: dynamodb.NewFromConfig(cfg), Table: env.Table}
	app := &App{
		worker: &pipeline.DeadLetterWorker{
			Uploads:  repo,
			Markers:  repo,
			Alerts:   sns.NewFromConfig(cfg),
			TopicARN: env.AlertTopicARN,
			Logger:   logger,
		},
		logger: logger,
	}
	lambda.Start(app.handler)
}

func (a *App) handler(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, msg := range ev.Records {
		job, err := queue.ParseJob(msg)
		if err != nil {
			a.logger.Error("undecodable dead-letter message", zap.Error(err))
			continue
		}
		if err := a.worker.Process(ctx, job); err != nil {
			resp.BatchItemFailures = append(resp.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: msg.MessageId})
		}
	}
	return resp, nil
}
