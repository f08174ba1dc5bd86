// Package main answers the upload status query: the latest confirmed
// upload, its extraction outcome, and its resolved records. Clients poll
// this instead of guessing when the pipeline finishes.
package main

import (
	"context"
	"net/http"

	"github.com/healthfolio/labtrends-backend/internal/authz"
	"github.com/healthfolio/labtrends-backend/internal/awsutil"
	"github.com/healthfolio/labtrends-backend/internal/config"
	"github.com/healthfolio/labtrends-backend/internal/ddb"
	"github.com/healthfolio/labtrends-backend/internal/fault"
	"github.com/healthfolio/labtrends-backend/internal/httpx"
	"github.com/healthfolio/labtrends-backend/internal/logging"
	"github.com/healthfolio/labtrends-backend/internal/models"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

type statusResponse struct {
	UploadID   string                   `json:"upload_id"`
	ObjectKey  string                   `json:"object_key"`
	Status     models.UploadOutcome     `json:"status"`
	Gaps       []string                 `json:"gaps,omitempty"`
	FailReason string                   `json:"fail_reason,omitempty"`
	Records    []models.IndicatorRecord `json:"records,omitempty"`
}

// App holds the application state.
type App struct {
	env    config.Env
	repo   *ddb.Repo
	logger *zap.Logger
}

func main() {
	env := config.MustLoad()
	cfg, err := awsutil.Load(context.Background(), env.Region)
	logger := logging.New("status")
	if err != nil {
		logger.Fatal("aws config", zap.Error(err))
	}
	app := &App{
		env:    env,
		repo:   &ddb.Repo{DB: dynamodb.NewFromConfig(cfg), Table: env.Table},
		logger: logger,
	}
	lambda.Start(app.handler)
}

func (a *App) handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	sub, err := authz.Principal(req, a.env.DevBypassAuth)
	if err != nil {
		return httpx.Error(http.StatusUnauthorized, "missing user")
	}

	upload, err := a.repo.LatestConfirmedUpload(ctx, sub)
	if err != nil {
		if fault.Is(err, fault.NotFound) {
			return httpx.FromFault(err)
		}
		a.logger.Error("latest upload lookup failed", zap.Error(err))
		return httpx.Error(http.StatusInternalServerError, "db error")
	}

	resp := statusResponse{
		UploadID:   upload.UploadID,
		ObjectKey:  upload.ObjectKey,
		Status:     upload.Outcome,
		Gaps:       upload.Gaps,
		FailReason: upload.FailReason,
	}
	for _, id := range upload.RecordIDs {
		rec, err := a.repo.GetRecord(ctx, sub, id)
		if err != nil {
			// A record edited away mid-read is not worth failing the
			// whole status response over.
			a.logger.Warn("resolved record missing",
				zap.String("record_id", id), zap.Error(err))
			continue
		}
		resp.Records = append(resp.Records, *rec)
	}
	return httpx.JSON(http.StatusOK, resp)
}
