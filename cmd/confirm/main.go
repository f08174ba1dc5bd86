// Package main acknowledges a completed client upload. Advisory only: the
// storage notification, not this call, starts the pipeline, so a client
// crash after the PUT loses nothing.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/healthfolio/labtrends-backend/internal/authz"
	"github.com/healthfolio/labtrends-backend/internal/awsutil"
	"github.com/healthfolio/labtrends-backend/internal/config"
	"github.com/healthfolio/labtrends-backend/internal/ddb"
	"github.com/healthfolio/labtrends-backend/internal/fault"
	"github.com/healthfolio/labtrends-backend/internal/httpx"
	"github.com/healthfolio/labtrends-backend/internal/logging"
	"github.com/healthfolio/labtrends-backend/internal/s3io"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

type confirmRequest struct {
	ObjectKey string `json:"object_key"`
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
	logger := logging.New("confirm")
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

	var body confirmRequest
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil || body.ObjectKey == "" {
		return httpx.FromFault(fault.New(fault.InvalidRequest, "object_key required"))
	}

	userID, uploadID, ok := s3io.ParseObjectKey(body.ObjectKey)
	if !ok || userID != sub {
		// A key outside the caller's area is indistinguishable from a
		// missing one on purpose.
		return httpx.FromFault(fault.New(fault.NotFound, "no such pending upload"))
	}

	upload, err := a.repo.GetPendingUpload(ctx, sub, uploadID)
	if err != nil {
		if fault.Is(err, fault.NotFound) {
			return httpx.FromFault(err)
		}
		a.logger.Error("get pending upload failed", zap.Error(err))
		return httpx.Error(http.StatusInternalServerError, "db error")
	}
	if ddb.Expired(upload, a.env.UploadExpiry, time.Now()) {
		_ = a.repo.MarkUploadExpired(ctx, sub, uploadID)
		return httpx.FromFault(fault.New(fault.Expired, "upload window has passed"))
	}

	if err := a.repo.ConfirmPendingUpload(ctx, sub, uploadID); err != nil {
		if fault.Is(err, fault.NotFound) {
			return httpx.FromFault(err)
		}
		a.logger.Error("confirm failed", zap.Error(err))
		return httpx.Error(http.StatusInternalServerError, "db error")
	}

	a.logger.Info("upload confirmed",
		zap.String("user_id", sub), zap.String("upload_id", uploadID))
	return httpx.JSON(http.StatusOK, map[string]bool{"ok": true})
}
