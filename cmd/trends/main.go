// Package main answers trend queries: the user's full record history merged
// into chart-ready series.
package main

import (
	"context"
	"net/http"

	"github.com/healthfolio/labtrends-backend/internal/authz"
	"github.com/healthfolio/labtrends-backend/internal/awsutil"
	"github.com/healthfolio/labtrends-backend/internal/config"
	"github.com/healthfolio/labtrends-backend/internal/ddb"
	"github.com/healthfolio/labtrends-backend/internal/httpx"
	"github.com/healthfolio/labtrends-backend/internal/logging"
	"github.com/healthfolio/labtrends-backend/internal/models"
	"github.com/healthfolio/labtrends-backend/internal/trend"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

type trendsResponse struct {
	Series []models.TrendSeries `json:"series"`
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
	logger := logging.New("trends")
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

	records, err := a.repo.ListRecordsByUser(ctx, sub)
	if err != nil {
		a.logger.Error("list records failed", zap.Error(err))
		return httpx.Error(http.StatusInternalServerError, "db error")
	}

	// No records is an empty series list, not an error.
	return httpx.JSON(http.StatusOK, trendsResponse{Series: trend.Build(records)})
}
