// Package main lists a user's indicator records and applies review edits.
// Edits are the external write path: they reuse the record identity and the
// version-gated upsert, minting a version no pipeline run can reach.
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
	"github.com/healthfolio/labtrends-backend/internal/models"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

// editRequest carries the editable fields of a review edit. Pointers
// distinguish "leave unchanged" from explicit values.
type editRequest struct {
	PatientName *string  `json:"patient_name"`
	Result      *float64 `json:"result"`
	Units       *string  `json:"units"`
	LowerRange  *float64 `json:"lower_range"`
	UpperRange  *float64 `json:"upper_range"`
	Laboratory  *string  `json:"laboratory"`
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
	logger := logging.New("records")
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

	if id := req.PathParameters["id"]; id != "" {
		switch req.RequestContext.HTTP.Method {
		case http.MethodPut:
			return a.edit(ctx, sub, id, req.Body)
		case http.MethodGet:
			return a.get(ctx, sub, id)
		}
		return httpx.Error(http.StatusMethodNotAllowed, "unsupported method")
	}
	return a.list(ctx, sub)
}

func (a *App) list(ctx context.Context, sub string) (events.APIGatewayV2HTTPResponse, error) {
	records, err := a.repo.ListRecordsByUser(ctx, sub)
	if err != nil {
		a.logger.Error("list records failed", zap.Error(err))
		return httpx.Error(http.StatusInternalServerError, "db error")
	}
	return httpx.JSON(http.StatusOK, map[string]any{"records": records})
}

func (a *App) get(ctx context.Context, sub, id string) (events.APIGatewayV2HTTPResponse, error) {
	if _, _, _, ok := models.ParseRecordID(id); !ok {
		return httpx.FromFault(fault.New(fault.InvalidRequest, "malformed record id"))
	}
	rec, err := a.repo.GetRecord(ctx, sub, id)
	if err != nil {
		if fault.Is(err, fault.NotFound) {
			return httpx.FromFault(err)
		}
		a.logger.Error("get record failed", zap.Error(err))
		return httpx.Error(http.StatusInternalServerError, "db error")
	}
	return httpx.JSON(http.StatusOK, rec)
}

func (a *App) edit(ctx context.Context, sub, id, body string) (events.APIGatewayV2HTTPResponse, error) {
	if _, _, _, ok := models.ParseRecordID(id); !ok {
		return httpx.FromFault(fault.New(fault.InvalidRequest, "malformed record id"))
	}
	var req editRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return httpx.FromFault(fault.New(fault.InvalidRequest, "invalid json"))
	}

	fields := map[string]any{}
	if req.PatientName != nil {
		fields["patient_name"] = *req.PatientName
	}
	if req.Result != nil {
		fields["result"] = *req.Result
	}
	if req.Units != nil {
		fields["units"] = *req.Units
	}
	if req.LowerRange != nil {
		fields["lower_range"] = *req.LowerRange
	}
	if req.UpperRange != nil {
		fields["upper_range"] = *req.UpperRange
	}
	if req.Laboratory != nil {
		fields["laboratory"] = *req.Laboratory
	}
	if req.LowerRange != nil && req.UpperRange != nil && *req.LowerRange > *req.UpperRange {
		return httpx.FromFault(fault.New(fault.InvalidRequest, "lower_range exceeds upper_range"))
	}
	if len(fields) == 0 {
		return httpx.FromFault(fault.New(fault.InvalidRequest, "no editable fields provided"))
	}

	// Wall-clock millis is strictly newer than any pipeline version, which
	// is pinned to the upload's creation time.
	version := time.Now().UnixMilli()
	if err := a.repo.EditRecord(ctx, sub, id, fields, version); err != nil {
		if fault.Is(err, fault.NotFound) || fault.Is(err, fault.InvalidRequest) {
			return httpx.FromFault(err)
		}
		a.logger.Error("edit record failed", zap.Error(err))
		return httpx.Error(http.StatusInternalServerError, "db error")
	}

	a.logger.Info("record edited",
		zap.String("user_id", sub), zap.String("record_id", id))
	return httpx.JSON(http.StatusOK, map[string]any{"ok": true, "record_version": version})
}
