// Package main issues single-use upload credentials for lab-report images
// and records the pending upload that anchors the extraction pipeline.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/healthfolio/labtrends-backend/internal/authz"
	"github.com/healthfolio/labtrends-backend/internal/awsutil"
	"github.com/healthfolio/labtrends-backend/internal/config"
	"github.com/healthfolio/labtrends-backend/internal/ddb"
	"github.com/healthfolio/labtrends-backend/internal/fault"
	"github.com/healthfolio/labtrends-backend/internal/httpx"
	"github.com/healthfolio/labtrends-backend/internal/logging"
	"github.com/healthfolio/labtrends-backend/internal/models"
	"github.com/healthfolio/labtrends-backend/internal/s3io"
	"github.com/healthfolio/labtrends-backend/internal/validate"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// uploadRequest is the expected JSON body for an upload request.
type uploadRequest struct {
	PatientID   string   `json:"patient_id"`
	Filename    string   `json:"filename"`
	ContentType string   `json:"content_type"`
	Indicators  []string `json:"indicators"`
}

// uploadResponse carries the write credential and the key it is bound to.
type uploadResponse struct {
	UploadID      string            `json:"upload_id"`
	ObjectKey     string            `json:"object_key"`
	UploadURL     string            `json:"upload_url"`
	ExpiresIn     int               `json:"expires_in"`
	UploadHeaders map[string]string `json:"upload_headers"`
}

// App holds the application state, including configuration and AWS clients.
type App struct {
	env    config.Env
	s3p    *s3.PresignClient
	repo   *ddb.Repo
	logger *zap.Logger
}

func main() {
	env := config.MustLoad()
	cfg, err := awsutil.Load(context.Background(), env.Region)
	logger := logging.New("presign")
	if err != nil {
		logger.Fatal("aws config", zap.Error(err))
	}

	s3c := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if awsutil.DevEndpoint() != "" {
			o.UsePathStyle = true // localstack/dev friendliness
		}
	})

	app := &App{
		env:    env,
		s3p:    s3.NewPresignClient(s3c),
		repo:   &ddb.Repo{DB: dynamodb.NewFromConfig(cfg), Table: env.Table},
		logger: logger,
	}
	lambda.Start(app.handler)
}

// handler processes an upload request and returns a presigned PUT credential.
func (a *App) handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	sub, err := authz.Principal(req, a.env.DevBypassAuth)
	if err != nil {
		return httpx.Error(http.StatusUnauthorized, "missing user")
	}

	body, err := parseRequest(req.Body)
	if err != nil {
		return httpx.FromFault(err)
	}

	issued, err := a.repo.CountIssuedUploads(ctx, sub, time.Now().Add(-a.env.UploadExpiry))
	if err != nil {
		a.logger.Error("quota check failed", zap.Error(err))
		return httpx.Error(http.StatusInternalServerError, "db error")
	}
	if issued >= a.env.UploadQuota {
		return httpx.FromFault(fault.Newf(fault.QuotaExceeded,
			"too many outstanding uploads (%d)", issued))
	}

	uploadID := ulid.Make().String()
	key := s3io.ObjectKey(sub, uploadID, sanitizeName(body.Filename))

	if err := a.createPendingUpload(ctx, sub, uploadID, key, body); err != nil {
		a.logger.Error("put pending upload failed", zap.Error(err))
		return httpx.Error(http.StatusInternalServerError, "db error")
	}

	url, ttl, err := s3io.PresignPut(ctx, a.s3p, a.env.RawBucket, key, body.ContentType,
		map[string]string{"upload_id": uploadID, "user_id": sub}, a.env.PresignTTL)
	if err != nil {
		a.logger.Error("presign failed", zap.Error(err))
		return httpx.Error(http.StatusInternalServerError, "presign error")
	}

	return httpx.JSON(http.StatusOK, uploadResponse{
		UploadID:      uploadID,
		ObjectKey:     key,
		UploadURL:     url,
		ExpiresIn:     int(ttl.Seconds()),
		UploadHeaders: s3io.UploadHeaders(sub, uploadID, body.ContentType),
	})
}

// parseRequest parses the JSON body and validates all input fields.
func parseRequest(body string) (uploadRequest, error) {
	var req uploadRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return req, fault.New(fault.InvalidRequest, "invalid json")
	}
	for _, check := range []error{
		validate.Filename(req.Filename),
		validate.ContentType(req.ContentType),
		validate.Indicators(req.Indicators),
		validate.PatientID(req.PatientID),
	} {
		if check != nil {
			return req, check
		}
	}
	return req, nil
}

// createPendingUpload stores the ISSUED upload the pipeline will consult.
func (a *App) createPendingUpload(ctx context.Context, userID, uploadID, key string, req uploadRequest) error {
	return a.repo.PutPendingUpload(ctx, models.PendingUpload{
		UploadID:    uploadID,
		UserID:      userID,
		PatientID:   strings.TrimSpace(req.PatientID),
		Filename:    sanitizeName(req.Filename),
		ObjectKey:   key,
		ContentType: req.ContentType,
		Indicators:  req.Indicators,
		State:       models.UploadIssued,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		Outcome:     models.OutcomePending,
	})
}

// sanitizeName trims whitespace and defaults to "report.jpg" if empty.
func sanitizeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "report.jpg"
	}
	return strings.ReplaceAll(s, "/", "_")
}
