// Package httpx provides helper functions for creating HTTP responses.
package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/healthfolio/labtrends-backend/internal/fault"

	"github.com/aws/aws-lambda-go/events"
)

// JSON creates a JSON HTTP response with the given status code and value.
func JSON(status int, v any) (events.APIGatewayV2HTTPResponse, error) {
	b, _ := json.Marshal(v)
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: string(b),
	}, nil
}

// Error creates a JSON HTTP error response with the given status code and message.
func Error(status int, msg string) (events.APIGatewayV2HTTPResponse, error) {
	return JSON(status, map[string]string{"error": msg})
}

// FromFault maps a fault-classified error onto an HTTP response. Internal
// details are not leaked for 5xx responses.
func FromFault(err error) (events.APIGatewayV2HTTPResponse, error) {
	switch fault.KindOf(err) {
	case fault.InvalidRequest:
		return Error(http.StatusBadRequest, err.Error())
	case fault.QuotaExceeded:
		return Error(http.StatusTooManyRequests, err.Error())
	case fault.NotFound:
		return Error(http.StatusNotFound, err.Error())
	case fault.Expired:
		return Error(http.StatusGone, err.Error())
	default:
		return Error(http.StatusInternalServerError, "internal error")
	}
}
