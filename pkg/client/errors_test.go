package client

import (
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		class ErrorClass
		want  bool
	}{
		{ErrorClassClient, false},
		{ErrorClassRateLimit, true},
		{ErrorClassServer, true},
		{ErrorClassNetwork, true},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.class), func(t *testing.T) {
			if got := shouldRetry(tt.class); got != tt.want {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.class, got, tt.want)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{http.StatusOK, ""},
		{http.StatusNotModified, ""},
		{http.StatusBadRequest, ErrorClassClient},
		{http.StatusNotFound, ErrorClassClient},
		{http.StatusTooManyRequests, ErrorClassRateLimit},
		{http.StatusInternalServerError, ErrorClassServer},
		{http.StatusServiceUnavailable, ErrorClassServer},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			if got := ClassifyStatus(tt.status); got != tt.want {
				t.Errorf("ClassifyStatus(%d) = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want []string
	}{
		{
			name: "status error",
			err: &APIError{
				Surface: SurfaceCLOB, Method: "POST", Path: "/order",
				StatusCode: 400, ErrorClass: ErrorClassClient, Message: "invalid order",
			},
			want: []string{"client", "status 400", "clob POST /order", "invalid order"},
		},
		{
			name: "network error",
			err: &APIError{
				Surface: SurfaceGamma, Method: "GET", Path: "/markets",
				ErrorClass: ErrorClassNetwork, Err: errors.New("connection refused"),
			},
			want: []string{"network", "gamma GET /markets", "connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, part := range tt.want {
				if !strings.Contains(msg, part) {
					t.Errorf("Error() = %q, missing %q", msg, part)
				}
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	inner := errors.New("dial tcp: timeout")
	err := &APIError{ErrorClass: ErrorClassNetwork, Err: inner}

	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}
	if (&APIError{}).Unwrap() != nil {
		t.Error("Unwrap of a status error should be nil")
	}
}

func TestAPIError_Temporary(t *testing.T) {
	if (&APIError{ErrorClass: ErrorClassClient}).Temporary() {
		t.Error("client errors are not temporary")
	}
	if !(&APIError{ErrorClass: ErrorClassServer}).Temporary() {
		t.Error("server errors are temporary")
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"error field", 400, `{"error":"not enough balance"}`, "not enough balance"},
		{"message field", 404, `{"message":"market not found"}`, "market not found"},
		{"plain body", 500, `oops`, "Internal Server Error"},
		{"unknown status", 599, ``, "status 599"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorMessage(tt.status, []byte(tt.body)); got != tt.want {
				t.Errorf("errorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
