package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass classifies transport failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx responses other than 429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassServer represents 5xx responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents connection and timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// APIError is a failed Polymarket request: a non-2xx status or a network error.
type APIError struct {
	Surface    Surface
	Method     string
	Path       string
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Body       []byte
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	target := e.Method + " " + e.Path
	if e.Surface != "" {
		target = string(e.Surface) + " " + target
	}

	if e.Err != nil {
		return fmt.Sprintf("polymarket %s error: %s: %v", e.ErrorClass, target, e.Err)
	}
	return fmt.Sprintf("polymarket %s error (status %d): %s: %s",
		e.ErrorClass, e.StatusCode, target, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Temporary reports whether retrying the request could succeed.
func (e *APIError) Temporary() bool {
	return shouldRetry(e.ErrorClass)
}

// ClassifyStatus maps an HTTP status to an error class ("" for success).
func ClassifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// errorMessage extracts the server's message from a JSON error body.
func errorMessage(status int, body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", status)
}

// shouldRetry reports whether an error class is worth retrying.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		return false
	}
}
