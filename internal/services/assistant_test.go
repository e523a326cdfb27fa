package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsRetryableErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"wrapped canceled", fmt.Errorf("send: %w", context.Canceled), false},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"gemini 500", &geminiHTTPError{StatusCode: 500}, true},
		{"gemini 429", &geminiHTTPError{StatusCode: 429}, true},
		{"gemini 400", &geminiHTTPError{StatusCode: 400}, false},
		{"sendgrid 503", &sendgridHTTPError{StatusCode: 503}, true},
		{"sendgrid 401", &sendgridHTTPError{StatusCode: 401}, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableErr(tt.err); got != tt.want {
				t.Fatalf("isRetryableErr(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsRetryableHTTP(t *testing.T) {
	retryable := []int{408, 429, 500, 502, 503, 599}
	for _, code := range retryable {
		if !isRetryableHTTP(code) {
			t.Fatalf("expected %d to be retryable", code)
		}
	}
	terminal := []int{200, 201, 400, 401, 403, 404, 409, 422}
	for _, code := range terminal {
		if isRetryableHTTP(code) {
			t.Fatalf("expected %d to be terminal", code)
		}
	}
}
