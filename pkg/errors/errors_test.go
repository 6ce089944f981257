package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

// TestNew creates and validates a store error
func TestNew(t *testing.T) {
	cause := errors.New("underlying error")
	err := New(ErrorTypeValidation, "Test error", cause)

	if err.Type != ErrorTypeValidation {
		t.Errorf("Expected type %s, got %s", ErrorTypeValidation, err.Type)
	}
	if err.Message != "Test error" {
		t.Errorf("Expected message 'Test error', got '%s'", err.Message)
	}
	if !errors.Is(err, cause) {
		t.Error("Cause not reachable through Unwrap")
	}
}

func TestValidationErrorIncludesField(t *testing.T) {
	err := ValidationError("content", "post is empty")

	if err.Error() != "content: post is empty" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !IsValidation(err) {
		t.Error("IsValidation returned false")
	}
}

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorType
	}{
		{http.StatusBadRequest, ErrorTypeValidation},
		{http.StatusUnprocessableEntity, ErrorTypeValidation},
		{http.StatusUnauthorized, ErrorTypeAuthorization},
		{http.StatusForbidden, ErrorTypeAuthorization},
		{http.StatusNotFound, ErrorTypeNotFound},
		{http.StatusConflict, ErrorTypeConflict},
		{http.StatusInternalServerError, ErrorTypeConnectivity},
		{http.StatusBadGateway, ErrorTypeConnectivity},
		{http.StatusTeapot, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := FromStatus(tt.status, "")
			if err.Type != tt.want {
				t.Errorf("status %d: expected %s, got %s", tt.status, tt.want, err.Type)
			}
			if err.StatusCode != tt.status {
				t.Errorf("status not recorded: %d", err.StatusCode)
			}
			if err.Message == "" {
				t.Error("expected default message from status text")
			}
		})
	}
}

func TestAuthorizationDistinctFromConnectivity(t *testing.T) {
	authErr := fmt.Errorf("delete post: %w", AuthorizationError("not the owner"))
	connErr := fmt.Errorf("delete post: %w", ConnectivityError("dial failed", nil))

	if !IsAuthorization(authErr) || IsConnectivity(authErr) {
		t.Error("authorization error misclassified")
	}
	if !IsConnectivity(connErr) || IsAuthorization(connErr) {
		t.Error("connectivity error misclassified")
	}
}

func TestCategorizeError(t *testing.T) {
	if CategorizeError(nil) != nil {
		t.Error("expected nil for nil error")
	}

	se := NotFoundError("post", "abc")
	if CategorizeError(se) != se {
		t.Error("StoreError should pass through unchanged")
	}

	if got := CategorizeError(context.DeadlineExceeded); got.Type != ErrorTypeConnectivity {
		t.Errorf("deadline: expected connectivity, got %s", got.Type)
	}

	if got := CategorizeError(errors.New("dial tcp: connection refused")); got.Type != ErrorTypeConnectivity {
		t.Errorf("refused: expected connectivity, got %s", got.Type)
	}

	if got := CategorizeError(errors.New("something odd")); got.Type != ErrorTypeUnknown {
		t.Errorf("expected unknown, got %s", got.Type)
	}
}

func TestFormatError(t *testing.T) {
	if FormatError(nil) != "" {
		t.Error("expected empty string for nil")
	}

	msg := FormatError(AuthorizationError("you do not own this post"))
	if !strings.Contains(msg, "(authorization)") {
		t.Errorf("missing type in %q", msg)
	}
	if !strings.Contains(msg, "you do not own this post") {
		t.Errorf("missing message in %q", msg)
	}
	if !strings.Contains(msg, "Suggestion:") {
		t.Errorf("missing suggestion in %q", msg)
	}
}
