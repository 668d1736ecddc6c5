package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        *Error
		wantStatus int
		wantCode   string
	}{
		{"validation", Validation("bad"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"authentication", Authentication("who"), http.StatusUnauthorized, "AUTHENTICATION_ERROR"},
		{"authorization", Authorization("no"), http.StatusForbidden, "AUTHORIZATION_ERROR"},
		{"not found", NotFound("gone"), http.StatusNotFound, "NOT_FOUND"},
		{"token", Token("expired"), http.StatusUnauthorized, "TOKEN_ERROR"},
		{"database", Database("failed", errors.New("boom")), http.StatusInternalServerError, "DATABASE_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Kind.Status(); got != tt.wantStatus {
				t.Errorf("Status() = %d, want %d", got, tt.wantStatus)
			}
			if got := tt.err.Kind.Code(); got != tt.wantCode {
				t.Errorf("Code() = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("handler: %w", NotFound("Task not found"))

	if KindOf(err) != KindNotFound {
		t.Fatalf("KindOf() = %v, want KindNotFound", KindOf(err))
	}
	if !Is(err, KindNotFound) {
		t.Error("Is() should see through wrapping")
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Error("plain errors should be KindUnknown")
	}
	if Is(nil, KindUnknown) {
		t.Error("nil error should never match")
	}
}

func TestDatabaseUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Database("failed to load family", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if err.Error() != "failed to load family: connection refused" {
		t.Errorf("Error() = %q", err.Error())
	}
}
