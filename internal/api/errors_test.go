package api

import (
	"errors"
	"fmt"
	"testing"

	"github.com/devshare/devshare/internal/billing"
	"github.com/devshare/devshare/internal/posts"
	"github.com/devshare/devshare/internal/storage"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"not found", storage.ErrNotFound, ErrNotFound},
		{"wrapped not found", fmt.Errorf("post x: %w", storage.ErrNotFound), ErrNotFound},
		{"unsupported kind", posts.ErrUnsupportedKind, ErrUnsupportedType},
		{"permission denied", posts.ErrPermissionDenied, ErrPermissionDenied},
		{"invalid input", posts.ErrInvalidInput, ErrInvalidParams},
		{"precondition", storage.ErrPrecondition, ErrPrecondition},
		{"unavailable", storage.ErrUnavailable, ErrUnavailable},
		{"billing allow-list", billing.ErrPriceNotAllowed, ErrPermissionDenied},
		{"billing inactive", billing.ErrPriceInactive, ErrPrecondition},
		{"unknown error hidden", errors.New("pq: syntax error near SELECT"), ErrInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := translate(tt.err)
			if apiErr.Code != tt.code {
				t.Errorf("translate(%v) code = %d, want %d", tt.err, apiErr.Code, tt.code)
			}
		})
	}

	if translate(nil) != nil {
		t.Error("translate(nil) should be nil")
	}
}

func TestTranslateHidesInternals(t *testing.T) {
	apiErr := translate(errors.New("dial tcp 10.0.0.5:5432: connection refused"))
	if apiErr.Message != "server error" {
		t.Errorf("internal detail leaked: %q", apiErr.Message)
	}
}
