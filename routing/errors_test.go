package routing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/zalando/fastlane/metrics/metricstest"
)

func TestValidationErrors(t *testing.T) {
	for _, tt := range []struct {
		name    string
		err     error
		wantErr error
		reason  string
	}{
		{
			name:    "test DuplicateID",
			err:     errDuplicateID,
			wantErr: errDuplicateID,
			reason:  "duplicate_id",
		},
		{
			name:    "test InvalidPath",
			err:     fmt.Errorf("%w: relative path", errInvalidPath),
			wantErr: errInvalidPath,
			reason:  "invalid_path",
		},
		{
			name:    "test InvalidMediaType",
			err:     WrapInvalidDefinitionReason("invalid_media_type", errors.New("mime: no media type")),
			wantErr: errInvalidMediaType,
			reason:  "invalid_media_type",
		},
		{
			name:    "test InvalidBackend",
			err:     errInvalidBackend,
			wantErr: errInvalidBackend,
			reason:  "invalid_backend",
		},
		{
			name:    "test other",
			err:     errors.New("something else"),
			wantErr: nil,
			reason:  "other",
		}} {
		t.Run(tt.name, func(t *testing.T) {
			mtr := &metricstest.MockMetrics{}
			err := HandleValidationError(mtr, tt.err, "r")
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Failed to get error %v, got %v", tt.wantErr, err)
			}

			reason, ok := mtr.InvalidRoute("r")
			if !ok {
				t.Fatal("Failed to get invalid route metric")
			}

			if reason != tt.reason {
				t.Fatalf("Failed to get reason %q, got %q", tt.reason, reason)
			}
		})
	}
}

func TestValidationErrorsNoError(t *testing.T) {
	routeID := "r"
	mtr := &metricstest.MockMetrics{}
	mtr.SetInvalidRoute(routeID, errInvalidMethod.Error())

	err := HandleValidationError(mtr, nil, routeID)
	if err != nil {
		t.Fatalf("Failed to get no error, got: %v", err)
	}

	mtr.WithGauges(func(g map[string]float64) {
		key := fmt.Sprintf("route.invalid.%s..%s", routeID, errInvalidMethod)
		if v := g[key]; v != 1 {
			t.Fatalf("Invalid route metric should remain set, got %0.2f", v)
		}
	})
}

func TestWrapInvalidDefinitionReason(t *testing.T) {
	for _, tt := range []struct {
		name    string
		err     error
		wantErr error
	}{
		{
			name:    "test nil is not an error",
			err:     nil,
			wantErr: nil,
		},
		{
			name:    "test InvalidHeader is wrapped",
			err:     errInvalidHeader,
			wantErr: errInvalidHeader,
		}} {
		t.Run(tt.name, func(t *testing.T) {
			err := WrapInvalidDefinitionReason("reason", tt.err)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Failed to wrap error, want %v, got %v", tt.wantErr, err)
			}
		})
	}
}
