package routing

import (
	"errors"
	"fmt"

	"github.com/zalando/fastlane/metrics"
)

type invalidDefinitionError string

func (e invalidDefinitionError) Error() string { return string(e) }
func (e invalidDefinitionError) Code() string  { return string(e) }

var (
	errMissingID        = invalidDefinitionError("missing_id")
	errDuplicateID      = invalidDefinitionError("duplicate_id")
	errInvalidPath      = invalidDefinitionError("invalid_path")
	errInvalidMethod    = invalidDefinitionError("invalid_method")
	errInvalidMediaType = invalidDefinitionError("invalid_media_type")
	errInvalidHeader    = invalidDefinitionError("invalid_header")
	errInvalidParameter = invalidDefinitionError("invalid_parameter")
	errInvalidBackend   = invalidDefinitionError("invalid_backend")
)

// WrapInvalidDefinitionReason marks err as a route definition error with
// the given reason code.
func WrapInvalidDefinitionReason(reason string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", invalidDefinitionError(reason), err)
}

// HandleValidationError reports an invalid route to the metrics, with
// the reason code of the error, and returns the error prefixed with the
// reason.
func HandleValidationError(mtr metrics.Metrics, err error, routeId string) error {
	if err == nil {
		return nil
	}

	var defErr invalidDefinitionError
	reason := "other"
	if errors.As(err, &defErr) {
		reason = defErr.Code()
	}
	mtr.SetInvalidRoute(routeId, reason)

	return fmt.Errorf("%s: %w", reason, err)
}
