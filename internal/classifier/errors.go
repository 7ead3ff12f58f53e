package classifier

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Sentinel errors for every way a remote classification can fail.
var (
	ErrMissingCredential = errors.New("classifier credential not configured")
	ErrTransport         = errors.New("classifier transport failure")
	ErrBadStatus         = errors.New("classifier returned non-success status")
	ErrMalformed         = errors.New("classifier returned malformed response")
	ErrTimeout           = errors.New("classifier timed out")
)

// Failure kind constants
const (
	FailureNone              = "none"
	FailureMissingCredential = "missing_credential"
	FailureTransport         = "transport_error"
	FailureBadStatus         = "bad_status"
	FailureMalformed         = "malformed_response"
	FailureTimeout           = "timeout"
)

// StatusError carries the HTTP status of a rejected request.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("classifier returned status %d", e.Code)
	}
	return fmt.Sprintf("classifier returned status %d: %s", e.Code, e.Body)
}

// Is makes errors.Is(err, ErrBadStatus) hold for any StatusError.
func (e *StatusError) Is(target error) bool {
	return target == ErrBadStatus
}

// FailureKind maps an error to a stable label for logs, metrics and degraded
// results. Errors that match no sentinel are reported as transport errors.
func FailureKind(err error) string {
	if err == nil {
		return FailureNone
	}

	switch {
	case errors.Is(err, ErrMissingCredential):
		return FailureMissingCredential
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	case errors.Is(err, ErrBadStatus):
		return FailureBadStatus
	case errors.Is(err, ErrMalformed):
		return FailureMalformed
	}

	// Check if it's a network error with Timeout() method
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}

	return FailureTransport
}

// wrapTransport classifies an error returned while talking to a provider.
func wrapTransport(ctx context.Context, err error) error {
	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrTransport, err)
}
