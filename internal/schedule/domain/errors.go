package domain

import (
	"errors"
	"fmt"
)

// ErrServiceUnavailable signals that the portal reported a maintenance or
// outage page. Callers fall back to the cached snapshot.
var ErrServiceUnavailable = errors.New("schedule service unavailable")

// ServiceUnavailableError carries the detection reason.
type ServiceUnavailableError struct {
	Reason string
}

func (e *ServiceUnavailableError) Error() string {
	if e.Reason == "" {
		return ErrServiceUnavailable.Error()
	}
	return fmt.Sprintf("%s: %s", ErrServiceUnavailable.Error(), e.Reason)
}

func (e *ServiceUnavailableError) Unwrap() error {
	return ErrServiceUnavailable
}

// IsServiceUnavailable reports whether err is, or wraps, an unavailability signal.
func IsServiceUnavailable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable)
}
