package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport wraps failures to reach the backend at all.
	ErrTransport = errors.New("backend unreachable")

	// ErrDecode wraps responses whose body did not have the expected shape.
	ErrDecode = errors.New("unexpected response body")
)

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Error classes reported by Classify.
const (
	ClassOK        = "ok"
	ClassTransport = "transport"
	ClassStatus    = "status"
	ClassDecode    = "decode"
	ClassOther     = "other"
)

// Classify maps an error returned by Client to one of the error classes.
func Classify(err error) string {
	if err == nil {
		return ClassOK
	}
	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr):
		return ClassStatus
	case errors.Is(err, ErrTransport):
		return ClassTransport
	case errors.Is(err, ErrDecode):
		return ClassDecode
	default:
		return ClassOther
	}
}

// IsNotFound reports whether the backend answered 404.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == 404
}
