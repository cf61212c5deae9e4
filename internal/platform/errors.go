package platform

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/sony/gobreaker"

	"github.com/dwsmith1983/actorrelay/pkg/types"
)

// ErrMalformedResponse is returned when the platform answers 2xx but the body
// lacks a required field.
var ErrMalformedResponse = errors.New("malformed platform response")

// TransportError is a network failure or non-2xx answer from the platform.
// StatusCode is zero when no HTTP response was received.
type TransportError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		if e.Body != "" {
			return fmt.Sprintf("%s: platform returned status %d: %s", e.Op, e.StatusCode, e.Body)
		}
		return fmt.Sprintf("%s: platform returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: request failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransportError reports whether err is or wraps a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// ClassifyFailure categorizes a platform call error.
func ClassifyFailure(err error) types.FailureCategory {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return types.FailureTimeout
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrMalformedResponse) {
		return types.FailurePermanent
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return types.FailurePermanent
	}

	var te *TransportError
	if errors.As(err, &te) && te.StatusCode != 0 {
		// 4xx are client errors, except rate limiting.
		if te.StatusCode == http.StatusTooManyRequests || te.StatusCode == http.StatusRequestTimeout {
			return types.FailureTransient
		}
		if te.StatusCode < 500 {
			return types.FailurePermanent
		}
	}
	return types.FailureTransient
}

// requestNotProcessed reports whether the platform certainly did not act on
// the request: the dial failed, or the platform answered 429.
func requestNotProcessed(err error) bool {
	var te *TransportError
	if errors.As(err, &te) && te.StatusCode == http.StatusTooManyRequests {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
