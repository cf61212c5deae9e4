package relay

import (
	"errors"
	"net/http"

	"github.com/dwsmith1983/actorrelay/internal/platform"
	"github.com/dwsmith1983/actorrelay/pkg/types"
)

// ErrorBody is the generic error shape.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// FailureBody reports a run that reached FAILED.
type FailureBody struct {
	Error         string `json:"error"`
	StatusMessage string `json:"statusMessage"`
	MonitorURL    string `json:"monitorUrl"`
}

// TimeoutBody reports a run whose outcome is still unknown.
type TimeoutBody struct {
	Error        string `json:"error"`
	MonitorURL   string `json:"monitorUrl"`
	AttemptsMade int    `json:"attemptsMade"`
}

// CancelledBody reports an orchestration abandoned by the caller.
type CancelledBody struct {
	Error      string `json:"error"`
	MonitorURL string `json:"monitorUrl,omitempty"`
}

// Respond maps a run outcome to an HTTP status and JSON body.
func Respond(out types.RunOutcome) (int, interface{}) {
	switch out.Kind {
	case types.OutcomeSucceeded:
		record := out.Record
		if record == nil {
			record = map[string]interface{}{}
		}
		return http.StatusOK, record
	case types.OutcomeFailed:
		return http.StatusOK, FailureBody{
			Error:         "run failed",
			StatusMessage: out.Message,
			MonitorURL:    out.MonitorURL,
		}
	case types.OutcomeTimeout:
		return http.StatusAccepted, TimeoutBody{
			Error:        "timeout",
			MonitorURL:   out.MonitorURL,
			AttemptsMade: out.AttemptsMade,
		}
	case types.OutcomeCancelled:
		return http.StatusServiceUnavailable, CancelledBody{
			Error:      "cancelled",
			MonitorURL: out.MonitorURL,
		}
	case types.OutcomeMalformed:
		return http.StatusBadGateway, ErrorBody{Error: "malformed response", Message: out.Message}
	default:
		if code, ok := upstreamStatus(out.Err); ok {
			return code, ErrorBody{Error: http.StatusText(code), Message: out.Message}
		}
		return http.StatusBadGateway, ErrorBody{Error: "transport error", Message: out.Message}
	}
}

// upstreamStatus returns the platform status worth passing through: a bad
// key or unknown actor is the caller's problem, not an outage.
func upstreamStatus(err error) (int, bool) {
	var te *platform.TransportError
	if !errors.As(err, &te) {
		return 0, false
	}
	switch te.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return te.StatusCode, true
	}
	return 0, false
}

// RespondError maps an operation error to an HTTP status and JSON body.
// Authentication and lookup failures reported by the platform keep their
// status so the caller can tell a bad key from an outage.
func RespondError(err error) (int, ErrorBody) {
	if errors.Is(err, ErrInvalidRequest) {
		return http.StatusBadRequest, ErrorBody{Error: "invalid request", Message: err.Error()}
	}
	if code, ok := upstreamStatus(err); ok {
		return code, ErrorBody{Error: http.StatusText(code), Message: err.Error()}
	}
	if platform.IsTransportError(err) {
		return http.StatusBadGateway, ErrorBody{Error: "transport error", Message: err.Error()}
	}
	if errors.Is(err, platform.ErrMalformedResponse) {
		return http.StatusBadGateway, ErrorBody{Error: "malformed response", Message: err.Error()}
	}
	return http.StatusInternalServerError, ErrorBody{Error: "Server error", Message: err.Error()}
}
