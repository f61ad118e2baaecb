// Package notify sends a single alert to the CallMeBot WhatsApp API over a
// plain TCP connection and reports the outcome as a DeliveryResult.
package notify

import "time"

// AlertPayload is the fixed content sent for one alert.
type AlertPayload struct {
	Message string
	Phone   string
	APIKey  string
}

// State is the lifecycle state of an outbound request.
type State int

const (
	Connecting State = iota
	Sending
	AwaitingResponse
	Complete
	Failed
	TimedOut
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Sending:
		return "SENDING"
	case AwaitingResponse:
		return "AWAITING_RESPONSE"
	case Complete:
		return "COMPLETE"
	case Failed:
		return "FAILED"
	case TimedOut:
		return "TIMED_OUT"
	}
	return "UNKNOWN"
}

// FailureKind classifies why a delivery did not succeed.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureResolution
	FailureResolutionTimedOut
	FailureConnect
	FailureWrite
	FailureResponseTimedOut
	FailureNonSuccess
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureResolution:
		return "resolution_failed"
	case FailureResolutionTimedOut:
		return "resolution_timed_out"
	case FailureConnect:
		return "connect_failed"
	case FailureWrite:
		return "write_failed"
	case FailureResponseTimedOut:
		return "response_timed_out"
	case FailureNonSuccess:
		return "non_success_response"
	}
	return "unknown"
}

// DeliveryResult is the terminal outcome of one Send. It is owned by the
// caller and never shared between requests.
type DeliveryResult struct {
	RequestID  string
	OK         bool
	StatusLine string
	Failure    FailureKind
	State      State
	Elapsed    time.Duration
	Err        error
}

// Outcome returns "ok" or the failure kind, for logs and metrics labels.
func (r DeliveryResult) Outcome() string {
	if r.OK {
		return "ok"
	}
	return r.Failure.String()
}
