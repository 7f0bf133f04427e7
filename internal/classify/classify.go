// Package classify maps push-gateway outcomes onto the fixed taxonomy that
// drives event emission, billing, and contact removal.
package classify

import "pushflow/internal/gateway"

// Result is the transient classification of one delivery attempt. It is never
// persisted; exactly one of the flags is set, or none when the gateway
// returned nothing classifiable.
type Result struct {
	DeliveredOK         bool
	InvalidSubscription bool
	RateLimited         bool
	UnknownFailure      bool
	FailedProcessing    bool
	ErrorMessage        string
}

// None reports whether the outcome carries no delivery fact at all.
func (r Result) None() bool {
	return !r.DeliveredOK && !r.InvalidSubscription && !r.RateLimited && !r.UnknownFailure && !r.FailedProcessing
}

// Gateway error codes with a defined meaning. Anything else is an unknown
// failure.
const (
	codeUnauthorized = 401
	codeNotFound     = 404
	codeGone         = 410
	codeRateLimited  = 429
)

// Classify applies the priority-ordered rules to one gateway call outcome.
// callErr is the transport error, if the RPC itself failed before a response
// was received; resp is the gateway's structured response, if any.
func Classify(resp *gateway.SendResponse, callErr error) Result {
	if callErr != nil {
		// A call failure is a processing fault, not a delivery fact.
		return Result{FailedProcessing: true, ErrorMessage: callErr.Error()}
	}

	if resp == nil || len(resp.Responses) == 0 {
		return Result{}
	}

	return classifyResult(resp.Responses[0])
}

func classifyResult(res gateway.DeliveryResult) Result {
	if res.IsSuccess {
		return Result{DeliveredOK: true}
	}

	if res.Exception == nil {
		return Result{UnknownFailure: true}
	}

	switch res.Exception.MessagingErrorCode {
	case codeRateLimited:
		return Result{RateLimited: true, ErrorMessage: res.Exception.Message}
	case codeNotFound, codeGone, codeUnauthorized:
		// The endpoint is permanently dead.
		return Result{InvalidSubscription: true, ErrorMessage: res.Exception.Message}
	default:
		return Result{UnknownFailure: true, ErrorMessage: res.Exception.Message}
	}
}
