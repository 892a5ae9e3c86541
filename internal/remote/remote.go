// Package remote holds the failure vocabulary shared by the external ledger
// clients. Expected remote failures are values, not Go errors: callers branch
// on the kind instead of unwrapping error chains.
package remote

import (
	"context"
	"errors"
	"net"
)

type FailureKind string

const (
	KindNone             FailureKind = ""
	KindTimeout          FailureKind = "timeout"
	KindAuthRejected     FailureKind = "auth_rejected"
	KindBusinessRejected FailureKind = "business_rejected"
	KindPoolUnavailable  FailureKind = "pool_unavailable"
)

// Retryable reports whether a failure of this kind may succeed on retry
// without operator involvement.
func (k FailureKind) Retryable() bool {
	return k == KindTimeout || k == KindPoolUnavailable
}

// ClassifyTransportError maps a transport-level error from an HTTP round trip
// to a failure kind. Timeouts and cancellations are distinct from everything
// else so they are never mistaken for a permanent rejection.
func ClassifyTransportError(err error) FailureKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindBusinessRejected
}
