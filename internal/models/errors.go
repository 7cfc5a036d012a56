// ABOUTME: Error taxonomy shared by dispatch, entitlement and delivery
// ABOUTME: Sentinel errors for policy outcomes plus classified verification failures
package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInputIgnored means the selection trimmed to nothing; callers drop it silently
	ErrInputIgnored = errors.New("empty selection ignored")

	// ErrEntitlementDenied means a gated feature was used without entitlement
	ErrEntitlementDenied = errors.New("feature requires Pro")
)

// VerificationReason classifies a failed license verification
type VerificationReason string

const (
	ReasonInvalid     VerificationReason = "invalid"
	ReasonRateLimited VerificationReason = "rate_limited"
	ReasonTransport   VerificationReason = "transport"
)

// VerificationError is returned when a credential could not be verified
type VerificationError struct {
	Reason VerificationReason
	Status int
	Err    error
}

func (e *VerificationError) Error() string {
	switch e.Reason {
	case ReasonRateLimited:
		return "too many attempts, please wait a minute and try again"
	case ReasonInvalid:
		return "invalid license key"
	}
	if e.Status != 0 {
		return fmt.Sprintf("could not verify (status %d)", e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("network error while verifying: %v", e.Err)
	}
	return "could not verify"
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}
