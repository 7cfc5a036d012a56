// ABOUTME: Tests for the verification error classification
// ABOUTME: Ensures rate limiting is never reported as an invalid key
package models

import (
	"errors"
	"strings"
	"testing"
)

func TestVerificationError_Messages(t *testing.T) {
	tests := []struct {
		name string
		err  *VerificationError
		want string
	}{
		{"rate limited", &VerificationError{Reason: ReasonRateLimited, Status: 429}, "too many attempts"},
		{"invalid", &VerificationError{Reason: ReasonInvalid}, "invalid license key"},
		{"status", &VerificationError{Reason: ReasonTransport, Status: 502}, "status 502"},
		{"network", &VerificationError{Reason: ReasonTransport, Err: errors.New("dial tcp")}, "network error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); !strings.Contains(got, tt.want) {
				t.Errorf("Error() = %q, want containing %q", got, tt.want)
			}
		})
	}

	rl := &VerificationError{Reason: ReasonRateLimited, Status: 429}
	if strings.Contains(rl.Error(), "invalid") {
		t.Error("rate limited message must not mention invalidity")
	}
}

func TestVerificationError_Unwrap(t *testing.T) {
	base := errors.New("connection refused")
	var err error = &VerificationError{Reason: ReasonTransport, Err: base}

	if !errors.Is(err, base) {
		t.Error("errors.Is should reach the wrapped transport error")
	}

	var ve *VerificationError
	if !errors.As(err, &ve) || ve.Reason != ReasonTransport {
		t.Error("errors.As should recover the VerificationError")
	}
}
