// ABOUTME: HTTP license verifier for Pro activation
// ABOUTME: Classifies responses into valid, invalid, rate limited and transport failures
package entitlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rajujutsu/highlight-to-chatgpt/internal/models"
)

// HTTPVerifier posts license keys to a verification endpoint
type HTTPVerifier struct {
	url    string
	client *http.Client
}

// NewHTTPVerifier creates a verifier for url with a request timeout
func NewHTTPVerifier(url string, timeout time.Duration) *HTTPVerifier {
	return &HTTPVerifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type verifyRequest struct {
	LicenseKey string `json:"license_key"`
}

type verifyResponse struct {
	Valid *bool `json:"valid"`
}

// Verify sends exactly one request for credential
func (v *HTTPVerifier) Verify(ctx context.Context, credential string) error {
	body, err := json.Marshal(verifyRequest{LicenseKey: credential})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return &models.VerificationError{Reason: models.ReasonTransport, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return &models.VerificationError{Reason: models.ReasonTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &models.VerificationError{Reason: models.ReasonRateLimited, Status: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &models.VerificationError{Reason: models.ReasonTransport, Status: resp.StatusCode}
	}

	var parsed verifyResponse
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return &models.VerificationError{Reason: models.ReasonTransport, Err: err}
	}
	// Unparseable or ambiguous bodies are treated as a rejected key
	if err := json.Unmarshal(data, &parsed); err != nil || parsed.Valid == nil || !*parsed.Valid {
		return &models.VerificationError{Reason: models.ReasonInvalid, Status: resp.StatusCode}
	}
	return nil
}
