// Package antibot verifies anti-automation tokens against a Turnstile-style
// siteverify endpoint.
package antibot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// Verifier checks checkout tokens. Construct with New; a zero Verifier is
// not usable (the coordinator treats a nil CaptchaVerifier as disabled).
type Verifier struct {
	secret    string
	verifyURL string
	client    *http.Client
}

func New(secret string) *Verifier {
	return &Verifier{
		secret:    secret,
		verifyURL: defaultVerifyURL,
		client:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Verify posts the token to the verification endpoint. Any non-success
// verdict is an error; the coordinator maps it to a customer-facing
// rejection.
func (v *Verifier) Verify(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("missing token")
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("verify request: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		Success    bool     `json:"success"`
		ErrorCodes []string `json:"error-codes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("verify decode: %w", err)
	}
	if !out.Success {
		return fmt.Errorf("verification rejected: %s", strings.Join(out.ErrorCodes, ","))
	}
	return nil
}
