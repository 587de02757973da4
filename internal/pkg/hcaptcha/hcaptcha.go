package hcaptcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ManuelReschke/BizFox/internal/pkg/env"
)

const DefaultEndpoint = "https://hcaptcha.com/siteverify"

var (
	ErrEmptyToken    = errors.New("hCaptcha token is empty")
	ErrMissingSecret = errors.New("hCaptcha secret is not set")
)

type Response struct {
	Success     bool     `json:"success"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
	ErrorCodes  []string `json:"error-codes"`
}

// Verifier checks hCaptcha tokens against the siteverify API
type Verifier struct {
	Secret   string
	Endpoint string
	Client   *http.Client
}

// NewFromEnv reads HCAPTCHA_SECRET
func NewFromEnv() *Verifier {
	return &Verifier{
		Secret:   env.GetEnv("HCAPTCHA_SECRET", ""),
		Endpoint: DefaultEndpoint,
		Client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Verify returns nil when the token was solved
func (v *Verifier) Verify(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	if v.Secret == "" {
		return ErrMissingSecret
	}

	form := url.Values{
		"secret":   {v.Secret},
		"response": {token},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to hCaptcha API: %w", err)
	}
	defer resp.Body.Close()

	var response Response
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode hCaptcha API response: %w", err)
	}

	if !response.Success {
		msg := "hCaptcha validation failed"
		if len(response.ErrorCodes) > 0 {
			msg += ": " + strings.Join(response.ErrorCodes, ", ")
		}
		return errors.New(msg)
	}
	return nil
}
