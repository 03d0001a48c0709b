package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AnshRaj112/propertyhub-backend/internal/apperror"
)

const DefaultRecaptchaVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// RecaptchaResult is the verdict relayed to the caller.
type RecaptchaResult struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error_codes"`
}

// RecaptchaVerifier exchanges a client token for a verdict. One attempt, no cache.
type RecaptchaVerifier struct {
	secret    string
	verifyURL string
	client    *http.Client
}

func NewRecaptchaVerifier(secret, verifyURL string, timeout time.Duration) *RecaptchaVerifier {
	if verifyURL == "" {
		verifyURL = DefaultRecaptchaVerifyURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RecaptchaVerifier{
		secret:    secret,
		verifyURL: verifyURL,
		client:    &http.Client{Timeout: timeout},
	}
}

func (v *RecaptchaVerifier) Verify(ctx context.Context, token string) (*RecaptchaResult, error) {
	if token == "" {
		return nil, apperror.Validation("Token not provided")
	}
	if v.secret == "" {
		return nil, apperror.Configuration("reCAPTCHA secret key is not configured")
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "failed to build verification request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, apperror.Upstream(err.Error(), err)
	}
	defer resp.Body.Close()

	var body struct {
		Success    bool     `json:"success"`
		ErrorCodes []string `json:"error-codes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperror.Upstream(fmt.Sprintf("invalid verification response: %v", err), err)
	}
	return &RecaptchaResult{Success: body.Success, ErrorCodes: body.ErrorCodes}, nil
}
