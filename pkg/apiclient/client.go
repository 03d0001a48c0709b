// Package apiclient is the Go client of the property listing API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "http://localhost:3001/api"

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenStore
}

type Option func(*Client)

func WithTokenStore(store TokenStore) Option {
	return func(c *Client) { c.tokens = store }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New builds a client for baseURL, e.g. http://localhost:3001/api.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     NopStore{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tokens == nil {
		c.tokens = NopStore{}
	}
	return c
}

// ErrInvalidResponse is returned when a 2xx answer does not carry a JSON body.
var ErrInvalidResponse = errors.New("response body is not JSON")

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status     int
	StatusText string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("Error %d: %s", e.Status, e.StatusText)
}

type User struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	Phone        string                 `json:"phone,omitempty"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
	CreatedAt    string                 `json:"created_at,omitempty"`
}

type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	User         *User  `json:"user,omitempty"`
}

type AuthResponse struct {
	Message string   `json:"message"`
	Session *Session `json:"session,omitempty"`
	User    *User    `json:"user,omitempty"`
}

type RegisterParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type RecaptchaResult struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error_codes"`
}

type Health struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	Environment string `json:"environment"`
}

// Property and Profile are passed through as the provider stores them.
type (
	Property = map[string]interface{}
	Profile  = map[string]interface{}
)

type messageResponse struct {
	Message string `json:"message"`
}

// Token returns the stored session token, if any.
func (c *Client) Token() string {
	return c.tokens.Get()
}

func (c *Client) VerifyRecaptcha(ctx context.Context, token string) (*RecaptchaResult, error) {
	var out RecaptchaResult
	if err := c.do(ctx, http.MethodPost, "/auth/verify-recaptcha", map[string]string{"token": token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, params RegisterParams) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login stores the session token when the server issues one.
func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", creds, &out); err != nil {
		return nil, err
	}
	if out.Session != nil && out.Session.AccessToken != "" {
		c.tokens.Set(out.Session.AccessToken)
	}
	return &out, nil
}

// Logout clears the stored token whatever the server answers.
func (c *Client) Logout(ctx context.Context) error {
	defer c.tokens.Clear()
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

func (c *Client) ResetPassword(ctx context.Context, email string) (string, error) {
	var out messageResponse
	if err := c.do(ctx, http.MethodPost, "/auth/reset-password", map[string]string{"email": email}, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) UpdatePassword(ctx context.Context, password string) (string, error) {
	var out messageResponse
	if err := c.do(ctx, http.MethodPost, "/auth/update-password", map[string]string{"password": password}, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) GetSession(ctx context.Context) (*User, error) {
	var out struct {
		User *User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/session", nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (c *Client) GetProfile(ctx context.Context) (Profile, error) {
	var out struct {
		Profile Profile `json:"profile"`
	}
	if err := c.do(ctx, http.MethodGet, "/users/profile", nil, &out); err != nil {
		return nil, err
	}
	return out.Profile, nil
}

func (c *Client) UpdateProfile(ctx context.Context, profile Profile) (Profile, error) {
	var out struct {
		Profile Profile `json:"profile"`
	}
	if err := c.do(ctx, http.MethodPut, "/users/profile", profile, &out); err != nil {
		return nil, err
	}
	return out.Profile, nil
}

// GetProperties lists properties; filters become query parameters.
func (c *Client) GetProperties(ctx context.Context, filters url.Values) ([]Property, error) {
	path := "/properties"
	if q := filters.Encode(); q != "" {
		path += "?" + q
	}
	var out struct {
		Properties []Property `json:"properties"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Properties, nil
}

func (c *Client) GetProperty(ctx context.Context, id string) (Property, error) {
	var out struct {
		Property Property `json:"property"`
	}
	if err := c.do(ctx, http.MethodGet, "/properties/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return out.Property, nil
}

func (c *Client) CreateProperty(ctx context.Context, property Property) (Property, error) {
	var out struct {
		Property Property `json:"property"`
	}
	if err := c.do(ctx, http.MethodPost, "/properties", property, &out); err != nil {
		return nil, err
	}
	return out.Property, nil
}

func (c *Client) UpdateProperty(ctx context.Context, id string, property Property) (Property, error) {
	var out struct {
		Property Property `json:"property"`
	}
	if err := c.do(ctx, http.MethodPut, "/properties/"+url.PathEscape(id), property, &out); err != nil {
		return nil, err
	}
	return out.Property, nil
}

func (c *Client) DeleteProperty(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/properties/"+url.PathEscape(id), nil, nil)
}

func (c *Client) HealthCheck(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.tokens.Get(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		apiErr := &APIError{Status: res.StatusCode, StatusText: http.StatusText(res.StatusCode)}
		var envelope struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &envelope) == nil {
			apiErr.Message = envelope.Error
		}
		return apiErr
	}

	if !json.Valid(raw) {
		return fmt.Errorf("decode %s %s response: %w", method, path, ErrInvalidResponse)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
