package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SupabaseClient talks to a Supabase project: GoTrue for auth, PostgREST for tables.
type SupabaseClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewSupabaseClient(baseURL, apiKey string, timeout time.Duration) *SupabaseClient {
	return &SupabaseClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

var _ Provider = (*SupabaseClient)(nil)

// signup returns either a bare user (confirmation pending) or a session.
type signupResponse struct {
	User
	AccessToken string `json:"access_token"`
	SessionUser *User  `json:"user"`
}

func (c *SupabaseClient) SignUp(ctx context.Context, params SignUpParams) (*User, error) {
	payload := map[string]interface{}{
		"email":    params.Email,
		"password": params.Password,
		"data":     params.Metadata,
	}
	var resp signupResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", "", payload, &resp, nil); err != nil {
		return nil, err
	}
	if resp.AccessToken != "" && resp.SessionUser != nil {
		return resp.SessionUser, nil
	}
	if resp.ID == "" {
		return nil, nil
	}
	user := resp.User
	return &user, nil
}

func (c *SupabaseClient) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	payload := map[string]string{"email": email, "password": password}
	var session Session
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", payload, &session, nil); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *SupabaseClient) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, nil, nil)
}

func (c *SupabaseClient) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	path := "/auth/v1/recover"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	return c.do(ctx, http.MethodPost, path, "", map[string]string{"email": email}, nil, nil)
}

func (c *SupabaseClient) UpdateUser(ctx context.Context, accessToken, password string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodPut, "/auth/v1/user", accessToken, map[string]string{"password": password}, &user, nil); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *SupabaseClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil, &user, nil); err != nil {
		return nil, err
	}
	return &user, nil
}

// do performs one request. A non-empty bearer overrides the anon key in Authorization.
func (c *SupabaseClient) do(ctx context.Context, method, path, bearer string, payload, out interface{}, header http.Header) error {
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
	if bearer == "" {
		bearer = c.apiKey
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	if res.StatusCode >= 400 {
		return decodeError(res.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}

// errorBody covers GoTrue ({msg, error_code}, {error, error_description}) and
// PostgREST ({code, message, details}) error shapes.
type errorBody struct {
	Code             json.RawMessage `json:"code"`
	ErrorCode        string          `json:"error_code"`
	Msg              string          `json:"msg"`
	Message          string          `json:"message"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

func decodeError(status int, raw []byte) error {
	perr := &Error{Status: status}
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		perr.Message = strings.TrimSpace(string(raw))
		if perr.Message == "" {
			perr.Message = http.StatusText(status)
		}
		return perr
	}

	var code string
	if len(body.Code) > 0 && json.Unmarshal(body.Code, &code) == nil {
		perr.Code = code
	}
	if perr.Code == "" {
		perr.Code = body.ErrorCode
	}
	if perr.Code == "" {
		perr.Code = body.Error
	}

	for _, m := range []string{body.Msg, body.Message, body.ErrorDescription, body.Error} {
		if m != "" {
			perr.Message = m
			break
		}
	}
	if perr.Message == "" {
		perr.Message = http.StatusText(status)
	}
	return perr
}
