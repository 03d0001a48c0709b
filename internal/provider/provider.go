// Package provider defines the capability contract of the hosted identity/data
// provider and its implementations (Supabase over HTTP, in-memory).
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const (
	TableProfiles   = "profiles"
	TableProperties = "properties"

	// CodeUniqueViolation is the Postgres SQLSTATE for duplicate keys. PostgREST
	// relays it verbatim in its error body.
	CodeUniqueViolation = "23505"
)

// User is the provider's account object.
type User struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	Phone        string                 `json:"phone,omitempty"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
	CreatedAt    *time.Time             `json:"created_at,omitempty"`
}

// MetadataRole is the role recorded in account metadata at sign-up.
func (u *User) MetadataRole() string {
	if u == nil || u.UserMetadata == nil {
		return ""
	}
	role, _ := u.UserMetadata["role"].(string)
	return role
}

// Session is a provider-issued session.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	User         *User  `json:"user,omitempty"`
}

// Row is an opaque table row.
type Row = map[string]interface{}

// Filter narrows Select/Update/Delete. Eq holds column equality constraints.
type Filter struct {
	Eq     map[string]string
	Limit  int
	Offset int
	Order  string
}

// ByID is the common single-row filter.
func ByID(id string) Filter {
	return Filter{Eq: map[string]string{"id": id}}
}

// SignUpParams carries the sign-up credentials and account metadata.
type SignUpParams struct {
	Email    string
	Password string
	Metadata map[string]interface{}
}

type Auth interface {
	SignUp(ctx context.Context, params SignUpParams) (*User, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	UpdateUser(ctx context.Context, accessToken, password string) (*User, error)
	GetUser(ctx context.Context, accessToken string) (*User, error)
}

type Tables interface {
	Insert(ctx context.Context, table string, row Row) (Row, error)
	Select(ctx context.Context, table string, filter Filter) ([]Row, error)
	Update(ctx context.Context, table string, filter Filter, patch Row) ([]Row, error)
	Delete(ctx context.Context, table string, filter Filter) ([]Row, error)
}

type Provider interface {
	Auth
	Tables
}

// Error is a structured failure reported by the provider.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("provider error %d: %s", e.Status, e.Message)
}

// IsDuplicateKey reports whether err is a unique-key violation from any data plane.
func IsDuplicateKey(err error) bool {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Code == CodeUniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == CodeUniqueViolation
	}
	return false
}

// Message extracts the user-facing message of a provider error.
func Message(err error) string {
	var perr *Error
	if errors.As(err, &perr) && perr.Message != "" {
		return perr.Message
	}
	return err.Error()
}

type accessTokenKey struct{}

// WithAccessToken makes table calls act on behalf of the token's account.
func WithAccessToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessToken returns the token stored by WithAccessToken.
func AccessToken(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey{}).(string)
	return token
}

// Compose joins an Auth and a Tables implementation.
func Compose(auth Auth, tables Tables) Provider {
	return composed{Auth: auth, Tables: tables}
}

type composed struct {
	Auth
	Tables
}
