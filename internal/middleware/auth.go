package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AnshRaj112/propertyhub-backend/internal/provider"
	"github.com/AnshRaj112/propertyhub-backend/internal/services"
	"github.com/AnshRaj112/propertyhub-backend/pkg/log"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// UserLookup resolves a token at the provider.
type UserLookup interface {
	GetUser(ctx context.Context, accessToken string) (*provider.User, error)
}

// Authenticator turns bearer tokens into accounts. With a JWT secret, tokens are
// verified locally; otherwise the provider is asked, through the token cache.
type Authenticator struct {
	lookup    UserLookup
	cache     *services.TokenCache
	jwtSecret []byte
	logger    log.Logger
}

func NewAuthenticator(lookup UserLookup, cache *services.TokenCache, jwtSecret string, logger log.Logger) *Authenticator {
	a := &Authenticator{lookup: lookup, cache: cache, logger: logger}
	if jwtSecret != "" {
		a.jwtSecret = []byte(jwtSecret)
	}
	return a
}

type accessClaims struct {
	Email        string                 `json:"email"`
	Phone        string                 `json:"phone"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
	jwt.RegisteredClaims
}

func (a *Authenticator) Resolve(ctx context.Context, token string) (*provider.User, error) {
	if a.jwtSecret != nil {
		return a.verifyLocally(token)
	}

	user, err := a.cache.Get(ctx, token)
	if err != nil {
		a.logger.Warn().Err(err).Msg("token cache read failed")
	}
	if user != nil {
		return user, nil
	}

	user, err = a.lookup.GetUser(ctx, token)
	if err != nil {
		var perr *provider.Error
		if errors.As(err, &perr) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if err := a.cache.Set(ctx, token, user); err != nil {
		a.logger.Warn().Err(err).Msg("token cache write failed")
	}
	return user, nil
}

func (a *Authenticator) verifyLocally(token string) (*provider.User, error) {
	var claims accessClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return a.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &provider.User{
		ID:           claims.Subject,
		Email:        claims.Email,
		Phone:        claims.Phone,
		UserMetadata: claims.UserMetadata,
	}, nil
}

// RequireAuth rejects requests without a valid bearer token with 401.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		user, err := a.Resolve(r.Context(), token)
		if err != nil {
			if !errors.Is(err, ErrInvalidToken) {
				a.logger.Error().Err(err).Msg("token verification failed")
			}
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user, token)))
	})
}

// OptionalAuth attaches the account when the token is good and otherwise carries on anonymously.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		user, err := a.Resolve(r.Context(), token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user, token)))
	})
}

// BearerToken returns the token of an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

type userKey struct{}

func withUser(ctx context.Context, user *provider.User, token string) context.Context {
	ctx = context.WithValue(ctx, userKey{}, user)
	return provider.WithAccessToken(ctx, token)
}

// UserFromContext returns the account set by RequireAuth or OptionalAuth.
func UserFromContext(ctx context.Context) (*provider.User, bool) {
	user, ok := ctx.Value(userKey{}).(*provider.User)
	return user, ok && user != nil
}
