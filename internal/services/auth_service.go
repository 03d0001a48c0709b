package services

import (
	"context"
	"fmt"

	"github.com/AnshRaj112/propertyhub-backend/internal/apperror"
	"github.com/AnshRaj112/propertyhub-backend/internal/provider"
	"github.com/AnshRaj112/propertyhub-backend/pkg/log"
)

const MinPasswordLength = 6

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// ProfileOutcome tells what happened to the profile row after sign-up.
type ProfileOutcome int

const (
	// ProfileSkipped means the provider returned no account to attach a profile to.
	ProfileSkipped ProfileOutcome = iota
	ProfileCreated
	// ProfileExists is a duplicate key on insert; the row is already there.
	ProfileExists
	// ProfileFailed is logged but does not fail the registration.
	ProfileFailed
)

func (o ProfileOutcome) String() string {
	switch o {
	case ProfileCreated:
		return "created"
	case ProfileExists:
		return "exists"
	case ProfileFailed:
		return "failed"
	default:
		return "skipped"
	}
}

type RegisterResult struct {
	User    *provider.User
	Profile ProfileOutcome
}

type AuthService struct {
	provider      provider.Provider
	tokens        *TokenCache
	audit         AuditLog
	resetRedirect string
	logger        log.Logger
}

// NewAuthService wires the auth flows. tokens may be nil and audit defaults to a no-op.
func NewAuthService(p provider.Provider, tokens *TokenCache, audit AuditLog, resetRedirect string, logger log.Logger) *AuthService {
	if audit == nil {
		audit = NopAuditLog{}
	}
	return &AuthService{
		provider:      p,
		tokens:        tokens,
		audit:         audit,
		resetRedirect: resetRedirect,
		logger:        logger,
	}
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if req.Email == "" || req.Password == "" || req.Phone == "" || req.Role == "" {
		return nil, apperror.Validation("All fields are required")
	}
	if len(req.Password) < MinPasswordLength {
		return nil, apperror.Validation(fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}

	user, err := s.provider.SignUp(ctx, provider.SignUpParams{
		Email:    req.Email,
		Password: req.Password,
		Metadata: map[string]interface{}{"phone": req.Phone, "role": req.Role},
	})
	if err != nil {
		s.record(ctx, AuthEvent{Action: ActionRegister, Email: req.Email, Reason: provider.Message(err)})
		return nil, upstream(err)
	}

	result := &RegisterResult{User: user}
	if user != nil && user.ID != "" {
		result.Profile = s.createProfile(ctx, user.ID, req)
	}

	s.record(ctx, AuthEvent{Action: ActionRegister, Email: req.Email, UserID: userID(user), Success: true})
	return result, nil
}

func (s *AuthService) createProfile(ctx context.Context, id string, req RegisterRequest) ProfileOutcome {
	_, err := s.provider.Insert(ctx, provider.TableProfiles, provider.Row{
		"id":    id,
		"email": req.Email,
		"phone": req.Phone,
		"role":  req.Role,
	})
	switch {
	case err == nil:
		return ProfileCreated
	case provider.IsDuplicateKey(err):
		return ProfileExists
	default:
		s.logger.Error().Err(err).Str("user_id", id).Msg("error creating profile")
		return ProfileFailed
	}
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*provider.Session, error) {
	if req.Email == "" || req.Password == "" || req.Role == "" {
		return nil, apperror.Validation("All fields are required")
	}

	session, err := s.provider.SignInWithPassword(ctx, req.Email, req.Password)
	if err != nil {
		s.record(ctx, AuthEvent{Action: ActionLogin, Email: req.Email, Reason: provider.Message(err)})
		return nil, upstream(err)
	}

	registered := s.registeredRole(ctx, session)
	if registered != "" && registered != req.Role {
		s.record(ctx, AuthEvent{Action: ActionLogin, Email: req.Email, UserID: userID(session.User), Reason: "role mismatch"})
		return nil, apperror.Authorization(fmt.Sprintf("This account is registered as %s", registered))
	}

	s.record(ctx, AuthEvent{Action: ActionLogin, Email: req.Email, UserID: userID(session.User), Success: true})
	return session, nil
}

// registeredRole prefers the profile row and falls back to sign-up metadata.
func (s *AuthService) registeredRole(ctx context.Context, session *provider.Session) string {
	if session.User == nil {
		return ""
	}
	rows, err := s.provider.Select(provider.WithAccessToken(ctx, session.AccessToken), provider.TableProfiles, provider.ByID(session.User.ID))
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", session.User.ID).Msg("profile role lookup failed")
	}
	if len(rows) > 0 {
		if role, ok := rows[0]["role"].(string); ok && role != "" {
			return role
		}
	}
	return session.User.MetadataRole()
}

// Logout revokes token at the provider. Without a token there is nothing to revoke.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.tokens.Evict(ctx, token); err != nil {
		s.logger.Warn().Err(err).Msg("token cache eviction failed")
	}
	if err := s.provider.SignOut(ctx, token); err != nil {
		s.record(ctx, AuthEvent{Action: ActionLogout, Reason: provider.Message(err)})
		return upstream(err)
	}
	s.record(ctx, AuthEvent{Action: ActionLogout, Success: true})
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, email string) error {
	if email == "" {
		return apperror.Validation("Email is required")
	}
	if err := s.provider.ResetPasswordForEmail(ctx, email, s.resetRedirect); err != nil {
		s.record(ctx, AuthEvent{Action: ActionResetPassword, Email: email, Reason: provider.Message(err)})
		return upstream(err)
	}
	s.record(ctx, AuthEvent{Action: ActionResetPassword, Email: email, Success: true})
	return nil
}

func (s *AuthService) UpdatePassword(ctx context.Context, token, password string) error {
	if token == "" {
		return apperror.Unauthenticated("Authentication required")
	}
	if len(password) < MinPasswordLength {
		return apperror.Validation(fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	user, err := s.provider.UpdateUser(ctx, token, password)
	if err != nil {
		s.record(ctx, AuthEvent{Action: ActionUpdatePassword, Reason: provider.Message(err)})
		return upstream(err)
	}
	event := AuthEvent{Action: ActionUpdatePassword, UserID: userID(user), Success: true}
	if user != nil {
		event.Email = user.Email
	}
	s.record(ctx, event)
	return nil
}

func (s *AuthService) record(ctx context.Context, event AuthEvent) {
	event.IP = clientIPFrom(ctx)
	s.audit.Record(ctx, event)
}

func userID(u *provider.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}

// upstream keeps the provider's own message for the client.
func upstream(err error) error {
	return apperror.Upstream(provider.Message(err), err)
}
