package handlers

import (
	"net/http"

	"github.com/AnshRaj112/propertyhub-backend/internal/apperror"
	"github.com/AnshRaj112/propertyhub-backend/internal/middleware"
	"github.com/AnshRaj112/propertyhub-backend/internal/services"
	"github.com/AnshRaj112/propertyhub-backend/pkg/clientip"
)

type AuthHandler struct {
	responder
	auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService, production bool) *AuthHandler {
	return &AuthHandler{responder: responder{production: production}, auth: auth}
}

func auditContext(r *http.Request) *http.Request {
	return r.WithContext(services.WithClientIP(r.Context(), clientip.RealClientIP(r)))
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	r = auditContext(r)
	res, err := h.auth.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User registered successfully",
		"user":    res.User,
	})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	r = auditContext(r)
	session, err := h.auth.Login(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"session": session,
		"user":    session.User,
	})
}

// Logout handles POST /api/auth/logout. The caller's bearer token is revoked when present.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	r = auditContext(r)
	if err := h.auth.Logout(r.Context(), middleware.BearerToken(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// ResetPassword handles POST /api/auth/reset-password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	r = auditContext(r)
	if err := h.auth.ResetPassword(r.Context(), req.Email); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password recovery email sent"})
}

// UpdatePassword handles POST /api/auth/update-password behind RequireAuth.
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	r = auditContext(r)
	if err := h.auth.UpdatePassword(r.Context(), middleware.BearerToken(r), req.Password); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated successfully"})
}

// Session handles GET /api/auth/session behind RequireAuth.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		h.writeError(w, r, apperror.Unauthenticated("Authentication required"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}
