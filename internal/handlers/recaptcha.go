package handlers

import (
	"context"
	"net/http"

	"github.com/AnshRaj112/propertyhub-backend/internal/services"
)

type RecaptchaVerifier interface {
	Verify(ctx context.Context, token string) (*services.RecaptchaResult, error)
}

type RecaptchaHandler struct {
	responder
	verifier RecaptchaVerifier
}

func NewRecaptchaHandler(verifier RecaptchaVerifier, production bool) *RecaptchaHandler {
	return &RecaptchaHandler{responder: responder{production: production}, verifier: verifier}
}

// Verify handles POST /api/auth/verify-recaptcha. Errors keep the {success:false} shape.
func (h *RecaptchaHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	err := decodeJSON(w, r, &req)
	var result *services.RecaptchaResult
	if err == nil {
		result, err = h.verifier.Verify(r.Context(), req.Token)
	}
	if err != nil {
		status, message := h.errorStatus(err)
		logError(r, status, err)
		writeJSON(w, status, map[string]interface{}{"success": false, "error": message})
		return
	}
	writeJSON(w, http.StatusOK, result)
}
