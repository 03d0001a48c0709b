package handlers

import (
	"net/http"

	"github.com/AnshRaj112/propertyhub-backend/internal/apperror"
	"github.com/AnshRaj112/propertyhub-backend/internal/middleware"
	"github.com/AnshRaj112/propertyhub-backend/internal/services"
)

type ProfileHandler struct {
	responder
	profiles *services.ProfileService
}

func NewProfileHandler(profiles *services.ProfileService, production bool) *ProfileHandler {
	return &ProfileHandler{responder: responder{production: production}, profiles: profiles}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		h.writeError(w, r, apperror.Unauthenticated("Authentication required"))
		return
	}
	profile, err := h.profiles.Get(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"profile": profile})
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, body, ok := h.authedBody(w, r)
	if !ok {
		return
	}
	profile, err := h.profiles.Update(r.Context(), user.ID, body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Profile updated successfully",
		"profile": profile,
	})
}
