package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/propertyhub-backend/internal/apperror"
	"github.com/AnshRaj112/propertyhub-backend/internal/middleware"
	"github.com/AnshRaj112/propertyhub-backend/internal/provider"
	"github.com/AnshRaj112/propertyhub-backend/internal/services"
)

type PropertyHandler struct {
	responder
	properties *services.PropertyService
}

func NewPropertyHandler(properties *services.PropertyService, production bool) *PropertyHandler {
	return &PropertyHandler{responder: responder{production: production}, properties: properties}
}

func (h *PropertyHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.properties.List(r.Context(), r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"properties": rows})
}

func (h *PropertyHandler) Get(w http.ResponseWriter, r *http.Request) {
	row, err := h.properties.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"property": row})
}

func (h *PropertyHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, body, ok := h.authedBody(w, r)
	if !ok {
		return
	}
	row, err := h.properties.Create(r.Context(), user.ID, body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Property created successfully",
		"property": row,
	})
}

func (h *PropertyHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, body, ok := h.authedBody(w, r)
	if !ok {
		return
	}
	row, err := h.properties.Update(r.Context(), user.ID, chi.URLParam(r, "id"), body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Property updated successfully",
		"property": row,
	})
}

func (h *PropertyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		h.writeError(w, r, apperror.Unauthenticated("Authentication required"))
		return
	}
	if err := h.properties.Delete(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Property deleted successfully"})
}

// authedBody reads the caller and a JSON object body, answering the request itself on failure.
func (rs responder) authedBody(w http.ResponseWriter, r *http.Request) (*provider.User, provider.Row, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		rs.writeError(w, r, apperror.Unauthenticated("Authentication required"))
		return nil, nil, false
	}
	body := provider.Row{}
	if err := decodeJSON(w, r, &body); err != nil {
		rs.writeError(w, r, err)
		return nil, nil, false
	}
	return user, body, true
}
