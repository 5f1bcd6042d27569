package organization

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/trident/service-board-go/internal/identity"
	"github.com/ovaphlow/trident/service-board-go/internal/user"
)

// Handler exposes HTTP endpoints for organization lookups.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Get resolves an organization by slug; members only.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	org, err := h.svc.GetOrganization(r.Context(), identity.PrincipalFrom(r.Context()), r.PathValue("slug"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if org == nil {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "organization not found"})
		return
	}
	h.writeJSON(w, http.StatusOK, org)
}

// Users lists the local user records of an organization's members. Without
// an organization_id query param it falls back to just the caller.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	orgID := r.URL.Query().Get("organization_id")
	users, err := h.svc.GetOrganizationUsers(r.Context(), identity.PrincipalFrom(r.Context()), orgID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, users)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, user.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, user.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrNoOrganization):
		status = http.StatusConflict
	case errors.Is(err, identity.ErrProviderUnavailable):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		h.logger.Warnw("organization request failed", "err", err)
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
