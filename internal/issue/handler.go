package issue

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/trident/service-board-go/internal/identity"
	"github.com/ovaphlow/trident/service-board-go/internal/issue/entity"
	issuerepo "github.com/ovaphlow/trident/service-board-go/internal/issue/repo"
	"github.com/ovaphlow/trident/service-board-go/internal/user"
)

// Handler exposes HTTP endpoints for issue operations.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type createIssueRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	SprintID    *string `json:"sprint_id"`
	AssigneeID  *string `json:"assignee_id"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid issue payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	status, err := entity.ParseStatus(req.Status)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	priority, err := entity.ParsePriority(req.Priority)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	in := CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      status,
		Priority:    priority,
		SprintID:    req.SprintID,
		AssigneeID:  req.AssigneeID,
	}
	is, err := h.svc.Create(r.Context(), identity.PrincipalFrom(r.Context()), r.PathValue("projectId"), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, is)
}

// updateIssueRequest is the partial-update payload; omitted fields keep
// their stored values.
type updateIssueRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	SprintID    *string `json:"sprint_id"`
	AssigneeID  *string `json:"assignee_id"`
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	patch := UpdatePatch{
		Title:       req.Title,
		Description: req.Description,
		SprintID:    req.SprintID,
		AssigneeID:  req.AssigneeID,
	}
	if req.Status != nil {
		status, err := entity.ParseStatus(*req.Status)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		patch.Status = &status
	}
	if req.Priority != nil {
		priority, err := entity.ParsePriority(*req.Priority)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		patch.Priority = &priority
	}
	is, err := h.svc.Update(r.Context(), identity.PrincipalFrom(r.Context()), r.PathValue("id"), patch)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, is)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), identity.PrincipalFrom(r.Context()), r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type reorderRequest struct {
	Issues []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Order  int    `json:"order"`
	} `json:"issues"`
}

func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	batch := make([]issuerepo.ReorderItem, 0, len(req.Issues))
	for _, it := range req.Issues {
		status, err := entity.ParseStatus(it.Status)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		batch = append(batch, issuerepo.ReorderItem{ID: it.ID, Status: status, Order: it.Order})
	}
	if err := h.svc.UpdateOrder(r.Context(), identity.PrincipalFrom(r.Context()), batch); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) BySprint(w http.ResponseWriter, r *http.Request) {
	issues, err := h.svc.GetIssuesForSprint(r.Context(), identity.PrincipalFrom(r.Context()), r.PathValue("sprintId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, issues)
}

func (h *Handler) ForUser(w http.ResponseWriter, r *http.Request) {
	issues, err := h.svc.GetUserIssues(r.Context(), identity.PrincipalFrom(r.Context()), r.PathValue("userId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, issues)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, user.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, user.ErrUserNotFound), errors.Is(err, ErrIssueNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrNotReporterOrAdmin):
		status = http.StatusForbidden
	case errors.Is(err, ErrConcurrentModification):
		status = http.StatusConflict
	case errors.Is(err, identity.ErrProviderUnavailable):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		h.logger.Warnw("issue request failed", "err", err)
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
