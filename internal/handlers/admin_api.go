package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/gedoc/auth"
	"github.com/diewo77/gedoc/gate"
	"github.com/diewo77/gedoc/httpx"
	"github.com/diewo77/gedoc/i18n"
	"github.com/diewo77/gedoc/internal/models"
	"github.com/diewo77/gedoc/internal/policy"
	"github.com/diewo77/gedoc/internal/submissions"
)

// AdminAPI is the admin-mediated surface: every mutation goes through
// Validate, which re-checks the caller on each call.
type AdminAPI struct {
	Svc  *submissions.Service
	Gate *policy.AuthGate
	Now  func() time.Time
}

func NewAdminAPI(svc *submissions.Service, ag *policy.AuthGate) *AdminAPI {
	return &AdminAPI{Svc: svc, Gate: ag, Now: time.Now}
}

// ValidateRequest is the body of POST /api/admin/validate.
type ValidateRequest struct {
	ID     string `json:"id"`
	Action string `json:"action"`
}

// ValidateResponse is returned on success.
type ValidateResponse struct {
	Success    bool               `json:"success"`
	Message    string             `json:"message"`
	Submission *models.Submission `json:"submission,omitempty"`
}

// permissionFor maps an action to the gate action it requires. Deleting
// is reserved to super-admins and checked separately.
func permissionFor(a submissions.Action) gate.Action {
	switch a {
	case submissions.ActionValidate:
		return gate.ActionValidate
	case submissions.ActionReject:
		return gate.ActionReject
	}
	return gate.ActionDelete
}

// authorizeAction returns "" when the request user may run action, or the
// error code to answer with.
func (h *AdminAPI) authorizeAction(r *http.Request, action submissions.Action) (int, string) {
	if _, ok := auth.UserIDFromContext(r.Context()); !ok {
		return http.StatusUnauthorized, "unauthorized"
	}
	if action == submissions.ActionDelete {
		if !h.Gate.IsSuperAdmin(r.Context()) {
			return http.StatusForbidden, "super_admin_required"
		}
		return 0, ""
	}
	err := h.Gate.Authorize(r.Context(), permissionFor(action), policy.ResourceSubmission, nil)
	switch {
	case err == nil:
		return 0, ""
	case errors.Is(err, gate.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthorized"
	default:
		return http.StatusForbidden, "forbidden"
	}
}

// Validate handles POST /api/admin/validate with {id, action}.
func (h *AdminAPI) Validate(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, r, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	// role first, then the body
	if err := h.Gate.Authorize(r.Context(), gate.ActionList, policy.ResourceSubmission, nil); err != nil {
		policy.Deny(w, r, err)
		return
	}
	var req ValidateRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.Error(w, r, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" || strings.TrimSpace(req.Action) == "" {
		httpx.Error(w, r, http.StatusBadRequest, "missing_params", nil)
		return
	}
	action, err := submissions.ParseAction(req.Action)
	if err != nil {
		httpx.Error(w, r, http.StatusBadRequest, "invalid_action", nil)
		return
	}
	if status, code := h.authorizeAction(r, action); code != "" {
		httpx.Error(w, r, status, code, nil)
		return
	}
	sub, err := h.Svc.Apply(r.Context(), uid, req.ID, action)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	resp := ValidateResponse{Success: true, Message: i18n.T(i18n.LangFromContext(r.Context()), actionMessage(action))}
	if action != submissions.ActionDelete {
		resp.Submission = sub
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func actionMessage(a submissions.Action) string {
	switch a {
	case submissions.ActionValidate:
		return "submission_validated"
	case submissions.ActionReject:
		return "submission_rejected"
	}
	return "submission_deleted"
}

// List handles GET /api/admin/submissions?statut=&q=&limit=&offset=.
func (h *AdminAPI) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	items, err := h.Svc.List(r.Context(), submissions.Filter{
		Statut: q.Get("statut"),
		Search: q.Get("q"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	counts, err := h.Svc.Counts(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":  items,
		"counts": counts,
	})
}

// Get handles GET /api/admin/submissions/{id}.
func (h *AdminAPI) Get(w http.ResponseWriter, r *http.Request) {
	sub, err := h.Svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	history, err := h.Svc.History(r.Context(), sub.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"submission": sub,
		"history":    history,
	})
}

// Stats handles GET /api/admin/stats.
func (h *AdminAPI) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Svc.Stats(r.Context(), h.Now())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, st)
}
