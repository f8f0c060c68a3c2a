package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diewo77/gedoc/internal/models"
	"github.com/diewo77/gedoc/internal/submissions"
)

func validate(e env, uid uint, id, action string) *httptest.ResponseRecorder {
	req := jsonRequest(http.MethodPost, "/api/admin/validate", ValidateRequest{ID: id, Action: action})
	if uid != 0 {
		req = as(req, uid)
	}
	w := httptest.NewRecorder()
	NewAdminAPI(e.svc, e.gate).Validate(w, req)
	return w
}

func TestAdminValidateRequiresAuth(t *testing.T) {
	e := setupEnv(t)
	id := create(t, e, "TXN1")
	w := validate(e, 0, id, "validate")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", w.Code)
	}
}

func TestAdminValidateUnlocks(t *testing.T) {
	e := setupEnv(t)
	id := create(t, e, "TXN1")

	w := validate(e, e.admin, id, "validate")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", w.Code, w.Body.String())
	}
	var resp ValidateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Submission == nil || !resp.Submission.Unlocked() {
		t.Fatalf("unexpected response: %s", w.Body.String())
	}
	if resp.Submission.ValidatedBy == nil || *resp.Submission.ValidatedBy != e.admin {
		t.Fatalf("expected validated_by to be the admin")
	}
}

func TestAdminRejectLocks(t *testing.T) {
	e := setupEnv(t)
	id := create(t, e, "TXN1")
	if w := validate(e, e.admin, id, "validate"); w.Code != http.StatusOK {
		t.Fatalf("validate: %d", w.Code)
	}
	if w := validate(e, e.admin, id, "reject"); w.Code != http.StatusOK {
		t.Fatalf("reject: %d", w.Code)
	}
	sub, err := e.svc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sub.Statut != models.StatusRejected || sub.PDFDebloque || sub.PaiementValide {
		t.Fatalf("expected a locked rejected submission, got %+v", sub)
	}
}

func TestAdminDeleteRequiresSuperAdmin(t *testing.T) {
	e := setupEnv(t)
	id := create(t, e, "TXN1")

	w := validate(e, e.admin, id, "delete")
	if w.Code != http.StatusForbidden {
		t.Fatalf("admin delete: expected 403 got %d", w.Code)
	}
	if got := decodeError(t, w).Error; got != "super_admin_required" {
		t.Fatalf("unexpected error code %q", got)
	}

	w = validate(e, e.superAdmin, id, "delete")
	if w.Code != http.StatusOK {
		t.Fatalf("super admin delete: expected 200 got %d", w.Code)
	}
	if _, err := e.svc.Get(context.Background(), id); !errors.Is(err, submissions.ErrNotFound) {
		t.Fatalf("expected the submission to be gone, got %v", err)
	}
}

func TestAdminValidateWithoutPermission(t *testing.T) {
	e := setupEnv(t)
	id := create(t, e, "TXN1")
	if w := validate(e, e.user, id, "validate"); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", w.Code)
	}
	sub, _ := e.svc.Get(context.Background(), id)
	if sub.Statut != models.StatusPending {
		t.Fatalf("state must not change, got %s", sub.Statut)
	}
}

func TestAdminValidateChecksRoleBeforeBody(t *testing.T) {
	e := setupEnv(t)
	w := validate(e, e.user, "", "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", w.Code)
	}
	if got := decodeError(t, w).Error; got != "forbidden" {
		t.Fatalf("expected forbidden got %s", got)
	}
}

func TestAdminValidateBadRequests(t *testing.T) {
	e := setupEnv(t)
	id := create(t, e, "TXN1")

	cases := []struct {
		id, action string
		status     int
		code       string
	}{
		{"", "validate", http.StatusBadRequest, "missing_params"},
		{id, "", http.StatusBadRequest, "missing_params"},
		{id, "approve", http.StatusBadRequest, "invalid_action"},
		{"00000000-0000-0000-0000-000000000000", "validate", http.StatusNotFound, "not_found"},
	}
	for _, c := range cases {
		w := validate(e, e.superAdmin, c.id, c.action)
		if w.Code != c.status {
			t.Fatalf("%q/%q: expected %d got %d", c.id, c.action, c.status, w.Code)
		}
		if got := decodeError(t, w).Error; got != c.code {
			t.Fatalf("%q/%q: expected %s got %s", c.id, c.action, c.code, got)
		}
	}
}

func TestAdminListAndStats(t *testing.T) {
	e := setupEnv(t)
	first := create(t, e, "TXN1")
	create(t, e, "TXN2")
	if _, err := e.svc.Validate(context.Background(), e.admin, first); err != nil {
		t.Fatalf("validate: %v", err)
	}
	h := NewAdminAPI(e.svc, e.gate)

	w := httptest.NewRecorder()
	h.List(w, as(httptest.NewRequest(http.MethodGet, "/api/admin/submissions?statut=en_attente", nil), e.admin))
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200 got %d", w.Code)
	}
	var list struct {
		Items  []models.Submission `json:"items"`
		Counts submissions.Counts  `json:"counts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].NumeroTransaction != "TXN2" {
		t.Fatalf("expected only the pending submission, got %+v", list.Items)
	}
	if list.Counts.Total != 2 || list.Counts.Validated != 1 {
		t.Fatalf("unexpected counts %+v", list.Counts)
	}

	w = httptest.NewRecorder()
	h.List(w, as(httptest.NewRequest(http.MethodGet, "/api/admin/submissions?statut=bogus", nil), e.admin))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad status filter: expected 400 got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.Stats(w, as(httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil), e.admin))
	if w.Code != http.StatusOK {
		t.Fatalf("stats: expected 200 got %d", w.Code)
	}
	var st submissions.Stats
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Revenue != 500 || st.RevenueByProduct[models.ProductStandard] != 500 {
		t.Fatalf("only validated payments count as revenue, got %+v", st)
	}
}

func TestAdminGetWithHistory(t *testing.T) {
	e := setupEnv(t)
	id := create(t, e, "TXN1")
	validate(e, e.admin, id, "validate")

	req := as(httptest.NewRequest(http.MethodGet, "/api/admin/submissions/"+id, nil), e.admin)
	req.SetPathValue("id", id)
	w := httptest.NewRecorder()
	NewAdminAPI(e.svc, e.gate).Get(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	var resp struct {
		History []models.AuditLog `json:"history"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.History) != 1 || resp.History[0].Action != "validate" || resp.History[0].UserID != e.admin {
		t.Fatalf("unexpected history %+v", resp.History)
	}
}
