package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/diewo77/gedoc/internal/models"
	"github.com/diewo77/gedoc/internal/submissions"
)

func consoleAction(e env, uid uint, id, action, back string) *httptest.ResponseRecorder {
	req := as(postForm("/admin/submissions/"+id+"/"+action, url.Values{"return": {back}}), uid)
	req.SetPathValue("id", id)
	req.SetPathValue("action", action)
	w := httptest.NewRecorder()
	NewAdminConsole(e.svc, e.gate, e.hub).Action(w, req)
	return w
}

func TestDashboardLists(t *testing.T) {
	e := setupEnv(t)
	create(t, e, "TXN-A")
	create(t, e, "TXN-B")

	w := httptest.NewRecorder()
	req := as(httptest.NewRequest(http.MethodGet, "/admin?statut=en_attente&q=txn-a", nil), e.admin)
	NewAdminConsole(e.svc, e.gate, e.hub).Dashboard(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if !strings.Contains(body, "TXN-A") || strings.Contains(body, "TXN-B") {
		t.Fatalf("search must narrow the list")
	}
}

func TestConsoleActionValidate(t *testing.T) {
	e := setupEnv(t)
	id := create(t, e, "TXN1")

	w := consoleAction(e, e.admin, id, "validate", "/admin?statut=en_attente")
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 got %d", w.Code)
	}
	loc := w.Header().Get("Location")
	if !strings.HasPrefix(loc, "/admin?") || !strings.Contains(loc, "statut=en_attente") || !strings.Contains(loc, "msg=") {
		t.Fatalf("unexpected redirect %q", loc)
	}
	sub, _ := e.svc.Get(context.Background(), id)
	if !sub.Unlocked() {
		t.Fatalf("expected the submission to be unlocked")
	}
}

func TestConsoleActionRejectsForeignReturn(t *testing.T) {
	e := setupEnv(t)
	id := create(t, e, "TXN1")
	w := consoleAction(e, e.admin, id, "reject", "https://evil.example/")
	if loc := w.Header().Get("Location"); !strings.HasPrefix(loc, "/admin?") {
		t.Fatalf("return target must stay local, got %q", loc)
	}
}

func TestConsoleActionMalformedReturn(t *testing.T) {
	e := setupEnv(t)
	id := create(t, e, "TXN1")

	w := consoleAction(e, e.admin, id, "validate", "/admin%zz")
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); !strings.HasPrefix(loc, "/admin?msg=") {
		t.Fatalf("expected the list as fallback, got %q", loc)
	}
	sub, _ := e.svc.Get(context.Background(), id)
	if !sub.Unlocked() {
		t.Fatalf("expected the submission to be unlocked")
	}
}

func TestConsoleDeleteNeedsSuperAdmin(t *testing.T) {
	e := setupEnv(t)
	id := create(t, e, "TXN1")

	if w := consoleAction(e, e.admin, id, "delete", ""); w.Code != http.StatusForbidden {
		t.Fatalf("admin delete: expected 403 got %d", w.Code)
	}
	if w := consoleAction(e, e.superAdmin, id, "delete", "/admin/submissions/"+id); w.Code != http.StatusSeeOther {
		t.Fatalf("super admin delete: expected 303 got %d", w.Code)
	} else if loc := w.Header().Get("Location"); !strings.HasPrefix(loc, "/admin?") {
		t.Fatalf("delete must go back to the list, got %q", loc)
	}
}

func TestSubmissionDetailAndStats(t *testing.T) {
	e := setupEnv(t)
	id := create(t, e, "TXN1")
	consoleAction(e, e.admin, id, "validate", "")
	h := NewAdminConsole(e.svc, e.gate, e.hub)

	req := as(httptest.NewRequest(http.MethodGet, "/admin/submissions/"+id, nil), e.admin)
	req.SetPathValue("id", id)
	w := httptest.NewRecorder()
	h.Submission(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("detail: expected 200 got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Je me permets") {
		t.Fatalf("expected the letter content")
	}

	w = httptest.NewRecorder()
	h.Stats(w, as(httptest.NewRequest(http.MethodGet, "/admin/stats", nil), e.admin))
	if w.Code != http.StatusOK {
		t.Fatalf("stats: expected 200 got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "500 FCFA") {
		t.Fatalf("expected the revenue")
	}

	if _, err := e.svc.Prices().Update(context.Background(), models.ProductStandard, submissions.ProductUpdate{Name: "Lettre Essentielle", Price: 500, Active: true}); err != nil {
		t.Fatalf("rename: %v", err)
	}
	w = httptest.NewRecorder()
	h.Stats(w, as(httptest.NewRequest(http.MethodGet, "/admin/stats", nil), e.admin))
	if !strings.Contains(w.Body.String(), "Lettre Essentielle") {
		t.Fatalf("stats must label revenue with the current product names")
	}
}

func TestAccounts(t *testing.T) {
	e := setupEnv(t)
	h := NewAdminUserProfileHandler(e.db, e.gate)

	w := httptest.NewRecorder()
	h.List(w, as(httptest.NewRequest(http.MethodGet, "/admin/accounts", nil), e.superAdmin))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "admin@test") {
		t.Fatalf("list: %d", w.Code)
	}

	// super admins cannot lock themselves out
	req := as(postForm("/admin/accounts/x/active", url.Values{"active": {"false"}}), e.superAdmin)
	req.SetPathValue("id", itoa(e.superAdmin))
	w = httptest.NewRecorder()
	h.SetActive(w, req)
	if loc := w.Header().Get("Location"); !strings.Contains(loc, "err=") {
		t.Fatalf("expected an error redirect, got %q", loc)
	}

	req = as(postForm("/admin/accounts/x/active", url.Values{"active": {"false"}}), e.superAdmin)
	req.SetPathValue("id", itoa(e.admin))
	w = httptest.NewRecorder()
	h.SetActive(w, req)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("disable: expected 303 got %d", w.Code)
	}
	var admin models.User
	e.db.First(&admin, e.admin)
	if admin.Active {
		t.Fatalf("expected the account to be disabled")
	}

	userProfile := models.Profile{}
	e.db.Where("name = ?", models.ProfileAdmin).First(&userProfile)
	req = as(postForm("/admin/accounts/x/profile", url.Values{"profile_id": {itoa(userProfile.ID)}}), e.superAdmin)
	req.SetPathValue("id", itoa(e.user))
	w = httptest.NewRecorder()
	h.AssignProfile(w, req)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("assign: expected 303 got %d", w.Code)
	}
	if !e.gate.CanProfile(as(httptest.NewRequest(http.MethodGet, "/", nil), e.user).Context(), "validate", "submission") {
		t.Fatalf("the promoted account must be able to validate")
	}

	req = as(postForm("/admin/accounts", url.Values{"email": {"new@test"}, "password": {"pw"}, "profile": {"admin"}}), e.superAdmin)
	w = httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusSeeOther || strings.Contains(w.Header().Get("Location"), "err=") {
		t.Fatalf("create: %d %q", w.Code, w.Header().Get("Location"))
	}
}

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }
