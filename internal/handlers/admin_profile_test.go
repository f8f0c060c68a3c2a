package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/diewo77/gedoc/internal/models"
)

func TestProfilesLifecycle(t *testing.T) {
	e := setupEnv(t)
	h := NewAdminProfileHandler(e.db, e.gate)

	var list, stats models.Permission
	e.db.First(&list, "resource_type = ? AND action = ?", "submission", "list")
	e.db.First(&stats, "resource_type = ? AND action = ?", "stats", "view")

	w := httptest.NewRecorder()
	h.Create(w, as(postForm("/admin/profiles", url.Values{
		"name": {"lecteur"}, "permissions": {itoa(list.ID)},
	}), e.superAdmin))
	if w.Code != http.StatusSeeOther || strings.Contains(w.Header().Get("Location"), "err=") {
		t.Fatalf("create: %d %q", w.Code, w.Header().Get("Location"))
	}
	var reader models.Profile
	if err := e.db.Preload("Permissions").First(&reader, "name = ?", "lecteur").Error; err != nil {
		t.Fatal(err)
	}
	if len(reader.Permissions) != 1 || reader.IsSystem {
		t.Fatalf("unexpected profile %+v", reader)
	}

	// move the plain user onto the new profile
	e.db.Model(&models.User{}).Where("id = ?", e.user).Update("profile_id", reader.ID)
	e.gate.InvalidateUser(e.user)
	ctx := as(httptest.NewRequest(http.MethodGet, "/", nil), e.user).Context()
	if !e.gate.CanProfile(ctx, "list", "submission") || e.gate.CanProfile(ctx, "view", "stats") {
		t.Fatalf("unexpected permissions before the change")
	}

	req := as(postForm("/admin/profiles/x/permissions", url.Values{"permissions": {itoa(list.ID), itoa(stats.ID)}}), e.superAdmin)
	req.SetPathValue("id", itoa(reader.ID))
	w = httptest.NewRecorder()
	h.SavePermissions(w, req)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("save: expected 303 got %d", w.Code)
	}
	if !e.gate.CanProfile(ctx, "view", "stats") {
		t.Fatalf("cache must be invalidated after a permission change")
	}

	req = as(postForm("/admin/profiles/x/delete", nil), e.superAdmin)
	req.SetPathValue("id", itoa(reader.ID))
	w = httptest.NewRecorder()
	h.Delete(w, req)
	if !strings.Contains(w.Header().Get("Location"), "err=") {
		t.Fatalf("profiles in use must be kept, got %q", w.Header().Get("Location"))
	}

	w = httptest.NewRecorder()
	lr := as(httptest.NewRequest(http.MethodGet, "/admin/profiles", nil), e.superAdmin)
	lr.Header.Set("Accept", "application/json")
	h.List(w, lr)
	var body struct {
		Profiles []struct {
			Name  string `json:"name"`
			Users int64  `json:"users"`
		} `json:"profiles"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Profiles) != 4 {
		t.Fatalf("expected 3 system profiles and lecteur, got %+v", body.Profiles)
	}
}

func TestSystemProfilesAreReadOnly(t *testing.T) {
	e := setupEnv(t)
	h := NewAdminProfileHandler(e.db, e.gate)

	var admin models.Profile
	e.db.First(&admin, "name = ?", models.ProfileAdmin)
	req := as(jsonRequest(http.MethodPost, "/admin/profiles/x/permissions", nil), e.superAdmin)
	req.SetPathValue("id", itoa(admin.ID))
	w := httptest.NewRecorder()
	h.SavePermissions(w, req)
	if w.Code != http.StatusBadRequest || decodeError(t, w).Error != "system_profile" {
		t.Fatalf("expected system_profile, got %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	h.List(w, as(httptest.NewRequest(http.MethodGet, "/admin/profiles", nil), e.superAdmin))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "submission:validate") {
		t.Fatalf("list page: %d", w.Code)
	}
}
