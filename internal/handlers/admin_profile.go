package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/diewo77/gedoc/httpx"
	"github.com/diewo77/gedoc/i18n"
	"github.com/diewo77/gedoc/internal/models"
	"github.com/diewo77/gedoc/internal/policy"
	"github.com/diewo77/gedoc/validation"
	"gorm.io/gorm"
)

// AdminProfileHandler lets super-admins define extra profiles and their
// permissions. System profiles are reseeded at startup and stay
// read-only here.
type AdminProfileHandler struct {
	DB   *gorm.DB
	Gate *policy.AuthGate
}

func NewAdminProfileHandler(db *gorm.DB, ag *policy.AuthGate) *AdminProfileHandler {
	return &AdminProfileHandler{DB: db, Gate: ag}
}

// ProfileRow is a profile with the number of accounts holding it.
type ProfileRow struct {
	models.Profile
	Users int64 `json:"users"`
	// Granted is keyed by permission id.
	Granted map[uint]bool `json:"-"`
}

// List displays profiles and the permission catalogue.
func (h *AdminProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	var profiles []models.Profile
	if err := h.DB.Preload("Permissions").Order("id").Find(&profiles).Error; err != nil {
		httpx.Error(w, r, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	var perms []models.Permission
	h.DB.Order("resource_type, action").Find(&perms)

	rows := make([]ProfileRow, len(profiles))
	for i, p := range profiles {
		rows[i] = ProfileRow{Profile: p, Granted: map[uint]bool{}}
		h.DB.Model(&models.User{}).Where("profile_id = ?", p.ID).Count(&rows[i].Users)
		for _, perm := range p.Permissions {
			rows[i].Granted[perm.ID] = true
		}
	}

	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"profiles": rows, "permissions": perms})
		return
	}
	renderPage(w, r, "admin/profiles.html", map[string]any{
		"Profiles":    rows,
		"Permissions": perms,
		"Flash":       r.URL.Query().Get("msg"),
		"Error":       r.URL.Query().Get("err"),
	})
}

// Create handles POST /admin/profiles.
func (h *AdminProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpx.Error(w, r, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	profile := models.Profile{
		Name:        strings.TrimSpace(r.PostFormValue("name")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
	}
	v := validation.Violations{}
	validation.Required("name", profile.Name, v)
	validation.MaxLength("name", profile.Name, 100, v)
	if !v.Empty() {
		if httpx.WantsJSON(r) {
			httpx.Error(w, r, http.StatusBadRequest, "validation_failed", v)
			return
		}
		h.done(w, r, "", "validation_failed")
		return
	}
	profile.Permissions = h.selected(r)
	if err := h.DB.Create(&profile).Error; err != nil {
		h.done(w, r, "", "name_already_exists")
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusCreated, profile)
		return
	}
	h.done(w, r, "profile_updated", "")
}

// selected loads the permissions checked in the form. The super-admin
// wildcard cannot be granted from here.
func (h *AdminProfileHandler) selected(r *http.Request) []models.Permission {
	var ids []uint
	for _, s := range r.Form["permissions"] {
		if id, err := strconv.Atoi(s); err == nil && id > 0 {
			ids = append(ids, uint(id))
		}
	}
	perms := []models.Permission{}
	if len(ids) > 0 {
		h.DB.Where("id IN ? AND NOT (resource_type = ? AND action = ?)", ids, "*", "*").Find(&perms)
	}
	return perms
}

func (h *AdminProfileHandler) editable(w http.ResponseWriter, r *http.Request) (*models.Profile, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		httpx.Error(w, r, http.StatusBadRequest, "missing_params", nil)
		return nil, false
	}
	var profile models.Profile
	if err := h.DB.First(&profile, id).Error; err != nil {
		httpx.Error(w, r, http.StatusNotFound, "not_found", nil)
		return nil, false
	}
	if profile.IsSystem {
		h.done(w, r, "", "system_profile")
		return nil, false
	}
	return &profile, true
}

// SavePermissions handles POST /admin/profiles/{id}/permissions.
func (h *AdminProfileHandler) SavePermissions(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.editable(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.Error(w, r, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	if err := h.DB.Model(profile).Association("Permissions").Replace(h.selected(r)); err != nil {
		httpx.Error(w, r, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	h.Gate.InvalidateAll()
	h.done(w, r, "profile_updated", "")
}

// Delete handles POST /admin/profiles/{id}/delete. Profiles still held
// by accounts are kept.
func (h *AdminProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.editable(w, r)
	if !ok {
		return
	}
	var users int64
	h.DB.Model(&models.User{}).Where("profile_id = ?", profile.ID).Count(&users)
	if users > 0 {
		h.done(w, r, "", "profile_has_users")
		return
	}
	if err := h.DB.Select("Permissions").Delete(profile).Error; err != nil {
		httpx.Error(w, r, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	h.Gate.InvalidateAll()
	h.done(w, r, "profile_updated", "")
}

func (h *AdminProfileHandler) done(w http.ResponseWriter, r *http.Request, msg, errCode string) {
	lang := i18n.LangFromContext(r.Context())
	if httpx.WantsJSON(r) {
		if errCode != "" {
			httpx.Error(w, r, http.StatusBadRequest, errCode, nil)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "message": i18n.T(lang, msg)})
		return
	}
	target := "/admin/profiles"
	if errCode != "" {
		target += "?err=" + url.QueryEscape(i18n.T(lang, errCode))
	} else {
		target += "?msg=" + url.QueryEscape(i18n.T(lang, msg))
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
