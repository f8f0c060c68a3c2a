package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/diewo77/gedoc/auth"
	"github.com/diewo77/gedoc/httpx"
	"github.com/diewo77/gedoc/i18n"
	"github.com/diewo77/gedoc/internal/db"
	"github.com/diewo77/gedoc/internal/models"
	"github.com/diewo77/gedoc/internal/policy"
	"github.com/diewo77/gedoc/validation"
	"gorm.io/gorm"
)

// AdminUserProfileHandler manages admin accounts: profile assignment,
// enabling and creation. Only super-admins reach it.
type AdminUserProfileHandler struct {
	DB   *gorm.DB
	Gate *policy.AuthGate // to invalidate cached profiles on changes
}

func NewAdminUserProfileHandler(db *gorm.DB, ag *policy.AuthGate) *AdminUserProfileHandler {
	return &AdminUserProfileHandler{DB: db, Gate: ag}
}

// List displays all accounts with their profile.
func (h *AdminUserProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	var users []models.User
	if err := h.DB.Preload("Profile").Order("email").Find(&users).Error; err != nil {
		httpx.Error(w, r, http.StatusInternalServerError, "internal_error", nil)
		return
	}

	var profiles []models.Profile
	h.DB.Order("id").Find(&profiles)

	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{
			"users":    users,
			"profiles": profiles,
		})
		return
	}

	renderPage(w, r, "admin/accounts.html", map[string]any{
		"Users":    users,
		"Profiles": profiles,
		"Flash":    r.URL.Query().Get("msg"),
		"Error":    r.URL.Query().Get("err"),
	})
}

func pathUserID(r *http.Request) (uint, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

// AssignProfile handles POST /admin/accounts/{id}/profile.
func (h *AdminUserProfileHandler) AssignProfile(w http.ResponseWriter, r *http.Request) {
	currentUID, _ := auth.UserIDFromContext(r.Context())
	userID, ok := pathUserID(r)
	if !ok {
		httpx.Error(w, r, http.StatusBadRequest, "missing_params", nil)
		return
	}
	if userID == currentUID {
		h.done(w, r, "", "cannot_change_self")
		return
	}

	var profileID *uint
	if s := r.FormValue("profile_id"); s != "" && s != "0" {
		pid, err := strconv.Atoi(s)
		if err != nil || pid <= 0 {
			httpx.Error(w, r, http.StatusBadRequest, "invalid_choice", nil)
			return
		}
		var profile models.Profile
		if err := h.DB.First(&profile, pid).Error; err != nil {
			httpx.Error(w, r, http.StatusNotFound, "not_found", nil)
			return
		}
		profileID = &profile.ID
	}

	res := h.DB.Model(&models.User{}).Where("id = ?", userID).Update("profile_id", profileID)
	if res.Error != nil {
		httpx.Error(w, r, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.Error(w, r, http.StatusNotFound, "not_found", nil)
		return
	}
	h.Gate.InvalidateUser(userID)
	h.done(w, r, "account_updated", "")
}

// SetActive handles POST /admin/accounts/{id}/active with active=true|false.
// A disabled account loses its session on the next request.
func (h *AdminUserProfileHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	currentUID, _ := auth.UserIDFromContext(r.Context())
	userID, ok := pathUserID(r)
	if !ok {
		httpx.Error(w, r, http.StatusBadRequest, "missing_params", nil)
		return
	}
	if userID == currentUID {
		h.done(w, r, "", "cannot_change_self")
		return
	}
	active, err := strconv.ParseBool(r.FormValue("active"))
	if err != nil {
		httpx.Error(w, r, http.StatusBadRequest, "invalid_choice", nil)
		return
	}
	res := h.DB.Model(&models.User{}).Where("id = ?", userID).Update("active", active)
	if res.Error != nil {
		httpx.Error(w, r, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.Error(w, r, http.StatusNotFound, "not_found", nil)
		return
	}
	h.Gate.InvalidateUser(userID)
	h.done(w, r, "account_updated", "")
}

// Create handles POST /admin/accounts.
func (h *AdminUserProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	name := strings.TrimSpace(r.FormValue("name"))
	profile := r.FormValue("profile")
	if profile == "" {
		profile = models.ProfileAdmin
	}

	v := validation.Violations{}
	validation.Required("email", email, v)
	validation.Email("email", email, v)
	validation.Required("password", password, v)
	var names []string
	h.DB.Model(&models.Profile{}).Pluck("name", &names)
	validation.OneOf("profile", profile, names, v)
	if !v.Empty() {
		if httpx.WantsJSON(r) {
			httpx.Error(w, r, http.StatusBadRequest, "validation_failed", v)
			return
		}
		h.done(w, r, "", "validation_failed")
		return
	}

	user, err := db.CreateUser(h.DB, email, password, name, profile)
	if err != nil {
		if httpx.WantsJSON(r) {
			httpx.Error(w, r, http.StatusBadRequest, "account_exists", nil)
			return
		}
		h.done(w, r, "", "account_exists")
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusCreated, user)
		return
	}
	h.done(w, r, "account_created", "")
}

// done answers a form post with a redirect carrying a translated flash,
// or JSON for API callers.
func (h *AdminUserProfileHandler) done(w http.ResponseWriter, r *http.Request, msg, errCode string) {
	lang := i18n.LangFromContext(r.Context())
	if httpx.WantsJSON(r) {
		if errCode != "" {
			httpx.Error(w, r, http.StatusBadRequest, errCode, nil)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "message": i18n.T(lang, msg)})
		return
	}
	target := "/admin/accounts"
	if errCode != "" {
		target += "?err=" + url.QueryEscape(i18n.T(lang, errCode))
	} else {
		target += "?msg=" + url.QueryEscape(i18n.T(lang, msg))
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
