package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/diewo77/gedoc/auth"
	"github.com/diewo77/gedoc/httpx"
	"github.com/diewo77/gedoc/i18n"
	"github.com/diewo77/gedoc/internal/models"
	"github.com/diewo77/gedoc/internal/policy"
	"gorm.io/gorm"
)

type AuthHandler struct {
	db       *gorm.DB
	ttl      time.Duration
	gate     *policy.AuthGate
	adminURL string
}

func NewAuthHandler(db *gorm.DB, ag *policy.AuthGate, ttl time.Duration) *AuthHandler {
	if ttl <= 0 {
		ttl = auth.DefaultTTL
	}
	return &AuthHandler{db: db, ttl: ttl, gate: ag, adminURL: "/admin"}
}

// authenticate returns the active account matching the credentials.
func (h *AuthHandler) authenticate(email, password string) (*models.User, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, false
	}
	var user models.User
	if err := h.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, false
	}
	if !user.Active || !auth.CheckPassword(user.Password, password) {
		return nil, false
	}
	return &user, true
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	lang := i18n.LangFromContext(r.Context())
	if r.Method == http.MethodGet {
		if _, ok := auth.UserIDFromContext(r.Context()); ok {
			http.Redirect(w, r, h.adminURL, http.StatusSeeOther)
			return
		}
		renderPage(w, r, "admin/login.html", nil)
		return
	}

	email := r.FormValue("email")
	user, ok := h.authenticate(email, r.FormValue("password"))
	if !ok {
		renderStatus(w, r, http.StatusUnauthorized, "admin/login.html", map[string]any{"Error": i18n.T(lang, "invalid_credentials"), "Email": email})
		return
	}

	auth.CreateSession(w, user.ID)
	h.gate.InvalidateUser(user.ID)
	http.Redirect(w, r, h.adminURL, http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if uid, ok := auth.UserIDFromContext(r.Context()); ok {
		h.gate.InvalidateUser(uid)
	}
	auth.ClearSession(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// TokenResponse is returned by the API login.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Profile   string    `json:"profile"`
}

// APILogin handles POST /api/auth/login for the CLI and scripts; the
// token is sent back as a bearer token.
func (h *AuthHandler) APILogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil {
		httpx.Error(w, r, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	user, ok := h.authenticate(body.Email, body.Password)
	if !ok {
		httpx.Error(w, r, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	token, exp := auth.IssueToken(user.ID, h.ttl, time.Now())
	ctx := auth.WithUserID(r.Context(), user.ID)
	httpx.JSON(w, http.StatusOK, TokenResponse{Token: token, ExpiresAt: exp, Profile: h.gate.ProfileName(ctx)})
}

// MinPasswordLength applies to passwords changed from the console.
const MinPasswordLength = 8

// ChangePassword handles GET and POST /admin/password for the logged in
// account.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, policy.LoginPath, http.StatusSeeOther)
		return
	}
	if r.Method == http.MethodGet {
		renderPage(w, r, "admin/password.html", nil)
		return
	}

	lang := i18n.LangFromContext(r.Context())
	fail := func(code string) {
		renderStatus(w, r, http.StatusBadRequest, "admin/password.html", map[string]any{"Error": i18n.T(lang, code)})
	}
	var user models.User
	if err := h.db.First(&user, uid).Error; err != nil {
		fail("not_found")
		return
	}
	if !auth.CheckPassword(user.Password, r.FormValue("current")) {
		fail("password_current_bad")
		return
	}
	next := r.FormValue("new")
	if len(next) < MinPasswordLength || next != r.FormValue("confirm") {
		fail("password_mismatch")
		return
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		fail("internal_error")
		return
	}
	if err := h.db.Model(&user).Update("password", hash).Error; err != nil {
		fail("internal_error")
		return
	}
	renderPage(w, r, "admin/password.html", map[string]any{"Flash": i18n.T(lang, "password_saved")})
}
