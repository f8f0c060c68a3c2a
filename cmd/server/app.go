package main

import (
	"net/http"
	"os"

	"github.com/diewo77/gedoc/auth"
	"github.com/diewo77/gedoc/gate"
	"github.com/diewo77/gedoc/httpx"
	"github.com/diewo77/gedoc/i18n"
	"github.com/diewo77/gedoc/internal/config"
	"github.com/diewo77/gedoc/internal/db"
	"github.com/diewo77/gedoc/internal/events"
	"github.com/diewo77/gedoc/internal/handlers"
	"github.com/diewo77/gedoc/internal/letters"
	"github.com/diewo77/gedoc/internal/policy"
	"github.com/diewo77/gedoc/internal/submissions"
	"github.com/diewo77/gedoc/view"
	"gorm.io/gorm"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux     *http.ServeMux
	handler http.Handler
	db      *gorm.DB
	gate    *policy.AuthGate
	hub     *events.Hub
	svc     *submissions.Service
}

// NewApp creates a new application with all routes configured.
func NewApp(gdb *gorm.DB, cfg *config.Config, hub *events.Hub) *App {
	app := &App{
		mux:  http.NewServeMux(),
		db:   gdb,
		gate: policy.NewAuthGate(gdb, cfg.Auth.PermissionCache),
		hub:  hub,
		svc:  submissions.NewService(gdb, hub),
	}
	// Templates show or hide buttons through these callbacks; the view
	// package does not import policy.
	view.SetCanProfileResolver(func(r *http.Request, resource, action string) bool {
		return app.gate.CanProfile(r.Context(), gate.Action(action), resource)
	})
	view.SetSuperAdminResolver(func(r *http.Request) bool {
		return app.gate.IsSuperAdmin(r.Context())
	})
	view.SetLetterTitleResolver(letters.Title)
	app.setupRoutes(cfg)
	app.handler = httpx.Recover(httpx.CORS(auth.Middleware(withPreferences(app.mux))))
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

func (a *App) setupRoutes(cfg *config.Config) {
	pages := handlers.NewPages(a.svc)
	subAPI := handlers.NewSubmissionAPI(a.svc)
	catalog := handlers.NewCatalogAPI(a.db)
	adminAPI := handlers.NewAdminAPI(a.svc, a.gate)
	console := handlers.NewAdminConsole(a.svc, a.gate, a.hub)
	ah := handlers.NewAuthHandler(a.db, a.gate, cfg.Auth.TokenTTL)
	accounts := handlers.NewAdminUserProfileHandler(a.db, a.gate)
	profiles := handlers.NewAdminProfileHandler(a.db, a.gate)
	products := handlers.NewProductHandler(a.db)

	// ─────────────────────────────────────────────────────────────────────────
	// Public pages
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.HandleFunc("GET /{$}", pages.Home)
	a.mux.HandleFunc("GET /types", pages.Types)
	a.mux.HandleFunc("GET /lettres/{typeId}", pages.Form)
	a.mux.HandleFunc("POST /apercu", pages.Preview)
	a.mux.HandleFunc("POST /paiement", pages.Pay)
	a.mux.HandleFunc("GET /suivi/{id}", pages.Track)

	a.mux.HandleFunc("GET /admin/login", ah.Login)
	a.mux.HandleFunc("POST /admin/login", ah.Login)
	a.mux.HandleFunc("GET /admin/logout", ah.Logout)
	a.mux.HandleFunc("POST /admin/logout", ah.Logout)
	a.mux.HandleFunc("GET /admin/password", ah.ChangePassword)
	a.mux.HandleFunc("POST /admin/password", ah.ChangePassword)

	// ─────────────────────────────────────────────────────────────────────────
	// Public API
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.HandleFunc("POST /api/submissions", subAPI.Create)
	a.mux.HandleFunc("POST /api/create-submission", subAPI.Create)
	a.mux.HandleFunc("GET /api/check-submission", subAPI.Check)
	a.mux.HandleFunc("GET /api/download-pdf", subAPI.Download)
	a.mux.HandleFunc("GET /api/download-pdf/file", subAPI.DownloadFile)
	a.mux.HandleFunc("GET /api/letter-types", catalog.LetterTypes)
	a.mux.HandleFunc("GET /api/products", catalog.Products)
	a.mux.HandleFunc("POST /api/letters/generate", catalog.Generate)
	a.mux.HandleFunc("POST /api/auth/login", ah.APILogin)

	// ─────────────────────────────────────────────────────────────────────────
	// Admin API (bearer token or session cookie)
	// ─────────────────────────────────────────────────────────────────────────
	// admin-validate checks the caller itself, per action
	a.mux.HandleFunc("POST /api/admin/validate", adminAPI.Validate)
	a.mux.Handle("GET /api/admin/submissions",
		a.gate.RequireConsole()(http.HandlerFunc(adminAPI.List)))
	a.mux.Handle("GET /api/admin/submissions/{id}",
		a.requirePermission(policy.ResourceSubmission, gate.ActionView)(http.HandlerFunc(adminAPI.Get)))
	a.mux.Handle("GET /api/admin/stats",
		a.requirePermission(policy.ResourceStats, gate.ActionView)(http.HandlerFunc(adminAPI.Stats)))

	// ─────────────────────────────────────────────────────────────────────────
	// Admin console
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.Handle("GET /admin",
		a.gate.RequireConsole()(http.HandlerFunc(console.Dashboard)))
	a.mux.Handle("GET /admin/stats",
		a.requirePermission(policy.ResourceStats, gate.ActionView)(http.HandlerFunc(console.Stats)))
	a.mux.Handle("GET /admin/submissions/{id}",
		a.requirePermission(policy.ResourceSubmission, gate.ActionView)(http.HandlerFunc(console.Submission)))
	a.mux.Handle("POST /admin/submissions/{id}/{action}",
		a.gate.RequireConsole()(http.HandlerFunc(console.Action)))
	a.mux.Handle("GET /admin/events",
		a.gate.RequireConsole()(http.HandlerFunc(console.Events)))

	a.mux.Handle("GET /admin/accounts",
		a.gate.RequireSuperAdmin()(http.HandlerFunc(accounts.List)))
	a.mux.Handle("POST /admin/accounts",
		a.gate.RequireSuperAdmin()(http.HandlerFunc(accounts.Create)))
	a.mux.Handle("POST /admin/accounts/{id}/profile",
		a.gate.RequireSuperAdmin()(http.HandlerFunc(accounts.AssignProfile)))
	a.mux.Handle("POST /admin/accounts/{id}/active",
		a.gate.RequireSuperAdmin()(http.HandlerFunc(accounts.SetActive)))

	a.mux.Handle("GET /admin/profiles",
		a.gate.RequireSuperAdmin()(http.HandlerFunc(profiles.List)))
	a.mux.Handle("POST /admin/profiles",
		a.gate.RequireSuperAdmin()(http.HandlerFunc(profiles.Create)))
	a.mux.Handle("POST /admin/profiles/{id}/permissions",
		a.gate.RequireSuperAdmin()(http.HandlerFunc(profiles.SavePermissions)))
	a.mux.Handle("POST /admin/profiles/{id}/delete",
		a.gate.RequireSuperAdmin()(http.HandlerFunc(profiles.Delete)))

	a.mux.Handle("GET /admin/products",
		a.gate.RequireSuperAdmin()(http.HandlerFunc(products.List)))
	a.mux.Handle("POST /admin/products/{code}",
		a.gate.RequireSuperAdmin()(http.HandlerFunc(products.Update)))

	// ─────────────────────────────────────────────────────────────────────────
	// Health and static files
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.HandleFunc("GET /healthz", a.health)
	a.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir()))))
}

// requirePermission wraps a handler to require a specific resource permission.
func (a *App) requirePermission(resourceType string, action gate.Action) func(http.Handler) http.Handler {
	return a.gate.RequirePermission(resourceType, action)
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	if err := db.Ping(a.db); err != nil {
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]any{"status": "down", "error": err.Error()})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"subscribers": a.hub.Subscribers(),
		"dropped":     a.hub.Dropped(),
	})
}

func staticDir() string {
	if d := os.Getenv("STATIC_DIR"); d != "" {
		return d
	}
	return "static"
}

// withPreferences picks the language from the query, the "lang" cookie or
// Accept-Language, in that order.
func withPreferences(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := i18n.DetectLanguage(r.Header.Get("Accept-Language"))
		if c, err := r.Cookie("lang"); err == nil && i18n.Supported(c.Value) {
			lang = c.Value
		}
		if q := r.URL.Query().Get("lang"); i18n.Supported(q) {
			lang = q
			http.SetCookie(w, &http.Cookie{
				Name:     "lang",
				Value:    lang,
				Path:     "/",
				MaxAge:   86400 * 365,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(i18n.WithLang(r.Context(), lang)))
	})
}
