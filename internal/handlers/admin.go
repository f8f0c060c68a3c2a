package handlers

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/diewo77/gedoc/auth"
	"github.com/diewo77/gedoc/i18n"
	"github.com/diewo77/gedoc/internal/events"
	"github.com/diewo77/gedoc/internal/models"
	"github.com/diewo77/gedoc/internal/policy"
	"github.com/diewo77/gedoc/internal/submissions"
)

// AdminConsole renders the admin pages. Mutations posted from the pages
// go through the same checks as AdminAPI.Validate.
type AdminConsole struct {
	Svc *submissions.Service
	API *AdminAPI
	Hub *events.Hub
	Now func() time.Time
}

func NewAdminConsole(svc *submissions.Service, ag *policy.AuthGate, hub *events.Hub) *AdminConsole {
	return &AdminConsole{Svc: svc, API: NewAdminAPI(svc, ag), Hub: hub, Now: time.Now}
}

// statusTab is one filter tab of the dashboard.
type statusTab struct {
	Value  string
	Count  int64
	Active bool
}

func (h *AdminConsole) Dashboard(w http.ResponseWriter, r *http.Request) {
	statut := r.URL.Query().Get("statut")
	if statut == "" {
		statut = submissions.StatusAll
	}
	search := r.URL.Query().Get("q")
	items, err := h.Svc.List(r.Context(), submissions.Filter{Statut: statut, Search: search})
	if errors.Is(err, submissions.ErrInvalidStatus) {
		statut = submissions.StatusAll
		items, err = h.Svc.List(r.Context(), submissions.Filter{Search: search})
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	counts, err := h.Svc.Counts(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	tabs := []statusTab{
		{Value: submissions.StatusAll, Count: counts.Total},
		{Value: string(models.StatusPending), Count: counts.Pending},
		{Value: string(models.StatusValidated), Count: counts.Validated},
		{Value: string(models.StatusRejected), Count: counts.Rejected},
	}
	for i := range tabs {
		tabs[i].Active = tabs[i].Value == statut
	}
	renderPage(w, r, "admin/dashboard.html", map[string]any{
		"Items":   items,
		"Counts":  counts,
		"Tabs":    tabs,
		"Statut":  statut,
		"Search":  search,
		"Flash":   r.URL.Query().Get("msg"),
		"Profile": h.API.Gate.ProfileName(r.Context()),
	})
}

func (h *AdminConsole) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Svc.Stats(r.Context(), h.Now())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	products, err := h.Svc.Prices().All(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if len(products) == 0 {
		products = models.DefaultProducts
	}
	renderPage(w, r, "admin/stats.html", map[string]any{
		"Stats":    st,
		"Bars":     dailyBars(st.Daily),
		"Products": products,
	})
}

type dailyBar struct {
	Date    string
	Count   int
	Percent int
}

// dailyBars scales the histogram to the busiest day.
func dailyBars(days []submissions.DayCount) []dailyBar {
	peak := 0
	for _, d := range days {
		peak = max(peak, d.Count)
	}
	out := make([]dailyBar, len(days))
	for i, d := range days {
		out[i] = dailyBar{Date: d.Date, Count: d.Count}
		if peak > 0 {
			out[i].Percent = d.Count * 100 / peak
		}
	}
	return out
}

// Submission shows one submission with its letter and audit trail.
func (h *AdminConsole) Submission(w http.ResponseWriter, r *http.Request) {
	sub, err := h.Svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	history, err := h.Svc.History(r.Context(), sub.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	renderPage(w, r, "admin/submission.html", map[string]any{
		"Submission": sub,
		"History":    history,
		"Flash":      r.URL.Query().Get("msg"),
	})
}

// Action handles POST /admin/submissions/{id}/{action} from the
// console buttons.
func (h *AdminConsole) Action(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	action, err := submissions.ParseAction(r.PathValue("action"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if status, code := h.API.authorizeAction(r, action); code != "" {
		renderStatus(w, r, status, "error.html", map[string]any{"Code": code})
		return
	}
	u := returnTarget(r.PostFormValue("return"), action)
	if _, err := h.Svc.Apply(r.Context(), uid, r.PathValue("id"), action); err != nil {
		h.fail(w, r, err)
		return
	}
	q := u.Query()
	q.Set("msg", i18n.T(i18n.LangFromContext(r.Context()), actionMessage(action)))
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusSeeOther)
}

// returnTarget is where the console goes after an action: the posted
// page when it is a valid local path, the list otherwise.
func returnTarget(back string, action submissions.Action) *url.URL {
	if action != submissions.ActionDelete && localPath(back) {
		if u, err := url.Parse(back); err == nil {
			return u
		}
	}
	return &url.URL{Path: "/admin"}
}

// localPath accepts "/admin..." paths only, so the return target cannot
// point to another host.
func localPath(p string) bool {
	return strings.HasPrefix(p, "/admin") && !strings.HasPrefix(p, "//")
}

// Events streams submission changes to the console.
func (h *AdminConsole) Events(w http.ResponseWriter, r *http.Request) {
	h.Hub.ServeSSE(w, r)
}

func (h *AdminConsole) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, submissions.ErrNotFound):
		renderStatus(w, r, http.StatusNotFound, "error.html", map[string]any{"Code": "not_found"})
	case errors.Is(err, submissions.ErrInvalidAction):
		renderStatus(w, r, http.StatusBadRequest, "error.html", map[string]any{"Code": "invalid_action"})
	default:
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
		renderStatus(w, r, http.StatusInternalServerError, "error.html", map[string]any{"Code": "internal_error"})
	}
}
