// Package view renders the server side HTML pages.
//
// Pages live under templates/. A page defines a "content" block and is
// wrapped by templates/layout.html unless it carries its own doctype.
// Every file under templates/partials/ is available to every page.
package view

import (
	"bytes"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/diewo77/gedoc/auth"
	"github.com/diewo77/gedoc/i18n"
)

var (
	baseDir  string
	once     sync.Once
	tplCache = struct {
		sync.RWMutex
		m map[string]*template.Template
	}{m: map[string]*template.Template{}}

	langResolver = func(r *http.Request) string { return i18n.LangFromContext(r.Context()) }
	// set by the host app so templates can hide buttons
	canProfileResolver func(*http.Request, string, string) bool
	superAdminResolver func(*http.Request) bool
	letterTitle        = func(id string) string { return id }
)

// SetLangResolver overrides how the page language is read.
func SetLangResolver(f func(*http.Request) string) {
	if f != nil {
		langResolver = f
	}
}

// SetCanProfileResolver sets the callback behind the "can" template func.
func SetCanProfileResolver(f func(*http.Request, string, string) bool) {
	if f != nil {
		canProfileResolver = f
	}
}

// SetSuperAdminResolver sets the callback behind "isSuperAdmin".
func SetSuperAdminResolver(f func(*http.Request) bool) {
	if f != nil {
		superAdminResolver = f
	}
}

// SetLetterTitleResolver sets how "letterTitle" turns a letter type id
// into its display title.
func SetLetterTitleResolver(f func(string) string) {
	if f != nil {
		letterTitle = f
	}
}

func detectBase() {
	for _, c := range []string{"templates", "../templates", "../../templates"} {
		if fi, err := os.Stat(c); err == nil && fi.IsDir() {
			baseDir = filepath.Clean(c)
			return
		}
	}
	baseDir = "templates"
}

// SetBaseDir overrides the template directory.
func SetBaseDir(path string) {
	if path == "" {
		return
	}
	baseDir = filepath.Clean(path)
	once = sync.Once{}
	purge()
}

// ResetForTests clears caches and forces base dir detection to rerun.
func ResetForTests() {
	purge()
	baseDir = ""
	once = sync.Once{}
}

func purge() {
	tplCache.Lock()
	tplCache.m = map[string]*template.Template{}
	tplCache.Unlock()
}

var monthsFR = [...]string{
	"janv.", "févr.", "mars", "avr.", "mai", "juin",
	"juil.", "août", "sept.", "oct.", "nov.", "déc.",
}

// Funcs returns the func map bound to one request.
func Funcs(r *http.Request) template.FuncMap {
	lang := langResolver(r)
	return template.FuncMap{
		"t":    func(code string) string { return i18n.T(lang, code) },
		"lang": func() string { return lang },
		"can": func(resource, action string) bool {
			return canProfileResolver != nil && canProfileResolver(r, resource, action)
		},
		"isSuperAdmin": func() bool {
			return superAdminResolver != nil && superAdminResolver(r)
		},
		"statusLabel": func(s any) string { return i18n.T(lang, "status."+fmt.Sprint(s)) },
		"tierLabel":   func(s any) string { return i18n.T(lang, "tier."+fmt.Sprint(s)) },
		"letterTitle": func(id string) string { return letterTitle(id) },
		"fcfa":        FormatFCFA,
		"dateFR":      FormatDateTime,
		"year":        func() int { return time.Now().Year() },
		"asset":       versionedAsset,
		"json": func(v any) template.JS {
			b, _ := json.Marshal(v)
			return template.JS(b)
		},
		"dict": func(values ...any) map[string]any {
			if len(values)%2 != 0 {
				return nil
			}
			m := make(map[string]any, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				if key, ok := values[i].(string); ok {
					m[key] = values[i+1]
				}
			}
			return m
		},
	}
}

// FormatFCFA renders 12500 as "12 500 FCFA".
func FormatFCFA(amount int) string {
	s := fmt.Sprint(amount)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteRune(' ')
		}
		b.WriteRune(c)
	}
	out := b.String() + " FCFA"
	if neg {
		out = "-" + out
	}
	return out
}

// FormatDateTime renders a timestamp as "5 août 2025 14:03".
func FormatDateTime(v any) string {
	var t time.Time
	switch x := v.(type) {
	case time.Time:
		t = x
	case *time.Time:
		if x == nil {
			return ""
		}
		t = *x
	default:
		return ""
	}
	if t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d %s %d %02d:%02d", t.Day(), monthsFR[t.Month()-1], t.Year(), t.Hour(), t.Minute())
}

func versionedAsset(rel string) string {
	b, err := os.ReadFile(filepath.Join("static", rel))
	if err != nil {
		return "/static/" + rel
	}
	h := sha1.Sum(b)
	return fmt.Sprintf("/static/%s?v=%x", rel, h[:6])
}

func partialFiles() []string {
	matches, _ := filepath.Glob(filepath.Join(baseDir, "partials", "*.html"))
	sort.Strings(matches)
	return matches
}

func parse(name string) (*template.Template, error) {
	mainPath := filepath.Join(baseDir, filepath.FromSlash(name))
	content, err := os.ReadFile(mainPath)
	if err != nil {
		return nil, err
	}
	// placeholder funcs; the real ones are bound per request
	funcs := Funcs(httpRequestStub)
	if bytes.Contains(bytes.ToLower(content), []byte("<!doctype")) {
		return template.New(filepath.Base(mainPath)).Funcs(funcs).ParseFiles(mainPath)
	}
	files := append([]string{filepath.Join(baseDir, "layout.html"), mainPath}, partialFiles()...)
	return template.New("layout.html").Funcs(funcs).ParseFiles(files...)
}

var httpRequestStub, _ = http.NewRequest(http.MethodGet, "/", nil)

// Render executes the page name (relative to the templates dir, e.g.
// "admin/dashboard.html") with data. Year, IsLoggedIn and Lang are
// injected when absent. The output is buffered so that a failing template
// never produces a half written page.
func Render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) error {
	return RenderStatus(w, r, http.StatusOK, name, data)
}

// RenderStatus is Render with an explicit status code.
func RenderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) error {
	if baseDir == "" {
		once.Do(detectBase)
	}
	if data == nil {
		data = map[string]any{}
	}
	if _, ok := data["Year"]; !ok {
		data["Year"] = time.Now().Year()
	}
	if _, ok := data["IsLoggedIn"]; !ok {
		_, data["IsLoggedIn"] = auth.UserIDFromContext(r.Context())
	}
	if _, ok := data["Lang"]; !ok {
		data["Lang"] = langResolver(r)
	}

	dev := os.Getenv("DEV") == "1"
	tplCache.RLock()
	t, ok := tplCache.m[name]
	tplCache.RUnlock()
	if !ok || dev {
		parsed, err := parse(name)
		if err != nil {
			return err
		}
		t = parsed
		if !dev {
			tplCache.Lock()
			tplCache.m[name] = t
			tplCache.Unlock()
		}
	}

	clone, err := t.Clone()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := clone.Funcs(Funcs(r)).Execute(&buf, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}
