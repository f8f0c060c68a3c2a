package view

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/gedoc/i18n"
)

func writeTemplates(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	must := func(rel, content string) {
		p := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	must("layout.html", `<html lang="{{lang}}"><body>{{template "content" .}}</body></html>`)
	must("partials/badge.html", `{{define "badge"}}<span>{{statusLabel .}}</span>{{end}}`)
	must("page.html", `{{define "content"}}{{t "nav.home"}} {{template "badge" .Statut}} {{fcfa .Price}}{{end}}`)
	must("raw.html", `<!doctype html><p>{{.Msg}}</p>`)
	return dir
}

func TestRenderWithLayoutAndPartials(t *testing.T) {
	SetBaseDir(writeTemplates(t))
	defer ResetForTests()

	for _, tc := range []struct{ lang, want string }{
		{"fr", `<html lang="fr"><body>Accueil <span>En attente</span> 1 500 FCFA</body></html>`},
		{"en", `<html lang="en"><body>Home <span>Pending</span> 1 500 FCFA</body></html>`},
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(i18n.WithLang(req.Context(), tc.lang))
		rec := httptest.NewRecorder()
		if err := Render(rec, req, "page.html", map[string]any{"Statut": "en_attente", "Price": 1500}); err != nil {
			t.Fatal(err)
		}
		if got := rec.Body.String(); got != tc.want {
			t.Errorf("lang %s: got %q", tc.lang, got)
		}
	}
}

func TestRenderStandaloneDocument(t *testing.T) {
	SetBaseDir(writeTemplates(t))
	defer ResetForTests()

	rec := httptest.NewRecorder()
	if err := Render(rec, httptest.NewRequest(http.MethodGet, "/", nil), "raw.html", map[string]any{"Msg": "<b>"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rec.Body.String(), "<p>&lt;b&gt;</p>") {
		t.Fatalf("expected escaped standalone page, got %q", rec.Body.String())
	}
}

func TestRenderMissingTemplate(t *testing.T) {
	SetBaseDir(t.TempDir())
	defer ResetForTests()
	if err := Render(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), "nope.html", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestFormatFCFA(t *testing.T) {
	cases := map[int]string{0: "0 FCFA", 500: "500 FCFA", 1000: "1 000 FCFA", 1234567: "1 234 567 FCFA", -2500: "-2 500 FCFA"}
	for in, want := range cases {
		if got := FormatFCFA(in); got != want {
			t.Errorf("FormatFCFA(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatDateTime(t *testing.T) {
	ts := time.Date(2025, 8, 5, 9, 7, 0, 0, time.UTC)
	if got := FormatDateTime(ts); got != "5 août 2025 09:07" {
		t.Errorf("got %q", got)
	}
	if got := FormatDateTime((*time.Time)(nil)); got != "" {
		t.Errorf("nil pointer: got %q", got)
	}
	if got := FormatDateTime(&ts); got == "" {
		t.Error("pointer should be formatted")
	}
}
