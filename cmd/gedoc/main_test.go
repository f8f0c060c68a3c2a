package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--server", srv.URL}, args...))
	err := root.Execute()
	return out.String(), err
}

func stub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/letter-types", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"items": []map[string]any{
			{"id": "demande-emploi", "title": "Demande d'emploi", "tier": "standard"},
		}})
	})
	mux.HandleFunc("POST /api/letters/generate", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"contenu_lettre": "Madame, Monsieur,",
			"letter_type":    map[string]any{"id": "demande-emploi", "title": "Demande d'emploi"},
			"product_type":   "LETTRE_STANDARD",
			"product_price":  500,
		})
	})
	mux.HandleFunc("POST /api/submissions", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]any
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["numero_transaction"] == "DUP" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "duplicate_transaction"})
			return
		}
		assert.Equal(t, "demande-emploi", in["type_lettre"])
		assert.Equal(t, "LETTRE_STANDARD", in["product_type"])
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "sub-1"})
	})
	mux.HandleFunc("POST /api/admin/validate", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "Paiement validé"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeForm(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "form.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"sender_name":"Awa Ndiaye","sender_phone":"770000000","letter_type_id":"demande-emploi"}`), 0o600))
	return path
}

func TestTypesCommand(t *testing.T) {
	t.Setenv("GEDOC_TOKEN", "tok")
	out, err := run(t, stub(t), "types")
	require.NoError(t, err)
	assert.Contains(t, out, "demande-emploi")
	assert.Contains(t, out, "Demande d'emploi")
}

func TestSubmitCommand(t *testing.T) {
	t.Setenv("GEDOC_TOKEN", "tok")
	srv := stub(t)
	form := writeForm(t)

	out, err := run(t, srv, "submit", form, "-x", "TXN1")
	require.NoError(t, err)
	assert.Contains(t, out, "sub-1")

	_, err = run(t, srv, "submit", form, "-x", "DUP")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate_transaction")

	_, err = run(t, srv, "submit", form)
	assert.Error(t, err, "transaction flag is required")
}

func TestAdminValidateUsesStoredToken(t *testing.T) {
	t.Setenv("GEDOC_TOKEN", "tok")
	out, err := run(t, stub(t), "admin", "validate", "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "sub-1: Paiement validé\n", out)
}

func TestSaveAndLoadToken(t *testing.T) {
	t.Setenv("GEDOC_TOKEN", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AppData", t.TempDir())

	path, err := saveToken("abc")
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	assert.Equal(t, "abc", loadToken())

	t.Setenv("GEDOC_TOKEN", "env")
	assert.Equal(t, "env", loadToken())
}
