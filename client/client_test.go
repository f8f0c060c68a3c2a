package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/diewo77/gedoc/internal/models"
	"github.com/diewo77/gedoc/internal/submissions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestSubmitSendsPayloadAndDecodesID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/submissions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in submissions.CreateInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "TXN1", in.NumeroTransaction)
		writeJSON(w, http.StatusCreated, map[string]string{"id": "abc", "message": "ok"})
	}))
	defer srv.Close()

	id, err := New(srv.URL+"/").Submit(context.Background(), submissions.CreateInput{NumeroTransaction: "TXN1"})
	require.NoError(t, err)
	assert.Equal(t, "abc", id)
}

func TestErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "en", r.Header.Get("Accept-Language"))
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "validation_failed",
			"message": "Validation failed",
			"details": map[string]string{"nom": "required"},
		})
	}))
	defer srv.Close()

	_, err := New(srv.URL, WithLanguage("en")).Submit(context.Background(), submissions.CreateInput{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "validation_failed", apiErr.Code)
	assert.Equal(t, "required", apiErr.Details["nom"])
	assert.True(t, IsCode(err, "validation_failed"))
	assert.Contains(t, err.Error(), "Validation failed")
}

func TestNonJSONErrorFallsBackToStatusText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Check(context.Background(), "x")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusText(http.StatusBadGateway), apiErr.Code)
}

func TestLoginKeepsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			writeJSON(w, http.StatusOK, map[string]any{"token": "tok", "expires_at": time.Now(), "profile": "admin"})
		case "/api/admin/validate":
			if r.Header.Get("Authorization") != "Bearer tok" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
				return
			}
			var req struct{ ID, Action string }
			_ = json.NewDecoder(r.Body).Decode(&req)
			assert.Equal(t, "validate", req.Action)
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "ok",
				"submission": map[string]any{"id": req.ID, "statut": "valide", "pdf_debloque": true}})
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.AdminAction(context.Background(), "s1", submissions.ActionValidate)
	assert.True(t, IsCode(err, "unauthorized"))

	tok, err := c.Login(context.Background(), "admin@test", "secret")
	require.NoError(t, err)
	assert.Equal(t, "admin", tok.Profile)

	res, err := c.AdminAction(context.Background(), "s1", submissions.ActionValidate)
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.NotNil(t, res.Submission)
	assert.Equal(t, models.StatusValidated, res.Submission.Statut)
}

func TestDownloadPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "ok" {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "not_unlocked"})
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.3"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	var buf bytes.Buffer
	n, err := c.DownloadPDF(context.Background(), "ok", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(8), n)
	assert.Equal(t, "%PDF-1.3", buf.String())

	buf.Reset()
	_, err = c.DownloadPDF(context.Background(), "locked", &buf)
	assert.True(t, IsCode(err, "not_unlocked"))
	assert.Zero(t, buf.Len())
}

func statusServer(t *testing.T, states ...any) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		i := int(atomic.AddInt32(&calls, 1)) - 1
		if i >= len(states) {
			i = len(states) - 1
		}
		switch st := states[i].(type) {
		case int:
			writeJSON(w, st, map[string]string{"error": "not_found"})
		default:
			writeJSON(w, http.StatusOK, st)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestWaitForValidation(t *testing.T) {
	pending := submissions.StatusView{Statut: models.StatusPending}
	valid := submissions.StatusView{Statut: models.StatusValidated, PaiementValide: true, PDFDebloque: true}
	rejected := submissions.StatusView{Statut: models.StatusRejected}

	t.Run("unlocked", func(t *testing.T) {
		srv, calls := statusServer(t, pending, pending, valid)
		st, err := New(srv.URL).WaitForValidation(context.Background(), "s1", time.Millisecond)
		require.NoError(t, err)
		assert.True(t, st.PDFDebloque)
		assert.Equal(t, int32(3), atomic.LoadInt32(calls))
	})

	t.Run("rejected", func(t *testing.T) {
		srv, _ := statusServer(t, pending, rejected)
		st, err := New(srv.URL).WaitForValidation(context.Background(), "s1", time.Millisecond)
		assert.ErrorIs(t, err, ErrRejected)
		require.NotNil(t, st)
		assert.Equal(t, models.StatusRejected, st.Statut)
	})

	t.Run("deleted", func(t *testing.T) {
		srv, _ := statusServer(t, pending, http.StatusNotFound)
		_, err := New(srv.URL).WaitForValidation(context.Background(), "s1", time.Millisecond)
		assert.ErrorIs(t, err, ErrDeleted)
	})

	t.Run("context", func(t *testing.T) {
		srv, _ := statusServer(t, pending)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := New(srv.URL).WaitForValidation(ctx, "s1", 5*time.Millisecond)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestAdminListQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "en_attente", q.Get("statut"))
		assert.Equal(t, "awa", q.Get("q"))
		assert.Equal(t, "10", q.Get("limit"))
		assert.Empty(t, q.Get("offset"))
		writeJSON(w, http.StatusOK, map[string]any{
			"items":  []map[string]any{{"id": "a", "statut": "en_attente"}},
			"counts": map[string]int{"tous": 3, "en_attente": 1, "valide": 1, "refuse": 1},
		})
	}))
	defer srv.Close()

	items, counts, err := New(srv.URL).AdminList(context.Background(), ListOptions{Statut: "en_attente", Search: "awa", Limit: 10})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, submissions.Counts{Total: 3, Pending: 1, Validated: 1, Rejected: 1}, *counts)
}
