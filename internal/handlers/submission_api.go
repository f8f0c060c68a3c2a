package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/diewo77/gedoc/httpx"
	"github.com/diewo77/gedoc/i18n"
	"github.com/diewo77/gedoc/internal/pdf"
	"github.com/diewo77/gedoc/internal/submissions"
)

const maxBodyBytes = 1 << 20

// SubmissionAPI serves the public endpoints used by the letter wizard and
// the CLI: create-submission, check-submission and download-pdf.
type SubmissionAPI struct {
	Svc *submissions.Service
}

func NewSubmissionAPI(svc *submissions.Service) *SubmissionAPI {
	return &SubmissionAPI{Svc: svc}
}

// CreateResponse is returned with 201 by Create.
type CreateResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Create handles POST /api/submissions.
func (h *SubmissionAPI) Create(w http.ResponseWriter, r *http.Request) {
	var in submissions.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		httpx.Error(w, r, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	in.IP = clientIP(r)
	sub, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	lang := i18n.LangFromContext(r.Context())
	httpx.JSON(w, http.StatusCreated, CreateResponse{ID: sub.ID, Message: i18n.T(lang, "submission_created")})
}

// Check handles GET /api/check-submission?id=.
func (h *SubmissionAPI) Check(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		httpx.Error(w, r, http.StatusBadRequest, "missing_params", nil)
		return
	}
	st, err := h.Svc.Status(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, st)
}

// DownloadResponse carries the authorized letter text.
type DownloadResponse struct {
	Authorized    bool   `json:"authorized"`
	ContenuLettre string `json:"contenu_lettre"`
	TypeLettre    string `json:"type_lettre"`
	ProductType   string `json:"product_type"`
}

// Download handles GET /api/download-pdf?id=. The product type comes from
// the stored record, never from the caller.
func (h *SubmissionAPI) Download(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		httpx.Error(w, r, http.StatusBadRequest, "missing_params", nil)
		return
	}
	sub, err := h.Svc.Download(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, DownloadResponse{
		Authorized:    true,
		ContenuLettre: sub.ContenuLettre,
		TypeLettre:    sub.TypeLettre,
		ProductType:   sub.ProductType,
	})
}

// DownloadFile handles GET /api/download-pdf/file?id= and streams the
// rendered PDF.
func (h *SubmissionAPI) DownloadFile(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		httpx.Error(w, r, http.StatusBadRequest, "missing_params", nil)
		return
	}
	sub, err := h.Svc.Download(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := pdf.Render(&buf, sub.ContenuLettre, sub.ProductType); err != nil {
		log.Printf("pdf %s: %v", sub.ID, err)
		httpx.Error(w, r, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+pdf.Filename(sub.TypeLettre, sub.ProductType)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

// writeServiceError maps service errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *submissions.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.Error(w, r, http.StatusBadRequest, "validation_failed", verr.Violations)
	case errors.Is(err, submissions.ErrDuplicateTransaction):
		httpx.Error(w, r, http.StatusBadRequest, "duplicate_transaction", nil)
	case errors.Is(err, submissions.ErrInvalidAction):
		httpx.Error(w, r, http.StatusBadRequest, "invalid_action", nil)
	case errors.Is(err, submissions.ErrInvalidStatus):
		httpx.Error(w, r, http.StatusBadRequest, "invalid_choice", nil)
	case errors.Is(err, submissions.ErrNotFound):
		httpx.Error(w, r, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, submissions.ErrNotUnlocked):
		httpx.Error(w, r, http.StatusForbidden, "not_unlocked", nil)
	default:
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
		httpx.Error(w, r, http.StatusInternalServerError, "internal_error", nil)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	return dec.Decode(dst)
}

// clientIP prefers the first X-Forwarded-For hop.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
