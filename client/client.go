// Package client is a Go client for the GEDOC HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/diewo77/gedoc/httpx"
	"github.com/diewo77/gedoc/internal/handlers"
	"github.com/diewo77/gedoc/internal/letters"
	"github.com/diewo77/gedoc/internal/models"
	"github.com/diewo77/gedoc/internal/submissions"
)

// DefaultPollInterval matches the tracking page.
const DefaultPollInterval = 10 * time.Second

var (
	ErrRejected = errors.New("submission rejected")
	ErrDeleted  = errors.New("submission deleted")
)

// APIError is a non-2xx answer decoded from the JSON error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details map[string]string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Code)
}

// IsCode reports whether err is an APIError with the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// Client talks to one GEDOC server.
type Client struct {
	baseURL string
	token   string
	lang    string
	http    *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option { return func(c *Client) { c.token = token } }

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithLanguage asks the server for messages in lang.
func WithLanguage(lang string) Option { return func(c *Client) { c.lang = lang } }

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetToken replaces the bearer token, e.g. after Login.
func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		r = bytes.NewReader(b)
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.lang != "" {
		req.Header.Set("Accept-Language", c.lang)
	}
	return req, nil
}

// do sends the request and decodes a JSON answer into out when non nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Code: http.StatusText(resp.StatusCode)}
	var env struct {
		httpx.ErrorResponse
		Details map[string]string `json:"details"`
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if json.Unmarshal(b, &env) == nil && env.Error != "" {
		apiErr.Code = env.Error
		apiErr.Message = env.Message
		apiErr.Details = env.Details
	}
	return apiErr
}

// Login exchanges credentials for a bearer token and keeps it.
func (c *Client) Login(ctx context.Context, email, password string) (*handlers.TokenResponse, error) {
	var out handlers.TokenResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, map[string]string{"email": email, "password": password}, &out)
	if err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out, nil
}

// LetterTypes lists the catalogue; tier may be empty.
func (c *Client) LetterTypes(ctx context.Context, tier letters.Tier) ([]letters.LetterType, error) {
	var q url.Values
	if tier != "" {
		q = url.Values{"tier": {string(tier)}}
	}
	var out struct {
		Items []letters.LetterType `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/letter-types", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) Products(ctx context.Context) ([]models.Product, error) {
	var out struct {
		Items []models.Product `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/products", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Generate renders a letter on the server.
func (c *Client) Generate(ctx context.Context, f letters.FormData) (*handlers.GenerateResponse, error) {
	var out handlers.GenerateResponse
	if err := c.do(ctx, http.MethodPost, "/api/letters/generate", nil, f, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Submit creates a pending submission and returns its id.
func (c *Client) Submit(ctx context.Context, in submissions.CreateInput) (string, error) {
	var out handlers.CreateResponse
	if err := c.do(ctx, http.MethodPost, "/api/submissions", nil, in, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Check returns the public status of a submission.
func (c *Client) Check(ctx context.Context, id string) (*submissions.StatusView, error) {
	var out submissions.StatusView
	if err := c.do(ctx, http.MethodGet, "/api/check-submission", url.Values{"id": {id}}, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Download returns the authorized letter text. It fails with the
// "not_unlocked" code until an administrator validated the payment.
func (c *Client) Download(ctx context.Context, id string) (*handlers.DownloadResponse, error) {
	var out handlers.DownloadResponse
	if err := c.do(ctx, http.MethodGet, "/api/download-pdf", url.Values{"id": {id}}, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DownloadPDF streams the rendered PDF into w.
func (c *Client) DownloadPDF(ctx context.Context, id string, w io.Writer) (int64, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/download-pdf/file", url.Values{"id": {id}}, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return 0, decodeError(resp)
	}
	return io.Copy(w, resp.Body)
}

// WaitForValidation polls Check every interval until the PDF is unlocked.
// It returns ErrRejected or ErrDeleted when the submission can no longer
// be unlocked, and ctx.Err() when the context ends first.
func (c *Client) WaitForValidation(ctx context.Context, id string, interval time.Duration) (*submissions.StatusView, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		st, err := c.Check(ctx, id)
		switch {
		case IsCode(err, "not_found"):
			return nil, ErrDeleted
		case err != nil && ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			return nil, err
		case st.PaiementValide && st.PDFDebloque:
			return st, nil
		case st.Statut == models.StatusRejected:
			return st, ErrRejected
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// ListOptions filters AdminList.
type ListOptions struct {
	Statut string
	Search string
	Limit  int
	Offset int
}

// AdminList returns submissions and per-status counts.
func (c *Client) AdminList(ctx context.Context, opts ListOptions) ([]models.Submission, *submissions.Counts, error) {
	q := url.Values{}
	if opts.Statut != "" {
		q.Set("statut", opts.Statut)
	}
	if opts.Search != "" {
		q.Set("q", opts.Search)
	}
	if opts.Limit > 0 {
		q.Set("limit", fmt.Sprint(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", fmt.Sprint(opts.Offset))
	}
	var out struct {
		Items  []models.Submission `json:"items"`
		Counts submissions.Counts  `json:"counts"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/admin/submissions", q, nil, &out); err != nil {
		return nil, nil, err
	}
	return out.Items, &out.Counts, nil
}

// AdminAction calls admin-validate with validate, reject or delete.
func (c *Client) AdminAction(ctx context.Context, id string, action submissions.Action) (*handlers.ValidateResponse, error) {
	var out handlers.ValidateResponse
	body := handlers.ValidateRequest{ID: id, Action: string(action)}
	if err := c.do(ctx, http.MethodPost, "/api/admin/validate", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Stats(ctx context.Context) (*submissions.Stats, error) {
	var out submissions.Stats
	if err := c.do(ctx, http.MethodGet, "/api/admin/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
