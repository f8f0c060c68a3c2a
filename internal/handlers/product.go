package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/diewo77/gedoc/httpx"
	"github.com/diewo77/gedoc/i18n"
	"github.com/diewo77/gedoc/internal/submissions"
	"gorm.io/gorm"
)

// ProductHandler edits the price list from the admin console.
type ProductHandler struct {
	prices *submissions.PriceList
}

func NewProductHandler(db *gorm.DB) *ProductHandler {
	return &ProductHandler{prices: submissions.NewPriceList(db)}
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.prices.All(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"items": products})
		return
	}
	lang := i18n.LangFromContext(r.Context())
	data := map[string]any{"Products": products}
	if m := r.URL.Query().Get("msg"); m != "" {
		data["Flash"] = i18n.T(lang, m)
	}
	if e := r.URL.Query().Get("err"); e != "" {
		data["Error"] = i18n.T(lang, e)
	}
	renderPage(w, r, "admin/products.html", data)
}

// Update handles POST /admin/products/{code}, from the form or as JSON.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	var in submissions.ProductUpdate
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := decodeJSON(r, &in); err != nil {
			httpx.Error(w, r, http.StatusBadRequest, "invalid_json", nil)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			httpx.Error(w, r, http.StatusBadRequest, "invalid_form", nil)
			return
		}
		price, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("price")))
		if err != nil {
			price = 0
		}
		in = submissions.ProductUpdate{
			Name:        r.PostFormValue("name"),
			Description: r.PostFormValue("description"),
			Price:       price,
			Active:      r.PostFormValue("active") == "on",
		}
	}

	product, err := h.prices.Update(r.Context(), code, in)
	if httpx.WantsJSON(r) {
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, product)
		return
	}
	target := "/admin/products?msg=product_updated"
	if err != nil {
		target = "/admin/products?err=" + url.QueryEscape(productErrorCode(err))
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func productErrorCode(err error) string {
	var verr *submissions.ValidationError
	switch {
	case errors.As(err, &verr):
		return firstCode(verr.Violations)
	case errors.Is(err, submissions.ErrNotFound):
		return "not_found"
	}
	return "internal_error"
}
