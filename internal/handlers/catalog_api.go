package handlers

import (
	"net/http"
	"time"

	"github.com/diewo77/gedoc/httpx"
	"github.com/diewo77/gedoc/internal/letters"
	"github.com/diewo77/gedoc/internal/submissions"
	"gorm.io/gorm"
)

// CatalogAPI exposes the letter templates, the price list and the
// generator.
type CatalogAPI struct {
	Prices *submissions.PriceList
	Now    func() time.Time
}

func NewCatalogAPI(db *gorm.DB) *CatalogAPI {
	return &CatalogAPI{Prices: submissions.NewPriceList(db), Now: time.Now}
}

// LetterTypes handles GET /api/letter-types[?tier=standard|premium].
func (h *CatalogAPI) LetterTypes(w http.ResponseWriter, r *http.Request) {
	types := letters.All()
	switch tier := letters.Tier(r.URL.Query().Get("tier")); tier {
	case letters.TierStandard, letters.TierPremium:
		types = letters.Default().ByTier(tier)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":     types,
		"countries": letters.Countries(),
	})
}

// Products handles GET /api/products.
func (h *CatalogAPI) Products(w http.ResponseWriter, r *http.Request) {
	items, err := h.Prices.Active(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

// GenerateResponse is the generated text with the suggested product.
type GenerateResponse struct {
	Content     string             `json:"contenu_lettre"`
	LetterType  letters.LetterType `json:"letter_type"`
	ProductType string             `json:"product_type"`
	Price       int                `json:"product_price"`
}

// Generate handles POST /api/letters/generate.
func (h *CatalogAPI) Generate(w http.ResponseWriter, r *http.Request) {
	var form letters.FormData
	if err := decodeJSON(r, &form); err != nil {
		httpx.Error(w, r, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if v := form.Validate(); !v.Empty() {
		httpx.Error(w, r, http.StatusBadRequest, "validation_failed", v)
		return
	}
	lt, ok := letters.Find(form.LetterTypeID)
	if !ok {
		httpx.Error(w, r, http.StatusBadRequest, "unknown_letter_type", nil)
		return
	}
	product, _ := h.Prices.Lookup(r.Context(), lt.Product())
	httpx.JSON(w, http.StatusOK, GenerateResponse{
		Content:     letters.Generate(form, h.Now()),
		LetterType:  lt,
		ProductType: product.Code,
		Price:       product.Price,
	})
}
