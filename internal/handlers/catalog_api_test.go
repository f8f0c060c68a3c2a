package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/gedoc/internal/letters"
	"github.com/diewo77/gedoc/internal/models"
)

func sampleForm(typeID string) letters.FormData {
	return letters.FormData{
		SenderName:            "Awa Ndiaye",
		SenderAddress:         "Rue 10, Médina",
		SenderCity:            "Dakar",
		SenderCountry:         "Sénégal",
		SenderPhone:           "+221 77 000 00 00",
		RecipientTitle:        "Monsieur le Directeur",
		RecipientOrganization: "Société Nationale",
		RecipientAddress:      "Avenue Bourguiba",
		RecipientCity:         "Dakar",
		RecipientCountry:      "Sénégal",
		Subject:               "Demande d'emploi",
		Description:           "Titulaire d'un master en gestion, je souhaite rejoindre vos équipes.",
		WritingCity:           "Dakar",
		Gender:                letters.GenderMadame,
		Formality:             letters.FormalityStandard,
		LetterTypeID:          typeID,
	}
}

func TestLetterTypes(t *testing.T) {
	h := NewCatalogAPI(setupTestDB(t))
	w := httptest.NewRecorder()
	h.LetterTypes(w, httptest.NewRequest(http.MethodGet, "/api/letter-types?tier=premium", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	var resp struct {
		Items     []letters.LetterType `json:"items"`
		Countries []string             `json:"countries"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 20 {
		t.Fatalf("expected 20 premium types, got %d", len(resp.Items))
	}
	if len(resp.Countries) == 0 {
		t.Fatalf("expected countries")
	}
}

func TestProductsUsesSeededPriceList(t *testing.T) {
	h := NewCatalogAPI(setupTestDB(t))
	w := httptest.NewRecorder()
	h.Products(w, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	var resp struct {
		Items []models.Product `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 2 || resp.Items[0].Price != 500 || resp.Items[1].Price != 1000 {
		t.Fatalf("unexpected products %+v", resp.Items)
	}
}

func TestGenerateLetter(t *testing.T) {
	h := NewCatalogAPI(setupTestDB(t))
	h.Now = func() time.Time { return time.Date(2025, 8, 5, 9, 0, 0, 0, time.UTC) }
	form := sampleForm("demande-emploi")

	w := httptest.NewRecorder()
	h.Generate(w, jsonRequest(http.MethodPost, "/api/letters/generate", form))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", w.Code, w.Body.String())
	}
	var resp GenerateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(resp.Content, form.Description) {
		t.Fatalf("letter must contain the description verbatim")
	}
	if !strings.Contains(resp.Content, "5 août 2025") {
		t.Fatalf("expected the french date in %q", resp.Content)
	}
	if resp.ProductType != models.ProductStandard || resp.Price != 500 {
		t.Fatalf("unexpected product %s/%d", resp.ProductType, resp.Price)
	}
}

func TestGenerateRejectsUnknownTypeAndMissingFields(t *testing.T) {
	h := NewCatalogAPI(setupTestDB(t))

	w := httptest.NewRecorder()
	h.Generate(w, jsonRequest(http.MethodPost, "/api/letters/generate", sampleForm("nope")))
	if w.Code != http.StatusBadRequest || decodeError(t, w).Error != "unknown_letter_type" {
		t.Fatalf("expected unknown_letter_type, got %d %s", w.Code, w.Body.String())
	}

	form := sampleForm("demande-emploi")
	form.Description = ""
	w = httptest.NewRecorder()
	h.Generate(w, jsonRequest(http.MethodPost, "/api/letters/generate", form))
	if w.Code != http.StatusBadRequest || decodeError(t, w).Error != "validation_failed" {
		t.Fatalf("expected validation_failed, got %d %s", w.Code, w.Body.String())
	}
}
