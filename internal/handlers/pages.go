package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/diewo77/gedoc/i18n"
	"github.com/diewo77/gedoc/internal/letters"
	"github.com/diewo77/gedoc/internal/models"
	"github.com/diewo77/gedoc/internal/submissions"
	"github.com/diewo77/gedoc/validation"
	"github.com/diewo77/gedoc/view"
)

// Pages serves the public letter wizard: home, type picker, per-type
// form, preview with payment, and the tracking page.
type Pages struct {
	Svc *submissions.Service
	Now func() time.Time
}

func NewPages(svc *submissions.Service) *Pages {
	return &Pages{Svc: svc, Now: time.Now}
}

func renderPage(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	renderStatus(w, r, http.StatusOK, name, data)
}

func renderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	if err := view.RenderStatus(w, r, status, name, data); err != nil {
		log.Printf("render %s: %v", name, err)
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

func (p *Pages) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		p.notFound(w, r)
		return
	}
	var popular []letters.LetterType
	for _, lt := range letters.All() {
		if lt.Popular {
			popular = append(popular, lt)
		}
	}
	renderPage(w, r, "index.html", map[string]any{
		"Popular":       popular,
		"StandardCount": len(letters.Standard()),
		"PremiumCount":  len(letters.Premium()),
		"Products":      p.products(r),
	})
}

func (p *Pages) Types(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, "types.html", map[string]any{
		"Standard": letters.Standard(),
		"Premium":  letters.Premium(),
		"Products": p.products(r),
	})
}

// Form renders the letter form of one type.
func (p *Pages) Form(w http.ResponseWriter, r *http.Request) {
	lt, ok := letters.Find(r.PathValue("typeId"))
	if !ok {
		p.notFound(w, r)
		return
	}
	renderPage(w, r, "form.html", p.formData(lt, letters.FormData{
		LetterTypeID: lt.ID,
		Gender:       letters.GenderMonsieur,
		Formality:    letters.FormalityStandard,
	}, nil))
}

func (p *Pages) formData(lt letters.LetterType, f letters.FormData, errs validation.Violations) map[string]any {
	return map[string]any{
		"Type":      lt,
		"Form":      f,
		"Errors":    errs,
		"Countries": letters.Countries(),
	}
}

func formFromRequest(r *http.Request) letters.FormData {
	v := func(k string) string { return strings.TrimSpace(r.PostFormValue(k)) }
	return letters.FormData{
		SenderName:            v("sender_name"),
		SenderAddress:         v("sender_address"),
		SenderCity:            v("sender_city"),
		SenderCountry:         v("sender_country"),
		SenderPhone:           v("sender_phone"),
		SenderEmail:           v("sender_email"),
		RecipientTitle:        v("recipient_title"),
		RecipientOrganization: v("recipient_organization"),
		RecipientAddress:      v("recipient_address"),
		RecipientCity:         v("recipient_city"),
		RecipientCountry:      v("recipient_country"),
		Subject:               v("subject"),
		Description:           v("description"),
		WritingCity:           v("writing_city"),
		Gender:                v("gender"),
		Formality:             v("formality"),
		LetterTypeID:          v("letter_type_id"),
	}
}

// Preview handles POST /apercu: it validates the form, generates the
// letter and shows the payment step. The form travels on in hidden
// fields; nothing is stored yet.
func (p *Pages) Preview(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderStatus(w, r, http.StatusBadRequest, "error.html", map[string]any{"Code": "invalid_choice"})
		return
	}
	f := formFromRequest(r)
	lt, ok := letters.Find(f.LetterTypeID)
	if !ok {
		p.notFound(w, r)
		return
	}
	if errs := f.Validate(); !errs.Empty() {
		renderStatus(w, r, http.StatusBadRequest, "form.html", p.formData(lt, f, errs))
		return
	}
	renderPage(w, r, "preview.html", p.previewData(r, lt, f, "", nil))
}

func (p *Pages) products(r *http.Request) []models.Product {
	items, err := p.Svc.Prices().Active(r.Context())
	if err != nil {
		log.Printf("price list: %v", err)
		return models.DefaultProducts
	}
	return items
}

func (p *Pages) previewData(r *http.Request, lt letters.LetterType, f letters.FormData, txn string, errs validation.Violations) map[string]any {
	product, _ := p.Svc.Prices().Lookup(r.Context(), lt.Product())
	return map[string]any{
		"Type":        lt,
		"Form":        f,
		"Content":     letters.Generate(f, p.Now()),
		"Product":     product,
		"Products":    p.products(r),
		"Transaction": txn,
		"Errors":      errs,
	}
}

// Pay handles POST /paiement. The letter is regenerated from the posted
// form so the stored text always matches the template.
func (p *Pages) Pay(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderStatus(w, r, http.StatusBadRequest, "error.html", map[string]any{"Code": "invalid_choice"})
		return
	}
	f := formFromRequest(r)
	lt, ok := letters.Find(f.LetterTypeID)
	if !ok {
		p.notFound(w, r)
		return
	}
	if errs := f.Validate(); !errs.Empty() {
		renderStatus(w, r, http.StatusBadRequest, "form.html", p.formData(lt, f, errs))
		return
	}
	txn := strings.TrimSpace(r.PostFormValue("numero_transaction"))
	productCode := r.PostFormValue("product_type")
	if productCode == "" {
		productCode = lt.Product()
	}
	product, _ := p.Svc.Prices().Lookup(r.Context(), productCode)
	in := submissions.CreateInput{
		Nom:               f.SenderName,
		Email:             f.SenderEmail,
		Telephone:         f.SenderPhone,
		TypeLettre:        lt.ID,
		ContenuLettre:     letters.Generate(f, p.Now()),
		NumeroTransaction: txn,
		ProductType:       product.Code,
		ProductPrice:      product.Price,
		IP:                clientIP(r),
	}
	sub, err := p.Svc.Create(r.Context(), in)
	if err != nil {
		lang := i18n.LangFromContext(r.Context())
		errs := validation.Violations{}
		var verr *submissions.ValidationError
		switch {
		case errors.As(err, &verr):
			errs = verr.Violations
		case errors.Is(err, submissions.ErrDuplicateTransaction):
			errs.Add("numero_transaction", "duplicate_transaction")
		default:
			log.Printf("create submission: %v", err)
			errs.Add("form", "internal_error")
		}
		data := p.previewData(r, lt, f, txn, errs)
		data["Error"] = i18n.T(lang, firstCode(errs))
		renderStatus(w, r, http.StatusBadRequest, "preview.html", data)
		return
	}
	http.Redirect(w, r, "/suivi/"+sub.ID, http.StatusSeeOther)
}

func firstCode(v validation.Violations) string {
	if c, ok := v["numero_transaction"]; ok {
		return c
	}
	if c, ok := v["form"]; ok {
		return c
	}
	return "validation_failed"
}

// Track renders the waiting page of a submission. The page polls
// check-submission until the PDF is unlocked.
func (p *Pages) Track(w http.ResponseWriter, r *http.Request) {
	sub, err := p.Svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, submissions.ErrNotFound) {
			p.notFound(w, r)
			return
		}
		log.Printf("track: %v", err)
		renderStatus(w, r, http.StatusInternalServerError, "error.html", map[string]any{"Code": "internal_error"})
		return
	}
	renderPage(w, r, "status.html", map[string]any{
		"Submission":   sub,
		"Unlocked":     sub.Unlocked(),
		"PollInterval": 10000,
	})
}

func (p *Pages) notFound(w http.ResponseWriter, r *http.Request) {
	renderStatus(w, r, http.StatusNotFound, "error.html", map[string]any{"Code": "not_found"})
}
