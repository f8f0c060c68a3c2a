package letters

import (
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/gedoc/validation"
)

const (
	GenderMonsieur = "monsieur"
	GenderMadame   = "madame"

	FormalityStandard   = "standard"
	FormalityTresFormel = "tres-formel"
)

// recipientIndent right-aligns the recipient block in monospace output.
var recipientIndent = strings.Repeat(" ", 40)

var frenchMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// FormData is what the user types in the letter form. It is never stored.
type FormData struct {
	SenderName            string `json:"sender_name"`
	SenderAddress         string `json:"sender_address"`
	SenderCity            string `json:"sender_city"`
	SenderCountry         string `json:"sender_country"`
	SenderPhone           string `json:"sender_phone"`
	SenderEmail           string `json:"sender_email,omitempty"`
	RecipientTitle        string `json:"recipient_title"`
	RecipientOrganization string `json:"recipient_organization"`
	RecipientAddress      string `json:"recipient_address"`
	RecipientCity         string `json:"recipient_city"`
	RecipientCountry      string `json:"recipient_country"`
	Subject               string `json:"subject"`
	Description           string `json:"description"`
	WritingCity           string `json:"writing_city"`
	Gender                string `json:"gender"`
	Formality             string `json:"formality"`
	LetterTypeID          string `json:"letter_type_id"`
}

// Validate reports the fields the form requires.
func (f FormData) Validate() validation.Violations {
	v := validation.Violations{}
	required := map[string]string{
		"sender_name":            f.SenderName,
		"sender_address":         f.SenderAddress,
		"sender_city":            f.SenderCity,
		"sender_country":         f.SenderCountry,
		"sender_phone":           f.SenderPhone,
		"recipient_title":        f.RecipientTitle,
		"recipient_organization": f.RecipientOrganization,
		"recipient_address":      f.RecipientAddress,
		"recipient_city":         f.RecipientCity,
		"recipient_country":      f.RecipientCountry,
		"subject":                f.Subject,
		"description":            f.Description,
		"writing_city":           f.WritingCity,
		"letter_type_id":         f.LetterTypeID,
	}
	for field, value := range required {
		validation.Required(field, value, v)
	}
	validation.Email("sender_email", f.SenderEmail, v)
	validation.MaxLength("description", f.Description, 5000, v)
	if f.Gender != "" {
		validation.OneOf("gender", f.Gender, []string{GenderMonsieur, GenderMadame}, v)
	}
	if f.Formality != "" {
		validation.OneOf("formality", f.Formality, []string{FormalityStandard, FormalityTresFormel}, v)
	}
	return v
}

// FormatDate renders t as "5 mars 2025".
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), frenchMonths[t.Month()-1], t.Year())
}

func genderTitle(gender string) string {
	if gender == GenderMadame {
		return "Madame"
	}
	return "Monsieur"
}

func appellation(gender string) string {
	return genderTitle(gender) + ","
}

func honneur(formality string) string {
	if formality == FormalityTresFormel {
		return "J'ai l'honneur de"
	}
	return "Je me permets de"
}

func politesse(gender, recipientTitle, formality string) string {
	title := recipientTitle
	if title == "" {
		title = genderTitle(gender)
	}
	if formality == FormalityTresFormel {
		return "Je vous prie d'agréer, " + title + ", l'expression de ma très haute considération et de mon profond respect."
	}
	return "Je vous prie d'agréer, " + title + ", l'expression de mes salutations distinguées."
}

type bodyData struct {
	Honneur       string
	Description   string
	SenderName    string
	SenderAddress string
	SenderCity    string
	SenderCountry string
}

// Body renders the paragraph specific to the letter type, or the generic
// paragraph for unknown ids.
func (c *Catalogue) Body(f FormData) string {
	data := bodyData{
		Honneur:       honneur(f.Formality),
		Description:   f.Description,
		SenderName:    f.SenderName,
		SenderAddress: f.SenderAddress,
		SenderCity:    f.SenderCity,
		SenderCountry: f.SenderCountry,
	}
	t := c.fallback
	if lt, ok := c.Find(f.LetterTypeID); ok {
		t = lt.body
	}
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		sb.Reset()
		_ = c.fallback.Execute(&sb, data)
	}
	return sb.String()
}

// Generate assembles the full letter. It never fails: missing fields are
// rendered empty.
func (c *Catalogue) Generate(f FormData, now time.Time) string {
	var b strings.Builder
	line := func(s ...string) {
		b.WriteString(strings.Join(s, ""))
		b.WriteByte('\n')
	}

	line(f.SenderName)
	line(f.SenderAddress)
	line(f.SenderCity, ", ", f.SenderCountry)
	b.WriteString("Tél : " + f.SenderPhone)
	if f.SenderEmail != "" {
		b.WriteString("\nEmail : " + f.SenderEmail)
	}
	b.WriteString("\n\n\n")

	line(recipientIndent, f.RecipientTitle)
	line(recipientIndent, f.RecipientOrganization)
	line(recipientIndent, f.RecipientAddress)
	line(recipientIndent, f.RecipientCity, ", ", f.RecipientCountry)
	b.WriteString("\n\n")

	line(recipientIndent, f.WritingCity, ", le ", FormatDate(now))
	b.WriteString("\n\n")

	line("Objet : ", f.Subject)
	b.WriteString("\n\n")

	line(appellation(f.Gender))
	b.WriteByte('\n')
	line(c.Body(f))
	b.WriteByte('\n')
	line(politesse(f.Gender, f.RecipientTitle, f.Formality))
	b.WriteString("\n\n")
	b.WriteString(f.SenderName)
	return b.String()
}

// Generate uses the embedded catalogue.
func Generate(f FormData, now time.Time) string {
	return Default().Generate(f, now)
}
