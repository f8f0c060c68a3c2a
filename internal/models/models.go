package models

import "time"

// Product codes of the price list.
const (
	ProductStandard = "LETTRE_STANDARD"
	ProductPremium  = "LETTRE_PREMIUM"
)

// Product is an entry of the price list shown to users. Prices are whole
// FCFA amounts.
type Product struct {
	Code        string    `gorm:"primaryKey;size:50" json:"code"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"size:500" json:"description,omitempty"`
	Price       int       `gorm:"not null" json:"price"`
	Currency    string    `gorm:"size:10;not null;default:XOF" json:"currency"`
	Active      bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// DefaultProducts is the authoritative price list, seeded at startup and
// used to re-check prices sent by clients.
var DefaultProducts = []Product{
	{Code: ProductStandard, Name: "Lettre standard", Description: "Modèle standard, mise en page simple", Price: 500, Currency: "XOF", Active: true},
	{Code: ProductPremium, Name: "Lettre premium", Description: "Modèle premium, en-tête et pied de page officiels", Price: 1000, Currency: "XOF", Active: true},
}

// LookupProduct returns the product for code. Unknown codes resolve to
// the standard product and ok is false.
func LookupProduct(code string) (p Product, ok bool) {
	for _, p := range DefaultProducts {
		if p.Code == code {
			return p, true
		}
	}
	return DefaultProducts[0], false
}

// AuditLog records one administrative action on a submission.
type AuditLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"index" json:"user_id"`
	SubmissionID string    `gorm:"size:36;index" json:"submission_id"`
	Action       string    `gorm:"size:20;not null" json:"action"`
	FromStatus   string    `gorm:"size:20" json:"from_status,omitempty"`
	ToStatus     string    `gorm:"size:20" json:"to_status,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
