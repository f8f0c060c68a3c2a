package models

import (
	"errors"
	"time"
)

// Status is the payment workflow state of a submission.
type Status string

const (
	StatusPending   Status = "en_attente"
	StatusValidated Status = "valide"
	StatusRejected  Status = "refuse"
)

// Statuses lists the states in display order.
var Statuses = []Status{StatusPending, StatusValidated, StatusRejected}

// Valid reports whether s is a known state.
func (s Status) Valid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

var ErrInconsistentState = errors.New("pdf unlocked without validated payment")

// Submission is the durable record of a generated letter awaiting or
// having received payment validation.
type Submission struct {
	ID                string     `gorm:"primaryKey;size:36" json:"id"`
	Nom               string     `gorm:"size:255;not null" json:"nom"`
	Email             string     `gorm:"size:255" json:"email,omitempty"`
	Telephone         string     `gorm:"size:50;not null" json:"telephone"`
	TypeLettre        string     `gorm:"size:100;not null;index" json:"type_lettre"`
	ContenuLettre     string     `gorm:"type:text;not null" json:"contenu_lettre"`
	NumeroTransaction string     `gorm:"size:100;not null;uniqueIndex" json:"numero_transaction"`
	Statut            Status     `gorm:"size:20;not null;default:en_attente;index" json:"statut"`
	PaiementValide    bool       `gorm:"not null;default:false" json:"paiement_valide"`
	PDFDebloque       bool       `gorm:"column:pdf_debloque;not null;default:false" json:"pdf_debloque"`
	ProductType       string     `gorm:"size:50;not null" json:"product_type"`
	ProductPrice      int        `gorm:"not null" json:"product_price"`
	DateCreation      time.Time  `gorm:"not null;index" json:"date_creation"`
	DateValidation    *time.Time `json:"date_validation,omitempty"`
	ValidatedBy       *uint      `json:"validated_by,omitempty"`
	UserID            *string    `gorm:"size:64" json:"user_id,omitempty"`
	IPUtilisateur     string     `gorm:"size:64" json:"ip_utilisateur,omitempty"`
}

// Unlocked reports whether the letter may be downloaded.
func (s *Submission) Unlocked() bool {
	return s.PaiementValide && s.PDFDebloque && s.Statut == StatusValidated
}

// Validate marks payment as confirmed and unlocks the PDF.
func (s *Submission) Validate(by uint, at time.Time) {
	s.Statut = StatusValidated
	s.PaiementValide = true
	s.PDFDebloque = true
	s.DateValidation = &at
	s.ValidatedBy = &by
}

// Reject refuses the submission and locks the PDF again. A previous
// validation is forgotten; the audit log keeps who rejected it.
func (s *Submission) Reject() {
	s.Statut = StatusRejected
	s.PaiementValide = false
	s.PDFDebloque = false
	s.DateValidation = nil
	s.ValidatedBy = nil
}

// Check enforces that an unlocked PDF always implies a validated payment.
func (s *Submission) Check() error {
	if s.PDFDebloque && (!s.PaiementValide || s.Statut != StatusValidated) {
		return ErrInconsistentState
	}
	return nil
}
