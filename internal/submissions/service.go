// Package submissions implements the payment validation workflow:
// a submission is created pending, then an administrator validates
// (unlocking the PDF), rejects or deletes it.
package submissions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/gedoc/internal/events"
	"github.com/diewo77/gedoc/internal/models"
	"github.com/diewo77/gedoc/validation"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Action is an administrative operation on a submission.
type Action string

const (
	ActionValidate Action = "validate"
	ActionReject   Action = "reject"
	ActionDelete   Action = "delete"
)

// ParseAction checks an action name coming from a request.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.TrimSpace(s)); a {
	case ActionValidate, ActionReject, ActionDelete:
		return a, nil
	}
	return "", ErrInvalidAction
}

// CreateInput is the payload of create-submission.
type CreateInput struct {
	Nom               string  `json:"nom"`
	Email             string  `json:"email"`
	Telephone         string  `json:"telephone"`
	TypeLettre        string  `json:"type_lettre"`
	ContenuLettre     string  `json:"contenu_lettre"`
	NumeroTransaction string  `json:"numero_transaction"`
	ProductType       string  `json:"product_type"`
	ProductPrice      int     `json:"product_price"`
	UserID            *string `json:"user_id"`
	IP                string  `json:"-"`
}

// Validate reports missing or malformed fields.
func (in CreateInput) Validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("nom", in.Nom, v)
	validation.Required("telephone", in.Telephone, v)
	validation.Required("type_lettre", in.TypeLettre, v)
	validation.Required("contenu_lettre", in.ContenuLettre, v)
	validation.Required("numero_transaction", in.NumeroTransaction, v)
	validation.MaxLength("nom", in.Nom, 255, v)
	validation.MaxLength("telephone", in.Telephone, 50, v)
	validation.MaxLength("numero_transaction", in.NumeroTransaction, 100, v)
	validation.Email("email", strings.TrimSpace(in.Email), v)
	return v
}

// StatusView is what check-submission exposes to the public.
type StatusView struct {
	PaiementValide bool          `json:"paiement_valide"`
	PDFDebloque    bool          `json:"pdf_debloque"`
	Statut         models.Status `json:"statut"`
	ProductType    string        `json:"product_type"`
}

// Service owns every state change of submissions.
type Service struct {
	db     *gorm.DB
	pub    events.Publisher
	prices *PriceList
	now    func() time.Time
}

// NewService wires the service. pub may be nil.
func NewService(db *gorm.DB, pub events.Publisher) *Service {
	return &Service{db: db, pub: pub, prices: NewPriceList(db), now: time.Now}
}

// Prices returns the price list used to reprice submissions.
func (s *Service) Prices() *PriceList { return s.prices }

// SetClock replaces the time source, for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) publish(t events.Type, sub models.Submission) {
	if s.pub != nil {
		s.pub.Publish(events.NewEvent(t, sub, s.now()))
	}
}

// Create records a pending submission. The product type is checked
// against the price list and the price always comes from it.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Submission, error) {
	if v := in.Validate(); !v.Empty() {
		return nil, &ValidationError{Violations: v}
	}
	ref := strings.TrimSpace(in.NumeroTransaction)
	product, _ := s.prices.Lookup(ctx, strings.TrimSpace(in.ProductType))

	taken, err := s.transactionTaken(ctx, ref)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateTransaction
	}

	var userID *string
	if in.UserID != nil && strings.TrimSpace(*in.UserID) != "" {
		userID = in.UserID
	}
	sub := models.Submission{
		ID:                uuid.NewString(),
		Nom:               strings.TrimSpace(in.Nom),
		Email:             strings.TrimSpace(in.Email),
		Telephone:         strings.TrimSpace(in.Telephone),
		TypeLettre:        strings.TrimSpace(in.TypeLettre),
		ContenuLettre:     in.ContenuLettre,
		NumeroTransaction: ref,
		Statut:            models.StatusPending,
		ProductType:       product.Code,
		ProductPrice:      product.Price,
		DateCreation:      s.now().UTC(),
		UserID:            userID,
		IPUtilisateur:     in.IP,
	}
	if err := s.db.WithContext(ctx).Create(&sub).Error; err != nil {
		// lost a race against a concurrent insert of the same reference
		if taken, _ := s.transactionTaken(ctx, ref); taken {
			return nil, ErrDuplicateTransaction
		}
		return nil, fmt.Errorf("insert submission: %w", err)
	}
	s.publish(events.Insert, sub)
	return &sub, nil
}

func (s *Service) transactionTaken(ctx context.Context, ref string) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Submission{}).
		Where("numero_transaction = ?", ref).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check transaction: %w", err)
	}
	return n > 0, nil
}

// Get loads one submission.
func (s *Service) Get(ctx context.Context, id string) (*models.Submission, error) {
	return get(s.db.WithContext(ctx), id)
}

func get(tx *gorm.DB, id string) (*models.Submission, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}
	var sub models.Submission
	err := tx.Where("id = ?", id).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load submission %s: %w", id, err)
	}
	return &sub, nil
}

// Status answers check-submission.
func (s *Service) Status(ctx context.Context, id string) (*StatusView, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &StatusView{
		PaiementValide: sub.PaiementValide,
		PDFDebloque:    sub.PDFDebloque,
		Statut:         sub.Statut,
		ProductType:    sub.ProductType,
	}, nil
}

// Download returns the submission only when its PDF is unlocked.
func (s *Service) Download(ctx context.Context, id string) (*models.Submission, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sub.Unlocked() {
		return nil, ErrNotUnlocked
	}
	return sub, nil
}

// Apply dispatches an administrative action. Callers must have checked
// the actor's permission for the action.
func (s *Service) Apply(ctx context.Context, actor uint, id string, action Action) (*models.Submission, error) {
	switch action {
	case ActionValidate:
		return s.Validate(ctx, actor, id)
	case ActionReject:
		return s.Reject(ctx, actor, id)
	case ActionDelete:
		return s.Delete(ctx, actor, id)
	}
	return nil, ErrInvalidAction
}

// Validate confirms the payment and unlocks the PDF.
func (s *Service) Validate(ctx context.Context, actor uint, id string) (*models.Submission, error) {
	return s.transition(ctx, actor, id, ActionValidate, func(sub *models.Submission) {
		sub.Validate(actor, s.now().UTC())
	})
}

// Reject refuses the submission from any state.
func (s *Service) Reject(ctx context.Context, actor uint, id string) (*models.Submission, error) {
	return s.transition(ctx, actor, id, ActionReject, func(sub *models.Submission) {
		sub.Reject()
	})
}

func (s *Service) transition(ctx context.Context, actor uint, id string, action Action, mutate func(*models.Submission)) (*models.Submission, error) {
	var out models.Submission
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := get(tx, id)
		if err != nil {
			return err
		}
		from := sub.Statut
		mutate(sub)
		if err := sub.Check(); err != nil {
			return err
		}
		if err := tx.Save(sub).Error; err != nil {
			return fmt.Errorf("save submission: %w", err)
		}
		if err := audit(tx, actor, sub.ID, action, from, sub.Statut, s.now()); err != nil {
			return err
		}
		out = *sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(events.Update, out)
	return &out, nil
}

// Delete removes the submission. Only super administrators may call it.
func (s *Service) Delete(ctx context.Context, actor uint, id string) (*models.Submission, error) {
	var out models.Submission
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := get(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(&models.Submission{}, "id = ?", sub.ID).Error; err != nil {
			return fmt.Errorf("delete submission: %w", err)
		}
		if err := audit(tx, actor, sub.ID, ActionDelete, sub.Statut, "", s.now()); err != nil {
			return err
		}
		out = *sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(events.Delete, models.Submission{ID: out.ID, Statut: out.Statut})
	return &out, nil
}

func audit(tx *gorm.DB, actor uint, id string, action Action, from, to models.Status, at time.Time) error {
	entry := models.AuditLog{
		UserID:       actor,
		SubmissionID: id,
		Action:       string(action),
		FromStatus:   string(from),
		ToStatus:     string(to),
		CreatedAt:    at,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("audit %s: %w", action, err)
	}
	return nil
}

// History returns the audit trail of one submission, oldest first.
func (s *Service) History(ctx context.Context, id string) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := s.db.WithContext(ctx).Where("submission_id = ?", id).Order("created_at asc, id asc").Find(&logs).Error
	return logs, err
}
