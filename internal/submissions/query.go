package submissions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/gedoc/internal/models"
)

// StatusAll disables status filtering.
const StatusAll = "tous"

const (
	defaultLimit = 100
	maxLimit     = 500
)

// Filter narrows the admin listing.
type Filter struct {
	Statut string
	Search string
	Limit  int
	Offset int
}

// List returns submissions newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]models.Submission, error) {
	q := s.db.WithContext(ctx).Model(&models.Submission{})
	if st := models.Status(f.Statut); f.Statut != "" && f.Statut != StatusAll {
		if !st.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, f.Statut)
		}
		q = q.Where("statut = ?", st)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(nom) LIKE ? OR LOWER(numero_transaction) LIKE ? OR telephone LIKE ?", like, like, like)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	var out []models.Submission
	err := q.Order("date_creation desc").Limit(limit).Offset(f.Offset).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return out, nil
}

// Counts is the number of submissions per status.
type Counts struct {
	Total     int64 `json:"tous"`
	Pending   int64 `json:"en_attente"`
	Validated int64 `json:"valide"`
	Rejected  int64 `json:"refuse"`
}

// Counts feeds the filter tabs and the pending badge.
func (s *Service) Counts(ctx context.Context) (Counts, error) {
	var rows []struct {
		Statut models.Status
		N      int64
	}
	err := s.db.WithContext(ctx).Model(&models.Submission{}).
		Select("statut, COUNT(*) AS n").Group("statut").Scan(&rows).Error
	if err != nil {
		return Counts{}, fmt.Errorf("count submissions: %w", err)
	}
	var c Counts
	for _, r := range rows {
		c.Total += r.N
		switch r.Statut {
		case models.StatusPending:
			c.Pending = r.N
		case models.StatusValidated:
			c.Validated = r.N
		case models.StatusRejected:
			c.Rejected = r.N
		}
	}
	return c, nil
}

// DayCount is the number of submissions created on one day.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Stats is the admin dashboard summary. Revenue is in FCFA and only
// counts validated payments.
type Stats struct {
	Counts
	Revenue          int            `json:"revenue"`
	RevenueByProduct map[string]int `json:"revenue_by_product"`
	Daily            []DayCount     `json:"daily"`
}

// StatsWindow is the number of days covered by the daily histogram.
const StatsWindow = 30

// Stats computes totals, revenue per product and daily counts over the
// last StatsWindow days ending at now (UTC days).
func (s *Service) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	counts, err := s.Counts(ctx)
	if err != nil {
		return nil, err
	}
	st := &Stats{Counts: counts, RevenueByProduct: map[string]int{}}
	for _, p := range models.DefaultProducts {
		st.RevenueByProduct[p.Code] = 0
	}

	var rev []struct {
		ProductType string
		Total       int
	}
	if err := s.db.WithContext(ctx).Model(&models.Submission{}).
		Select("product_type, COALESCE(SUM(product_price), 0) AS total").
		Where("paiement_valide = ?", true).
		Group("product_type").Scan(&rev).Error; err != nil {
		return nil, fmt.Errorf("revenue: %w", err)
	}
	for _, r := range rev {
		code := r.ProductType
		if code != models.ProductPremium {
			code = models.ProductStandard
		}
		st.RevenueByProduct[code] += r.Total
		st.Revenue += r.Total
	}

	today := now.UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -(StatsWindow - 1))
	var created []time.Time
	if err := s.db.WithContext(ctx).Model(&models.Submission{}).
		Where("date_creation >= ?", start).
		Pluck("date_creation", &created).Error; err != nil {
		return nil, fmt.Errorf("daily counts: %w", err)
	}
	index := make(map[string]int, StatsWindow)
	st.Daily = make([]DayCount, StatsWindow)
	for i := 0; i < StatsWindow; i++ {
		d := start.AddDate(0, 0, i).Format("2006-01-02")
		st.Daily[i] = DayCount{Date: d}
		index[d] = i
	}
	for _, c := range created {
		if i, ok := index[c.UTC().Format("2006-01-02")]; ok {
			st.Daily[i].Count++
		}
	}
	return st, nil
}
