package submissions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/gedoc/internal/models"
	"github.com/diewo77/gedoc/validation"
	"gorm.io/gorm"
)

// PriceList reads the products table. While the table is empty the
// built-in defaults apply.
type PriceList struct {
	db *gorm.DB
}

func NewPriceList(db *gorm.DB) *PriceList { return &PriceList{db: db} }

// Active returns the products offered to users, cheapest first.
func (p *PriceList) Active(ctx context.Context) ([]models.Product, error) {
	var items []models.Product
	if err := p.db.WithContext(ctx).Where("active = ?", true).Order("price asc").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if len(items) == 0 {
		var n int64
		if err := p.db.WithContext(ctx).Model(&models.Product{}).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("count products: %w", err)
		}
		if n == 0 {
			return models.DefaultProducts, nil
		}
	}
	return items, nil
}

// All returns every product including inactive ones, ordered by code.
func (p *PriceList) All(ctx context.Context) ([]models.Product, error) {
	var items []models.Product
	if err := p.db.WithContext(ctx).Order("code asc").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return items, nil
}

// Lookup resolves code to an offered product. Unknown or inactive codes
// resolve to the standard product and ok is false.
func (p *PriceList) Lookup(ctx context.Context, code string) (models.Product, bool) {
	items, err := p.Active(ctx)
	if err != nil {
		return models.LookupProduct(code)
	}
	for _, it := range items {
		if it.Code == code {
			return it, true
		}
	}
	for _, it := range items {
		if it.Code == models.ProductStandard {
			return it, false
		}
	}
	std, _ := models.LookupProduct(models.ProductStandard)
	return std, false
}

// ProductUpdate is an edit of the price list.
type ProductUpdate struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int    `json:"price"`
	Active      bool   `json:"active"`
}

func (u ProductUpdate) Validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("name", u.Name, v)
	validation.MaxLength("name", u.Name, 255, v)
	validation.MaxLength("description", u.Description, 500, v)
	validation.PositiveInt("price", u.Price, v)
	return v
}

// Update changes one product. The standard product cannot be disabled
// since it is the fallback of every lookup.
func (p *PriceList) Update(ctx context.Context, code string, u ProductUpdate) (*models.Product, error) {
	u.Name = strings.TrimSpace(u.Name)
	u.Description = strings.TrimSpace(u.Description)
	v := u.Validate()
	if code == models.ProductStandard && !u.Active {
		v.Add("active", "required")
	}
	if !v.Empty() {
		return nil, &ValidationError{Violations: v}
	}
	var prod models.Product
	err := p.db.WithContext(ctx).Where("code = ?", code).First(&prod).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load product %s: %w", code, err)
	}
	prod.Name, prod.Description, prod.Price, prod.Active = u.Name, u.Description, u.Price, u.Active
	if err := p.db.WithContext(ctx).Save(&prod).Error; err != nil {
		return nil, fmt.Errorf("save product %s: %w", code, err)
	}
	return &prod, nil
}
