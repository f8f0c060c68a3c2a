package policy

import (
	"context"
	"errors"

	"github.com/diewo77/gedoc/gate"
	"github.com/diewo77/gedoc/internal/models"
	"gorm.io/gorm"
)

// DBProfileResolver loads the profile of an account with its permissions.
type DBProfileResolver struct {
	DB *gorm.DB
}

func NewDBProfileResolver(db *gorm.DB) *DBProfileResolver {
	return &DBProfileResolver{DB: db}
}

// Resolve returns nil for unknown, disabled or profile-less accounts.
func (r *DBProfileResolver) Resolve(ctx context.Context, userID uint) (gate.Profile, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Preload("Profile.Permissions").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !user.Active || user.Profile == nil {
		return nil, nil
	}
	return profileAdapter{p: user.Profile}, nil
}

type profileAdapter struct {
	p *models.Profile
}

func (a profileAdapter) ID() uint     { return a.p.ID }
func (a profileAdapter) Name() string { return a.p.Name }

func (a profileAdapter) HasPermission(requested gate.Permission) bool {
	for _, p := range a.p.Permissions {
		if gate.Permission(p.Code()).Matches(requested) {
			return true
		}
	}
	return false
}

func (a profileAdapter) Permissions() []gate.Permission {
	out := make([]gate.Permission, len(a.p.Permissions))
	for i, p := range a.p.Permissions {
		out[i] = gate.Permission(p.Code())
	}
	return out
}

// ActiveUserVerifier is plugged into auth.SetUserVerifier so that tokens
// of deleted or disabled accounts stop working immediately.
func ActiveUserVerifier(db *gorm.DB) func(ctx context.Context, uid uint) bool {
	return func(ctx context.Context, uid uint) bool {
		var n int64
		err := db.WithContext(ctx).Model(&models.User{}).
			Where("id = ? AND active = ?", uid, true).Count(&n).Error
		return err == nil && n == 1
	}
}
