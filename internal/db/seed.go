package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/gedoc/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type permissionSeed struct {
	ResourceType string
	Action       string
	Description  string
}

var permissionSeeds = []permissionSeed{
	{"*", "*", "Accès complet (super-administrateur)"},
	{"submission", "list", "Lister les soumissions"},
	{"submission", "view", "Consulter une soumission"},
	{"submission", "validate", "Valider un paiement"},
	{"submission", "reject", "Refuser une soumission"},
	{"submission", "delete", "Supprimer une soumission"},
	{"stats", "view", "Consulter les statistiques"},
}

type profileSeed struct {
	Name        string
	Description string
	Permissions []string
}

var profileSeeds = []profileSeed{
	{models.ProfileSuperAdmin, "Super-administrateur, seul habilité à supprimer", []string{"*:*"}},
	{models.ProfileAdmin, "Validation des paiements", []string{
		"submission:list", "submission:view", "submission:validate", "submission:reject", "stats:view",
	}},
	{models.ProfileUser, "Compte sans droit d'administration", nil},
}

// Seed inserts permissions, profiles and the price list. It is idempotent.
func Seed(db *gorm.DB) error {
	if err := SeedProfiles(db); err != nil {
		return err
	}
	return SeedProducts(db)
}

// SeedPermissions creates the permission catalogue.
func SeedPermissions(db *gorm.DB) error {
	for _, p := range permissionSeeds {
		perm := models.Permission{ResourceType: p.ResourceType, Action: p.Action, Description: p.Description}
		if err := db.Where("resource_type = ? AND action = ?", p.ResourceType, p.Action).
			FirstOrCreate(&perm).Error; err != nil {
			return fmt.Errorf("seed permission %s:%s: %w", p.ResourceType, p.Action, err)
		}
	}
	return nil
}

// SeedProfiles creates the system profiles and (re)assigns their permissions.
func SeedProfiles(db *gorm.DB) error {
	if err := SeedPermissions(db); err != nil {
		return err
	}
	for _, p := range profileSeeds {
		var profile models.Profile
		err := db.Where("name = ?", p.Name).First(&profile).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			profile = models.Profile{Name: p.Name, Description: p.Description, IsSystem: true}
			err = db.Create(&profile).Error
		}
		if err != nil {
			return fmt.Errorf("seed profile %s: %w", p.Name, err)
		}

		perms := make([]models.Permission, 0, len(p.Permissions))
		for _, code := range p.Permissions {
			resource, action, _ := strings.Cut(code, ":")
			var perm models.Permission
			if err := db.Where("resource_type = ? AND action = ?", resource, action).First(&perm).Error; err != nil {
				return fmt.Errorf("permission %s: %w", code, err)
			}
			perms = append(perms, perm)
		}
		if err := db.Model(&profile).Association("Permissions").Replace(perms); err != nil {
			return fmt.Errorf("assign permissions to %s: %w", p.Name, err)
		}
	}
	return nil
}

// SeedProducts inserts missing products. Existing rows keep the prices
// set from the admin console.
func SeedProducts(db *gorm.DB) error {
	products := make([]models.Product, len(models.DefaultProducts))
	copy(products, models.DefaultProducts)
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(&products).Error
}

// ProfileByName loads a seeded profile.
func ProfileByName(db *gorm.DB, name string) (*models.Profile, error) {
	var p models.Profile
	if err := db.Where("name = ?", name).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}
