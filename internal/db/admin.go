package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/gedoc/auth"
	"github.com/diewo77/gedoc/internal/models"
	"gorm.io/gorm"
)

// SetupAdmin makes sure an active super administrator exists for email.
// An existing account keeps its password but is promoted and re-enabled.
func SetupAdmin(db *gorm.DB, email, password, name string) (*models.User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, false, errors.New("admin email and password are required")
	}
	profile, err := ProfileByName(db, models.ProfileSuperAdmin)
	if err != nil {
		return nil, false, fmt.Errorf("super_admin profile missing, run seed first: %w", err)
	}

	var user models.User
	err = db.Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		user.ProfileID = &profile.ID
		user.Active = true
		if err := db.Save(&user).Error; err != nil {
			return nil, false, err
		}
		return &user, false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		hash, err := auth.HashPassword(password)
		if err != nil {
			return nil, false, err
		}
		user = models.User{Email: email, Name: name, Password: hash, Active: true, ProfileID: &profile.ID}
		if err := db.Create(&user).Error; err != nil {
			return nil, false, err
		}
		return &user, true, nil
	default:
		return nil, false, err
	}
}

// CreateUser adds an account with the given profile name.
func CreateUser(db *gorm.DB, email, password, name, profileName string) (*models.User, error) {
	profile, err := ProfileByName(db, profileName)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", profileName, err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := models.User{Email: strings.ToLower(strings.TrimSpace(email)), Name: name, Password: hash, Active: true, ProfileID: &profile.ID}
	if err := db.Create(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}
