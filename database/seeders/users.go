package seeders

import (
	"gorm.io/gorm"

	"github.com/shashiranjanraj/panaya/app/models"
	"github.com/shashiranjanraj/panaya/config"
	"github.com/shashiranjanraj/panaya/pkg/auth"
)

func init() { Register("users", seedUsers) }

// seedUsers creates the admin account from SEED_ADMIN_EMAIL and
// SEED_ADMIN_PASSWORD. An existing account is left untouched.
func seedUsers(db *gorm.DB) error {
	email := config.Get("SEED_ADMIN_EMAIL", "admin@panaya.local")
	var n int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	hash, err := auth.HashPassword(config.Get("SEED_ADMIN_PASSWORD", "change-me-now"))
	if err != nil {
		return err
	}
	return db.Create(&models.User{
		Name:     "Administrator",
		Email:    email,
		Password: hash,
		Role:     models.RoleAdmin,
	}).Error
}
