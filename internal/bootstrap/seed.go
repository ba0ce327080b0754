package bootstrap

import (
	"log"

	"chirpnet.io/chirp/internal/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type seedUser struct {
	Handle      string
	Email       string
	DisplayName string
	Password    string
	IsAdmin     bool
	IsModerator bool
	IsVerified  bool
}

var seedUsers = []seedUser{
	{Handle: "admin", Email: "admin@chirpnet.io", DisplayName: "Administrator", Password: "admin123", IsAdmin: true, IsModerator: true, IsVerified: true},
	{Handle: "moderator", Email: "moderator@chirpnet.io", DisplayName: "Moderator", Password: "moderator123", IsModerator: true, IsVerified: true},
	{Handle: "demo", Email: "demo@chirpnet.io", DisplayName: "Demo User", Password: "demo123"},
}

// Seed creates the development accounts once. Safe to run on every boot.
func Seed(db *gorm.DB) error {
	for _, su := range seedUsers {
		var count int64
		if err := db.Model(&model.User{}).
			Where("LOWER(handle) = ?", su.Handle).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(su.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		user := model.User{
			Handle:       su.Handle,
			Email:        su.Email,
			DisplayName:  su.DisplayName,
			PasswordHash: string(hash),
			IsAdmin:      su.IsAdmin,
			IsModerator:  su.IsModerator,
			IsVerified:   su.IsVerified,
		}
		if err := db.Create(&user).Error; err != nil {
			return err
		}
		log.Printf("seeded user @%s", su.Handle)
	}
	return nil
}
