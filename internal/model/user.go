package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Handle       string    `gorm:"size:30;uniqueIndex;not null" json:"handle"`
	Email        string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	DisplayName  string    `gorm:"size:100" json:"display_name"`
	Bio          string    `gorm:"size:280" json:"bio,omitempty"`
	Location     string    `gorm:"size:100" json:"location,omitempty"`
	Website      string    `gorm:"size:200" json:"website,omitempty"`

	IsVerified     bool `gorm:"default:false" json:"is_verified"`
	IsCorpVerified bool `gorm:"default:false" json:"is_corp_verified"`
	IsAdmin        bool `gorm:"default:false" json:"-"`
	IsModerator    bool `gorm:"default:false" json:"-"`
	IsPrivate      bool `gorm:"default:false" json:"is_private"`
	IsSuspended    bool `gorm:"default:false" json:"-"`

	// AffiliatedWith points at another user. The badge only counts when that
	// user is corp-verified; the reference itself is a weak link.
	AffiliatedWith *uuid.UUID `gorm:"type:uuid" json:"affiliated_with,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID, err = uuid.NewV7()
	}
	return
}

// CanModerate reports whether the user may take moderator-only actions.
func (u *User) CanModerate() bool {
	return u.IsAdmin || u.IsModerator
}
