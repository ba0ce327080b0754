package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Follow is a directed edge: follower sees followee's posts in their home
// timeline. Self-follows are rejected at the service layer.
type Follow struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FollowerID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_follows_unique,priority:1;index" json:"follower_id"`
	FolloweeID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_follows_unique,priority:2;index" json:"followee_id"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (f *Follow) BeforeCreate(tx *gorm.DB) (err error) {
	if f.ID == uuid.Nil {
		f.ID, err = uuid.NewV7()
	}
	return
}

// Block suppresses all visibility between two users. Creating a block removes
// follow edges in both directions.
type Block struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BlockerID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_blocks_unique,priority:1;index" json:"blocker_id"`
	BlockedID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_blocks_unique,priority:2;index" json:"blocked_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (b *Block) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID, err = uuid.NewV7()
	}
	return
}

// Mute only affects the muter's own home timeline, never global visibility.
type Mute struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MuterID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_mutes_unique,priority:1;index" json:"muter_id"`
	MutedID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_mutes_unique,priority:2" json:"muted_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (m *Mute) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID, err = uuid.NewV7()
	}
	return
}
