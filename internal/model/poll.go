package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MinPollOptions = 2
	MaxPollOptions = 4
)

// Poll attaches to exactly one post. Options is a JSON array of 2-4 labels.
type Poll struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PostID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"post_id"`
	Options   string    `gorm:"type:text;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (p *Poll) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID, err = uuid.NewV7()
	}
	return
}

func (p *Poll) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

func (p *Poll) OptionList() []string {
	var options []string
	if err := json.Unmarshal([]byte(p.Options), &options); err != nil {
		return nil
	}
	return options
}

func (p *Poll) SetOptions(options []string) error {
	raw, err := json.Marshal(options)
	if err != nil {
		return err
	}
	p.Options = string(raw)
	return nil
}

type PollVote struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PollID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_poll_votes_unique,priority:1" json:"poll_id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_poll_votes_unique,priority:2" json:"user_id"`
	OptionIndex int       `gorm:"not null" json:"option_index"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (v *PollVote) BeforeCreate(tx *gorm.DB) (err error) {
	if v.ID == uuid.Nil {
		v.ID, err = uuid.NewV7()
	}
	return
}
