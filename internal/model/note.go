package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	NoteStatusProposed = "proposed"
	NoteStatusApproved = "approved"
	NoteStatusRejected = "rejected"

	RatingHelpful    = "helpful"
	RatingNotHelpful = "not_helpful"

	// A note auto-approves once this many distinct raters marked it helpful.
	NoteApprovalThreshold = 3

	MaxNoteLength  = 280
	MaxNoteSources = 3
)

var NoteCategories = []string{"misleading", "missing_context", "satire", "disputed", "other"}

// CommunityNote is a reader-sourced fact check attached to a post. Status is
// derived from ratings, except for moderator overrides.
type CommunityNote struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PostID   uuid.UUID `gorm:"type:uuid;not null;index" json:"post_id"`
	AuthorID uuid.UUID `gorm:"type:uuid;not null" json:"author_id"`
	Content  string    `gorm:"size:280;not null" json:"content"`
	Sources  string    `gorm:"type:text;not null;default:'[]'" json:"-"`
	Category string    `gorm:"size:30;not null;default:'missing_context'" json:"category"`
	Status   string    `gorm:"size:20;not null;default:'proposed';index" json:"status"`

	HelpfulCount    int `gorm:"default:0" json:"helpful_count"`
	NotHelpfulCount int `gorm:"default:0" json:"not_helpful_count"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Author *User `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}

func (n *CommunityNote) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID, err = uuid.NewV7()
	}
	return
}

func (n *CommunityNote) SourceList() []string {
	var sources []string
	if err := json.Unmarshal([]byte(n.Sources), &sources); err != nil {
		return nil
	}
	return sources
}

func (n *CommunityNote) SetSources(sources []string) error {
	raw, err := json.Marshal(sources)
	if err != nil {
		return err
	}
	n.Sources = string(raw)
	return nil
}

type NoteRating struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	NoteID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_note_ratings_unique,priority:1" json:"note_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_note_ratings_unique,priority:2" json:"user_id"`
	Rating    string    `gorm:"size:20;not null" json:"rating"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (r *NoteRating) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID, err = uuid.NewV7()
	}
	return
}

var StaffNoteTypes = []string{"info", "warning", "misleading", "investigation", "violation"}

// StaffNote is a moderator annotation on a post, outside the consensus flow.
type StaffNote struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PostID   uuid.UUID `gorm:"type:uuid;not null;index" json:"post_id"`
	AuthorID uuid.UUID `gorm:"type:uuid;not null" json:"author_id"`
	Content  string    `gorm:"type:text;not null" json:"content"`
	NoteType string    `gorm:"size:30;not null;default:'info'" json:"note_type"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Author *User `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}

func (n *StaffNote) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID, err = uuid.NewV7()
	}
	return
}
