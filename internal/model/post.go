package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const MaxPostLength = 500

// Post is one node of the content graph. ParentID, RepostID and QuoteID are
// weak references (id + lookup): the referenced post may have been deleted,
// in which case the column is nulled rather than cascading.
type Post struct {
	ID       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User     User       `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Content  string     `gorm:"size:500;not null" json:"content"`
	ParentID *uuid.UUID `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	RepostID *uuid.UUID `gorm:"type:uuid;index" json:"repost_id,omitempty"`
	QuoteID  *uuid.UUID `gorm:"type:uuid" json:"quote_id,omitempty"`

	IsEdited    bool       `gorm:"default:false" json:"is_edited"`
	EditHistory string     `gorm:"type:text;default:'[]'" json:"-"`
	EditedAt    *time.Time `json:"edited_at,omitempty"`

	IsPinned  bool `gorm:"default:false" json:"is_pinned"`
	IsDeleted bool `gorm:"default:false;index" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID, err = uuid.NewV7()
	}
	return
}

// IsRepost reports a pure repost: a zero-content row pointing at an original.
func (p *Post) IsRepost() bool {
	return p.RepostID != nil && p.Content == ""
}

func (p *Post) IsReply() bool {
	return p.ParentID != nil
}

// EditSnapshot is one entry of a post's edit history, stored as a JSON array
// in the edit_history column.
type EditSnapshot struct {
	Content  string    `json:"content"`
	EditedAt time.Time `json:"edited_at"`
}

type Hashtag struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Tag       string    `gorm:"size:100;uniqueIndex;not null" json:"tag"`
	PostCount int       `gorm:"default:0" json:"post_count"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (h *Hashtag) BeforeCreate(tx *gorm.DB) (err error) {
	if h.ID == uuid.Nil {
		h.ID, err = uuid.NewV7()
	}
	return
}

type PostHashtag struct {
	PostID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"post_id"`
	HashtagID uuid.UUID `gorm:"type:uuid;primaryKey" json:"hashtag_id"`
}
