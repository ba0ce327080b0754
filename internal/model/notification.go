package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	NotificationFollow  = "follow"
	NotificationLike    = "like"
	NotificationReply   = "reply"
	NotificationMention = "mention"
	NotificationRepost  = "repost"
	NotificationMessage = "message"
)

// Notification is append-only: records are created by the fan-out engine and
// only ever flip is_read.
type Notification struct {
	ID      uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  uuid.UUID  `gorm:"type:uuid;not null;index:idx_notifications_user,priority:1" json:"user_id"`
	ActorID *uuid.UUID `gorm:"type:uuid" json:"actor_id,omitempty"`
	Type    string     `gorm:"size:20;not null" json:"type"`
	PostID  *uuid.UUID `gorm:"type:uuid" json:"post_id,omitempty"`
	Message string     `gorm:"type:text" json:"message,omitempty"`
	IsRead  bool       `gorm:"default:false;index:idx_notifications_user,priority:2" json:"is_read"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Actor *User `gorm:"foreignKey:ActorID;constraint:OnDelete:SET NULL" json:"actor,omitempty"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID, err = uuid.NewV7()
	}
	return
}
