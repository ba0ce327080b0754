package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ReportStatusPending   = "pending"
	ReportStatusResolved  = "resolved"
	ReportStatusDismissed = "dismissed"
)

// Report is a user complaint about a post, queued for moderator review.
// The reported user is denormalized from the post so the report survives
// the post's deletion.
type Report struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ReporterID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"reporter_id"`
	ReportedUserID *uuid.UUID `gorm:"type:uuid" json:"reported_user_id,omitempty"`
	ReportedPostID *uuid.UUID `gorm:"type:uuid" json:"reported_post_id,omitempty"`
	Reason         string     `gorm:"size:100;not null" json:"reason"`
	Details        string     `gorm:"type:text" json:"details,omitempty"`
	Status         string     `gorm:"size:20;not null;default:'pending';index" json:"status"`

	ResolvedBy *uuid.UUID `gorm:"type:uuid" json:"resolved_by,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`

	Reporter *User `gorm:"foreignKey:ReporterID" json:"reporter,omitempty"`
}

func (r *Report) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID, err = uuid.NewV7()
	}
	return
}
