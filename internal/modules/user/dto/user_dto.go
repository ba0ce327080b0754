package dto

import (
	"time"

	"github.com/google/uuid"
)

type ProfileResponse struct {
	ID             uuid.UUID `json:"id"`
	Handle         string    `json:"handle"`
	DisplayName    string    `json:"display_name"`
	Bio            string    `json:"bio,omitempty"`
	Location       string    `json:"location,omitempty"`
	Website        string    `json:"website,omitempty"`
	IsVerified     bool      `json:"is_verified"`
	IsCorpVerified bool      `json:"is_corp_verified"`
	IsPrivate      bool      `json:"is_private"`
	CreatedAt      time.Time `json:"created_at"`

	PostCount      int64 `json:"post_count"`
	FollowerCount  int64 `json:"follower_count"`
	FollowingCount int64 `json:"following_count"`

	IsFollowing  bool `json:"is_following"`
	IsOwnProfile bool `json:"is_own_profile"`
}

type UpdateProfileRequest struct {
	DisplayName string `json:"display_name" binding:"omitempty,max=100"`
	Bio         string `json:"bio" binding:"omitempty,max=280"`
	Location    string `json:"location" binding:"omitempty,max=100"`
	Website     string `json:"website" binding:"omitempty,max=200"`
	IsPrivate   *bool  `json:"is_private"`
}
