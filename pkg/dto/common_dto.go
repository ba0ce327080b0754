package dto

import (
	"time"

	"github.com/google/uuid"
)

type AuthorResponse struct {
	ID             uuid.UUID `json:"id"`
	Handle         string    `json:"handle"`
	DisplayName    string    `json:"display_name"`
	IsVerified     bool      `json:"is_verified"`
	IsCorpVerified bool      `json:"is_corp_verified"`
}

// PostResponse is a post enriched with per-viewer interaction state and any
// attached moderation context. Produced by the interaction aggregator.
type PostResponse struct {
	ID        uuid.UUID      `json:"id"`
	Author    AuthorResponse `json:"author"`
	Content   string         `json:"content"`
	ParentID  *uuid.UUID     `json:"parent_id,omitempty"`
	RepostID  *uuid.UUID     `json:"repost_id,omitempty"`
	QuoteID   *uuid.UUID     `json:"quote_id,omitempty"`
	IsEdited  bool           `json:"is_edited"`
	IsPinned  bool           `json:"is_pinned"`
	CreatedAt time.Time      `json:"created_at"`

	LikeCount   int64 `json:"like_count"`
	ReplyCount  int64 `json:"reply_count"`
	RepostCount int64 `json:"repost_count"`

	IsLiked      bool `json:"is_liked"`
	IsBookmarked bool `json:"is_bookmarked"`

	CommunityNotes []CommunityNoteResponse `json:"community_notes,omitempty"`
	StaffNotes     []StaffNoteResponse     `json:"staff_notes,omitempty"`
	QuotedPost     *QuotedPostResponse     `json:"quoted_post,omitempty"`
	Poll           *PollResponse           `json:"poll,omitempty"`
}

// QuotedPostResponse is the inline summary of a quoted post. Nil when the
// quoted post has been deleted.
type QuotedPostResponse struct {
	ID        uuid.UUID      `json:"id"`
	Author    AuthorResponse `json:"author"`
	Content   string         `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
}

type CommunityNoteResponse struct {
	ID              uuid.UUID       `json:"id"`
	PostID          uuid.UUID       `json:"post_id"`
	Content         string          `json:"content"`
	Sources         []string        `json:"sources"`
	Category        string          `json:"category"`
	Status          string          `json:"status"`
	HelpfulCount    int             `json:"helpful_count"`
	NotHelpfulCount int             `json:"not_helpful_count"`
	Author          *AuthorResponse `json:"author,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

type StaffNoteResponse struct {
	ID        uuid.UUID `json:"id"`
	Content   string    `json:"content"`
	NoteType  string    `json:"note_type"`
	CreatedAt time.Time `json:"created_at"`
}

type ReportResponse struct {
	ID             uuid.UUID       `json:"id"`
	ReportedUserID *uuid.UUID      `json:"reported_user_id,omitempty"`
	ReportedPostID *uuid.UUID      `json:"reported_post_id,omitempty"`
	Reason         string          `json:"reason"`
	Details        string          `json:"details,omitempty"`
	Status         string          `json:"status"`
	Reporter       *AuthorResponse `json:"reporter,omitempty"`
	ResolvedBy     *uuid.UUID      `json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time      `json:"resolved_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

type PollResponse struct {
	ID         uuid.UUID `json:"id"`
	Options    []string  `json:"options"`
	ExpiresAt  time.Time `json:"expires_at"`
	TotalVotes int64     `json:"total_votes"`
	VoteCounts []int64   `json:"vote_counts"`
	UserVoted  *int      `json:"user_voted,omitempty"`
}

type PaginatedPostResponse struct {
	Data []PostResponse `json:"data"`
	Meta any            `json:"meta,omitempty"`
}
