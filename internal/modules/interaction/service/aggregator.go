package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"chirpnet.io/chirp/internal/model"
	interactionRepo "chirpnet.io/chirp/internal/modules/interaction/repository"
	noteRepo "chirpnet.io/chirp/internal/modules/note/repository"
	pollRepo "chirpnet.io/chirp/internal/modules/poll/repository"
	postRepo "chirpnet.io/chirp/internal/modules/post/repository"
	"chirpnet.io/chirp/pkg/dto"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	maxNotesPerPost      = 3
	maxStaffNotesPerPost = 3
	countCacheTTL        = 5 * time.Minute
)

// Aggregator turns post rows into viewer-ready responses. One call resolves
// counts, viewer flags, moderation notes, polls and referenced-post summaries
// for a whole page with a fixed number of queries.
type Aggregator interface {
	Enrich(ctx context.Context, viewerID *uuid.UUID, posts []model.Post) ([]dto.PostResponse, error)
	EnrichOne(ctx context.Context, viewerID *uuid.UUID, post *model.Post) (*dto.PostResponse, error)
	// InvalidateCounts drops cached counters after a like, reply, repost or
	// delete touches the post.
	InvalidateCounts(ctx context.Context, postIDs ...uuid.UUID)
}

type aggregator struct {
	repo        interactionRepo.InteractionRepository
	postRepo    postRepo.PostRepository
	noteRepo    noteRepo.NoteRepository
	pollRepo    pollRepo.PollRepository
	redisClient *redis.Client
}

func NewAggregator(
	repo interactionRepo.InteractionRepository,
	postRepository postRepo.PostRepository,
	noteRepository noteRepo.NoteRepository,
	pollRepository pollRepo.PollRepository,
	redisClient *redis.Client,
) Aggregator {
	return &aggregator{
		repo:        repo,
		postRepo:    postRepository,
		noteRepo:    noteRepository,
		pollRepo:    pollRepository,
		redisClient: redisClient,
	}
}

type postCounts struct {
	Likes   int64
	Replies int64
	Reposts int64
}

func countCacheKey(postID uuid.UUID) string {
	return fmt.Sprintf("post_counts:%s", postID)
}

// cachedCounts reads count hashes from redis and reports which posts missed.
// Without a redis client every post is a miss.
func (a *aggregator) cachedCounts(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID]postCounts, []uuid.UUID) {
	if a.redisClient == nil {
		return map[uuid.UUID]postCounts{}, postIDs
	}

	pipe := a.redisClient.Pipeline()
	cmds := make(map[uuid.UUID]*redis.MapStringStringCmd, len(postIDs))
	for _, id := range postIDs {
		cmds[id] = pipe.HGetAll(ctx, countCacheKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return map[uuid.UUID]postCounts{}, postIDs
	}

	hits := make(map[uuid.UUID]postCounts)
	var misses []uuid.UUID
	for _, id := range postIDs {
		fields := cmds[id].Val()
		if len(fields) == 0 {
			misses = append(misses, id)
			continue
		}
		likes, _ := strconv.ParseInt(fields["likes"], 10, 64)
		replies, _ := strconv.ParseInt(fields["replies"], 10, 64)
		reposts, _ := strconv.ParseInt(fields["reposts"], 10, 64)
		hits[id] = postCounts{Likes: likes, Replies: replies, Reposts: reposts}
	}
	return hits, misses
}

func (a *aggregator) backfillCounts(ctx context.Context, counts map[uuid.UUID]postCounts) {
	if a.redisClient == nil || len(counts) == 0 {
		return
	}
	pipe := a.redisClient.Pipeline()
	for id, c := range counts {
		key := countCacheKey(id)
		pipe.HSet(ctx, key, "likes", c.Likes, "replies", c.Replies, "reposts", c.Reposts)
		pipe.Expire(ctx, key, countCacheTTL)
	}
	// Cache writes are best-effort.
	pipe.Exec(ctx)
}

func (a *aggregator) InvalidateCounts(ctx context.Context, postIDs ...uuid.UUID) {
	if a.redisClient == nil || len(postIDs) == 0 {
		return
	}
	keys := make([]string, len(postIDs))
	for i, id := range postIDs {
		keys[i] = countCacheKey(id)
	}
	a.redisClient.Del(ctx, keys...)
}

func (a *aggregator) resolveCounts(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID]postCounts, error) {
	counts, misses := a.cachedCounts(ctx, postIDs)
	if len(misses) == 0 {
		return counts, nil
	}

	likes, err := a.repo.LikeCounts(ctx, misses)
	if err != nil {
		return nil, err
	}
	replies, err := a.repo.ReplyCounts(ctx, misses)
	if err != nil {
		return nil, err
	}
	reposts, err := a.repo.RepostCounts(ctx, misses)
	if err != nil {
		return nil, err
	}

	rebuilt := make(map[uuid.UUID]postCounts, len(misses))
	for _, id := range misses {
		c := postCounts{Likes: likes[id], Replies: replies[id], Reposts: reposts[id]}
		rebuilt[id] = c
		counts[id] = c
	}
	a.backfillCounts(ctx, rebuilt)
	return counts, nil
}

func toAuthor(u *model.User) dto.AuthorResponse {
	return dto.AuthorResponse{
		ID:             u.ID,
		Handle:         u.Handle,
		DisplayName:    u.DisplayName,
		IsVerified:     u.IsVerified,
		IsCorpVerified: u.IsCorpVerified,
	}
}

func toNoteResponse(n *model.CommunityNote) dto.CommunityNoteResponse {
	resp := dto.CommunityNoteResponse{
		ID:              n.ID,
		PostID:          n.PostID,
		Content:         n.Content,
		Sources:         n.SourceList(),
		Category:        n.Category,
		Status:          n.Status,
		HelpfulCount:    n.HelpfulCount,
		NotHelpfulCount: n.NotHelpfulCount,
		CreatedAt:       n.CreatedAt,
	}
	if n.Author != nil {
		author := toAuthor(n.Author)
		resp.Author = &author
	}
	return resp
}

func (a *aggregator) Enrich(ctx context.Context, viewerID *uuid.UUID, posts []model.Post) ([]dto.PostResponse, error) {
	if len(posts) == 0 {
		return []dto.PostResponse{}, nil
	}

	postIDs := make([]uuid.UUID, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID
	}

	counts, err := a.resolveCounts(ctx, postIDs)
	if err != nil {
		return nil, err
	}

	liked := map[uuid.UUID]bool{}
	bookmarked := map[uuid.UUID]bool{}
	if viewerID != nil {
		if liked, err = a.repo.LikedSet(ctx, *viewerID, postIDs); err != nil {
			return nil, err
		}
		if bookmarked, err = a.repo.BookmarkedSet(ctx, *viewerID, postIDs); err != nil {
			return nil, err
		}
	}

	notes, err := a.noteRepo.FindApprovedByPostIDs(ctx, postIDs)
	if err != nil {
		return nil, err
	}
	notesByPost := make(map[uuid.UUID][]dto.CommunityNoteResponse)
	for i := range notes {
		n := &notes[i]
		if len(notesByPost[n.PostID]) < maxNotesPerPost {
			notesByPost[n.PostID] = append(notesByPost[n.PostID], toNoteResponse(n))
		}
	}

	staffNotes, err := a.noteRepo.FindStaffNotesByPostIDs(ctx, postIDs)
	if err != nil {
		return nil, err
	}
	staffByPost := make(map[uuid.UUID][]dto.StaffNoteResponse)
	for _, n := range staffNotes {
		if len(staffByPost[n.PostID]) < maxStaffNotesPerPost {
			staffByPost[n.PostID] = append(staffByPost[n.PostID], dto.StaffNoteResponse{
				ID:        n.ID,
				Content:   n.Content,
				NoteType:  n.NoteType,
				CreatedAt: n.CreatedAt,
			})
		}
	}

	// Quote and repost references share the inline-summary mechanism.
	var refIDs []uuid.UUID
	seen := map[uuid.UUID]bool{}
	for _, p := range posts {
		for _, ref := range []*uuid.UUID{p.QuoteID, p.RepostID} {
			if ref != nil && !seen[*ref] {
				seen[*ref] = true
				refIDs = append(refIDs, *ref)
			}
		}
	}
	refPosts, err := a.postRepo.FindByIDs(ctx, refIDs)
	if err != nil {
		return nil, err
	}
	refByID := make(map[uuid.UUID]dto.QuotedPostResponse, len(refPosts))
	for i := range refPosts {
		rp := &refPosts[i]
		refByID[rp.ID] = dto.QuotedPostResponse{
			ID:        rp.ID,
			Author:    toAuthor(&rp.User),
			Content:   rp.Content,
			CreatedAt: rp.CreatedAt,
		}
	}

	polls, err := a.pollRepo.FindByPostIDs(ctx, postIDs)
	if err != nil {
		return nil, err
	}
	pollByPost := make(map[uuid.UUID]*dto.PollResponse, len(polls))
	if len(polls) > 0 {
		pollIDs := make([]uuid.UUID, len(polls))
		for i, p := range polls {
			pollIDs[i] = p.ID
		}
		viewerVotes := map[uuid.UUID]int{}
		if viewerID != nil {
			votes, err := a.pollRepo.FindVotesByPolls(ctx, pollIDs, *viewerID)
			if err != nil {
				return nil, err
			}
			for _, v := range votes {
				viewerVotes[v.PollID] = v.OptionIndex
			}
		}
		for i := range polls {
			poll := &polls[i]
			tallies, err := a.pollRepo.VoteCounts(ctx, poll.ID)
			if err != nil {
				return nil, err
			}
			options := poll.OptionList()
			voteCounts := make([]int64, len(options))
			var total int64
			for idx, n := range tallies {
				if idx >= 0 && idx < len(voteCounts) {
					voteCounts[idx] = n
				}
				total += n
			}
			resp := &dto.PollResponse{
				ID:         poll.ID,
				Options:    options,
				ExpiresAt:  poll.ExpiresAt,
				TotalVotes: total,
				VoteCounts: voteCounts,
			}
			if idx, ok := viewerVotes[poll.ID]; ok {
				vote := idx
				resp.UserVoted = &vote
			}
			pollByPost[poll.PostID] = resp
		}
	}

	responses := make([]dto.PostResponse, len(posts))
	for i := range posts {
		p := &posts[i]
		c := counts[p.ID]
		resp := dto.PostResponse{
			ID:             p.ID,
			Author:         toAuthor(&p.User),
			Content:        p.Content,
			ParentID:       p.ParentID,
			RepostID:       p.RepostID,
			QuoteID:        p.QuoteID,
			IsEdited:       p.IsEdited,
			IsPinned:       p.IsPinned,
			CreatedAt:      p.CreatedAt,
			LikeCount:      c.Likes,
			ReplyCount:     c.Replies,
			RepostCount:    c.Reposts,
			IsLiked:        liked[p.ID],
			IsBookmarked:   bookmarked[p.ID],
			CommunityNotes: notesByPost[p.ID],
			StaffNotes:     staffByPost[p.ID],
			Poll:           pollByPost[p.ID],
		}
		if p.QuoteID != nil {
			if summary, ok := refByID[*p.QuoteID]; ok {
				resp.QuotedPost = &summary
			}
		} else if p.RepostID != nil {
			if summary, ok := refByID[*p.RepostID]; ok {
				resp.QuotedPost = &summary
			}
		}
		responses[i] = resp
	}
	return responses, nil
}

func (a *aggregator) EnrichOne(ctx context.Context, viewerID *uuid.UUID, post *model.Post) (*dto.PostResponse, error) {
	responses, err := a.Enrich(ctx, viewerID, []model.Post{*post})
	if err != nil {
		return nil, err
	}
	return &responses[0], nil
}
