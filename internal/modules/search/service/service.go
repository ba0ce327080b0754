package service

import (
	"context"
	"log"

	"chirpnet.io/chirp/internal/model"
	postRepo "chirpnet.io/chirp/internal/modules/post/repository"
	userRepo "chirpnet.io/chirp/internal/modules/user/repository"
	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
)

const postIndex = "posts"

// SearchService indexes post content in meilisearch and serves full-text
// lookups. Without a configured client, post search degrades to a SQL LIKE
// scan; indexing calls become no-ops.
type SearchService interface {
	IndexPost(post *model.Post)
	RemovePost(postID uuid.UUID)
	SearchPosts(ctx context.Context, query string, limit, offset int) ([]model.Post, error)
	SearchUsers(ctx context.Context, query string, limit, offset int) ([]model.User, error)
	SearchHashtags(ctx context.Context, query string, limit int) ([]model.Hashtag, error)
}

type searchService struct {
	client   meilisearch.ServiceManager
	postRepo postRepo.PostRepository
	userRepo userRepo.UserRepository
}

func NewSearchService(client meilisearch.ServiceManager, postRepository postRepo.PostRepository, userRepository userRepo.UserRepository) SearchService {
	s := &searchService{
		client:   client,
		postRepo: postRepository,
		userRepo: userRepository,
	}
	if client != nil {
		s.initIndexes()
	}
	return s
}

func (s *searchService) initIndexes() {
	sortable := []string{"created_at"}
	if _, err := s.client.Index(postIndex).UpdateSortableAttributes(&sortable); err != nil {
		log.Printf("Failed to update posts sortable attributes: %v", err)
	}
}

type meiliPostDoc struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Handle    string `json:"handle"`
	CreatedAt int64  `json:"created_at"`
}

// IndexPost is best-effort: a search outage never fails the write path.
func (s *searchService) IndexPost(post *model.Post) {
	if s.client == nil || post.IsRepost() {
		return
	}
	doc := meiliPostDoc{
		ID:        post.ID.String(),
		Content:   post.Content,
		Handle:    post.User.Handle,
		CreatedAt: post.CreatedAt.Unix(),
	}
	if _, err := s.client.Index(postIndex).AddDocuments([]meiliPostDoc{doc}); err != nil {
		log.Printf("Failed to index post %s: %v", post.ID, err)
	}
}

func (s *searchService) RemovePost(postID uuid.UUID) {
	if s.client == nil {
		return
	}
	if _, err := s.client.Index(postIndex).DeleteDocument(postID.String()); err != nil {
		log.Printf("Failed to remove post %s from index: %v", postID, err)
	}
}

func (s *searchService) SearchPosts(ctx context.Context, query string, limit, offset int) ([]model.Post, error) {
	if s.client == nil {
		return s.postRepo.SearchContent(ctx, query, limit, offset)
	}

	res, err := s.client.Index(postIndex).Search(query, &meilisearch.SearchRequest{
		Limit:  int64(limit),
		Offset: int64(offset),
	})
	if err != nil {
		log.Printf("Meilisearch query failed, falling back to SQL: %v", err)
		return s.postRepo.SearchContent(ctx, query, limit, offset)
	}

	var ids []uuid.UUID
	for _, hit := range res.Hits {
		doc, ok := hit.(map[string]any)
		if !ok {
			continue
		}
		raw, _ := doc["id"].(string)
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	posts, err := s.postRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	// Preserve relevance order from the index.
	byID := make(map[uuid.UUID]model.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}
	ordered := make([]model.Post, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

func (s *searchService) SearchUsers(ctx context.Context, query string, limit, offset int) ([]model.User, error) {
	return s.userRepo.Search(ctx, query, limit, offset)
}

func (s *searchService) SearchHashtags(ctx context.Context, query string, limit int) ([]model.Hashtag, error) {
	return s.postRepo.SearchHashtags(ctx, query, limit)
}
