package dto

import (
	pkgdto "chirpnet.io/chirp/pkg/dto"
)

type ThreadResponse struct {
	Post    pkgdto.PostResponse   `json:"post"`
	Replies []pkgdto.PostResponse `json:"replies"`
}

type TrendingTagResponse struct {
	Tag   string `json:"tag"`
	Count int64  `json:"count"`
}

type ExploreResponse struct {
	TrendingHashtags []TrendingTagResponse   `json:"trending_hashtags"`
	TrendingPosts    []pkgdto.PostResponse   `json:"trending_posts"`
	Suggestions      []pkgdto.AuthorResponse `json:"suggestions,omitempty"`
}
