package pagination

import "github.com/gin-gonic/gin"

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Params struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// FromContext reads page/limit query params, applying the default page size
// and the hard cap for API consumers.
func FromContext(c *gin.Context) Params {
	var p Params
	_ = c.ShouldBindQuery(&p)
	return p.Normalize()
}

func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

type Meta struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalItems  int64 `json:"total_items"`
	Limit       int   `json:"limit"`
}

func NewMeta(p Params, total int64) Meta {
	pages := int(total) / p.Limit
	if int(total)%p.Limit != 0 {
		pages++
	}
	return Meta{
		CurrentPage: p.Page,
		TotalPages:  pages,
		TotalItems:  total,
		Limit:       p.Limit,
	}
}
