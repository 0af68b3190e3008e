package model

import "math"

// Pagination represents common pagination parameters
type Pagination struct {
	Page     int `json:"page" form:"page" binding:"omitempty,min=1,max=1000000"`
	PageSize int `json:"page_size" form:"page_size" binding:"omitempty,min=1,max=500"`
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// Normalize fills defaults and returns the offset/limit pair. An offset that
// would overflow int saturates at math.MaxInt, which selects an empty page.
func (p *Pagination) Normalize() (offset, limit int) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	if p.Page-1 > math.MaxInt/p.PageSize {
		return math.MaxInt, p.PageSize
	}
	return (p.Page - 1) * p.PageSize, p.PageSize
}
