// Package orm holds the query helpers shared by the repositories.
package orm

import (
	"errors"
	"math"

	"gorm.io/gorm"
)

const (
	DefaultPerPage = 15
	MaxPerPage     = 100
)

// PageRequest is a sanitised page/per_page pair.
type PageRequest struct {
	Page    int
	PerPage int
}

// NewPageRequest clamps page to ≥ 1 and perPage to [1, MaxPerPage].
func NewPageRequest(page, perPage int) PageRequest {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return PageRequest{Page: page, PerPage: perPage}
}

func (p PageRequest) Offset() int { return (p.Page - 1) * p.PerPage }

// Pagination is the metadata returned with every list.
type Pagination struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PerPage  int   `json:"per_page"`
	LastPage int   `json:"last_page"`
}

// Paginate counts q, then loads one page of it into dest. q carries the
// Model, filters and ordering; scopes (preloads) apply to the page load only.
func Paginate(q *gorm.DB, req PageRequest, dest interface{}, scopes ...func(*gorm.DB) *gorm.DB) (Pagination, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return Pagination{}, err
	}

	p := Pagination{Total: total, Page: req.Page, PerPage: req.PerPage}
	p.LastPage = int(math.Ceil(float64(total) / float64(req.PerPage)))
	if p.LastPage < 1 {
		p.LastPage = 1
	}

	page := q.Session(&gorm.Session{}).Scopes(scopes...)
	if err := page.Offset(req.Offset()).Limit(req.PerPage).Find(dest).Error; err != nil {
		return Pagination{}, err
	}
	return p, nil
}

// IsNotFound reports whether err is gorm's record-not-found.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
