package params

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// URL: /admin/payments?page=2&limit=30
// → ParsePagination() → Pagination{Limit:30, Page:2, Offset:30}
// → repository runs LIMIT 30 OFFSET 30 and returns the total count
// → ComputeMeta(total) fills TotalPages, HasNext, HasPrev
type Pagination struct {
	Limit      int  `json:"limit"`
	Offset     int  `json:"offset"`
	Page       int  `json:"page"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// ParsePagination parses ?limit=...&page=... and clamps bad values to the
// defaults. Keys are case sensitive.
func ParsePagination(q url.Values) Pagination {
	p := Pagination{
		Limit: DefaultLimit,
		Page:  1,
	}

	if limitStr := strings.TrimSpace(q.Get("limit")); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			switch {
			case limit <= 0:
				p.Limit = DefaultLimit
			case limit > MaxLimit:
				p.Limit = MaxLimit
			default:
				p.Limit = limit
			}
		}
	}

	if pageStr := strings.TrimSpace(q.Get("page")); pageStr != "" {
		if page, err := strconv.Atoi(pageStr); err == nil && page > 0 {
			p.Page = page
		}
	}

	p.Offset = (p.Page - 1) * p.Limit
	return p
}

// ComputeMeta updates pagination after fetching total count.
func (p *Pagination) ComputeMeta(total int) {
	p.Total = total
	if p.Limit > 0 {
		p.TotalPages = int(math.Ceil(float64(total) / float64(p.Limit)))
	}
	p.HasPrev = p.Page > 1
	p.HasNext = (p.Page * p.Limit) < total
}

// ParseSince reads an optional RFC3339 ?since= filter.
func ParseSince(q url.Values) (*time.Time, error) {
	raw := strings.TrimSpace(q.Get("since"))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid since (must be RFC3339): %w", err)
	}
	return &t, nil
}
