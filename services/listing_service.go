package services

import (
	"context"
	"math"

	"submission-portal-api/models"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100

	// MaxPage keeps (page-1)*limit inside a 32-bit int.
	MaxPage = math.MaxInt32 / MaxPageLimit
)

// ListQuery is the raw listing request. Zero values take the defaults.
type ListQuery struct {
	Page  int
	Limit int
	Sort  string
}

type Pagination struct {
	Current    int   `json:"current"`
	Total      int   `json:"total"`
	Count      int   `json:"count"`
	TotalItems int64 `json:"totalItems"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
	Limit      int   `json:"limit"`
}

type ListResult struct {
	Items      []models.Submission
	Pagination Pagination
	Sort       SortMode
}

// ListingService serves read-only pages over the submission store.
type ListingService struct {
	repo SubmissionRepository
}

func NewListingService(repo SubmissionRepository) *ListingService {
	return &ListingService{repo: repo}
}

func (s *ListingService) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	page, limit := normalizePage(q.Page, q.Limit)
	sort := ParseSortMode(q.Sort)

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, infraError("count submissions", err)
	}

	items, err := s.repo.List(ctx, PageQuery{
		Offset: (page - 1) * limit,
		Limit:  limit,
		Sort:   sort,
	})
	if err != nil {
		return nil, infraError("list submissions", err)
	}
	if items == nil {
		items = []models.Submission{}
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &ListResult{
		Items: items,
		Pagination: Pagination{
			Current:    page,
			Total:      totalPages,
			Count:      len(items),
			TotalItems: total,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
			Limit:      limit,
		},
		Sort: sort,
	}, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}
