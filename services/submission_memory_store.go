package services

import (
	"context"
	"sort"
	"sync"

	"submission-portal-api/models"
)

// MemorySubmissionStore keeps submissions in process for local development
// and tests. Contents are lost on restart.
type MemorySubmissionStore struct {
	mu    sync.RWMutex
	rows  []models.Submission
	byKey map[string]int
}

func NewMemorySubmissionStore() *MemorySubmissionStore {
	return &MemorySubmissionStore{byKey: make(map[string]int)}
}

func (s *MemorySubmissionStore) ExistsByTeamKey(_ context.Context, teamKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byKey[teamKey]
	return ok, nil
}

func (s *MemorySubmissionStore) Create(_ context.Context, submission *models.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byKey[submission.TeamKey]; ok {
		return ErrDuplicateTeam
	}
	s.byKey[submission.TeamKey] = len(s.rows)
	s.rows = append(s.rows, *submission)
	return nil
}

func (s *MemorySubmissionStore) List(_ context.Context, q PageQuery) ([]models.Submission, error) {
	s.mu.RLock()
	sorted := make([]models.Submission, len(s.rows))
	copy(sorted, s.rows)
	s.mu.RUnlock()

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		switch q.Sort {
		case SortOldest:
			if !a.SubmittedAt.Equal(b.SubmittedAt) {
				return a.SubmittedAt.Before(b.SubmittedAt)
			}
			return a.ID < b.ID
		case SortName:
			if a.TeamName != b.TeamName {
				return a.TeamName < b.TeamName
			}
			return a.ID < b.ID
		default:
			if !a.SubmittedAt.Equal(b.SubmittedAt) {
				return a.SubmittedAt.After(b.SubmittedAt)
			}
			return a.ID > b.ID
		}
	})

	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Offset >= len(sorted) {
		return []models.Submission{}, nil
	}
	end := len(sorted)
	if q.Limit > 0 && q.Offset+q.Limit < end {
		end = q.Offset + q.Limit
	}
	return sorted[q.Offset:end], nil
}

func (s *MemorySubmissionStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.rows)), nil
}

func (s *MemorySubmissionStore) DeleteAll(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.rows))
	s.rows = nil
	s.byKey = make(map[string]int)
	return n, nil
}

func (s *MemorySubmissionStore) Ping(context.Context) error { return nil }
