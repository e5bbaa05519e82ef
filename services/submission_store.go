package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"submission-portal-api/config"
	"submission-portal-api/models"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// SortMode orders a listing.
type SortMode string

const (
	SortNewest SortMode = "newest"
	SortOldest SortMode = "oldest"
	SortName   SortMode = "name"
)

// ParseSortMode maps unknown values to SortNewest.
func ParseSortMode(value string) SortMode {
	switch SortMode(strings.ToLower(strings.TrimSpace(value))) {
	case SortOldest:
		return SortOldest
	case SortName:
		return SortName
	}
	return SortNewest
}

// PageQuery is an offset window over the sorted submissions.
type PageQuery struct {
	Offset int
	Limit  int
	Sort   SortMode
}

// SubmissionRepository is the persistent submission collection. Create must
// return ErrDuplicateTeam when the team key already exists.
type SubmissionRepository interface {
	ExistsByTeamKey(ctx context.Context, teamKey string) (bool, error)
	Create(ctx context.Context, submission *models.Submission) error
	List(ctx context.Context, q PageQuery) ([]models.Submission, error)
	Count(ctx context.Context) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// SubmissionStore is the gorm backed SubmissionRepository.
type SubmissionStore struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewSubmissionStore instantiates the store. Every call runs under timeout.
func NewSubmissionStore(db *gorm.DB, timeout time.Duration) *SubmissionStore {
	if db == nil {
		db = config.DB
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SubmissionStore{db: db, timeout: timeout}
}

func (s *SubmissionStore) session(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return s.db.WithContext(ctx), cancel
}

// AutoMigrate creates or updates the submissions table and its indexes.
func (s *SubmissionStore) AutoMigrate(ctx context.Context) error {
	db, cancel := s.session(ctx)
	defer cancel()
	if err := db.AutoMigrate(&models.Submission{}); err != nil {
		return fmt.Errorf("failed to migrate submissions: %w", err)
	}
	return nil
}

func (s *SubmissionStore) ExistsByTeamKey(ctx context.Context, teamKey string) (bool, error) {
	db, cancel := s.session(ctx)
	defer cancel()

	var count int64
	if err := db.Model(&models.Submission{}).Where("team_key = ?", teamKey).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to look up team: %w", err)
	}
	return count > 0, nil
}

func (s *SubmissionStore) Create(ctx context.Context, submission *models.Submission) error {
	db, cancel := s.session(ctx)
	defer cancel()

	if err := db.Create(submission).Error; err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateTeam
		}
		return fmt.Errorf("failed to insert submission: %w", err)
	}
	return nil
}

func (s *SubmissionStore) List(ctx context.Context, q PageQuery) ([]models.Submission, error) {
	db, cancel := s.session(ctx)
	defer cancel()

	var rows []models.Submission
	if err := db.Order(orderForSort(q.Sort)).Offset(q.Offset).Limit(q.Limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch submissions: %w", err)
	}
	return rows, nil
}

func (s *SubmissionStore) Count(ctx context.Context) (int64, error) {
	db, cancel := s.session(ctx)
	defer cancel()

	var total int64
	if err := db.Model(&models.Submission{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return total, nil
}

// DeleteAll removes every submission. Maintenance only; never called by the
// admission pipeline.
func (s *SubmissionStore) DeleteAll(ctx context.Context) (int64, error) {
	db, cancel := s.session(ctx)
	defer cancel()

	res := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Submission{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to clear submissions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *SubmissionStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

func orderForSort(sort SortMode) string {
	switch sort {
	case SortOldest:
		return "submitted_at ASC, id ASC"
	case SortName:
		return "team_name ASC, id ASC"
	default:
		return "submitted_at DESC, id DESC"
	}
}

func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysqldriver.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}
