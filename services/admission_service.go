package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"submission-portal-api/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// AdmissionDeps wires the collaborators of the admission pipeline.
type AdmissionDeps struct {
	Limiter   RateLimiter
	Validator *SubmissionValidator
	Repo      SubmissionRepository
	Policy    TeamNamePolicy
	Artifacts ArtifactStore
	Notifier  SubmissionNotifier
	Logger    *zap.Logger
}

// AdmissionService is the single write path into the submission store:
// rate check, validate, duplicate check, store artifact, persist.
type AdmissionService struct {
	limiter   RateLimiter
	validator *SubmissionValidator
	dupes     *DuplicateChecker
	repo      SubmissionRepository
	artifacts ArtifactStore
	notifier  SubmissionNotifier
	log       *zap.Logger

	now           func() time.Time
	newID         func() string
	denyLog       *rate.Sometimes
	notifyTimeout time.Duration
	pending       sync.WaitGroup
}

func NewAdmissionService(deps AdmissionDeps) *AdmissionService {
	validator := deps.Validator
	if validator == nil {
		validator = NewSubmissionValidator(DefaultMaxUploadBytes)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdmissionService{
		limiter:       deps.Limiter,
		validator:     validator,
		dupes:         NewDuplicateChecker(deps.Repo, deps.Policy),
		repo:          deps.Repo,
		artifacts:     deps.Artifacts,
		notifier:      deps.Notifier,
		log:           logger,
		now:           time.Now,
		newID:         uuid.NewString,
		denyLog:       &rate.Sometimes{First: 1, Interval: time.Minute},
		notifyTimeout: 30 * time.Second,
	}
}

// Submit runs the pipeline once. Errors are terminal for the request and
// classify as ErrRateLimited, ErrValidationFailed, ErrDuplicateTeam or
// ErrInfrastructure.
func (s *AdmissionService) Submit(ctx context.Context, clientKey string, in models.RawSubmissionInput) (*models.SubmissionReceipt, error) {
	if err := s.checkRate(ctx, clientKey); err != nil {
		return nil, err
	}

	normalized, fieldErrs := s.validator.Validate(in)
	if len(fieldErrs) > 0 {
		return nil, &ValidationError{Fields: fieldErrs}
	}

	exists, err := s.dupes.Exists(ctx, normalized.TeamName)
	if err != nil {
		return nil, infraError("check duplicate team", err)
	}
	if exists {
		return nil, ErrDuplicateTeam
	}

	record := models.Submission{
		ID:             s.newID(),
		TeamName:       normalized.TeamName,
		TeamKey:        s.dupes.Key(normalized.TeamName),
		GithubLink:     normalized.GithubLink,
		DeploymentLink: normalized.DeploymentLink,
		Solution:       normalized.Solution,
	}

	var stored *StoredArtifact
	if normalized.Upload != nil {
		stored, err = s.storeArtifact(ctx, normalized.Upload)
		if err != nil {
			return nil, infraError("store artifact", err)
		}
		fileName := normalized.Upload.FileName
		record.ZipFileName = &fileName
		record.ZipFilePath = &stored.Path
		record.ZipFileSize = &stored.Size
		record.ZipFileHash = &stored.Hash
	} else {
		driveLink := normalized.DriveLink
		record.DriveLink = &driveLink
	}

	record.SubmittedAt = s.now().UTC().Truncate(time.Millisecond)
	if err := s.repo.Create(ctx, &record); err != nil {
		s.discardArtifact(ctx, stored)
		if errors.Is(err, ErrDuplicateTeam) {
			return nil, ErrDuplicateTeam
		}
		return nil, infraError("insert submission", err)
	}

	s.log.Info("submission admitted",
		zap.String("id", record.ID),
		zap.String("team", record.TeamName),
		zap.Bool("upload", stored != nil),
	)
	s.notify(ctx, record)

	return &models.SubmissionReceipt{
		ID:          record.ID,
		TeamName:    record.TeamName,
		SubmittedAt: record.SubmittedAt,
	}, nil
}

// Wait blocks until in-flight notifications finish.
func (s *AdmissionService) Wait() {
	s.pending.Wait()
}

func (s *AdmissionService) checkRate(ctx context.Context, clientKey string) error {
	if s.limiter == nil {
		return nil
	}

	decision, err := s.limiter.Allow(ctx, clientKey)
	if err != nil {
		// Fail open: a limiter outage must not block submissions.
		s.log.Warn("rate limiter unavailable", zap.String("client", clientKey), zap.Error(err))
		return nil
	}
	if decision.Allowed {
		return nil
	}

	s.denyLog.Do(func() {
		s.log.Warn("submission rate limited",
			zap.String("client", clientKey),
			zap.Duration("retry_after", decision.RetryAfter),
		)
	})
	return &RateLimitError{RetryAfter: decision.RetryAfter}
}

func (s *AdmissionService) storeArtifact(ctx context.Context, upload *models.ArtifactUpload) (*StoredArtifact, error) {
	if s.artifacts == nil {
		return nil, errors.New("artifact store not configured")
	}
	if upload.Open == nil {
		return nil, errors.New("upload has no content")
	}

	rc, err := upload.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return s.artifacts.Save(ctx, upload.FileName, rc)
}

// discardArtifact is best effort; the orphan is logged when it fails.
func (s *AdmissionService) discardArtifact(ctx context.Context, stored *StoredArtifact) {
	if stored == nil || s.artifacts == nil {
		return
	}
	cleanupCtx, cancel := detachedContext(ctx, 10*time.Second)
	defer cancel()
	if err := s.artifacts.Delete(cleanupCtx, stored.Path); err != nil {
		s.log.Error("failed to clean up orphaned artifact", zap.String("path", stored.Path), zap.Error(err))
	}
}

func (s *AdmissionService) notify(ctx context.Context, record models.Submission) {
	if s.notifier == nil {
		return
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		notifyCtx, cancel := detachedContext(ctx, s.notifyTimeout)
		defer cancel()
		if err := s.notifier.NotifySubmitted(notifyCtx, record); err != nil {
			s.log.Warn("submission notification failed", zap.String("id", record.ID), zap.Error(err))
		}
	}()
}
