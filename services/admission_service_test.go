package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"submission-portal-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingArtifacts struct {
	mu      sync.Mutex
	saved   map[string][]byte
	deleted []string
	saveErr error
}

func newRecordingArtifacts() *recordingArtifacts {
	return &recordingArtifacts{saved: make(map[string][]byte)}
}

func (r *recordingArtifacts) Save(_ context.Context, fileName string, rd io.Reader) (*StoredArtifact, error) {
	if r.saveErr != nil {
		return nil, r.saveErr
	}
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	path := "mem/" + fileName
	r.saved[path] = data
	return &StoredArtifact{Path: path, Size: int64(len(data)), Hash: "feed"}, nil
}

func (r *recordingArtifacts) Delete(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.saved, path)
	r.deleted = append(r.deleted, path)
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	seen []models.Submission
	err  error
}

func (n *recordingNotifier) NotifySubmitted(_ context.Context, s models.Submission) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seen = append(n.seen, s)
	return n.err
}

// insertFailingRepo passes lookups through and fails every insert.
type insertFailingRepo struct {
	*MemorySubmissionStore
	err error
}

func (r insertFailingRepo) Create(context.Context, *models.Submission) error { return r.err }

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (RateDecision, error) {
	return RateDecision{}, errors.New("redis: connection refused")
}

func newTestAdmission(t *testing.T, deps AdmissionDeps) (*AdmissionService, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	if deps.Repo == nil {
		deps.Repo = NewMemorySubmissionStore()
	}
	if deps.Limiter == nil {
		deps.Limiter = NewMemoryRateLimiter(5, 15*time.Minute, WithLimiterClock(clock.Now))
	}
	svc := NewAdmissionService(deps)
	svc.now = clock.Now
	return svc, clock
}

func TestAdmissionSubmitThenDuplicate(t *testing.T) {
	store := NewMemorySubmissionStore()
	notifier := &recordingNotifier{}
	svc, clock := newTestAdmission(t, AdmissionDeps{Repo: store, Notifier: notifier})
	ctx := context.Background()

	receipt, err := svc.Submit(ctx, "10.0.0.1", validInput())
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.ID)
	assert.Equal(t, "Rocket Team", receipt.TeamName)
	assert.True(t, receipt.SubmittedAt.Equal(clock.Now()))

	rows, err := store.List(ctx, PageQuery{Limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, receipt.ID, rows[0].ID)
	require.NotNil(t, rows[0].DriveLink)
	assert.Nil(t, rows[0].ZipFileName)

	_, err = svc.Submit(ctx, "10.0.0.2", validInput())
	assert.ErrorIs(t, err, ErrDuplicateTeam)

	svc.Wait()
	require.Len(t, notifier.seen, 1)
	assert.Equal(t, receipt.ID, notifier.seen[0].ID)
}

func TestAdmissionRateLimitedBeforeValidation(t *testing.T) {
	svc, _ := newTestAdmission(t, AdmissionDeps{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Submit(ctx, "10.0.0.1", models.RawSubmissionInput{})
		require.ErrorIs(t, err, ErrValidationFailed)
	}

	_, err := svc.Submit(ctx, "10.0.0.1", validInput())
	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 900, rl.RetryAfterSeconds())
}

func TestAdmissionValidationErrorHasNoSideEffects(t *testing.T) {
	store := NewMemorySubmissionStore()
	svc, _ := newTestAdmission(t, AdmissionDeps{Repo: store})

	in := validInput()
	in.Solution = "tiny"
	_, err := svc.Submit(context.Background(), "k", in)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, FieldSolution, verr.Fields[0].Field)

	total, _ := store.Count(context.Background())
	assert.Zero(t, total)
}

func TestAdmissionStoresUpload(t *testing.T) {
	store := NewMemorySubmissionStore()
	artifacts := newRecordingArtifacts()
	svc, _ := newTestAdmission(t, AdmissionDeps{Repo: store, Artifacts: artifacts})

	in := validInput()
	in.DriveLink = ""
	in.Upload = &models.ArtifactUpload{
		FileName: "rocket.zip",
		Size:     4,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader([]byte("PK\x03\x04"))), nil
		},
	}

	_, err := svc.Submit(context.Background(), "k", in)
	require.NoError(t, err)

	rows, _ := store.List(context.Background(), PageQuery{Limit: 1})
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].DriveLink)
	assert.Equal(t, "rocket.zip", *rows[0].ZipFileName)
	assert.Equal(t, "mem/rocket.zip", *rows[0].ZipFilePath)
	assert.Equal(t, int64(4), *rows[0].ZipFileSize)
	assert.Contains(t, artifacts.saved, "mem/rocket.zip")
}

func TestAdmissionRemovesArtifactWhenInsertFails(t *testing.T) {
	artifacts := newRecordingArtifacts()
	repo := insertFailingRepo{MemorySubmissionStore: NewMemorySubmissionStore(), err: errors.New("disk full")}
	svc, _ := newTestAdmission(t, AdmissionDeps{Repo: repo, Artifacts: artifacts})

	in := validInput()
	in.Upload = zipUpload("rocket.zip", 2)

	_, err := svc.Submit(context.Background(), "k", in)
	assert.ErrorIs(t, err, ErrInfrastructure)
	assert.Equal(t, []string{"mem/rocket.zip"}, artifacts.deleted)
	assert.Empty(t, artifacts.saved)
}

func TestAdmissionInsertRaceReportsDuplicate(t *testing.T) {
	repo := insertFailingRepo{MemorySubmissionStore: NewMemorySubmissionStore(), err: ErrDuplicateTeam}
	svc, _ := newTestAdmission(t, AdmissionDeps{Repo: repo})

	_, err := svc.Submit(context.Background(), "k", validInput())
	assert.ErrorIs(t, err, ErrDuplicateTeam)
	assert.NotErrorIs(t, err, ErrInfrastructure)
}

func TestAdmissionArtifactFailureIsInfrastructure(t *testing.T) {
	artifacts := newRecordingArtifacts()
	artifacts.saveErr = errors.New("bucket missing")
	svc, _ := newTestAdmission(t, AdmissionDeps{Artifacts: artifacts})

	in := validInput()
	in.Upload = zipUpload("rocket.zip", 2)

	_, err := svc.Submit(context.Background(), "k", in)
	var infra *InfrastructureError
	require.ErrorAs(t, err, &infra)
	assert.Equal(t, "store artifact", infra.Op)
}

func TestAdmissionLimiterFailsOpen(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	svc, _ := newTestAdmission(t, AdmissionDeps{Limiter: brokenLimiter{}, Logger: zap.New(core)})

	_, err := svc.Submit(context.Background(), "k", validInput())
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("rate limiter unavailable").Len())
}

func TestAdmissionNotifierFailureDoesNotFailSubmit(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	svc, _ := newTestAdmission(t, AdmissionDeps{Notifier: notifier, Logger: zap.New(core)})

	_, err := svc.Submit(context.Background(), "k", validInput())
	require.NoError(t, err)

	svc.Wait()
	entries := logs.FilterMessage("submission notification failed").All()
	require.Len(t, entries, 1)
	assert.True(t, strings.Contains(entries[0].ContextMap()["error"].(string), "smtp down"))
}

func TestAdmissionConcurrentSameTeamAdmitsOne(t *testing.T) {
	store := NewMemorySubmissionStore()
	svc, _ := newTestAdmission(t, AdmissionDeps{Repo: store, Limiter: NewMemoryRateLimiter(100, time.Minute)})

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Submit(context.Background(), "k", validInput()); err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, admitted)
	total, _ := store.Count(context.Background())
	assert.Equal(t, int64(1), total)
}
