package services

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"submission-portal-api/models"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var submissionColumns = []string{
	"id", "team_name", "team_key", "github_link", "deployment_link", "drive_link",
	"zip_file_name", "zip_file_path", "zip_file_size", "zip_file_hash", "solution", "submitted_at",
}

func TestSubmissionStoreExistsByTeamKey(t *testing.T) {
	key := PolicyExact.Key("Rocket")
	db, state := newScriptedGormDB(t, []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT count\\(\\*\\) FROM `submissions` WHERE team_key = \\?"),
			args:    []driver.Value{key},
			columns: []string{"count(*)"},
			rows:    [][]driver.Value{{int64(1)}},
		},
	})

	store := NewSubmissionStore(db, time.Second)
	exists, err := store.ExistsByTeamKey(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, exists)
	require.NoError(t, state.verifyComplete())
}

func TestSubmissionStoreCreateMapsDuplicateKey(t *testing.T) {
	db, state := newScriptedGormDB(t, []*queryStep{
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("INSERT INTO `submissions`"),
			err:     &mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry for key 'uq_submissions_team_key'"},
		},
	})

	store := NewSubmissionStore(db, time.Second)
	err := store.Create(context.Background(), &models.Submission{
		ID:          "b6f0c3c2-6c3c-4d8e-9a61-2f0d1d0e7a11",
		TeamName:    "Rocket",
		TeamKey:     PolicyExact.Key("Rocket"),
		SubmittedAt: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, ErrDuplicateTeam)
	require.NoError(t, state.verifyComplete())
}

func TestSubmissionStoreCreateWrapsOtherErrors(t *testing.T) {
	boom := errors.New("connection reset")
	db, _ := newScriptedGormDB(t, []*queryStep{
		{kind: kindExec, pattern: regexp.MustCompile("INSERT INTO `submissions`"), err: boom},
	})

	err := NewSubmissionStore(db, time.Second).Create(context.Background(), &models.Submission{ID: "x", TeamKey: "k"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateTeam)
	assert.ErrorIs(t, err, boom)
}

func TestSubmissionStoreListOrdersAndScans(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	db, state := newScriptedGormDB(t, []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT \\* FROM `submissions` ORDER BY team_name ASC, id ASC LIMIT"),
			columns: submissionColumns,
			rows: [][]driver.Value{
				{"id-1", "Alpha", "k1", "https://github.com/a/a", "https://a.dev", "https://drive.google.com/x", nil, nil, nil, nil, "solution text", at},
				{"id-2", "Beta", "k2", "https://github.com/b/b", "https://b.dev", nil, "beta.zip", "/uploads/beta.zip", int64(42), "abcd", "solution text", at.Add(time.Minute)},
			},
		},
	})

	rows, err := NewSubmissionStore(db, time.Second).List(context.Background(), PageQuery{Offset: 10, Limit: 10, Sort: SortName})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Alpha", rows[0].TeamName)
	assert.Equal(t, "https://drive.google.com/x", rows[0].ArtifactLabel())
	assert.False(t, rows[0].HasUpload())
	assert.True(t, rows[1].HasUpload())
	assert.Equal(t, int64(42), *rows[1].ZipFileSize)
	assert.True(t, rows[1].SubmittedAt.Equal(at.Add(time.Minute)))
	require.NoError(t, state.verifyComplete())
}

func TestSubmissionStoreCount(t *testing.T) {
	db, state := newScriptedGormDB(t, []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT count\\(\\*\\) FROM `submissions`"),
			args:    []driver.Value{},
			columns: []string{"count(*)"},
			rows:    [][]driver.Value{{int64(15)}},
		},
	})

	total, err := NewSubmissionStore(db, time.Second).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(15), total)
	require.NoError(t, state.verifyComplete())
}

func TestSubmissionStoreDeleteAll(t *testing.T) {
	db, state := newScriptedGormDB(t, []*queryStep{
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("DELETE FROM `submissions`"),
			result:  scriptedResult{rowsAffected: 3},
		},
	})

	n, err := NewSubmissionStore(db, time.Second).DeleteAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, state.verifyComplete())
}

func TestSubmissionStoreHonoursQueryTimeout(t *testing.T) {
	db, _ := newScriptedGormDB(t, []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT count"),
			delay:   time.Second,
			columns: []string{"count(*)"},
			rows:    [][]driver.Value{{int64(0)}},
		},
	})

	_, err := NewSubmissionStore(db, 20*time.Millisecond).Count(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIsDuplicateKeyError(t *testing.T) {
	assert.True(t, isDuplicateKeyError(gorm.ErrDuplicatedKey))
	assert.True(t, isDuplicateKeyError(&mysqldriver.MySQLError{Number: 1062}))
	assert.True(t, isDuplicateKeyError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isDuplicateKeyError(&mysqldriver.MySQLError{Number: 1205}))
	assert.False(t, isDuplicateKeyError(errors.New("other")))
}
