package services

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// dryRunDB builds statements without a server and records the last SQL
func dryRunDB(t *testing.T) (*gorm.DB, *string) {
	t.Helper()

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=127.0.0.1 user=erda dbname=erda sslmode=disable",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               gormLogger.Discard,
	})
	require.NoError(t, err)

	var captured string
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:capture", func(tx *gorm.DB) {
		captured = tx.Statement.SQL.String()
	}))
	return db, &captured
}

func TestOcrServiceFetchHistoryQuery(t *testing.T) {
	db, sql := dryRunDB(t)
	svc := NewOcrService(db)

	rows, err := svc.FetchHistory(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Contains(t, *sql, `FROM "ocr_data"`)
	assert.Contains(t, *sql, "ORDER BY created_at DESC")
	assert.NotContains(t, *sql, "LIMIT")
}

func TestOcrServiceFetchLatestQuery(t *testing.T) {
	db, sql := dryRunDB(t)
	svc := NewOcrService(db)

	latest, err := svc.FetchLatest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, latest)
	assert.Contains(t, *sql, "ORDER BY created_at DESC")
	assert.Contains(t, *sql, "LIMIT")
}

func TestOcrServiceWrapsQueryErrors(t *testing.T) {
	db, _ := dryRunDB(t)
	pgErr := &pgconn.PgError{Code: "57014", Message: "canceling statement due to statement timeout"}
	require.NoError(t, db.Callback().Query().Before("gorm:query").Register("test:fail", func(tx *gorm.DB) {
		_ = tx.AddError(pgErr)
	}))
	svc := NewOcrService(db)

	_, err := svc.FetchHistory(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetchFailed)

	var got *pgconn.PgError
	assert.True(t, errors.As(err, &got))
	assert.Equal(t, "57014", got.Code)

	assert.Equal(t, "데이터를 불러오는 중 오류가 발생했습니다.", UserMessage(err))
	assert.Empty(t, UserMessage(nil))
}
