/**
 * @description
 * Read-only access to the ocr_data table.
 * Every failure is reported as ErrFetchFailed so pages can show one fixed message.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/jackc/pgx/v5/pgconn (Postgres error codes for logs)
 * - backend/internal/models
 *
 * @notes
 * - Queries are ordered newest first, like the OCR pipeline's own consumers expect.
 * - FetchLatest returns (nil, nil) when the table is empty.
 */

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sol-erda/tracker/internal/logger"
	"github.com/sol-erda/tracker/internal/models"
	"gorm.io/gorm"
)

// ErrFetchFailed is the single user-facing failure of this service
var ErrFetchFailed = errors.New("데이터를 불러오는 중 오류가 발생했습니다.")

// SnapshotSource reads OCR snapshots, newest first
type SnapshotSource interface {
	FetchHistory(ctx context.Context) ([]models.OcrSnapshot, error)
	FetchLatest(ctx context.Context) (*models.OcrSnapshot, error)
}

// OcrService reads snapshots from Postgres
type OcrService struct {
	DB *gorm.DB
}

func NewOcrService(db *gorm.DB) *OcrService {
	return &OcrService{DB: db}
}

// FetchHistory returns every snapshot ordered by created_at DESC
func (s *OcrService) FetchHistory(ctx context.Context) ([]models.OcrSnapshot, error) {
	var rows []models.OcrSnapshot
	if err := s.DB.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fetchFailed("history", err)
	}
	return rows, nil
}

// FetchLatest returns the newest snapshot or nil when there is none
func (s *OcrService) FetchLatest(ctx context.Context) (*models.OcrSnapshot, error) {
	var rows []models.OcrSnapshot
	if err := s.DB.WithContext(ctx).Order("created_at DESC").Limit(1).Find(&rows).Error; err != nil {
		return nil, fetchFailed("latest", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func fetchFailed(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		logger.Error("OcrService: %s query failed (code=%s): %s", op, pgErr.Code, pgErr.Message)
	} else {
		logger.Error("OcrService: %s query failed: %v", op, err)
	}
	return fmt.Errorf("%w: ocr_data %s: %w", ErrFetchFailed, op, err)
}

// UserMessage maps an error to the text shown in the page banner
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return ErrFetchFailed.Error()
}
