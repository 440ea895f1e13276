/**
 * @description
 * OCR snapshot database model.
 * Maps to the 'ocr_data' table in PostgreSQL (Supabase), written by the OCR pipeline.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/bytedance/sonic (for jsonb encoded item lists)
 *
 * @notes
 * - Rows are read-only from this service's point of view.
 * - The items column may be an int array ("{1,2,3}") or jsonb ("[1,2,3]").
 */

package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// PriceArray holds the price samples read off one auction screenshot
type PriceArray []int64

// Scan implements the sql.Scanner interface
func (a *PriceArray) Scan(src interface{}) error {
	if src == nil {
		*a = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return a.parse(string(v))
	case string:
		return a.parse(v)
	default:
		return errors.New("type assertion failed for PriceArray")
	}
}

func (a *PriceArray) parse(s string) error {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		var items []int64
		if err := sonic.UnmarshalString(s, &items); err != nil {
			return fmt.Errorf("decode jsonb items: %w", err)
		}
		if items == nil {
			items = []int64{}
		}
		*a = items
		return nil
	}
	return a.parsePostgresArray(s)
}

// parsePostgresArray parses PostgreSQL array format: {1,2,3}
func (a *PriceArray) parsePostgresArray(s string) error {
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	if s == "" {
		*a = []int64{}
		return nil
	}

	parts := strings.Split(s, ",")
	items := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "NULL" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			// OCR occasionally stores decimals; prices are whole meso amounts
			f, ferr := strconv.ParseFloat(part, 64)
			if ferr != nil {
				return fmt.Errorf("invalid price %q: %w", part, err)
			}
			n = int64(f)
		}
		items = append(items, n)
	}
	*a = items
	return nil
}

// Value implements the driver.Valuer interface
func (a PriceArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	parts := make([]string, len(a))
	for i, n := range a {
		parts[i] = strconv.FormatInt(n, 10)
	}
	return "{" + strings.Join(parts, ",") + "}", nil
}

// OcrSnapshot is one OCR capture of the auction listing
type OcrSnapshot struct {
	ID        int64      `gorm:"primaryKey;column:id" json:"id"`
	Items     PriceArray `gorm:"column:items;type:int8[]" json:"items"`
	CreatedAt time.Time  `gorm:"column:created_at;index" json:"created_at"`
}

// TableName overrides the table name used by OcrSnapshot to `ocr_data`
func (OcrSnapshot) TableName() string {
	return "ocr_data"
}
