// Package store persists extracted invoice records in a local SQLite
// database and caches anonymous extraction results until they are claimed
// into an account.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"trulyinvoice/internal/logger"
	"trulyinvoice/pkg/models"
)

// ErrNotFound is returned when the requested invoice record does not exist.
var ErrNotFound = errors.New("invoice record not found")

// ListFilter narrows List results. Zero values mean no filtering.
type ListFilter struct {
	UserID        string
	Status        string
	Vendor        string
	PaymentStatus string
	From          *time.Time // invoice date range, inclusive
	To            *time.Time
	Limit         int
}

// Store is the SQLite-backed invoice record repository.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

// Open opens (creating if necessary) the database at path and migrates the
// invoice schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if err := db.AutoMigrate(&models.InvoiceRecord{}); err != nil {
		return nil, fmt.Errorf("migrate invoice schema: %w", err)
	}

	return &Store{db: db, log: logger.WithComponent("store")}, nil
}

// Save creates or updates a record.
func (s *Store) Save(ctx context.Context, record *models.InvoiceRecord) error {
	if err := s.db.WithContext(ctx).Save(record).Error; err != nil {
		return fmt.Errorf("save invoice %s: %w", record.ID, err)
	}
	return nil
}

// Get fetches one record by ID.
func (s *Store) Get(ctx context.Context, id string) (*models.InvoiceRecord, error) {
	var record models.InvoiceRecord
	err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice %s: %w", id, err)
	}
	return &record, nil
}

// List returns records newest first, narrowed by the filter.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]models.InvoiceRecord, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("document_status = ?", filter.Status)
	}
	if filter.Vendor != "" {
		query = query.Where("vendor_name LIKE ?", "%"+filter.Vendor+"%")
	}
	if filter.PaymentStatus != "" {
		query = query.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.From != nil {
		query = query.Where("invoice_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("invoice_date <= ?", *filter.To)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var records []models.InvoiceRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return records, nil
}

// GetMany fetches the records for the given IDs, failing if any is missing.
func (s *Store) GetMany(ctx context.Context, ids []string) ([]models.InvoiceRecord, error) {
	var records []models.InvoiceRecord
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("get invoices: %w", err)
	}
	if len(records) != len(ids) {
		found := make(map[string]bool, len(records))
		for i := range records {
			found[records[i].ID] = true
		}
		for _, id := range ids {
			if !found[id] {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
			}
		}
	}
	// Preserve the caller's ordering.
	byID := make(map[string]models.InvoiceRecord, len(records))
	for i := range records {
		byID[records[i].ID] = records[i]
	}
	ordered := make([]models.InvoiceRecord, 0, len(ids))
	for _, id := range ids {
		ordered = append(ordered, byID[id])
	}
	return ordered, nil
}

// Delete removes a record and, best effort, its source document file. A
// missing or locked file is logged, never fatal.
func (s *Store) Delete(ctx context.Context, id string) error {
	record, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&models.InvoiceRecord{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete invoice %s: %w", id, err)
	}
	if record.SourcePath != "" {
		if err := os.Remove(record.SourcePath); err != nil && !os.IsNotExist(err) {
			s.log.Warn().
				Str("invoice_id", id).
				Str("file", record.SourcePath).
				Err(err).
				Msg("Failed to remove source document")
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
