package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"trulyinvoice/pkg/models"
)

// anonCacheFile is the claim cache file name inside the cache directory.
const anonCacheFile = "anonymous_invoices.json"

// AnonCache holds anonymous extraction results on disk until the user signs
// in and claims them. The backend does not persist anonymous results, so
// this cache is the only copy.
type AnonCache struct {
	path string
}

// NewAnonCache creates a claim cache rooted at dir.
func NewAnonCache(dir string) *AnonCache {
	return &AnonCache{path: filepath.Join(dir, anonCacheFile)}
}

// Put appends a record to the cache, assigning an ID and timestamps if the
// backend left them empty.
func (c *AnonCache) Put(record *models.InvoiceRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	records, err := c.load()
	if err != nil {
		return err
	}
	records = append(records, *record)
	return c.save(records)
}

// PendingRecords returns all unclaimed records.
func (c *AnonCache) PendingRecords() ([]models.InvoiceRecord, error) {
	return c.load()
}

// Clear removes the cache after a successful claim.
func (c *AnonCache) Clear() error {
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear claim cache: %w", err)
	}
	return nil
}

// Claim moves every cached record into the store under the given user and
// clears the cache. Returns the number of records claimed.
func (c *AnonCache) Claim(saver func(record *models.InvoiceRecord) error, userID string) (int, error) {
	records, err := c.load()
	if err != nil {
		return 0, err
	}
	for i := range records {
		record := &records[i]
		record.UserID = userID
		record.UpdatedAt = time.Now()
		if err := saver(record); err != nil {
			// Records up to i are saved; keep the rest cached by
			// rewriting the remainder.
			if saveErr := c.save(records[i:]); saveErr != nil {
				return i, fmt.Errorf("claim failed at record %d and cache rewrite failed: %w", i, saveErr)
			}
			return i, fmt.Errorf("claim record %s: %w", record.ID, err)
		}
	}
	return len(records), c.Clear()
}

func (c *AnonCache) load() ([]models.InvoiceRecord, error) {
	content, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read claim cache: %w", err)
	}
	var records []models.InvoiceRecord
	if err := json.Unmarshal(content, &records); err != nil {
		return nil, fmt.Errorf("decode claim cache: %w", err)
	}
	return records, nil
}

func (c *AnonCache) save(records []models.InvoiceRecord) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	content, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode claim cache: %w", err)
	}
	if err := os.WriteFile(c.path, content, 0o644); err != nil {
		return fmt.Errorf("write claim cache: %w", err)
	}
	return nil
}
