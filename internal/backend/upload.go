package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trulyinvoice/internal/logger"
	"trulyinvoice/pkg/models"
)

// RecordSaver persists extracted invoice records.
type RecordSaver interface {
	Save(ctx context.Context, record *models.InvoiceRecord) error
}

// UploadResult is the outcome for one file in a batch.
type UploadResult struct {
	Path   string
	Status string
	Record *models.InvoiceRecord
	Err    error
}

// Uploader drives the upload-then-process flow for one or more files and
// persists the results.
type Uploader struct {
	client *Client
	saver  RecordSaver
	userID string
	log    zerolog.Logger
}

// NewUploader creates an uploader for the given user.
func NewUploader(client *Client, saver RecordSaver, userID string) *Uploader {
	return &Uploader{
		client: client,
		saver:  saver,
		userID: userID,
		log:    logger.WithComponent("uploader").With().Str("user_id", userID).Logger(),
	}
}

// UploadBatch processes files sequentially in the given order and stops at
// the first failure, returning the per-file results accumulated so far plus
// the failing error. Files after the failure are not touched, so the user
// can fix the problem and re-run with the remainder.
func (u *Uploader) UploadBatch(ctx context.Context, paths []string) ([]UploadResult, error) {
	results := make([]UploadResult, 0, len(paths))
	for _, path := range paths {
		result := u.uploadOne(ctx, path)
		results = append(results, result)
		if result.Err != nil {
			return results, fmt.Errorf("upload batch stopped at %s: %w", path, result.Err)
		}
	}
	return results, nil
}

// uploadOne walks a single file through the document states: pending,
// uploading, processing, then processed on success. An upload failure
// yields failed; a processing failure after a successful upload yields
// upload_complete, and the stored document is kept so extraction can be
// retried without re-uploading.
func (u *Uploader) uploadOne(ctx context.Context, path string) UploadResult {
	result := UploadResult{Path: path, Status: models.StatusPending}

	u.log.Info().Str("file", path).Msg("Uploading document")
	result.Status = models.StatusUploading

	doc, err := u.client.Upload(ctx, u.userID, path)
	if err != nil {
		result.Status = models.StatusFailed
		result.Err = err
		return result
	}

	result.Status = models.StatusProcessing
	invoice, err := u.client.Process(ctx, doc.ID)
	if err != nil {
		// The file is stored server-side; record the degraded state
		// instead of discarding the upload.
		result.Status = models.StatusUploadComplete
		result.Err = err
		u.saveDegraded(ctx, path, doc)
		return result
	}

	u.fillRecord(invoice, path, doc)
	if err := u.saver.Save(ctx, invoice); err != nil {
		result.Status = models.StatusFailed
		result.Err = fmt.Errorf("save extracted record: %w", err)
		return result
	}

	result.Status = models.StatusProcessed
	result.Record = invoice
	u.log.Info().
		Str("file", path).
		Str("invoice_number", invoice.InvoiceNumber).
		Str("vendor", invoice.VendorName).
		Msg("Document processed")
	return result
}

// saveDegraded persists a stub record marking the stored-but-unextracted
// document; best effort, the processing error stays the primary failure.
func (u *Uploader) saveDegraded(ctx context.Context, path string, doc *Document) {
	record := &models.InvoiceRecord{}
	u.fillRecord(record, path, doc)
	record.DocumentStatus = models.StatusUploadComplete
	if err := u.saver.Save(ctx, record); err != nil {
		u.log.Warn().Err(err).Str("file", path).Msg("Failed to persist degraded upload record")
	}
}

func (u *Uploader) fillRecord(record *models.InvoiceRecord, path string, doc *Document) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.SourcePath = path
	record.DocumentID = doc.ID
	if record.DocumentStatus == "" {
		record.DocumentStatus = models.StatusProcessed
	}
	record.UserID = u.userID
	now := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
}
