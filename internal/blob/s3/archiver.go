package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/brickvest-labs/brickvest/internal/domain"
)

// ReceiptArchiver implements domain.ReceiptArchiver by serializing terminal
// purchase attempts to JSON and uploading them under a date-partitioned
// prefix. Receipts are write-once: re-archiving the same attempt overwrites
// the object with identical content.
type ReceiptArchiver struct {
	writer domain.BlobWriter
}

// NewReceiptArchiver creates a ReceiptArchiver using the given blob writer.
func NewReceiptArchiver(writer domain.BlobWriter) *ReceiptArchiver {
	return &ReceiptArchiver{writer: writer}
}

// ArchiveReceipt uploads one terminal attempt as a JSON receipt at
// receipts/{yyyy}/{mm}/{dd}/{attempt-id}.json.
func (a *ReceiptArchiver) ArchiveReceipt(ctx context.Context, attempt domain.PurchaseAttempt) error {
	if attempt.InFlight() {
		return fmt.Errorf("s3blob: attempt %s is not terminal", attempt.ID)
	}

	data, err := json.MarshalIndent(attempt, "", "  ")
	if err != nil {
		return fmt.Errorf("s3blob: marshal receipt %s: %w", attempt.ID, err)
	}

	ts := attempt.CreatedAt
	if attempt.CompletedAt != nil {
		ts = *attempt.CompletedAt
	}
	path := fmt.Sprintf("receipts/%04d/%02d/%02d/%s.json",
		ts.Year(), ts.Month(), ts.Day(), attempt.ID)

	if err := a.writer.Put(ctx, path, bytes.NewReader(data), "application/json"); err != nil {
		return fmt.Errorf("s3blob: upload receipt %s: %w", attempt.ID, err)
	}
	return nil
}

var _ domain.ReceiptArchiver = (*ReceiptArchiver)(nil)
