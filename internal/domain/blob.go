package domain

import (
	"context"
	"io"
)

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// ReceiptArchiver exports terminal purchase attempts to cold storage.
type ReceiptArchiver interface {
	ArchiveReceipt(ctx context.Context, attempt PurchaseAttempt) error
}
