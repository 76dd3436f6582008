package object

import (
	"context"
	"io"
)

// Store defines the contract for staging and retrieving uploaded documents.
// A staged file is owned by exactly one analysis record and released through
// Delete when that record is cleaned up or reaches a terminal state.
type Store interface {
	Save(ctx context.Context, fileName string, r io.Reader) (storageKey string, sizeBytes int64, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
}
