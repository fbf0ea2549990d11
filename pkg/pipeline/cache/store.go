package cache

import "context"

// Store loads and saves blobs by step identity.
type Store interface {
	// Load returns the blob stored under id. found is false when nothing is stored; a blob that
	// exists but cannot be decoded is reported as ErrCorrupt.
	Load(ctx context.Context, id string) (blob *Blob, found bool, err error)
	// Save replaces the blob stored under id.
	Save(ctx context.Context, id string, blob *Blob) error
}
