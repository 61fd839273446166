package galleria

import (
	"context"
	"io"
)

// CredentialRepo is the key-value credential store: one record per user
// keyed by email, plus the aggregate record keyed by AggregateKey.
//
// All methods accept a context for cancellation and timeout control.
type CredentialRepo interface {
	// GetUser retrieves the record for the given email.
	// Returns ErrNotFound if no record exists.
	GetUser(ctx context.Context, email string) (UserRecord, error)

	// CreateUser writes a new record. Returns ErrConflict if a record
	// already exists for the email.
	CreateUser(ctx context.Context, rec UserRecord) error

	// AppendImages appends entries to the record's image sequence,
	// creating the record (with an empty password hash) if it does not
	// exist. This mirrors the store-side list_append(if_not_exists(...))
	// semantics and is what allows the aggregate record to come into
	// being on first upload.
	AppendImages(ctx context.Context, email string, entries []ImageEntry) error

	// UpdateImage replaces the entry whose ID matches entry.ID.
	// Returns ErrNotFound if the record or the entry does not exist.
	UpdateImage(ctx context.Context, email string, entry ImageEntry) error
}

// ObjectStore is the managed blob store holding the image objects.
// Implementations mint time-limited signed URLs for retrieval and upload.
type ObjectStore interface {
	// Exists reports whether an object is present at key.
	Exists(ctx context.Context, key string) (bool, error)

	// Put writes an object.
	Put(ctx context.Context, key, contentType string, body io.Reader) error

	// Head returns the stored object's metadata.
	// Returns ErrNotFound if no object exists at key.
	Head(ctx context.Context, key string) (ObjectInfo, error)

	// PresignGet mints a time-limited signed retrieval URL for key.
	PresignGet(ctx context.Context, key string) (string, error)

	// PresignPut mints a time-limited signed upload URL for key.
	PresignPut(ctx context.Context, key, contentType string) (string, error)
}
