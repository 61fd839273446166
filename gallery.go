package galleria

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"

	"github.com/google/uuid"
)

// GalleryConfig holds behavior options for GalleryService.
type GalleryConfig struct {
	// SkipDuplicates controls the upload policy for keys that already
	// exist in the object store: when set, such files are skipped
	// silently; when unset, every file in the batch is written
	// unconditionally and appended.
	SkipDuplicates bool
}

// GalleryService orchestrates image listing and upload over the credential
// store's per-user image sequences and the object store.
type GalleryService struct {
	repo           CredentialRepo
	store          ObjectStore
	skipDuplicates bool
}

func NewGalleryService(repo CredentialRepo, store ObjectStore, cfg GalleryConfig) *GalleryService {
	return &GalleryService{
		repo:           repo,
		store:          store,
		skipDuplicates: cfg.SkipDuplicates,
	}
}

// ListImages returns one page of image paths for the record selected by
// q.Filter (the aggregate record by default).
//
// Limit 0 means no pagination: the full set is returned with Total 1,
// regardless of the requested page. With Limit > 0, Total is ceil(n/limit)
// and a page outside [1, Total] is ErrInvalidInput; an absent page defaults
// to 1 at the transport layer.
//
// Error kinds returned:
//   - ErrNotFound: no record for the filter key, or the record has no images
//   - ErrInvalidInput: negative limit, or page out of range
func (s *GalleryService) ListImages(ctx context.Context, q ListQuery) (GalleryPage, error) {
	if q.Limit < 0 {
		return GalleryPage{}, fmt.Errorf("list images: negative limit: %w", ErrInvalidInput)
	}

	filter := q.Filter
	if filter == "" {
		filter = AggregateKey
	}

	rec, err := s.repo.GetUser(ctx, filter)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return GalleryPage{}, fmt.Errorf("list images: %s: %w", filter, ErrNotFound)
		}
		return GalleryPage{}, fmt.Errorf("list images: %w", err)
	}

	n := len(rec.Images)
	if n == 0 {
		return GalleryPage{}, fmt.Errorf("list images: %s has no images: %w", filter, ErrNotFound)
	}

	if q.Limit == 0 {
		objects := make([]string, n)
		for i, img := range rec.Images {
			objects[i] = img.Path
		}
		return GalleryPage{Objects: objects, Page: 1, Total: 1}, nil
	}

	total := (n + q.Limit - 1) / q.Limit
	if q.Page < 1 || q.Page > total {
		return GalleryPage{}, fmt.Errorf("list images: page %d of %d: %w", q.Page, total, ErrInvalidInput)
	}

	lo := (q.Page - 1) * q.Limit
	hi := min(q.Page*q.Limit, n)
	objects := make([]string, 0, hi-lo)
	for _, img := range rec.Images[lo:hi] {
		objects = append(objects, img.Path)
	}

	return GalleryPage{Objects: objects, Page: q.Page, Total: total}, nil
}

// Upload stores each file of a multipart batch under owner/filename,
// mints a signed retrieval URL, and appends the resulting CLOSED entries
// to both the owner record and the aggregate record.
//
// With SkipDuplicates set, a file whose key already exists in the object
// store is a no-op; a batch in which every file was skipped is
// ErrInvalidInput, as is an empty batch.
//
// The two appends are independent operations: a failure between them
// leaves the owner and aggregate sequences inconsistent. There is no
// reconciliation; see the repository design notes.
func (s *GalleryService) Upload(ctx context.Context, owner string, files []UploadFile) (UploadResult, error) {
	if owner == "" {
		return UploadResult{}, fmt.Errorf("upload: missing owner: %w", ErrInvalidInput)
	}
	if len(files) == 0 {
		return UploadResult{}, fmt.Errorf("upload: no images in payload: %w", ErrInvalidInput)
	}

	var entries []ImageEntry
	var uploaded []string

	for _, f := range files {
		if f.Name == "" {
			return UploadResult{}, fmt.Errorf("upload: file without a name: %w", ErrInvalidInput)
		}
		key := ObjectKey(owner, f.Name)

		if s.skipDuplicates {
			exists, err := s.store.Exists(ctx, key)
			if err != nil {
				return UploadResult{}, fmt.Errorf("upload %s: %w", key, err)
			}
			if exists {
				continue
			}
		}

		if err := s.store.Put(ctx, key, f.ContentType, bytes.NewReader(f.Content)); err != nil {
			return UploadResult{}, fmt.Errorf("upload %s: %w", key, err)
		}

		signed, err := s.store.PresignGet(ctx, key)
		if err != nil {
			return UploadResult{}, fmt.Errorf("upload %s: presign: %w", key, err)
		}

		meta, err := EncodeMetadata(ObjectInfo{
			ContentType:   f.ContentType,
			ContentLength: int64(len(f.Content)),
		})
		if err != nil {
			return UploadResult{}, fmt.Errorf("upload %s: %w", key, err)
		}

		entries = append(entries, ImageEntry{
			ID:       uuid.New(),
			Path:     CanonicalPath(signed),
			Metadata: meta,
			Status:   ImageClosed,
		})
		uploaded = append(uploaded, f.Name)
	}

	if len(entries) == 0 {
		return UploadResult{}, fmt.Errorf("upload: nothing new to upload: %w", ErrInvalidInput)
	}

	if err := s.appendBoth(ctx, owner, entries); err != nil {
		return UploadResult{}, fmt.Errorf("upload: %w", err)
	}

	return UploadResult{Uploaded: uploaded}, nil
}

// CreateUploadURL reserves an upload slot: it mints a signed PUT URL for
// owner/filename and appends an OPEN entry with the canonical path to both
// the owner record and the aggregate record. The client uploads directly to
// the store and then calls CompleteUpload with the ticket ID.
func (s *GalleryService) CreateUploadURL(ctx context.Context, owner, filename, contentType string) (UploadTicket, error) {
	if owner == "" || filename == "" {
		return UploadTicket{}, fmt.Errorf("create upload url: owner and filename are required: %w", ErrInvalidInput)
	}

	key := ObjectKey(owner, filename)
	signed, err := s.store.PresignPut(ctx, key, contentType)
	if err != nil {
		return UploadTicket{}, fmt.Errorf("create upload url %s: %w", key, err)
	}

	entry := ImageEntry{
		ID:     uuid.New(),
		Path:   CanonicalPath(signed),
		Status: ImageOpen,
	}
	if err := s.appendBoth(ctx, owner, []ImageEntry{entry}); err != nil {
		return UploadTicket{}, fmt.Errorf("create upload url: %w", err)
	}

	return UploadTicket{ID: entry.ID, UploadURL: signed, Path: entry.Path}, nil
}

// CompleteUpload closes an OPEN entry after the client has PUT the object:
// it reads the stored object's metadata and flips the entry to CLOSED in
// both the owner record and the aggregate record.
//
// Error kinds returned:
//   - ErrNotFound: no OPEN entry with the given ID, or no object at the key
func (s *GalleryService) CompleteUpload(ctx context.Context, owner string, id uuid.UUID) error {
	if owner == "" {
		return fmt.Errorf("complete upload: missing owner: %w", ErrInvalidInput)
	}

	rec, err := s.repo.GetUser(ctx, owner)
	if err != nil {
		return fmt.Errorf("complete upload: %w", err)
	}

	var entry ImageEntry
	found := false
	for _, img := range rec.Images {
		if img.ID == id && img.Status == ImageOpen {
			entry = img
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("complete upload: image data not found: %w", ErrNotFound)
	}

	key, err := keyFromPath(owner, entry.Path)
	if err != nil {
		return fmt.Errorf("complete upload: %w", err)
	}

	info, err := s.store.Head(ctx, key)
	if err != nil {
		return fmt.Errorf("complete upload %s: %w", key, err)
	}

	meta, err := EncodeMetadata(info)
	if err != nil {
		return fmt.Errorf("complete upload: %w", err)
	}
	entry.Metadata = meta
	entry.Status = ImageClosed

	if err := s.repo.UpdateImage(ctx, owner, entry); err != nil {
		return fmt.Errorf("complete upload: %w", err)
	}
	// The aggregate copy shares the entry ID. A missing aggregate record
	// only means nothing was ever fed into it under this ID.
	if err := s.repo.UpdateImage(ctx, AggregateKey, entry); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("complete upload: aggregate: %w", err)
	}

	return nil
}

// appendBoth appends entries to the owner record and then to the aggregate
// record. The writes are sequential and non-transactional.
func (s *GalleryService) appendBoth(ctx context.Context, owner string, entries []ImageEntry) error {
	if err := s.repo.AppendImages(ctx, owner, entries); err != nil {
		return err
	}
	if err := s.repo.AppendImages(ctx, AggregateKey, entries); err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}
	return nil
}

// keyFromPath recovers the object key from a canonical path. The filename
// is the last URL path segment, possibly percent-encoded.
func keyFromPath(owner, canonical string) (string, error) {
	name := path.Base(canonical)
	decoded, err := url.PathUnescape(name)
	if err != nil {
		return "", fmt.Errorf("key from path %q: %w", canonical, ErrInvalidInput)
	}
	return ObjectKey(owner, decoded), nil
}
