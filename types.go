package galleria

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// AggregateKey is the credential-store key of the synthetic record that
// accumulates every uploaded image across all users (the global feed). It
// has the same shape as a per-user record and is updated with the same
// append operation.
const AggregateKey = "all"

// ImageStatus tracks the lifecycle of an image entry. An entry is OPEN while
// an upload slot has been reserved via a presigned PUT URL and CLOSED once
// the object is known to exist in the store.
type ImageStatus string

const (
	ImageOpen   ImageStatus = "OPEN"
	ImageClosed ImageStatus = "CLOSED"
)

// ImageEntry is one image in a user's gallery. The ID is the stable
// identity used for updates; entries appended to both the owner record and
// the aggregate record share the same ID.
type ImageEntry struct {
	ID       uuid.UUID   `json:"id"`
	Path     string      `json:"path"`
	Metadata string      `json:"metadata,omitempty"`
	Status   ImageStatus `json:"status"`
}

// UserRecord is a credential-store record: one per signed-up user, keyed by
// email, plus the aggregate record keyed by AggregateKey.
type UserRecord struct {
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"`
	Images       []ImageEntry `json:"images"`
}

// ListQuery selects a page of a gallery. Page defaults to 1, Limit 0 means
// "no pagination, return everything", Filter defaults to AggregateKey.
type ListQuery struct {
	Page   int
	Limit  int
	Filter string
}

// GalleryPage is one page of image paths.
type GalleryPage struct {
	Objects []string `json:"objects"`
	Page    int      `json:"page"`
	Total   int      `json:"total"`
}

// UploadFile is a single file extracted from a multipart request.
type UploadFile struct {
	Name        string
	ContentType string
	Content     []byte
}

// UploadResult reports which files of a batch were newly stored.
type UploadResult struct {
	Uploaded []string `json:"uploaded"`
}

// Summary renders the human-readable upload acknowledgment.
func (r UploadResult) Summary() string {
	msg := "uploaded:"
	for _, name := range r.Uploaded {
		msg += " " + name
	}
	return msg
}

// UploadTicket is the response to a presigned-upload request: the URL the
// client PUTs the object to, and the reserved entry it must later complete.
type UploadTicket struct {
	ID        uuid.UUID `json:"id"`
	UploadURL string    `json:"upload_url"`
	Path      string    `json:"path"`
}

// ObjectInfo is the subset of object-store metadata recorded per image.
type ObjectInfo struct {
	ContentType   string `json:"content_type"`
	ContentLength int64  `json:"content_length"`
}

// EncodeMetadata serializes object metadata into the string form stored on
// an ImageEntry.
func EncodeMetadata(info ObjectInfo) (string, error) {
	b, err := json.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(b), nil
}

// DecodeMetadata parses the metadata string of an ImageEntry.
func DecodeMetadata(s string) (ObjectInfo, error) {
	var info ObjectInfo
	if err := json.Unmarshal([]byte(s), &info); err != nil {
		return ObjectInfo{}, fmt.Errorf("decode metadata: %w", err)
	}
	return info, nil
}
