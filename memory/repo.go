// Package memory provides in-memory CredentialRepo and ObjectStore
// implementations for tests and local development.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/serjogas/galleria"
)

// Repo is an in-memory CredentialRepo keyed by email.
type Repo struct {
	mu    sync.RWMutex
	users map[string]galleria.UserRecord
}

func NewRepo() *Repo {
	return &Repo{users: make(map[string]galleria.UserRecord)}
}

func (r *Repo) GetUser(ctx context.Context, email string) (galleria.UserRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.users[email]
	if !ok {
		return galleria.UserRecord{}, fmt.Errorf("get user %s: %w", email, galleria.ErrNotFound)
	}
	return cloneRecord(rec), nil
}

func (r *Repo) CreateUser(ctx context.Context, rec galleria.UserRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[rec.Email]; ok {
		return fmt.Errorf("create user %s: %w", rec.Email, galleria.ErrConflict)
	}
	r.users[rec.Email] = cloneRecord(rec)
	return nil
}

func (r *Repo) AppendImages(ctx context.Context, email string, entries []galleria.ImageEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.users[email]
	if !ok {
		rec = galleria.UserRecord{Email: email}
	}
	rec.Images = append(rec.Images, entries...)
	r.users[email] = rec
	return nil
}

func (r *Repo) UpdateImage(ctx context.Context, email string, entry galleria.ImageEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.users[email]
	if !ok {
		return fmt.Errorf("update image for %s: %w", email, galleria.ErrNotFound)
	}
	for i, img := range rec.Images {
		if img.ID == entry.ID {
			rec.Images[i] = entry
			r.users[email] = rec
			return nil
		}
	}
	return fmt.Errorf("update image %s for %s: %w", entry.ID, email, galleria.ErrNotFound)
}

func cloneRecord(rec galleria.UserRecord) galleria.UserRecord {
	out := rec
	out.Images = make([]galleria.ImageEntry, len(rec.Images))
	copy(out.Images, rec.Images)
	return out
}
