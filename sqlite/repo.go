// Package sqlite implements the credential store on SQLite for local and
// single-node deployments. The per-user image sequence is held as a JSON
// column, matching the key-value shape of the DynamoDB table.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/serjogas/galleria"
)

// Open opens (and creates if necessary) a SQLite database at dsn.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	// modernc's driver is not safe for concurrent writes over multiple
	// connections on one file.
	db.SetMaxOpenConns(1)
	return db, nil
}

// Migrate creates the users table if it does not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	const ddl = `CREATE TABLE IF NOT EXISTS users (
		email TEXT PRIMARY KEY,
		password_hash TEXT NOT NULL DEFAULT '',
		images TEXT NOT NULL DEFAULT '[]'
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Repo is a galleria.CredentialRepo backed by a SQLite database.
type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) GetUser(ctx context.Context, email string) (galleria.UserRecord, error) {
	var hash, imagesJSON string
	err := r.db.QueryRowContext(ctx,
		`SELECT password_hash, images FROM users WHERE email = ?`, email,
	).Scan(&hash, &imagesJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return galleria.UserRecord{}, fmt.Errorf("get user %s: %w", email, galleria.ErrNotFound)
		}
		return galleria.UserRecord{}, fmt.Errorf("get user %s: %w", email, err)
	}

	images, err := decodeImages(imagesJSON)
	if err != nil {
		return galleria.UserRecord{}, fmt.Errorf("get user %s: %w", email, err)
	}
	return galleria.UserRecord{Email: email, PasswordHash: hash, Images: images}, nil
}

func (r *Repo) CreateUser(ctx context.Context, rec galleria.UserRecord) error {
	imagesJSON, err := encodeImages(rec.Images)
	if err != nil {
		return fmt.Errorf("create user %s: %w", rec.Email, err)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, images) VALUES (?, ?, ?)
		 ON CONFLICT(email) DO NOTHING`,
		rec.Email, rec.PasswordHash, imagesJSON,
	)
	if err != nil {
		return fmt.Errorf("create user %s: %w", rec.Email, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create user %s: %w", rec.Email, err)
	}
	if n == 0 {
		return fmt.Errorf("create user %s: %w", rec.Email, galleria.ErrConflict)
	}
	return nil
}

func (r *Repo) AppendImages(ctx context.Context, email string, entries []galleria.ImageEntry) error {
	return r.withImages(ctx, email, true, func(images []galleria.ImageEntry) ([]galleria.ImageEntry, error) {
		return append(images, entries...), nil
	})
}

func (r *Repo) UpdateImage(ctx context.Context, email string, entry galleria.ImageEntry) error {
	return r.withImages(ctx, email, false, func(images []galleria.ImageEntry) ([]galleria.ImageEntry, error) {
		for i, img := range images {
			if img.ID == entry.ID {
				images[i] = entry
				return images, nil
			}
		}
		return nil, fmt.Errorf("image %s: %w", entry.ID, galleria.ErrNotFound)
	})
}

// withImages runs a read-modify-write of a record's image sequence in one
// transaction. With createIfAbsent the record is inserted on first append,
// which is how the aggregate record comes into being.
func (r *Repo) withImages(ctx context.Context, email string, createIfAbsent bool, fn func([]galleria.ImageEntry) ([]galleria.ImageEntry, error)) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("images for %s: %w", email, err)
	}
	defer func() { _ = tx.Rollback() }()

	var imagesJSON string
	exists := true
	err = tx.QueryRowContext(ctx, `SELECT images FROM users WHERE email = ?`, email).Scan(&imagesJSON)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("images for %s: %w", email, err)
		}
		if !createIfAbsent {
			return fmt.Errorf("images for %s: %w", email, galleria.ErrNotFound)
		}
		exists = false
		imagesJSON = "[]"
	}

	images, err := decodeImages(imagesJSON)
	if err != nil {
		return fmt.Errorf("images for %s: %w", email, err)
	}

	images, err = fn(images)
	if err != nil {
		return fmt.Errorf("images for %s: %w", email, err)
	}

	updated, err := encodeImages(images)
	if err != nil {
		return fmt.Errorf("images for %s: %w", email, err)
	}

	if exists {
		_, err = tx.ExecContext(ctx, `UPDATE users SET images = ? WHERE email = ?`, updated, email)
	} else {
		_, err = tx.ExecContext(ctx, `INSERT INTO users (email, images) VALUES (?, ?)`, email, updated)
	}
	if err != nil {
		return fmt.Errorf("images for %s: %w", email, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("images for %s: %w", email, err)
	}
	return nil
}

func encodeImages(images []galleria.ImageEntry) (string, error) {
	if images == nil {
		images = []galleria.ImageEntry{}
	}
	b, err := json.Marshal(images)
	if err != nil {
		return "", fmt.Errorf("encode images: %w", err)
	}
	return string(b), nil
}

func decodeImages(s string) ([]galleria.ImageEntry, error) {
	var images []galleria.ImageEntry
	if err := json.Unmarshal([]byte(s), &images); err != nil {
		return nil, fmt.Errorf("decode images: %w", err)
	}
	return images, nil
}
