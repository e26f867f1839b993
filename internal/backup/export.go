// Package backup writes a user's diary as a JSON document to object storage.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"personal-diary/internal/domain"
	"personal-diary/internal/service"
	"personal-diary/internal/storage"
)

// FormatVersion is bumped when Document changes incompatibly.
const FormatVersion = 1

const keyTimeLayout = "20060102T150405Z"

// Document is the exported representation of one user's diary.
type Document struct {
	Version    int           `json:"version"`
	ExportedAt time.Time     `json:"exported_at"`
	User       UserRecord    `json:"user"`
	Entries    []EntryRecord `json:"entries"`
}

type UserRecord struct {
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name,omitempty"`
	LastName    string     `json:"last_name,omitempty"`
	Bio         string     `json:"bio,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type EntryRecord struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Mood      string    `json:"mood"`
	Weather   string    `json:"weather,omitempty"`
	Tags      []string  `json:"tags"`
	IsPrivate bool      `json:"is_private"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toEntryRecord(e domain.Entry) EntryRecord {
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	return EntryRecord{
		ID:        e.ID,
		Title:     e.Title,
		Content:   e.Content,
		Mood:      string(e.Mood),
		Weather:   e.Weather,
		Tags:      tags,
		IsPrivate: e.IsPrivate,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

// Result describes a stored export.
type Result struct {
	Location string
	Key      string
	Entries  int
}

type Options struct {
	Bucket    string
	KeyPrefix string
}

type Exporter struct {
	users   service.UserService
	entries service.EntryService
	store   storage.Service
	bucket  string
	prefix  string
	now     func() time.Time
}

func NewExporter(users service.UserService, entries service.EntryService, store storage.Service, opts Options) (*Exporter, error) {
	if store == nil {
		return nil, errors.New("object storage is required")
	}
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, errors.New("storage bucket is required")
	}
	return &Exporter{
		users:   users,
		entries: entries,
		store:   store,
		bucket:  opts.Bucket,
		prefix:  strings.Trim(opts.KeyPrefix, "/"),
		now:     time.Now,
	}, nil
}

// Export uploads every entry of username, private ones included.
func (e *Exporter) Export(ctx context.Context, username string) (Result, error) {
	user, err := e.users.GetByUsername(ctx, username)
	if err != nil {
		return Result{}, fmt.Errorf("find user %q: %w", username, err)
	}

	entries, err := e.entries.ListByAuthor(ctx, user.ID)
	if err != nil {
		return Result{}, fmt.Errorf("list entries: %w", err)
	}

	now := e.now().UTC()
	doc := Document{
		Version:    FormatVersion,
		ExportedAt: now,
		User: UserRecord{
			Username:    user.Username,
			Email:       user.Email,
			FirstName:   user.Profile.FirstName,
			LastName:    user.Profile.LastName,
			Bio:         user.Profile.Bio,
			DateOfBirth: user.Profile.DateOfBirth,
			CreatedAt:   user.CreatedAt,
		},
		Entries: make([]EntryRecord, 0, len(entries)),
	}
	for _, entry := range entries {
		doc.Entries = append(doc.Entries, toEntryRecord(entry))
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return Result{}, fmt.Errorf("encode export: %w", err)
	}

	key := path.Join(e.userPrefix(user.Username), fmt.Sprintf("%s-%s.json", now.Format(keyTimeLayout), uuid.NewString()))
	loc, err := e.store.PutObject(ctx, &buf, storage.PutOptions{
		Bucket:      e.bucket,
		Key:         key,
		ContentType: "application/json",
	})
	if err != nil {
		return Result{}, err
	}

	return Result{Location: loc, Key: key, Entries: len(entries)}, nil
}

// List returns the stored exports of username.
func (e *Exporter) List(ctx context.Context, username string) ([]storage.ObjectInfo, error) {
	return e.store.ListObjects(ctx, e.bucket, e.userPrefix(username)+"/")
}

// Purge deletes every stored export of username.
func (e *Exporter) Purge(ctx context.Context, username string) error {
	return e.store.DeletePrefix(ctx, e.bucket, e.userPrefix(username)+"/")
}

// Link returns a temporary download URL for an export key.
func (e *Exporter) Link(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return e.store.GetObjectURL(ctx, e.bucket, key, ttl)
}

func (e *Exporter) userPrefix(username string) string {
	if e.prefix == "" {
		return username
	}
	return e.prefix + "/" + username
}
