package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"personal-diary/internal/domain"
	"personal-diary/internal/repository"
)

const selectEntry = `
SELECT e.id, e.title, e.content, e.mood, e.weather, e.tags, e.is_private, e.author_id, u.username, e.created_at, e.updated_at
FROM diary_entries e
JOIN users u ON u.id = e.author_id`

const newestFirst = `
ORDER BY e.created_at DESC, e.id DESC`

type EntryRepository struct {
	db *sql.DB
}

func NewEntryRepository(db *sql.DB) repository.EntryRepository {
	return &EntryRepository{db: db}
}

func (r *EntryRepository) Create(ctx context.Context, entry *domain.Entry) (int64, error) {
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	tags, err := encodeTags(entry.Tags)
	if err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO diary_entries (title, content, mood, weather, tags, is_private, author_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Title,
		entry.Content,
		string(entry.Mood),
		entry.Weather,
		tags,
		entry.IsPrivate,
		entry.AuthorID,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("entry last insert id: %w", err)
	}
	entry.ID = id
	return id, nil
}

func (r *EntryRepository) Get(ctx context.Context, id int64) (*domain.Entry, error) {
	row := r.db.QueryRowContext(ctx, selectEntry+`
WHERE e.id = ?`,
		id,
	)
	return scanEntry(row)
}

// Update rewrites the mutable fields of an entry. The author is never changed.
func (r *EntryRepository) Update(ctx context.Context, entry *domain.Entry) error {
	entry.UpdatedAt = time.Now().UTC()
	tags, err := encodeTags(entry.Tags)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE diary_entries
SET title=?, content=?, mood=?, weather=?, tags=?, is_private=?, updated_at=?
WHERE id=?`,
		entry.Title,
		entry.Content,
		string(entry.Mood),
		entry.Weather,
		tags,
		entry.IsPrivate,
		entry.UpdatedAt,
		entry.ID,
	)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	return expectAffected(res, "update entry")
}

func (r *EntryRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM diary_entries WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return expectAffected(res, "delete entry")
}

func (r *EntryRepository) ListPublic(ctx context.Context) ([]domain.Entry, error) {
	return r.list(ctx, selectEntry+`
WHERE e.is_private = 0`+newestFirst)
}

func (r *EntryRepository) ListVisibleTo(ctx context.Context, viewerID int64) ([]domain.Entry, error) {
	return r.list(ctx, selectEntry+`
WHERE e.is_private = 0 OR e.author_id = ?`+newestFirst, viewerID)
}

func (r *EntryRepository) ListByAuthor(ctx context.Context, authorID int64) ([]domain.Entry, error) {
	return r.list(ctx, selectEntry+`
WHERE e.author_id = ?`+newestFirst, authorID)
}

func (r *EntryRepository) CountByAuthor(ctx context.Context, authorID int64, since time.Time) (int, error) {
	var (
		n   int
		err error
	)
	if since.IsZero() {
		err = r.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM diary_entries WHERE author_id = ?`, authorID).Scan(&n)
	} else {
		err = r.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM diary_entries WHERE author_id = ? AND created_at >= ?`, authorID, since.UTC()).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

func (r *EntryRepository) CountDistinctTags(ctx context.Context, authorID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(DISTINCT t.value)
FROM diary_entries e, json_each(e.tags) t
WHERE e.author_id = ?`, authorID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count distinct tags: %w", err)
	}
	return n, nil
}

func (r *EntryRepository) LastCreatedAt(ctx context.Context, authorID int64) (*time.Time, error) {
	var createdAt time.Time
	err := r.db.QueryRowContext(ctx, `
SELECT created_at
FROM diary_entries
WHERE author_id = ?
ORDER BY created_at DESC, id DESC
LIMIT 1`, authorID).Scan(&createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("last entry time: %w", err)
	}
	createdAt = createdAt.Local()
	return &createdAt, nil
}

func (r *EntryRepository) list(ctx context.Context, query string, args ...any) ([]domain.Entry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}

	return entries, rows.Err()
}

func scanEntry(scanner interface {
	Scan(dest ...any) error
}) (*domain.Entry, error) {
	var (
		entry     domain.Entry
		mood      string
		tags      string
		createdAt time.Time
		updatedAt time.Time
	)

	if err := scanner.Scan(
		&entry.ID,
		&entry.Title,
		&entry.Content,
		&mood,
		&entry.Weather,
		&tags,
		&entry.IsPrivate,
		&entry.AuthorID,
		&entry.AuthorName,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("entry: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan entry: %w", err)
	}

	entry.Mood = domain.Mood(mood)
	entry.CreatedAt = createdAt.Local()
	entry.UpdatedAt = updatedAt.Local()
	entry.Tags = []string{}
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &entry.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
	}

	return &entry, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(raw), nil
}
