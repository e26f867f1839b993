package repository

import (
	"context"
	"time"

	"personal-diary/internal/domain"
)

// EntryRepository exposes persistence operations for diary entries.
// Listing methods return entries newest first with AuthorName populated.
type EntryRepository interface {
	Create(ctx context.Context, entry *domain.Entry) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Entry, error)
	Update(ctx context.Context, entry *domain.Entry) error
	Delete(ctx context.Context, id int64) error
	ListPublic(ctx context.Context) ([]domain.Entry, error)
	// ListVisibleTo returns public entries plus every entry authored by viewerID.
	ListVisibleTo(ctx context.Context, viewerID int64) ([]domain.Entry, error)
	ListByAuthor(ctx context.Context, authorID int64) ([]domain.Entry, error)
	// CountByAuthor counts entries created at or after since. A zero since counts everything.
	CountByAuthor(ctx context.Context, authorID int64, since time.Time) (int, error)
	CountDistinctTags(ctx context.Context, authorID int64) (int, error)
	// LastCreatedAt returns nil when the author has no entries.
	LastCreatedAt(ctx context.Context, authorID int64) (*time.Time, error)
}
