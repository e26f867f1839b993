package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"personal-diary/internal/domain"
	"personal-diary/internal/metrics"
	"personal-diary/internal/repository"
)

var (
	ErrEntryNotFound = errors.New("diary entry not found")
	// ErrEntryPrivate is returned when the viewer may not read the entry.
	ErrEntryPrivate = errors.New("diary entry is private")
	// ErrNotAuthor is returned when a non-author tries to change an entry.
	ErrNotAuthor = errors.New("not the author of the diary entry")
	// ErrLoginRequired is returned when the visibility mode demands a logged in reader.
	ErrLoginRequired = errors.New("login required")
)

// LastEntryLayout formats the dashboard's last entry date.
const LastEntryLayout = "Jan 2, 2006"

// EntryService coordinates diary entry operations and keeps each author's
// entry list in step with the entries table.
type EntryService interface {
	List(ctx context.Context, viewerID int64) ([]domain.Entry, error)
	ListByAuthor(ctx context.Context, authorID int64) ([]domain.Entry, error)
	Create(ctx context.Context, entry *domain.Entry) (*domain.Entry, error)
	View(ctx context.Context, id, viewerID int64) (*domain.Entry, error)
	GetOwned(ctx context.Context, id, userID int64) (*domain.Entry, error)
	Update(ctx context.Context, entry *domain.Entry) (*domain.Entry, error)
	Delete(ctx context.Context, entry *domain.Entry) error
	Stats(ctx context.Context, userID int64) (domain.DashboardStats, error)
}

type entryService struct {
	entries    repository.EntryRepository
	users      repository.UserRepository
	visibility domain.Visibility
	logger     logrus.FieldLogger
	now        func() time.Time
}

func NewEntryService(entries repository.EntryRepository, users repository.UserRepository, visibility domain.Visibility, logger logrus.FieldLogger) EntryService {
	if logger == nil {
		logger = logrus.New()
	}
	if visibility == "" {
		visibility = domain.VisibilityBlog
	}
	return &entryService{
		entries:    entries,
		users:      users,
		visibility: visibility,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *entryService) List(ctx context.Context, viewerID int64) ([]domain.Entry, error) {
	switch {
	case s.visibility == domain.VisibilityJournal && viewerID == 0:
		return nil, ErrLoginRequired
	case s.visibility == domain.VisibilityJournal:
		return s.entries.ListByAuthor(ctx, viewerID)
	case viewerID == 0:
		return s.entries.ListPublic(ctx)
	default:
		return s.entries.ListVisibleTo(ctx, viewerID)
	}
}

func (s *entryService) ListByAuthor(ctx context.Context, authorID int64) ([]domain.Entry, error) {
	return s.entries.ListByAuthor(ctx, authorID)
}

// Create stores the entry and then records it on the author. A failure of the
// second step is logged and counted but does not fail the call: the entry's
// author column stays authoritative.
func (s *entryService) Create(ctx context.Context, entry *domain.Entry) (*domain.Entry, error) {
	if entry.AuthorID == 0 {
		return nil, errors.New("entry author is required")
	}
	if entry.Mood == "" {
		entry.Mood = domain.MoodOther
	}

	if _, err := s.entries.Create(ctx, entry); err != nil {
		return nil, err
	}
	metrics.RecordEntryMutation("create")

	if err := s.users.AppendEntry(ctx, entry.AuthorID, entry.ID); err != nil {
		metrics.RecordIndexDivergence("create")
		s.logger.WithFields(logrus.Fields{
			"entry_id": entry.ID,
			"user_id":  entry.AuthorID,
		}).WithError(err).Warn("entry created but not added to author's entry list")
	}

	return entry, nil
}

func (s *entryService) View(ctx context.Context, id, viewerID int64) (*domain.Entry, error) {
	if s.visibility == domain.VisibilityJournal && viewerID == 0 {
		return nil, ErrLoginRequired
	}

	entry, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if entry.IsAuthoredBy(viewerID) {
		return entry, nil
	}
	if s.visibility == domain.VisibilityJournal || entry.IsPrivate {
		return nil, ErrEntryPrivate
	}
	return entry, nil
}

func (s *entryService) GetOwned(ctx context.Context, id, userID int64) (*domain.Entry, error) {
	entry, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !entry.IsAuthoredBy(userID) {
		return nil, ErrNotAuthor
	}
	return entry, nil
}

// Update persists the mutable fields of entry. Last writer wins.
func (s *entryService) Update(ctx context.Context, entry *domain.Entry) (*domain.Entry, error) {
	if entry.Mood == "" {
		entry.Mood = domain.MoodOther
	}
	if err := s.entries.Update(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	metrics.RecordEntryMutation("update")
	return s.get(ctx, entry.ID)
}

// Delete removes the entry from its author's list first and then deletes it.
// If the second step fails the list no longer mentions an entry that still
// exists; that divergence is logged and left in place.
func (s *entryService) Delete(ctx context.Context, entry *domain.Entry) error {
	if err := s.users.RemoveEntry(ctx, entry.AuthorID, entry.ID); err != nil {
		return fmt.Errorf("remove entry from author: %w", err)
	}

	if err := s.entries.Delete(ctx, entry.ID); err != nil {
		metrics.RecordIndexDivergence("delete")
		s.logger.WithFields(logrus.Fields{
			"entry_id": entry.ID,
			"user_id":  entry.AuthorID,
		}).WithError(err).Warn("entry removed from author's entry list but not deleted")
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEntryNotFound
		}
		return err
	}
	metrics.RecordEntryMutation("delete")
	return nil
}

func (s *entryService) Stats(ctx context.Context, userID int64) (domain.DashboardStats, error) {
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	total, err := s.entries.CountByAuthor(ctx, userID, time.Time{})
	if err != nil {
		return domain.EmptyStats(), err
	}
	thisMonth, err := s.entries.CountByAuthor(ctx, userID, monthStart)
	if err != nil {
		return domain.EmptyStats(), err
	}
	tags, err := s.entries.CountDistinctTags(ctx, userID)
	if err != nil {
		return domain.EmptyStats(), err
	}
	last, err := s.entries.LastCreatedAt(ctx, userID)
	if err != nil {
		return domain.EmptyStats(), err
	}

	stats := domain.DashboardStats{
		TotalEntries: total,
		ThisMonth:    thisMonth,
		UniqueTags:   tags,
		LastEntry:    domain.NeverWritten,
	}
	if last != nil {
		stats.LastEntry = last.In(now.Location()).Format(LastEntryLayout)
	}
	return stats, nil
}

func (s *entryService) get(ctx context.Context, id int64) (*domain.Entry, error) {
	entry, err := s.entries.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return entry, nil
}
