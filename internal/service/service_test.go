package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"personal-diary/internal/domain"
	"personal-diary/internal/repository"
	"personal-diary/internal/repository/sqlite"
)

// --- helpers ---

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.Migrate(context.Background(), db, goose.NopLogger()))
	return db
}

type fixture struct {
	users    repository.UserRepository
	entries  repository.EntryRepository
	userSvc  UserService
	entrySvc EntryService
}

func newFixture(t *testing.T, visibility domain.Visibility) *fixture {
	t.Helper()
	db := setupDB(t)
	logger, _ := test.NewNullLogger()
	f := &fixture{
		users:   sqlite.NewUserRepository(db),
		entries: sqlite.NewEntryRepository(db),
	}
	f.userSvc = NewUserService(f.users, bcrypt.MinCost)
	f.entrySvc = NewEntryService(f.entries, f.users, visibility, logger)
	return f
}

func (f *fixture) register(t *testing.T, username string) *domain.User {
	t.Helper()
	u, err := f.userSvc.Register(context.Background(), username, username+"@x.com", "Abc123")
	require.NoError(t, err)
	return u
}

func (f *fixture) write(t *testing.T, author *domain.User, title string, private bool, tags ...string) *domain.Entry {
	t.Helper()
	e, err := f.entrySvc.Create(context.Background(), &domain.Entry{
		Title:     title,
		Content:   "content of " + title,
		Tags:      tags,
		IsPrivate: private,
		AuthorID:  author.ID,
	})
	require.NoError(t, err)
	return e
}

// failingUsers wraps a real repository and fails the entry list maintenance calls.
type failingUsers struct {
	repository.UserRepository
	appendErr error
	removeErr error
}

func (f *failingUsers) AppendEntry(ctx context.Context, userID, entryID int64) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	return f.UserRepository.AppendEntry(ctx, userID, entryID)
}

func (f *failingUsers) RemoveEntry(ctx context.Context, userID, entryID int64) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	return f.UserRepository.RemoveEntry(ctx, userID, entryID)
}

// failingEntries fails deletes while delegating everything else.
type failingEntries struct {
	repository.EntryRepository
	deleteErr error
}

func (f *failingEntries) Delete(ctx context.Context, id int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.EntryRepository.Delete(ctx, id)
}

var errStore = errors.New("store unavailable")

func lastWarning(hook *test.Hook) *logrus.Entry {
	for i := len(hook.AllEntries()) - 1; i >= 0; i-- {
		if e := hook.AllEntries()[i]; e.Level == logrus.WarnLevel {
			return e
		}
	}
	return nil
}
