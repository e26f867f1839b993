package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"personal-diary/internal/domain"
	"personal-diary/internal/repository"
)

const selectUser = `
SELECT id, username, email, password_hash, first_name, last_name, bio, date_of_birth, entry_ids, created_at, updated_at
FROM users`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (int64, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.EntryIDs == nil {
		user.EntryIDs = []int64{}
	}
	entryIDs, err := json.Marshal(user.EntryIDs)
	if err != nil {
		return 0, fmt.Errorf("encode entry ids: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO users (username, email, password_hash, first_name, last_name, bio, date_of_birth, entry_ids, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Profile.FirstName,
		user.Profile.LastName,
		user.Profile.Bio,
		nullTime(user.Profile.DateOfBirth),
		string(entryIDs),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert user: %w", repository.ErrDuplicate)
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("user last insert id: %w", err)
	}
	user.ID = id
	return id, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, selectUser+`
WHERE id = ?`,
		id,
	)
	return scanUser(row)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, selectUser+`
WHERE username = ?`,
		username,
	)
	return scanUser(row)
}

func (r *UserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, selectUser+`
WHERE username = ? OR email = ?
ORDER BY CASE WHEN username = ? THEN 0 ELSE 1 END, id ASC
LIMIT 1`,
		username,
		email,
		username,
	)
	return scanUser(row)
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, profile domain.Profile) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE users
SET first_name=?, last_name=?, bio=?, date_of_birth=?, updated_at=?
WHERE id=?`,
		profile.FirstName,
		profile.LastName,
		profile.Bio,
		nullTime(profile.DateOfBirth),
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return expectAffected(res, "update profile")
}

// AppendEntry pushes entryID onto the user's entry list in a single statement.
func (r *UserRepository) AppendEntry(ctx context.Context, userID, entryID int64) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE users
SET entry_ids = json_insert(entry_ids, '$[#]', ?), updated_at = ?
WHERE id = ?`,
		entryID,
		time.Now().UTC(),
		userID,
	)
	if err != nil {
		return fmt.Errorf("append entry id: %w", err)
	}
	return expectAffected(res, "append entry id")
}

// RemoveEntry pulls every occurrence of entryID from the user's entry list.
func (r *UserRepository) RemoveEntry(ctx context.Context, userID, entryID int64) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE users
SET entry_ids = (
	SELECT json_group_array(value)
	FROM json_each(users.entry_ids)
	WHERE value <> ?
), updated_at = ?
WHERE id = ?`,
		entryID,
		time.Now().UTC(),
		userID,
	)
	if err != nil {
		return fmt.Errorf("remove entry id: %w", err)
	}
	return expectAffected(res, "remove entry id")
}

func scanUser(row interface {
	Scan(dest ...any) error
}) (*domain.User, error) {
	var (
		user        domain.User
		dateOfBirth sql.NullTime
		entryIDs    string
	)
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Profile.FirstName,
		&user.Profile.LastName,
		&user.Profile.Bio,
		&dateOfBirth,
		&entryIDs,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	if dateOfBirth.Valid {
		t := dateOfBirth.Time.UTC()
		user.Profile.DateOfBirth = &t
	}
	user.EntryIDs = []int64{}
	if entryIDs != "" {
		if err := json.Unmarshal([]byte(entryIDs), &user.EntryIDs); err != nil {
			return nil, fmt.Errorf("decode entry ids: %w", err)
		}
	}
	return &user, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

func expectAffected(res sql.Result, op string) error {
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if aff == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}
	return nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
