package domain

import "time"

// User represents a registered diary author.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Profile      Profile
	// EntryIDs mirrors the entries authored by the user. The author column on
	// each entry is authoritative; this list is maintained alongside it.
	EntryIDs  []int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile holds optional personal details editable by the user.
type Profile struct {
	FirstName   string
	LastName    string
	Bio         string
	DateOfBirth *time.Time
}

// DisplayName returns the full name when known, falling back to the username.
func (u *User) DisplayName() string {
	switch {
	case u.Profile.FirstName != "" && u.Profile.LastName != "":
		return u.Profile.FirstName + " " + u.Profile.LastName
	case u.Profile.FirstName != "":
		return u.Profile.FirstName
	default:
		return u.Username
	}
}
