package domain

import (
	"fmt"
	"time"
)

type Mood string

const (
	MoodHappy    Mood = "Happy"
	MoodSad      Mood = "Sad"
	MoodExcited  Mood = "Excited"
	MoodCalm     Mood = "Calm"
	MoodAnxious  Mood = "Anxious"
	MoodGrateful Mood = "Grateful"
	MoodOther    Mood = "Other"
)

// Moods lists the accepted moods in display order.
var Moods = []Mood{MoodHappy, MoodSad, MoodExcited, MoodCalm, MoodAnxious, MoodGrateful, MoodOther}

func (m Mood) Valid() bool {
	for _, candidate := range Moods {
		if m == candidate {
			return true
		}
	}
	return false
}

// Visibility selects how entries are exposed to readers other than their author.
type Visibility string

const (
	// VisibilityBlog lists public entries to everyone and private ones to their author only.
	VisibilityBlog Visibility = "blog"
	// VisibilityJournal restricts every read to the entry author.
	VisibilityJournal Visibility = "journal"
)

func ParseVisibility(s string) (Visibility, error) {
	switch v := Visibility(s); v {
	case VisibilityBlog, VisibilityJournal:
		return v, nil
	case "":
		return VisibilityBlog, nil
	default:
		return "", fmt.Errorf("unknown visibility mode %q", s)
	}
}

// Entry is a single diary post owned by one user.
type Entry struct {
	ID        int64
	Title     string
	Content   string
	Mood      Mood
	Weather   string
	Tags      []string
	IsPrivate bool
	AuthorID  int64
	// AuthorName is populated on reads that join the author.
	AuthorName string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsAuthoredBy reports whether userID owns the entry. Zero never matches.
func (e *Entry) IsAuthoredBy(userID int64) bool {
	return userID != 0 && e.AuthorID == userID
}

// DashboardStats summarises a user's diary activity.
type DashboardStats struct {
	TotalEntries int
	ThisMonth    int
	UniqueTags   int
	LastEntry    string
}

// NeverWritten is shown in place of the last entry date for users without entries.
const NeverWritten = "Never"

// EmptyStats is the dashboard shown to users without entries or when stats are unavailable.
func EmptyStats() DashboardStats {
	return DashboardStats{LastEntry: NeverWritten}
}
