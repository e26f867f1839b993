package validation

import (
	"strings"
	"time"

	"personal-diary/internal/domain"
)

// DateLayout is the wire format of date inputs.
const DateLayout = "2006-01-02"

// SignupForm is the registration payload.
type SignupForm struct {
	Username        string `form:"username" validate:"required,alphanum,min=3,max=30"`
	Email           string `form:"email" validate:"required,email"`
	Password        string `form:"password" validate:"required,min=6,password"`
	ConfirmPassword string `form:"confirmPassword" validate:"required,eqfield=Password"`
}

var signupMessages = map[string]string{
	"Username.required":        "Username is required",
	"Username.alphanum":        "Username must contain only alphanumeric characters",
	"Username.min":             "Username must be at least 3 characters long",
	"Username.max":             "Username cannot exceed 30 characters",
	"Email.required":           "Email is required",
	"Email.email":              "Please provide a valid email address",
	"Password.required":        "Password is required",
	"Password.min":             "Password must be at least 6 characters long",
	"Password.password":        "Password must contain at least one lowercase letter, one uppercase letter, and one number",
	"ConfirmPassword.required": "Please confirm your password",
	"ConfirmPassword.eqfield":  "Passwords must match",
}

func (f *SignupForm) Normalize() {
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
}

func (f *SignupForm) Validate() error {
	return check(f, signupMessages)
}

// LoginForm only checks presence; credentials are verified by the user service.
type LoginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

var loginMessages = map[string]string{
	"Username.required": "Username is required",
	"Password.required": "Password is required",
}

func (f *LoginForm) Normalize() {
	f.Username = strings.TrimSpace(f.Username)
}

func (f *LoginForm) Validate() error {
	return check(f, loginMessages)
}

// EntryForm is the raw create/update payload as submitted by the browser.
type EntryForm struct {
	Title   string `form:"title"`
	Content string `form:"content"`
	Mood    string `form:"mood"`
	Weather string `form:"weather"`
	Tags    string `form:"tags"`
	// IsPrivate holds every submitted value of the privacy field, in order.
	IsPrivate []string `form:"isPrivate"`
}

// EntryInput is a normalised entry payload ready for validation and persistence.
type EntryInput struct {
	Title     string      `validate:"required,max=100"`
	Content   string      `validate:"required,max=5000"`
	Mood      domain.Mood `validate:"mood"`
	Weather   string      `validate:"max=50"`
	RawTags   string      `validate:"max=200"`
	Tags      []string    `validate:"dive,max=20"`
	IsPrivate bool
}

var entryMessages = map[string]string{
	"Title.required":   "Title cannot be empty",
	"Title.max":        "Title cannot exceed 100 characters",
	"Content.required": "Content cannot be empty",
	"Content.max":      "Content cannot exceed 5000 characters",
	"Mood.mood":        "Please select a valid mood",
	"Weather.max":      "Weather description cannot exceed 50 characters",
	"RawTags.max":      "Tags cannot exceed 200 characters",
	"Tags.max":         "Each tag cannot exceed 20 characters",
}

// NormalizeEntry is the single conversion from submitted form values to an entry payload.
func NormalizeEntry(f EntryForm) EntryInput {
	in := EntryInput{
		Title:     strings.TrimSpace(f.Title),
		Content:   strings.TrimSpace(f.Content),
		Mood:      domain.Mood(strings.TrimSpace(f.Mood)),
		Weather:   strings.TrimSpace(f.Weather),
		RawTags:   strings.TrimSpace(f.Tags),
		IsPrivate: ParsePrivacy(f.IsPrivate),
	}
	if in.Mood == "" {
		in.Mood = domain.MoodOther
	}
	in.Tags = ParseTags(in.RawTags)
	return in
}

func (in *EntryInput) Validate() error {
	return check(in, entryMessages)
}

// ParseTags splits a comma separated list, trimming whitespace and dropping empty items.
func ParseTags(raw string) []string {
	tags := []string{}
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// ParsePrivacy turns the privacy field into a flag. An absent field keeps the
// private default; otherwise the last value wins so a hidden "false" input
// followed by a checked box reads as private.
func ParsePrivacy(values []string) bool {
	if len(values) == 0 {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(values[len(values)-1])) {
	case "on", "true":
		return true
	default:
		return false
	}
}

// ProfileForm is the profile edit payload.
type ProfileForm struct {
	FirstName   string `form:"firstName" validate:"max=50"`
	LastName    string `form:"lastName" validate:"max=50"`
	Bio         string `form:"bio" validate:"max=500"`
	DateOfBirth string `form:"dateOfBirth" validate:"omitempty,datetime=2006-01-02,notfuture"`
}

var profileMessages = map[string]string{
	"FirstName.max":         "First name cannot exceed 50 characters",
	"LastName.max":          "Last name cannot exceed 50 characters",
	"Bio.max":               "Bio cannot exceed 500 characters",
	"DateOfBirth.datetime":  "Date of birth must be a valid date",
	"DateOfBirth.notfuture": "Date of birth cannot be in the future",
}

func (f *ProfileForm) Normalize() {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Bio = strings.TrimSpace(f.Bio)
	f.DateOfBirth = strings.TrimSpace(f.DateOfBirth)
}

func (f *ProfileForm) Validate() error {
	return check(f, profileMessages)
}

// Profile converts a validated form into the domain profile.
func (f *ProfileForm) Profile() domain.Profile {
	p := domain.Profile{
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Bio:       f.Bio,
	}
	if f.DateOfBirth != "" {
		if t, err := time.Parse(DateLayout, f.DateOfBirth); err == nil {
			p.DateOfBirth = &t
		}
	}
	return p
}

// Apply copies the payload onto entry, leaving identity, author and timestamps untouched.
func (in *EntryInput) Apply(entry *domain.Entry) {
	entry.Title = in.Title
	entry.Content = in.Content
	entry.Mood = in.Mood
	entry.Weather = in.Weather
	entry.Tags = append([]string{}, in.Tags...)
	entry.IsPrivate = in.IsPrivate
}
