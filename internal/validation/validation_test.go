package validation

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personal-diary/internal/domain"
)

func messagesOf(t *testing.T, err error) []string {
	t.Helper()
	require.Error(t, err)
	var verr *Error
	require.True(t, errors.As(err, &verr), "expected *validation.Error, got %T", err)
	return verr.Messages
}

func TestSignupForm(t *testing.T) {
	valid := SignupForm{Username: "alice", Email: "alice@x.com", Password: "Abc123", ConfirmPassword: "Abc123"}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(f *SignupForm)
		want   string
	}{
		{"short username", func(f *SignupForm) { f.Username = "al" }, "Username must be at least 3 characters long"},
		{"long username", func(f *SignupForm) { f.Username = strings.Repeat("a", 31) }, "Username cannot exceed 30 characters"},
		{"non alphanumeric username", func(f *SignupForm) { f.Username = "al_ice" }, "Username must contain only alphanumeric characters"},
		{"missing username", func(f *SignupForm) { f.Username = "" }, "Username is required"},
		{"bad email", func(f *SignupForm) { f.Email = "not-an-email" }, "Please provide a valid email address"},
		{"short password", func(f *SignupForm) { f.Password, f.ConfirmPassword = "Ab1", "Ab1" }, "Password must be at least 6 characters long"},
		{"weak password", func(f *SignupForm) { f.Password, f.ConfirmPassword = "abcdef1", "abcdef1" }, "Password must contain at least one lowercase letter, one uppercase letter, and one number"},
		{"no digit", func(f *SignupForm) { f.Password, f.ConfirmPassword = "Abcdefg", "Abcdefg" }, "Password must contain at least one lowercase letter, one uppercase letter, and one number"},
		{"mismatch", func(f *SignupForm) { f.ConfirmPassword = "Abc124" }, "Passwords must match"},
		{"missing confirmation", func(f *SignupForm) { f.ConfirmPassword = "" }, "Please confirm your password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid
			tt.mutate(&f)
			assert.Contains(t, messagesOf(t, f.Validate()), tt.want)
		})
	}
}

func TestSignupForm_JoinsMessages(t *testing.T) {
	f := SignupForm{Username: "a!", Email: "bad", Password: "abc", ConfirmPassword: "x"}
	err := f.Validate()
	msgs := messagesOf(t, err)
	assert.Len(t, msgs, 4)
	assert.Equal(t, strings.Join(msgs, ", "), err.Error())
}

func TestSignupForm_NormalizeTrims(t *testing.T) {
	f := SignupForm{Username: "  alice ", Email: " alice@x.com\t"}
	f.Normalize()
	assert.Equal(t, "alice", f.Username)
	assert.Equal(t, "alice@x.com", f.Email)
}

func TestLoginForm(t *testing.T) {
	f := LoginForm{Username: "alice", Password: "anything"}
	require.NoError(t, f.Validate())

	f = LoginForm{}
	assert.Equal(t, []string{"Username is required", "Password is required"}, messagesOf(t, f.Validate()))
}

func TestParseTags(t *testing.T) {
	assert.Equal(t, []string{"work", "ideas", "fun"}, ParseTags("work, ideas,, fun "))
	assert.Equal(t, []string{}, ParseTags(""))
	assert.Equal(t, []string{}, ParseTags(" , ,"))
	assert.Equal(t, []string{"a", "b"}, ParseTags("a,b"))
}

func TestParsePrivacy(t *testing.T) {
	assert.True(t, ParsePrivacy(nil), "absent field keeps the private default")
	assert.True(t, ParsePrivacy([]string{"on"}))
	assert.True(t, ParsePrivacy([]string{"true"}))
	assert.False(t, ParsePrivacy([]string{"false"}))
	assert.False(t, ParsePrivacy([]string{""}))
	assert.False(t, ParsePrivacy([]string{"off"}))
	assert.True(t, ParsePrivacy([]string{"false", "on"}), "checked box after hidden input")
}

func TestNormalizeEntry(t *testing.T) {
	in := NormalizeEntry(EntryForm{
		Title:     "  Day 1 ",
		Content:   " Hello ",
		Weather:   " rainy ",
		Tags:      "work, ideas,, fun ",
		IsPrivate: []string{"false"},
	})
	assert.Equal(t, "Day 1", in.Title)
	assert.Equal(t, "Hello", in.Content)
	assert.Equal(t, domain.MoodOther, in.Mood)
	assert.Equal(t, "rainy", in.Weather)
	assert.Equal(t, []string{"work", "ideas", "fun"}, in.Tags)
	assert.False(t, in.IsPrivate)
	require.NoError(t, in.Validate())
}

func TestEntryInput_Validate(t *testing.T) {
	base := EntryForm{Title: "t", Content: "c"}

	tests := []struct {
		name   string
		mutate func(f *EntryForm)
		want   string
	}{
		{"blank title", func(f *EntryForm) { f.Title = "   " }, "Title cannot be empty"},
		{"long title", func(f *EntryForm) { f.Title = strings.Repeat("x", 101) }, "Title cannot exceed 100 characters"},
		{"blank content", func(f *EntryForm) { f.Content = "" }, "Content cannot be empty"},
		{"long content", func(f *EntryForm) { f.Content = strings.Repeat("x", 5001) }, "Content cannot exceed 5000 characters"},
		{"bad mood", func(f *EntryForm) { f.Mood = "Grumpy" }, "Please select a valid mood"},
		{"long weather", func(f *EntryForm) { f.Weather = strings.Repeat("w", 51) }, "Weather description cannot exceed 50 characters"},
		{"long tag list", func(f *EntryForm) { f.Tags = strings.Repeat("ab,", 70) }, "Tags cannot exceed 200 characters"},
		{"long tag", func(f *EntryForm) { f.Tags = "ok," + strings.Repeat("t", 21) }, "Each tag cannot exceed 20 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := base
			tt.mutate(&f)
			in := NormalizeEntry(f)
			assert.Contains(t, messagesOf(t, in.Validate()), tt.want)
		})
	}

	for _, mood := range domain.Moods {
		in := NormalizeEntry(EntryForm{Title: "t", Content: "c", Mood: string(mood)})
		assert.NoError(t, in.Validate(), "mood %s", mood)
	}

	in := NormalizeEntry(EntryForm{Title: strings.Repeat("é", 100), Content: "c"})
	assert.NoError(t, in.Validate(), "length counts characters, not bytes")
}

func TestProfileForm(t *testing.T) {
	f := ProfileForm{FirstName: " Alice ", LastName: "Liddell", Bio: "hi", DateOfBirth: "1990-05-17"}
	f.Normalize()
	require.NoError(t, f.Validate())

	p := f.Profile()
	assert.Equal(t, "Alice", p.FirstName)
	require.NotNil(t, p.DateOfBirth)
	assert.Equal(t, time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC), *p.DateOfBirth)

	empty := ProfileForm{}
	require.NoError(t, empty.Validate())
	assert.Nil(t, empty.Profile().DateOfBirth)

	future := ProfileForm{DateOfBirth: time.Now().AddDate(1, 0, 0).Format(DateLayout)}
	assert.Contains(t, messagesOf(t, future.Validate()), "Date of birth cannot be in the future")

	garbage := ProfileForm{DateOfBirth: "17/05/1990"}
	assert.Contains(t, messagesOf(t, garbage.Validate()), "Date of birth must be a valid date")

	long := ProfileForm{FirstName: strings.Repeat("a", 51), Bio: strings.Repeat("b", 501)}
	msgs := messagesOf(t, long.Validate())
	assert.Contains(t, msgs, "First name cannot exceed 50 characters")
	assert.Contains(t, msgs, "Bio cannot exceed 500 characters")
}
