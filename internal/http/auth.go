package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"personal-diary/internal/service"
	"personal-diary/internal/session"
	"personal-diary/internal/validation"
)

// User visible notices.
const (
	msgLoginFirst          = "Please login first"
	msgInvalidLogin        = "Invalid username or password. Please check your credentials and try again."
	msgLoginError          = "Error logging in. Please try again."
	msgUsernameTaken       = "Username already exists. Please choose a different one."
	msgEmailTaken          = "Email already registered. Please use a different email or login."
	msgDuplicateUser       = "Username or email already exists. Please choose different credentials."
	msgSignupError         = "Error creating account. Please try again."
	msgSignedUp            = "Account created successfully! Please login with your credentials."
	msgGoodbye             = "Goodbye!"
	msgWelcomeFormat       = "Welcome back, %s!"
	msgProfileUpdated      = "Profile updated successfully!"
	msgProfileError        = "Error updating profile"
	msgEntryCreated        = "Diary entry created successfully!"
	msgEntryCreateError    = "Error creating diary entry"
	msgEntryUpdated        = "Diary entry updated successfully!"
	msgEntryUpdateError    = "Error updating diary entry"
	msgEntryDeleted        = "Diary entry deleted successfully!"
	msgEntryDeleteError    = "Error deleting diary entry"
	msgEntryNotFound       = "Diary entry not found"
	msgEntryPrivate        = "This entry is private"
	msgEntryFetchError     = "Error fetching diary entry"
	msgEntriesFetchError   = "Error fetching diary entries"
	msgNotAuthor           = "You can only edit your own diary entries"
	msgAuthorizationError  = "Error checking authorization"
	msgInvalidFormEncoding = "Could not read the submitted form"
)

func (h *Handler) signupForm(c *gin.Context) {
	h.render(c, http.StatusOK, "signup", "Sign up", nil)
}

func (h *Handler) signup(c *gin.Context) {
	var form validation.SignupForm
	if err := c.ShouldBind(&form); err != nil {
		h.redirectWithFlash(c, "/signup", session.FlashError, msgInvalidFormEncoding)
		return
	}
	form.Normalize()
	if err := form.Validate(); err != nil {
		h.redirectWithFlash(c, "/signup", session.FlashError, err.Error())
		return
	}

	user, err := h.users.Register(c.Request.Context(), form.Username, form.Email, form.Password)
	if err != nil {
		msg := msgSignupError
		switch {
		case errors.Is(err, service.ErrUsernameTaken):
			msg = msgUsernameTaken
		case errors.Is(err, service.ErrEmailTaken):
			msg = msgEmailTaken
		case errors.Is(err, service.ErrUserAlreadyExists):
			msg = msgDuplicateUser
		default:
			h.logger.WithError(err).WithField("username", form.Username).Error("create user")
		}
		h.redirectWithFlash(c, "/signup", session.FlashError, msg)
		return
	}

	h.logger.WithField("user_id", user.ID).WithField("username", user.Username).Info("user registered")
	h.redirectWithFlash(c, "/login", session.FlashSuccess, msgSignedUp)
}

func (h *Handler) loginForm(c *gin.Context) {
	h.render(c, http.StatusOK, "login", "Login", nil)
}

func (h *Handler) login(c *gin.Context) {
	var form validation.LoginForm
	if err := c.ShouldBind(&form); err != nil {
		h.redirectWithFlash(c, "/login", session.FlashError, msgInvalidFormEncoding)
		return
	}
	form.Normalize()
	if err := form.Validate(); err != nil {
		h.redirectWithFlash(c, "/login", session.FlashError, err.Error())
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.redirectWithFlash(c, "/login", session.FlashError, msgInvalidLogin)
			return
		}
		h.logger.WithError(err).Error("authenticate user")
		h.redirectWithFlash(c, "/login", session.FlashError, msgLoginError)
		return
	}

	// a fresh id on privilege change
	if err := h.sessions.Renew(c); err != nil {
		h.logger.WithError(err).Error("renew session")
		h.redirectWithFlash(c, "/login", session.FlashError, msgLoginError)
		return
	}
	sess := h.sessions.Get(c)
	sess.SetUserID(user.ID)

	h.logger.WithField("user_id", user.ID).WithField("username", user.Username).Info("user logged in")
	h.redirectWithFlash(c, "/dashboard", session.FlashSuccess, fmt.Sprintf(msgWelcomeFormat, user.Username))
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.sessions.Destroy(c); err != nil {
		h.logger.WithError(err).Warn("destroy session")
	}
	h.redirectWithFlash(c, "/login", session.FlashSuccess, msgGoodbye)
}
