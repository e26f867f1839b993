package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"personal-diary/internal/domain"
	"personal-diary/internal/session"
	"personal-diary/internal/validation"
)

// dashboard never fails the page: stats fall back to the empty summary.
func (h *Handler) dashboard(c *gin.Context) {
	user := currentUser(c)
	stats, err := h.entries.Stats(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", user.ID).Error("dashboard stats")
		stats = domain.EmptyStats()
	}
	h.render(c, http.StatusOK, "dashboard", "Dashboard", gin.H{"Stats": stats})
}

func (h *Handler) profileForm(c *gin.Context) {
	h.render(c, http.StatusOK, "profile", "Profile", gin.H{"Profile": currentUser(c).Profile})
}

func (h *Handler) updateProfile(c *gin.Context) {
	var form validation.ProfileForm
	if err := c.ShouldBind(&form); err != nil {
		h.redirectWithFlash(c, "/profile", session.FlashError, msgInvalidFormEncoding)
		return
	}
	form.Normalize()
	if err := form.Validate(); err != nil {
		h.redirectWithFlash(c, "/profile", session.FlashError, err.Error())
		return
	}

	user := currentUser(c)
	if _, err := h.users.UpdateProfile(c.Request.Context(), user.ID, form.Profile()); err != nil {
		h.logger.WithError(err).WithField("user_id", user.ID).Error("update profile")
		h.redirectWithFlash(c, "/profile", session.FlashError, msgProfileError)
		return
	}
	h.redirectWithFlash(c, "/profile", session.FlashSuccess, msgProfileUpdated)
}
