package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"personal-diary/internal/domain"
	"personal-diary/internal/service"
	"personal-diary/internal/session"
)

const (
	currentUserKey = "diary.currentUser"
	entryKey       = "diary.entry"
)

// MethodOverride lets HTML forms tunnel PUT, PATCH and DELETE through POST
// with a _method query parameter or form field.
func MethodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			method := r.URL.Query().Get("_method")
			if method == "" {
				method = r.PostFormValue("_method")
			}
			switch m := strings.ToUpper(strings.TrimSpace(method)); m {
			case http.MethodPut, http.MethodPatch, http.MethodDelete:
				r.Method = m
			}
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"latency":   time.Since(start).String(),
			"client_ip": c.ClientIP(),
		})
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("request")
		case status >= http.StatusBadRequest:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}

func (h *Handler) recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		h.logger.WithField("panic", recovered).WithField("path", c.Request.URL.Path).Error("recovered from panic")
		if c.Writer.Written() {
			c.Abort()
			return
		}
		h.renderError(c, http.StatusInternalServerError, "Something went wrong!")
		c.Abort()
	})
}

// loadCurrentUser resolves the session's user, dropping ids that no longer exist.
func (h *Handler) loadCurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := h.sessions.Get(c)
		if id := sess.UserID(); id != 0 {
			user, err := h.users.GetByID(c.Request.Context(), id)
			switch {
			case err == nil:
				c.Set(currentUserKey, user)
			case errors.Is(err, service.ErrUserNotFound):
				sess.SetUserID(0)
			default:
				h.logger.WithError(err).WithField("user_id", id).Warn("load current user")
			}
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *domain.User {
	if v, ok := c.Get(currentUserKey); ok {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}

// viewerID is the current user's id or zero for anonymous requests.
func viewerID(c *gin.Context) int64 {
	if u := currentUser(c); u != nil {
		return u.ID
	}
	return 0
}

func (h *Handler) requireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUser(c) == nil {
			h.redirectWithFlash(c, "/login", session.FlashError, msgLoginFirst)
			c.Abort()
			return
		}
		c.Next()
	}
}

// requireAuthor loads the :id entry and only lets its author through.
func (h *Handler) requireAuthor() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := entryID(c)
		if !ok {
			h.redirectWithFlash(c, "/blogs", session.FlashError, msgEntryNotFound)
			c.Abort()
			return
		}

		entry, err := h.entries.GetOwned(c.Request.Context(), id, viewerID(c))
		if err != nil {
			msg := msgAuthorizationError
			switch {
			case errors.Is(err, service.ErrEntryNotFound):
				msg = msgEntryNotFound
			case errors.Is(err, service.ErrNotAuthor):
				msg = msgNotAuthor
			default:
				h.logger.WithError(err).WithField("entry_id", id).Error("check entry author")
			}
			h.redirectWithFlash(c, "/blogs", session.FlashError, msg)
			c.Abort()
			return
		}

		c.Set(entryKey, entry)
		c.Next()
	}
}

func ownedEntry(c *gin.Context) *domain.Entry {
	if v, ok := c.Get(entryKey); ok {
		if e, ok := v.(*domain.Entry); ok {
			return e
		}
	}
	return nil
}

func entryID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
