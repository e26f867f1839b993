package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"personal-diary/internal/metrics"
	"personal-diary/internal/service"
	"personal-diary/internal/session"
)

// HealthCheck reports whether a backing resource is usable.
type HealthCheck func(ctx context.Context) error

// Handler wires HTTP routes to domain services.
type Handler struct {
	users    service.UserService
	entries  service.EntryService
	sessions *session.Manager
	logger   logrus.FieldLogger
	health   HealthCheck
}

func NewHandler(users service.UserService, entries service.EntryService, sessions *session.Manager, logger logrus.FieldLogger, health HealthCheck) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		users:    users,
		entries:  entries,
		sessions: sessions,
		logger:   logger,
		health:   health,
	}
}

// RegisterRoutes installs templates, middleware and every route on router.
func (h *Handler) RegisterRoutes(router *gin.Engine) error {
	renderer, err := newHTMLRenderer()
	if err != nil {
		return err
	}
	router.HTMLRender = renderer

	router.Use(
		requestLogger(h.logger),
		h.recovery(),
		metrics.Middleware(),
		h.sessions.Middleware(),
		h.loadCurrentUser(),
	)
	router.NoRoute(h.notFound)

	router.GET("/health", h.healthz)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/blogs")
	})

	router.GET("/signup", h.signupForm)
	router.POST("/signup", h.signup)
	router.GET("/login", h.loginForm)
	router.POST("/login", h.login)
	router.GET("/logout", h.logout)

	authed := router.Group("", h.requireLogin())
	{
		authed.GET("/dashboard", h.dashboard)
		authed.GET("/profile", h.profileForm)
		authed.PUT("/profile", h.updateProfile)
	}

	blogs := router.Group("/blogs")
	{
		blogs.GET("", h.listEntries)
		blogs.GET("/new", h.requireLogin(), h.newEntryForm)
		blogs.POST("", h.requireLogin(), h.createEntry)
		blogs.GET("/:id", h.showEntry)

		owned := blogs.Group("/:id", h.requireLogin(), h.requireAuthor())
		owned.GET("/edit", h.editEntryForm)
		owned.PUT("", h.updateEntry)
		owned.DELETE("", h.deleteEntry)
	}

	// older links used /dairy for the listing
	router.GET("/dairy", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/blogs")
	})
	router.GET("/dairy/*rest", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/blogs"+c.Param("rest"))
	})

	return nil
}

func (h *Handler) healthz(c *gin.Context) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.health(ctx); err != nil {
			h.logger.WithError(err).Warn("health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) notFound(c *gin.Context) {
	h.renderError(c, http.StatusNotFound, "Page not found")
}
