package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Flash kinds rendered by the layout.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

const contextKey = "diary.session"

// Options configures a Manager.
type Options struct {
	Secret     string
	MaxAge     time.Duration
	CookieName string
	// Secure marks the cookie HTTPS-only.
	Secure bool
	Logger logrus.FieldLogger
}

// Manager loads the session named by the request cookie and writes it back on Save.
type Manager struct {
	store  Store
	secret []byte
	maxAge time.Duration
	cookie string
	secure bool
	logger logrus.FieldLogger
}

func NewManager(store Store, opts Options) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if opts.Secret == "" {
		return nil, errors.New("session secret is required")
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 24 * time.Hour
	}
	if opts.CookieName == "" {
		opts.CookieName = "diary.sid"
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return &Manager{
		store:  store,
		secret: []byte(opts.Secret),
		maxAge: opts.MaxAge,
		cookie: opts.CookieName,
		secure: opts.Secure,
		logger: opts.Logger,
	}, nil
}

// Session is the per-request view of a stored session.
type Session struct {
	id    string
	data  Data
	dirty bool
	// stored is false until the session has been written once.
	stored bool
}

func newSession() *Session {
	return &Session{id: uuid.NewString()}
}

func (s *Session) ID() string { return s.id }

func (s *Session) UserID() int64 { return s.data.UserID }

func (s *Session) SetUserID(id int64) {
	s.data.UserID = id
	s.dirty = true
}

// AddFlash queues a one-shot message of the given kind.
func (s *Session) AddFlash(kind, msg string) {
	if s.data.Flashes == nil {
		s.data.Flashes = make(map[string][]string)
	}
	s.data.Flashes[kind] = append(s.data.Flashes[kind], msg)
	s.dirty = true
}

// PopFlashes returns all queued messages and clears them.
func (s *Session) PopFlashes() map[string][]string {
	flashes := s.data.Flashes
	if len(flashes) == 0 {
		return map[string][]string{}
	}
	s.data.Flashes = nil
	s.dirty = true
	return flashes
}

// Middleware attaches the request's session to the gin context.
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(contextKey, m.load(c))
		c.Next()
	}
}

func (m *Manager) load(c *gin.Context) *Session {
	raw, err := c.Cookie(m.cookie)
	if err != nil || raw == "" {
		return newSession()
	}

	id, err := m.parse(raw)
	if err != nil {
		m.logger.WithError(err).Debug("ignoring invalid session cookie")
		return newSession()
	}

	data, err := m.store.Load(c.Request.Context(), id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.logger.WithError(err).Warn("load session")
		}
		return newSession()
	}
	return &Session{id: id, data: data, stored: true}
}

// Get returns the current session. Outside the middleware a fresh session is attached.
func (m *Manager) Get(c *gin.Context) *Session {
	if v, ok := c.Get(contextKey); ok {
		if s, ok := v.(*Session); ok {
			return s
		}
	}
	s := newSession()
	c.Set(contextKey, s)
	return s
}

// Save persists a modified session and sets the cookie. It must run before
// the response is written.
func (m *Manager) Save(c *gin.Context) error {
	s := m.Get(c)
	if !s.dirty {
		return nil
	}
	if err := m.store.Save(c.Request.Context(), s.id, s.data, m.maxAge); err != nil {
		return err
	}

	token, err := m.sign(s.id)
	if err != nil {
		return err
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     m.cookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	s.dirty = false
	s.stored = true
	return nil
}

// Renew moves the session data to a fresh id and drops the old one.
func (m *Manager) Renew(c *gin.Context) error {
	s := m.Get(c)
	if s.stored {
		if err := m.store.Delete(c.Request.Context(), s.id); err != nil {
			return err
		}
	}
	s.id = uuid.NewString()
	s.stored = false
	s.dirty = true
	return nil
}

// Destroy deletes the stored session and replaces it with an empty one.
func (m *Manager) Destroy(c *gin.Context) error {
	s := m.Get(c)
	if s.stored {
		if err := m.store.Delete(c.Request.Context(), s.id); err != nil {
			return err
		}
	}
	*s = *newSession()
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     m.cookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (m *Manager) sign(id string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.maxAge)),
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session cookie: %w", err)
	}
	return signed, nil
}

func (m *Manager) parse(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.ID == "" {
		return "", errors.New("invalid session token")
	}
	return claims.ID, nil
}
