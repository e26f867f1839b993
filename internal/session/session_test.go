package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newManager(t *testing.T, store Store) *Manager {
	t.Helper()
	m, err := NewManager(store, Options{Secret: "test-secret", MaxAge: time.Hour, CookieName: "sid"})
	require.NoError(t, err)
	return m
}

// newRouter exposes a few endpoints driving the manager.
func newRouter(m *Manager) *gin.Engine {
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/login/:id", func(c *gin.Context) {
		id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
		_ = m.Renew(c)
		s := m.Get(c)
		s.SetUserID(id)
		s.AddFlash(FlashSuccess, "hello")
		_ = m.Save(c)
		c.String(http.StatusOK, s.ID())
	})
	r.GET("/whoami", func(c *gin.Context) {
		s := m.Get(c)
		flashes := s.PopFlashes()
		_ = m.Save(c)
		c.JSON(http.StatusOK, gin.H{"user": s.UserID(), "flashes": flashes, "id": s.ID()})
	})
	r.GET("/logout", func(c *gin.Context) {
		_ = m.Destroy(c)
		m.Get(c).AddFlash(FlashSuccess, "bye")
		_ = m.Save(c)
		c.Status(http.StatusNoContent)
	})
	return r
}

func do(r http.Handler, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// lastCookie returns the final Set-Cookie value for name, as a browser would keep it.
func lastCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	var found *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			found = c
		}
	}
	return found
}

func TestManager_LoginRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	m := newManager(t, store)
	r := newRouter(m)

	w := do(r, "/login/7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookie := lastCookie(w, "sid")
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	// the cookie is a signed token carrying only the session id
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(cookie.Value, claims, func(*jwt.Token) (any, error) { return []byte("test-secret"), nil })
	require.NoError(t, err)
	assert.Equal(t, w.Body.String(), claims.ID)

	w = do(r, "/whoami", cookie)
	assert.JSONEq(t, `{"user":7,"flashes":{"success":["hello"]},"id":"`+claims.ID+`"}`, w.Body.String())

	// flashes are consumed once
	w = do(r, "/whoami", cookie)
	assert.JSONEq(t, `{"user":7,"flashes":{},"id":"`+claims.ID+`"}`, w.Body.String())
}

func TestManager_RenewDropsOldID(t *testing.T) {
	store := NewMemoryStore()
	m := newManager(t, store)
	r := newRouter(m)

	first := lastCookie(do(r, "/login/1", nil), "sid")
	w := do(r, "/login/2", first)
	second := lastCookie(w, "sid")
	require.NotNil(t, second)
	assert.NotEqual(t, first.Value, second.Value)
	assert.Len(t, store.items, 1)

	// the old cookie no longer resolves to a session
	w = do(r, "/whoami", first)
	assert.Contains(t, w.Body.String(), `"user":0`)
}

func TestManager_DestroyStartsFreshSession(t *testing.T) {
	store := NewMemoryStore()
	m := newManager(t, store)
	r := newRouter(m)

	login := lastCookie(do(r, "/login/5", nil), "sid")
	do(r, "/whoami", login) // consume the login flash

	w := do(r, "/logout", login)
	fresh := lastCookie(w, "sid")
	require.NotNil(t, fresh)
	assert.NotEqual(t, login.Value, fresh.Value)

	w = do(r, "/whoami", fresh)
	assert.Contains(t, w.Body.String(), `"user":0`)
	assert.Contains(t, w.Body.String(), `"success":["bye"]`)

	w = do(r, "/whoami", login)
	assert.Contains(t, w.Body.String(), `"user":0`)
}

func TestManager_RejectsForgedCookies(t *testing.T) {
	store := NewMemoryStore()
	m := newManager(t, store)
	r := newRouter(m)

	login := lastCookie(do(r, "/login/9", nil), "sid")
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(login.Value, claims, func(*jwt.Token) (any, error) { return []byte("test-secret"), nil })
	require.NoError(t, err)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        claims.ID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	for name, value := range map[string]string{
		"wrong key": forged,
		"garbage":   "not-a-token",
		"bare id":   claims.ID,
	} {
		t.Run(name, func(t *testing.T) {
			w := do(r, "/whoami", &http.Cookie{Name: "sid", Value: value})
			assert.Contains(t, w.Body.String(), `"user":0`)
			assert.NotContains(t, w.Body.String(), claims.ID)
		})
	}
}

func TestManager_UnmodifiedSessionSetsNoCookie(t *testing.T) {
	m := newManager(t, NewMemoryStore())
	w := do(newRouter(m), "/whoami", nil)
	assert.Nil(t, lastCookie(w, "sid"))
}

func TestNewManager_Validates(t *testing.T) {
	_, err := NewManager(nil, Options{Secret: "x"})
	assert.Error(t, err)
	_, err = NewManager(NewMemoryStore(), Options{})
	assert.Error(t, err)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, "a", Data{UserID: 1}, time.Minute))
	got, err := store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.UserID)

	now = now.Add(2 * time.Minute)
	_, err = store.Load(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, "b", Data{}, time.Minute))
	require.NoError(t, store.Delete(ctx, "b"))
	_, err = store.Load(ctx, "b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_LoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, "a", Data{Flashes: map[string][]string{"error": {"x"}}}, time.Minute))

	got, err := store.Load(ctx, "a")
	require.NoError(t, err)
	got.Flashes["error"][0] = "mutated"

	again, err := store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, again.Flashes["error"])
}
