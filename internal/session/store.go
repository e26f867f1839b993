// Package session implements cookie backed server-side sessions with flash
// messages. The cookie carries only a signed session id; data lives in a Store.
package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned by stores for unknown or expired session ids.
var ErrNotFound = errors.New("session not found")

// Data is the persisted state of a session.
type Data struct {
	UserID  int64               `json:"user_id,omitempty"`
	Flashes map[string][]string `json:"flashes,omitempty"`
}

func (d Data) clone() Data {
	out := Data{UserID: d.UserID}
	if len(d.Flashes) > 0 {
		out.Flashes = make(map[string][]string, len(d.Flashes))
		for kind, msgs := range d.Flashes {
			out.Flashes[kind] = append([]string(nil), msgs...)
		}
	}
	return out
}

// Store persists session data keyed by session id.
type Store interface {
	Load(ctx context.Context, id string) (Data, error)
	Save(ctx context.Context, id string, data Data, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

type memoryItem struct {
	data      Data
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Sessions are lost on restart.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]memoryItem),
		now:   time.Now,
	}
}

func (s *MemoryStore) Load(_ context.Context, id string) (Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return Data{}, ErrNotFound
	}
	if !s.now().Before(item.expiresAt) {
		delete(s.items, id)
		return Data{}, ErrNotFound
	}
	return item.data.clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, id string, data Data, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()
	s.items[id] = memoryItem{data: data.clone(), expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
	return nil
}

// sweep drops expired sessions. Caller holds mu.
func (s *MemoryStore) sweep() {
	now := s.now()
	for id, item := range s.items {
		if !now.Before(item.expiresAt) {
			delete(s.items, id)
		}
	}
}
