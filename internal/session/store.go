package session

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Store keeps sessions in memory and evicts the ones idle for longer than ttl.
type Store struct {
	items    *cache.Cache
	defaults Settings
}

// NewStore creates a store. A non-positive ttl keeps sessions forever.
func NewStore(ttl time.Duration, defaults Settings) *Store {
	if ttl <= 0 {
		return &Store{items: cache.New(cache.NoExpiration, 0), defaults: defaults}
	}
	return &Store{items: cache.New(ttl, ttl/2), defaults: defaults}
}

func (s *Store) Defaults() Settings { return s.defaults }

// Create starts a session with a random id and the default settings.
func (s *Store) Create() *Session {
	sess := newSession(uuid.NewString(), s.defaults)
	s.items.SetDefault(sess.ID, sess)
	return sess
}

// Get returns the session and refreshes its expiry.
func (s *Store) Get(id string) (*Session, error) {
	v, ok := s.items.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	sess := v.(*Session)
	s.items.SetDefault(id, sess)
	return sess, nil
}

// GetOrCreate returns the session stored under a caller-chosen key, creating
// it on first use. Front-ends keyed by chat id use this.
func (s *Store) GetOrCreate(id string) *Session {
	if sess, err := s.Get(id); err == nil {
		return sess
	}
	sess := newSession(id, s.defaults)
	if err := s.items.Add(id, sess, cache.DefaultExpiration); err != nil {
		// lost a race with a concurrent creator
		if existing, err := s.Get(id); err == nil {
			return existing
		}
	}
	return sess
}

// Reset replaces the session under id with a fresh one.
func (s *Store) Reset(id string) *Session {
	sess := newSession(id, s.defaults)
	s.items.SetDefault(id, sess)
	return sess
}

func (s *Store) Delete(id string) error {
	if _, ok := s.items.Get(id); !ok {
		return ErrNotFound
	}
	s.items.Delete(id)
	return nil
}

// List returns live sessions, oldest first.
func (s *Store) List() []*Session {
	items := s.items.Items()
	out := make([]*Session, 0, len(items))
	for _, item := range items {
		out = append(out, item.Object.(*Session))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *Store) Count() int { return s.items.ItemCount() }
