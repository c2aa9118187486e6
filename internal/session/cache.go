package session

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of sessions kept in memory.
const DefaultCacheSize = 1024

// CachedStore keeps recently used sessions in an LRU in front of an origin
// store. Reads and writes exchange clones so callers never share the cached
// value.
type CachedStore struct {
	origin Store
	cache  *lru.Cache[string, *Session]
}

// NewCachedStore wraps origin. size <= 0 uses DefaultCacheSize.
func NewCachedStore(origin Store, size int) (*CachedStore, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, *Session](size)
	if err != nil {
		return nil, fmt.Errorf("session cache: %w", err)
	}
	return &CachedStore{origin: origin, cache: c}, nil
}

func (s *CachedStore) Create(ctx context.Context, sess *Session) error {
	if err := s.origin.Create(ctx, sess); err != nil {
		return err
	}
	s.cache.Add(sess.ID, sess.Clone())
	return nil
}

func (s *CachedStore) Load(ctx context.Context, id string) (*Session, error) {
	if sess, ok := s.cache.Get(id); ok {
		return sess.Clone(), nil
	}
	sess, err := s.origin.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Add(id, sess.Clone())
	return sess, nil
}

// Save writes through. A failed write evicts the entry so the next Load
// reads what the origin actually holds.
func (s *CachedStore) Save(ctx context.Context, sess *Session) error {
	if err := s.origin.Save(ctx, sess); err != nil {
		s.cache.Remove(sess.ID)
		return err
	}
	s.cache.Add(sess.ID, sess.Clone())
	return nil
}

func (s *CachedStore) Delete(ctx context.Context, id string) error {
	s.cache.Remove(id)
	return s.origin.Delete(ctx, id)
}

func (s *CachedStore) List(ctx context.Context, limit int) ([]*Session, error) {
	return s.origin.List(ctx, limit)
}

func (s *CachedStore) ActiveForUser(ctx context.Context, userID string) (*Session, error) {
	return s.origin.ActiveForUser(ctx, userID)
}

func (s *CachedStore) AppendMessages(ctx context.Context, id string, msgs ...Message) error {
	return s.origin.AppendMessages(ctx, id, msgs...)
}

func (s *CachedStore) Messages(ctx context.Context, id string) ([]Message, error) {
	return s.origin.Messages(ctx, id)
}

func (s *CachedStore) Expired(ctx context.Context, cutoff time.Time) ([]*Session, error) {
	return s.origin.Expired(ctx, cutoff)
}

func (s *CachedStore) Close() error {
	s.cache.Purge()
	return s.origin.Close()
}

// Len reports the number of cached sessions.
func (s *CachedStore) Len() int {
	return s.cache.Len()
}
