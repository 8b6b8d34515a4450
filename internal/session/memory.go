package session

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/claimcheck/internal/model"
)

// MemoryStore keeps sessions in process memory with a sliding TTL
type MemoryStore struct {
	mu    sync.Mutex
	items *gocache.Cache
}

// NewMemoryStore creates a store. ttl <= 0 keeps sessions forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &MemoryStore{items: gocache.New(ttl, 10*time.Minute)}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*model.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := s.items.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSession(v.(*model.Session)), nil
}

func (s *MemoryStore) Append(ctx context.Context, id string, turns ...model.Turn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := now()
	var sess *model.Session
	if v, ok := s.items.Get(id); ok {
		sess = cloneSession(v.(*model.Session))
	} else {
		sess = &model.Session{ID: id, CreatedAt: ts}
	}
	for _, t := range stamp(turns, ts) {
		sess.Turns = append(sess.Turns, cloneTurn(t))
	}

	s.items.SetDefault(id, sess)
	return nil
}

// Len returns the number of live sessions
func (s *MemoryStore) Len() int {
	return s.items.ItemCount()
}

func (s *MemoryStore) Close() error {
	s.items.Flush()
	return nil
}
