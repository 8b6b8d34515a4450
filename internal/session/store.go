// Package session persists chat transcripts and serialises turns per session.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/model"
)

// ErrNotFound is returned by Get for an unknown or expired session
var ErrNotFound = errors.New("session not found")

// Store is the minimal persistence contract used by the chat orchestrator.
// Append adds all turns or none, creating the session when needed. Once
// Append returns nil the turns are durable.
type Store interface {
	Get(ctx context.Context, id string) (*model.Session, error)
	Append(ctx context.Context, id string, turns ...model.Turn) error
	Close() error
}

// New builds the store selected by cfg.Backend
func New(ctx context.Context, cfg model.SessionConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := model.Seconds(cfg.TTL)

	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(ttl), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPass,
			DB:           cfg.RedisDB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, model.NewError(model.CodeSessionStoreFailure, "connect",
				fmt.Errorf("redis ping failed: %w", err))
		}
		logger.Info("session store", zap.String("backend", "redis"), zap.String("addr", cfg.RedisAddr))
		return NewRedisStore(client, "claimcheck:session:", ttl), nil
	case "sqlite":
		s, err := NewSQLiteStore(cfg.SQLitePath, ttl)
		if err != nil {
			return nil, model.NewError(model.CodeSessionStoreFailure, "open", err)
		}
		logger.Info("session store", zap.String("backend", "sqlite"), zap.String("path", cfg.SQLitePath))
		return s, nil
	default:
		return nil, fmt.Errorf("unknown session backend: %s", cfg.Backend)
	}
}

func storeError(op string, err error) error {
	if errors.Is(err, ErrNotFound) || model.CodeOf(err) == model.CodeSessionStoreFailure {
		return err
	}
	return model.NewError(model.CodeSessionStoreFailure, op, err)
}

// stamp fills missing turn timestamps
func stamp(turns []model.Turn, now time.Time) []model.Turn {
	out := make([]model.Turn, len(turns))
	for i, t := range turns {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		out[i] = t
	}
	return out
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func cloneSession(s *model.Session) *model.Session {
	out := &model.Session{ID: s.ID, CreatedAt: s.CreatedAt, Turns: make([]model.Turn, len(s.Turns))}
	for i, t := range s.Turns {
		out.Turns[i] = cloneTurn(t)
	}
	return out
}

func cloneTurn(t model.Turn) model.Turn {
	out := t
	if t.Citations != nil {
		out.Citations = append([]model.Citation{}, t.Citations...)
	}
	if t.Keywords != nil {
		out.Keywords = append([]string{}, t.Keywords...)
	}
	if t.Evidence != nil {
		out.Evidence = make([]model.EvidenceChunk, len(t.Evidence))
		for i, c := range t.Evidence {
			out.Evidence[i] = c.Clone()
		}
	}
	return out
}
