// Package llmtest provides a scripted llm.Provider for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/ppiankov/claimcheck/internal/llm"
)

// Reply is one scripted outcome
type Reply struct {
	Text string
	Err  error
}

// Scripted replays replies in order and records every request.
// When the script runs out, the last reply repeats.
type Scripted struct {
	mu       sync.Mutex
	replies  []Reply
	requests []llm.CompletionRequest
	// Respond, when set, computes the reply instead of the script
	Respond func(req llm.CompletionRequest) (string, error)
	// Down makes IsAvailable report false
	Down bool
}

// New scripts text replies
func New(texts ...string) *Scripted {
	s := &Scripted{}
	for _, t := range texts {
		s.replies = append(s.replies, Reply{Text: t})
	}
	return s
}

// Failing returns a provider whose every call fails with err
func Failing(err error) *Scripted {
	return &Scripted{replies: []Reply{{Err: err}}}
}

func (s *Scripted) Name() string { return "scripted" }

func (s *Scripted) IsAvailable(context.Context) bool { return !s.Down }

func (s *Scripted) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.mu.Lock()
	n := len(s.requests)
	s.requests = append(s.requests, req)
	respond := s.Respond
	var r Reply
	switch {
	case respond != nil:
	case len(s.replies) == 0:
		r = Reply{Err: errors.New("no scripted reply")}
	case n < len(s.replies):
		r = s.replies[n]
	default:
		r = s.replies[len(s.replies)-1]
	}
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if respond != nil {
		text, err := respond(req)
		if err != nil {
			return nil, err
		}
		return &llm.CompletionResponse{Text: text, Model: "scripted"}, nil
	}
	if r.Err != nil {
		return nil, r.Err
	}
	return &llm.CompletionResponse{Text: r.Text, Model: "scripted"}, nil
}

// Requests returns a copy of the recorded requests
func (s *Scripted) Requests() []llm.CompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]llm.CompletionRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// Calls returns the number of Complete calls
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}
