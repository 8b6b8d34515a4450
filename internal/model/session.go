package model

import "time"

// Role identifies the author of a turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of a session transcript
type Turn struct {
	Role      Role            `json:"role"`
	Text      string          `json:"text"`
	Citations []Citation      `json:"citations"`
	Evidence  []EvidenceChunk `json:"evidence,omitempty"`
	Keywords  []string        `json:"keywords,omitempty"` // Derived keyword set (user turns only)
	CreatedAt time.Time       `json:"created_at"`
}

// Session is an append-only conversation keyed by an opaque id
type Session struct {
	ID        string    `json:"session_id"`
	Turns     []Turn    `json:"turns"`
	CreatedAt time.Time `json:"created_at"`
}

// Recent returns at most n trailing turns
func (s *Session) Recent(n int) []Turn {
	if s == nil || n <= 0 || len(s.Turns) == 0 {
		return nil
	}
	if len(s.Turns) <= n {
		return s.Turns
	}
	return s.Turns[len(s.Turns)-n:]
}
