package model

import (
	"fmt"
	"strings"
)

// Label is the closed set of verdicts the core may emit
type Label string

const (
	LabelTrue         Label = "True"
	LabelFalse        Label = "False"
	LabelMisleading   Label = "Misleading"
	LabelUnverifiable Label = "Unverifiable"
)

// Labels lists every valid label in display order
var Labels = []Label{LabelTrue, LabelFalse, LabelMisleading, LabelUnverifiable}

// ParseLabel maps a model-provided label onto the closed set.
// Matching is case-insensitive and ignores surrounding whitespace and quotes.
func ParseLabel(raw string) (Label, error) {
	s := strings.ToLower(strings.Trim(strings.TrimSpace(raw), `"'.`))
	switch s {
	case "true":
		return LabelTrue, nil
	case "false":
		return LabelFalse, nil
	case "misleading":
		return LabelMisleading, nil
	case "unverifiable", "unverified":
		return LabelUnverifiable, nil
	}
	return "", fmt.Errorf("unknown verdict label %q", raw)
}

// Verdict is the structured adjudication of a claim against evidence
type Verdict struct {
	Label      Label      `json:"verdict"`
	Confidence float64    `json:"confidence"`
	Reasoning  string     `json:"reasoning"`
	Citations  []Citation `json:"citations"`
}

// ChatAnswer answers a follow-up question; it has no label
type ChatAnswer struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// ClaimResult is the outcome of a claim check
type ClaimResult struct {
	Claim    string          `json:"claim"`
	Verdict  Verdict         `json:"result"`
	Evidence []EvidenceChunk `json:"evidence"`
	Expanded bool            `json:"expanded_online,omitempty"`
}

// ChatRequest is one conversational turn submitted by a caller
type ChatRequest struct {
	Message   string
	SessionID string
	// ExpandOnline: nil lets the orchestrator decide from local evidence
	// quality, true forces expansion, false disables it
	ExpandOnline *bool
	Days         int
	Context      string
	Keywords     []string
}

// ChatResult is the outcome of a chat turn
type ChatResult struct {
	SessionID string          `json:"session_id"`
	Answer    ChatAnswer      `json:"result"`
	Evidence  []EvidenceChunk `json:"evidence"`
	Keywords  []string        `json:"keywords,omitempty"`
	Expanded  bool            `json:"expanded_online,omitempty"`
}
