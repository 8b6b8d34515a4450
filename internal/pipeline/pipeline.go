// Package pipeline orchestrates claim checks and chat turns over retrieval,
// reasoning, online expansion and session state.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/keywords"
	"github.com/ppiankov/claimcheck/internal/metrics"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/online"
	"github.com/ppiankov/claimcheck/internal/reason"
	"github.com/ppiankov/claimcheck/internal/retrieve"
	"github.com/ppiankov/claimcheck/internal/session"
)

// Options holds the orchestration thresholds
type Options struct {
	TopK     int
	MinScore float64
	// SupportedThreshold: a claim verdict below this confidence triggers
	// the online fallback
	SupportedThreshold float64
	// Chat turns expand online automatically when the best local score is
	// below ExpandBelowTopScore or fewer than ExpandBelowChunkCount chunks
	// were retrieved
	ExpandBelowTopScore   float64
	ExpandBelowChunkCount int
	OnlineDays            int
}

// OptionsFromConfig maps application config onto pipeline options
func OptionsFromConfig(cfg model.Config) Options {
	return Options{
		TopK:                  cfg.Retrieval.TopK,
		MinScore:              cfg.Retrieval.MinScore,
		SupportedThreshold:    cfg.Reasoning.SupportedThreshold,
		ExpandBelowTopScore:   cfg.Reasoning.ExpandBelowTopScore,
		ExpandBelowChunkCount: cfg.Reasoning.ExpandBelowChunkCount,
		OnlineDays:            cfg.Online.Days,
	}
}

// Deps are the collaborators of a pipeline. Online may be nil.
type Deps struct {
	Retriever *retrieve.Retriever
	Reasoner  *reason.Reasoner
	Online    *online.Connector
	Keywords  *keywords.Extractor
	Sessions  session.Store
	Logger    *zap.Logger
}

// Pipeline serves claim checks and chat turns. It is safe for concurrent
// use; turns on one session are serialised, different sessions never wait
// on each other.
type Pipeline struct {
	retriever *retrieve.Retriever
	reasoner  *reason.Reasoner
	online    *online.Connector
	keywords  *keywords.Extractor
	sessions  session.Store
	locks     *session.Locker
	opts      Options
	logger    *zap.Logger
	newID     func() string
}

// New creates a pipeline
func New(deps Deps, opts Options) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Keywords == nil {
		deps.Keywords = keywords.New(nil, keywords.DefaultMax)
	}
	if deps.Sessions == nil {
		deps.Sessions = session.NewMemoryStore(0)
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	return &Pipeline{
		retriever: deps.Retriever,
		reasoner:  deps.Reasoner,
		online:    deps.Online,
		keywords:  deps.Keywords,
		sessions:  deps.Sessions,
		locks:     session.NewLocker(),
		opts:      opts,
		logger:    deps.Logger.With(zap.String("component", "pipeline")),
		newID:     uuid.NewString,
	}
}

// OnlineEnabled reports whether online expansion is wired
func (p *Pipeline) OnlineEnabled() bool {
	return p.online.Enabled()
}

// Ready reports whether the reasoner's language model is reachable
func (p *Pipeline) Ready(ctx context.Context) bool {
	return p.reasoner.Available(ctx)
}

// Close releases the session store
func (p *Pipeline) Close() error {
	return p.sessions.Close()
}

// CheckClaim retrieves local evidence for a claim and adjudicates it. When
// the first verdict is Unverifiable or weakly supported and online
// expansion is enabled, the claim is re-adjudicated with online evidence
// added; if that second pass fails the first verdict stands.
func (p *Pipeline) CheckClaim(ctx context.Context, text string) (*model.ClaimResult, error) {
	claim := strings.TrimSpace(text)
	if claim == "" {
		return nil, p.fail(metrics.ClaimChecks, "check", model.Errorf(model.CodeInvalidRequest, "check", "claim text is empty"))
	}

	// 1. Local retrieval
	evidence, err := p.retriever.Retrieve(ctx, claim, p.opts.TopK, p.opts.MinScore)
	if err != nil {
		return nil, p.fail(metrics.ClaimChecks, "check", err)
	}

	// 2. Adjudicate
	verdict, err := p.reasoner.Adjudicate(ctx, claim, evidence)
	if err != nil {
		return nil, p.fail(metrics.ClaimChecks, "check", err)
	}

	result := &model.ClaimResult{Claim: claim, Verdict: *verdict, Evidence: evidence}

	// 3. Hybrid fallback
	if p.online.Enabled() && p.weak(verdict) {
		kws := p.keywords.Extract(claim, "")
		extra := p.online.Expand(ctx, claim, kws, p.opts.OnlineDays)
		if len(extra) > 0 {
			merged := mergeEvidence(evidence, extra)
			second, err := p.reasoner.Adjudicate(ctx, claim, merged)
			if err != nil {
				p.logger.Warn("re-adjudication with online evidence failed, keeping local verdict",
					zap.String("code", string(model.CodeOf(err))),
					zap.Error(err),
				)
			} else {
				result.Verdict = *second
				result.Evidence = merged
				result.Expanded = true
			}
		}
	}

	metrics.ClaimChecks.WithLabelValues(string(result.Verdict.Label)).Inc()
	p.logger.Info("claim checked",
		zap.String("verdict", string(result.Verdict.Label)),
		zap.Float64("confidence", result.Verdict.Confidence),
		zap.Int("evidence", len(result.Evidence)),
		zap.Bool("expanded", result.Expanded),
	)
	return result, nil
}

// Chat answers one question inside a session. The user and assistant turns
// are appended together only after the answer succeeds, so a failed or
// cancelled turn leaves the transcript untouched.
func (p *Pipeline) Chat(ctx context.Context, req model.ChatRequest) (*model.ChatResult, error) {
	question := strings.TrimSpace(req.Message)
	if question == "" {
		return nil, p.fail(metrics.ChatTurns, "chat", model.Errorf(model.CodeInvalidRequest, "chat", "message is empty"))
	}

	id := strings.TrimSpace(req.SessionID)
	if id == "" {
		id = p.newID()
	}

	unlock, err := p.locks.Lock(ctx, id)
	if err != nil {
		return nil, p.fail(metrics.ChatTurns, "chat", err)
	}
	defer unlock()

	history, err := p.sessions.Get(ctx, id)
	switch {
	case errors.Is(err, session.ErrNotFound):
		history = &model.Session{ID: id}
	case err != nil:
		return nil, p.fail(metrics.ChatTurns, "chat", err)
	}

	// 1. Keywords
	kws := keywords.Normalize(req.Keywords, p.keywords.Max())
	if len(kws) == 0 {
		kws = p.keywords.Extract(question, req.Context)
	}

	// 2. Local retrieval biased by keywords
	query := question
	if len(kws) > 0 {
		query = question + "\n" + strings.Join(kws, " ")
	}
	local, err := p.retriever.Retrieve(ctx, query, p.opts.TopK, p.opts.MinScore)
	if err != nil {
		return nil, p.fail(metrics.ChatTurns, "chat", err)
	}

	// 3. Online expansion augments, never replaces, local evidence
	evidence := local
	expanded := false
	if p.shouldExpand(req.ExpandOnline, local) {
		days := req.Days
		if days <= 0 {
			days = p.opts.OnlineDays
		}
		if extra := p.online.Expand(ctx, question, kws, days); len(extra) > 0 {
			evidence = mergeEvidence(local, extra)
			expanded = true
		}
	}

	// 4. Answer
	answer, err := p.reasoner.Answer(ctx, reason.AnswerInput{
		Question: question,
		Context:  req.Context,
		History:  history.Turns,
		Evidence: evidence,
	})
	if err != nil {
		return nil, p.fail(metrics.ChatTurns, "chat", err)
	}

	// 5. Persist both turns at once
	now := time.Now().UTC()
	err = p.sessions.Append(ctx, id,
		model.Turn{Role: model.RoleUser, Text: question, Citations: []model.Citation{}, Keywords: kws, CreatedAt: now},
		model.Turn{Role: model.RoleAssistant, Text: answer.Answer, Citations: answer.Citations, Evidence: evidence, CreatedAt: now},
	)
	if err != nil {
		return nil, p.fail(metrics.ChatTurns, "chat", err)
	}

	metrics.ChatTurns.WithLabelValues("ok").Inc()
	p.logger.Debug("chat turn",
		zap.String("session_id", id),
		zap.Int("history", len(history.Turns)),
		zap.Int("evidence", len(evidence)),
		zap.Bool("expanded", expanded),
	)
	return &model.ChatResult{
		SessionID: id,
		Answer:    *answer,
		Evidence:  evidence,
		Keywords:  kws,
		Expanded:  expanded,
	}, nil
}

// Session returns the transcript of id
func (p *Pipeline) Session(ctx context.Context, id string) (*model.Session, error) {
	return p.sessions.Get(ctx, id)
}

func (p *Pipeline) weak(v *model.Verdict) bool {
	return v.Label == model.LabelUnverifiable || v.Confidence < p.opts.SupportedThreshold
}

// shouldExpand resolves the caller's expansion flag: nil decides from the
// local evidence, true forces, false disables
func (p *Pipeline) shouldExpand(flag *bool, local []model.EvidenceChunk) bool {
	if !p.online.Enabled() {
		return false
	}
	if flag != nil {
		return *flag
	}
	return len(local) < p.opts.ExpandBelowChunkCount || retrieve.TopScore(local) < p.opts.ExpandBelowTopScore
}

// fail records the outcome and logs the request failure once
func (p *Pipeline) fail(counter *prometheus.CounterVec, op string, err error) error {
	code := model.CodeOf(err)
	outcome := string(code)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = "cancelled"
	case outcome == "":
		outcome = string(model.CodeInternal)
	}
	counter.WithLabelValues(outcome).Inc()

	if code == model.CodeInvalidRequest || outcome == "cancelled" {
		p.logger.Debug(op+" rejected", zap.String("outcome", outcome), zap.Error(err))
	} else {
		p.logger.Error(op+" failed", zap.String("code", outcome), zap.Error(err))
	}
	return err
}

// mergeEvidence keeps every local chunk and adds online chunks whose URL
// (or source and text) is not already present, ordered by score
func mergeEvidence(local, extra []model.EvidenceChunk) []model.EvidenceChunk {
	out := make([]model.EvidenceChunk, 0, len(local)+len(extra))
	seen := make(map[string]bool, len(local)+len(extra))
	for _, c := range local {
		seen[evidenceKey(c)] = true
		out = append(out, c)
	}
	for _, c := range extra {
		key := evidenceKey(c)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	retrieve.SortByScore(out)
	return out
}

func evidenceKey(c model.EvidenceChunk) string {
	if c.URL != "" {
		return "url:" + strings.TrimRight(strings.ToLower(c.URL), "/")
	}
	return c.Source + "\x00" + c.Text
}
