// Package reason adjudicates claims and answers questions with a language
// model, restricted to the evidence it is handed.
package reason

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/metrics"
	"github.com/ppiankov/claimcheck/internal/model"
)

const (
	modeVerdict = "verdict"
	modeAnswer  = "answer"
)

// Options tunes the reasoner
type Options struct {
	Model         string
	VerdictTokens int
	AnswerTokens  int
	Temperature   float32
	// UnverifiableCeiling caps confidence whenever the verdict is forced to
	// Unverifiable for lack of grounding
	UnverifiableCeiling float64
	// StrictRetry enables the single retry with a stricter prompt after
	// malformed output
	StrictRetry   bool
	HistoryWindow int
}

// OptionsFromConfig maps application config onto reasoner options
func OptionsFromConfig(cfg model.Config) Options {
	return Options{
		Model:               cfg.LLM.Model,
		VerdictTokens:       cfg.LLM.VerdictTokens,
		AnswerTokens:        cfg.LLM.AnswerTokens,
		Temperature:         cfg.LLM.Temperature,
		UnverifiableCeiling: cfg.Reasoning.UnverifiableCeiling,
		StrictRetry:         cfg.Reasoning.StrictRetry,
		HistoryWindow:       cfg.Reasoning.HistoryWindow,
	}
}

// AnswerInput is the input to answer mode
type AnswerInput struct {
	Question string
	Context  string
	History  []model.Turn
	Evidence []model.EvidenceChunk
}

// Reasoner runs adjudication and answer mode against one provider
type Reasoner struct {
	provider llm.Provider
	opts     Options
	logger   *zap.Logger
}

// New creates a reasoner
func New(provider llm.Provider, opts Options, logger *zap.Logger) *Reasoner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.UnverifiableCeiling <= 0 || opts.UnverifiableCeiling > 1 {
		opts.UnverifiableCeiling = 0.3
	}
	if opts.VerdictTokens <= 0 {
		opts.VerdictTokens = 600
	}
	if opts.AnswerTokens <= 0 {
		opts.AnswerTokens = 400
	}
	return &Reasoner{
		provider: provider,
		opts:     opts,
		logger:   logger.With(zap.String("component", "reasoner")),
	}
}

// Available reports whether the language model can be reached
func (r *Reasoner) Available(ctx context.Context) bool {
	return r.provider.IsAvailable(ctx)
}

// Adjudicate judges claim against evidence. Provider failures and output
// that stays malformed after one stricter retry return ReasoningUnavailable;
// they never become an Unverifiable verdict.
func (r *Reasoner) Adjudicate(ctx context.Context, claim string, evidence []model.EvidenceChunk) (*model.Verdict, error) {
	var out verdictOutput
	var label model.Label

	err := r.call(ctx, modeVerdict, r.opts.VerdictTokens,
		func(strict bool) string { return buildVerdictPrompt(claim, evidence, strict) },
		func(raw []byte) error {
			if err := validate(verdictSchema, raw); err != nil {
				return err
			}
			out = verdictOutput{}
			if err := json.Unmarshal(raw, &out); err != nil {
				return err
			}
			l, err := model.ParseLabel(out.Verdict)
			if err != nil {
				return err
			}
			label = l
			return nil
		})
	if err != nil {
		return nil, err
	}

	citations, dropped := newGrounder(evidence).resolve(out.Citations)
	r.reportDropped(modeVerdict, dropped)

	v := &model.Verdict{
		Label:      label,
		Confidence: clamp01(out.Confidence),
		Reasoning:  strings.TrimSpace(out.Reasoning),
		Citations:  citations,
	}
	r.enforceGrounding(v, len(evidence) == 0)
	return v, nil
}

// enforceGrounding applies the evidence ceiling regardless of model output
func (r *Reasoner) enforceGrounding(v *model.Verdict, noEvidence bool) {
	ceiling := r.opts.UnverifiableCeiling
	switch {
	case noEvidence:
		if v.Label != model.LabelUnverifiable {
			r.logger.Warn("model returned a grounded label without evidence; forcing Unverifiable",
				zap.String("label", string(v.Label)))
		}
		v.Label = model.LabelUnverifiable
		v.Confidence = math.Min(v.Confidence, ceiling)
		v.Citations = []model.Citation{}
		if v.Reasoning == "" {
			v.Reasoning = "No relevant evidence was retrieved for this claim."
		}
	case v.Label != model.LabelUnverifiable && len(v.Citations) == 0:
		r.logger.Warn("verdict cites no supplied evidence; downgrading to Unverifiable",
			zap.String("label", string(v.Label)))
		v.Label = model.LabelUnverifiable
		v.Confidence = math.Min(v.Confidence, ceiling)
	}
}

// Answer responds to a follow-up question in answer mode
func (r *Reasoner) Answer(ctx context.Context, in AnswerInput) (*model.ChatAnswer, error) {
	var out answerOutput

	err := r.call(ctx, modeAnswer, r.opts.AnswerTokens,
		func(strict bool) string { return buildAnswerPrompt(in, r.opts.HistoryWindow, strict) },
		func(raw []byte) error {
			if err := validate(answerSchema, raw); err != nil {
				return err
			}
			out = answerOutput{}
			if err := json.Unmarshal(raw, &out); err != nil {
				return err
			}
			if strings.TrimSpace(out.Answer) == "" {
				return errors.New("empty answer")
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	citations, dropped := newGrounder(in.Evidence).resolve(out.Citations)
	r.reportDropped(modeAnswer, dropped)

	return &model.ChatAnswer{
		Answer:    strings.TrimSpace(out.Answer),
		Citations: citations,
	}, nil
}

// call performs one completion and at most one stricter retry when the
// output fails decode. Transport failures are not retried.
func (r *Reasoner) call(ctx context.Context, mode string, maxTokens int, prompt func(strict bool) string, decode func([]byte) error) error {
	system := verdictSystem
	if mode == modeAnswer {
		system = answerSystem
	}

	attempts := 1
	if r.opts.StrictRetry {
		attempts = 2
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		strict := attempt > 0
		resp, err := r.provider.Complete(ctx, llm.CompletionRequest{
			System:      system,
			Prompt:      prompt(strict),
			Model:       r.opts.Model,
			MaxTokens:   maxTokens,
			Temperature: r.opts.Temperature,
			JSONMode:    true,
		})
		if err != nil {
			metrics.ReasoningAttempts.WithLabelValues(mode, "error").Inc()
			return model.NewError(model.CodeReasoningUnavailable, mode,
				fmt.Errorf("%s: %w", r.provider.Name(), err))
		}

		raw, err := llm.ExtractJSONObject(resp.Text)
		if err == nil {
			err = decode(raw)
		}
		if err == nil {
			metrics.ReasoningAttempts.WithLabelValues(mode, "ok").Inc()
			return nil
		}

		metrics.ReasoningAttempts.WithLabelValues(mode, "malformed").Inc()
		r.logger.Warn("malformed model output",
			zap.String("mode", mode),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
			zap.String("output", truncate(resp.Text, 300)),
		)
		lastErr = err
	}

	return model.NewError(model.CodeReasoningUnavailable, mode,
		fmt.Errorf("malformed output after %d attempt(s): %w", attempts, lastErr))
}

func (r *Reasoner) reportDropped(mode string, dropped []string) {
	if len(dropped) == 0 {
		return
	}
	metrics.CitationsDropped.Add(float64(len(dropped)))
	r.logger.Debug("dropped citations outside supplied evidence",
		zap.String("mode", mode),
		zap.Strings("citations", dropped),
		zap.String("code", string(model.CodeInvalidCitation)),
	)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
