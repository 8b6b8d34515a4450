package reason

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/claimcheck/internal/llm/llmtest"
	"github.com/ppiankov/claimcheck/internal/model"
)

func testOptions() Options {
	return Options{
		Model:               "test-model",
		UnverifiableCeiling: 0.3,
		StrictRetry:         true,
		HistoryWindow:       4,
	}
}

func companyXEvidence() []model.EvidenceChunk {
	return []model.EvidenceChunk{
		{
			Text:       "Company X reported revenue growth of 12% in Q3, below the 15% analysts expected.",
			Source:     "companyx_q3_release.txt",
			Score:      0.81,
			ChunkIndex: model.IntPtr(0),
			Origin:     model.OriginLocal,
		},
		{
			Text:   "Company X shares fell after the quarterly report.",
			Source: "reuters.com",
			URL:    "https://www.reuters.com/markets/companyx-q3/",
			Score:  0.52,
			Origin: model.OriginOnline,
		},
	}
}

func TestAdjudicate_NoEvidenceForcesUnverifiable(t *testing.T) {
	p := llmtest.New(`{"verdict":"True","confidence":0.95,"reasoning":"Tesla delivers a lot","citations":["tesla.com"]}`)
	r := New(p, testOptions(), nil)

	v, err := r.Adjudicate(context.Background(), "Tesla delivered 5 million cars in Q1 2025", nil)
	require.NoError(t, err)

	assert.Equal(t, model.LabelUnverifiable, v.Label)
	assert.LessOrEqual(t, v.Confidence, 0.3)
	assert.NotNil(t, v.Citations)
	assert.Empty(t, v.Citations)
	assert.Contains(t, p.Requests()[0].Prompt, "No relevant evidence retrieved")
}

func TestAdjudicate_MismatchedPercentage(t *testing.T) {
	p := llmtest.New(`{"verdict":"false","confidence":0.8,"reasoning":"Evidence says 12%, not 15%.","citations":["companyx_q3_release.txt"]}`)
	r := New(p, testOptions(), nil)

	v, err := r.Adjudicate(context.Background(), "Company X revenue grew 15% in Q3", companyXEvidence())
	require.NoError(t, err)

	assert.Equal(t, model.LabelFalse, v.Label)
	assert.InDelta(t, 0.8, v.Confidence, 1e-9)
	require.Len(t, v.Citations, 1)
	assert.Equal(t, "companyx_q3_release.txt", v.Citations[0].Source)

	req := p.Requests()[0]
	assert.True(t, req.JSONMode)
	assert.Equal(t, "test-model", req.Model)
	assert.Contains(t, req.Prompt, "Source: companyx_q3_release.txt (score=0.81)")
}

func TestAdjudicate_DropsUnsuppliedCitations(t *testing.T) {
	p := llmtest.New(`{"verdict":"Misleading","confidence":0.7,"reasoning":"r",
		"citations":["Source: companyx_q3_release.txt","bloomberg.com",{"source":"x","url":"https://www.reuters.com/markets/companyx-q3"},"COMPANYX_Q3_RELEASE.TXT"]}`)
	r := New(p, testOptions(), nil)

	v, err := r.Adjudicate(context.Background(), "Company X beat expectations", companyXEvidence())
	require.NoError(t, err)

	assert.Equal(t, model.LabelMisleading, v.Label)
	assert.Equal(t, []model.Citation{
		{Source: "companyx_q3_release.txt"},
		{Source: "reuters.com", URL: "https://www.reuters.com/markets/companyx-q3/"},
	}, v.Citations)
}

func TestAdjudicate_NoValidCitationsDowngrades(t *testing.T) {
	p := llmtest.New(`{"verdict":"True","confidence":0.9,"reasoning":"r","citations":["wsj.com"]}`)
	r := New(p, testOptions(), nil)

	v, err := r.Adjudicate(context.Background(), "Company X revenue grew 12% in Q3", companyXEvidence())
	require.NoError(t, err)

	assert.Equal(t, model.LabelUnverifiable, v.Label)
	assert.LessOrEqual(t, v.Confidence, 0.3)
	assert.Empty(t, v.Citations)
}

func TestAdjudicate_MalformedThenValid(t *testing.T) {
	p := llmtest.New(
		"I think the claim is probably false.",
		"```json\n{\"verdict\":\"False\",\"confidence\":1.4,\"citations\":[\"companyx_q3_release.txt\"]}\n```",
	)
	r := New(p, testOptions(), nil)

	v, err := r.Adjudicate(context.Background(), "Company X revenue grew 15% in Q3", companyXEvidence())
	require.NoError(t, err)

	assert.Equal(t, 2, p.Calls())
	assert.Equal(t, model.LabelFalse, v.Label)
	assert.Equal(t, 1.0, v.Confidence)

	reqs := p.Requests()
	assert.NotContains(t, reqs[0].Prompt, "previous reply could not be used")
	assert.Contains(t, reqs[1].Prompt, "previous reply could not be used")
}

func TestAdjudicate_MalformedTwiceIsUnavailable(t *testing.T) {
	p := llmtest.New(`{"verdict":"Probably","confidence":0.5}`)
	r := New(p, testOptions(), nil)

	_, err := r.Adjudicate(context.Background(), "Company X revenue grew 15% in Q3", companyXEvidence())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrReasoningUnavailable)
	assert.Equal(t, 2, p.Calls())
}

func TestAdjudicate_StrictRetryDisabled(t *testing.T) {
	p := llmtest.New("not json")
	opts := testOptions()
	opts.StrictRetry = false
	r := New(p, opts, nil)

	_, err := r.Adjudicate(context.Background(), "Company X revenue grew 15% in Q3", companyXEvidence())
	assert.ErrorIs(t, err, model.ErrReasoningUnavailable)
	assert.Equal(t, 1, p.Calls())
}

func TestAdjudicate_ProviderErrorNotRetried(t *testing.T) {
	p := llmtest.Failing(errors.New("connection refused"))
	r := New(p, testOptions(), nil)

	v, err := r.Adjudicate(context.Background(), "Company X revenue grew 15% in Q3", companyXEvidence())
	assert.Nil(t, v)
	assert.ErrorIs(t, err, model.ErrReasoningUnavailable)
	assert.Equal(t, model.CodeReasoningUnavailable, model.CodeOf(err))
	assert.Equal(t, 1, p.Calls())
}

func TestAdjudicate_ConfidenceClamped(t *testing.T) {
	p := llmtest.New(`{"verdict":"Unverifiable","confidence":-2,"reasoning":"","citations":[]}`)
	r := New(p, testOptions(), nil)

	v, err := r.Adjudicate(context.Background(), "Company X revenue grew 15% in Q3", companyXEvidence())
	require.NoError(t, err)
	assert.Equal(t, model.LabelUnverifiable, v.Label)
	assert.Equal(t, 0.0, v.Confidence)
}

func TestAnswer_UsesHistoryWindowAndFiltersCitations(t *testing.T) {
	p := llmtest.New(`{"answer":"Apple reports on the last Thursday of the quarter.","citations":["apple_ir.txt","made_up.com"]}`)
	r := New(p, testOptions(), nil)

	history := []model.Turn{
		{Role: model.RoleUser, Text: "turn one"},
		{Role: model.RoleAssistant, Text: "turn two"},
		{Role: model.RoleUser, Text: "turn three"},
		{Role: model.RoleAssistant, Text: "turn four"},
		{Role: model.RoleUser, Text: "turn five"},
	}
	ans, err := r.Answer(context.Background(), AnswerInput{
		Question: "When does Apple report earnings?",
		Context:  "Looking at big tech",
		History:  history,
		Evidence: []model.EvidenceChunk{{Text: "Apple will report Q4 results on Oct 30.", Source: "apple_ir.txt", Score: 0.7}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Apple reports on the last Thursday of the quarter.", ans.Answer)
	assert.Equal(t, []model.Citation{{Source: "apple_ir.txt"}}, ans.Citations)

	prompt := p.Requests()[0].Prompt
	assert.NotContains(t, prompt, "turn one")
	assert.Contains(t, prompt, "Assistant: turn two")
	assert.Contains(t, prompt, "User: turn five")
	assert.Contains(t, prompt, "Looking at big tech")
}

func TestAnswer_EmptyAnswerRetries(t *testing.T) {
	p := llmtest.New(`{"answer":"   "}`, `{"answer":"Not enough evidence.","citations":[]}`)
	r := New(p, testOptions(), nil)

	ans, err := r.Answer(context.Background(), AnswerInput{Question: "What did Tesla deliver?"})
	require.NoError(t, err)
	assert.Equal(t, "Not enough evidence.", ans.Answer)
	assert.NotNil(t, ans.Citations)
	assert.Equal(t, 2, p.Calls())
}

func TestAnswer_ProviderError(t *testing.T) {
	r := New(llmtest.Failing(context.DeadlineExceeded), testOptions(), nil)
	_, err := r.Answer(context.Background(), AnswerInput{Question: "q?"})
	assert.ErrorIs(t, err, model.ErrReasoningUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBuildVerdictPrompt_TruncatesEvidence(t *testing.T) {
	long := strings.Repeat("a", maxEvidenceChars+50)
	prompt := buildVerdictPrompt("claim", []model.EvidenceChunk{{Text: long, Source: "s"}}, false)
	assert.NotContains(t, prompt, long)
	assert.Contains(t, prompt, strings.Repeat("a", maxEvidenceChars)+"...")
}

func TestAvailable(t *testing.T) {
	up := llmtest.New()
	assert.True(t, New(up, testOptions(), nil).Available(context.Background()))

	down := llmtest.New()
	down.Down = true
	assert.False(t, New(down, testOptions(), nil).Available(context.Background()))
	assert.Zero(t, down.Calls(), "availability must not spend a completion")
}
