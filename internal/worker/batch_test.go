package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/claimcheck/internal/model"
)

// mockChecker implements Checker
type mockChecker struct {
	failOn string
}

func (m *mockChecker) CheckClaim(ctx context.Context, text string) (*model.ClaimResult, error) {
	time.Sleep(5 * time.Millisecond)
	if m.failOn != "" && strings.Contains(text, m.failOn) {
		return nil, model.NewError(model.CodeReasoningUnavailable, "check", errors.New("llm down"))
	}
	return &model.ClaimResult{
		Claim:   text,
		Verdict: model.Verdict{Label: model.LabelUnverifiable, Confidence: 0.2, Citations: []model.Citation{}},
	}, nil
}

func TestBatchProcessor_ProcessClaims(t *testing.T) {
	processor := NewBatchProcessor(&mockChecker{}, 2)

	claims := []string{"Apple beat Q3 estimates", "Tesla delivered 500k cars", "Fed cut rates by 50 bps"}
	results := processor.ProcessClaims(context.Background(), claims)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, res := range results {
		if res.Claim != claims[i] {
			t.Errorf("result %d: expected claim %q, got %q", i, claims[i], res.Claim)
		}
		if res.Error != nil {
			t.Errorf("unexpected error for %q: %v", res.Claim, res.Error)
		}
		if res.Result == nil || res.Result.Claim != claims[i] {
			t.Errorf("result %d: missing claim result", i)
		}
	}
}

func TestBatchProcessor_ProcessClaims_Error(t *testing.T) {
	processor := NewBatchProcessor(&mockChecker{failOn: "Tesla"}, 2)

	results := processor.ProcessClaims(context.Background(), []string{"Apple beat Q3 estimates", "Tesla delivered 500k cars"})

	if results[0].Error != nil {
		t.Errorf("unexpected error: %v", results[0].Error)
	}
	if !errors.Is(results[1].Error, model.ErrReasoningUnavailable) {
		t.Errorf("expected ReasoningUnavailable, got %v", results[1].Error)
	}
	if results[1].Result != nil {
		t.Error("expected nil result on error")
	}
}

func TestBatchProcessor_Cancelled(t *testing.T) {
	processor := NewBatchProcessor(&mockChecker{}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := processor.ProcessClaims(ctx, []string{"a claim here", "another claim"})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Error == nil && r.Result == nil {
			t.Errorf("outcome for %q has neither result nor error", r.Claim)
		}
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockChecker{}, 2)
	results := processor.ProcessClaims(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestReadClaimsFromFile(t *testing.T) {
	content := `# claims to check
Apple beat Q3 estimates

Tesla delivered 500k cars
Apple beat Q3 estimates
   Fed cut rates by 50 bps   
`
	path := filepath.Join(t.TempDir(), "claims.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	claims, err := ReadClaimsFromFile(path)
	if err != nil {
		t.Fatalf("ReadClaimsFromFile: %v", err)
	}

	expected := []string{"Apple beat Q3 estimates", "Tesla delivered 500k cars", "Fed cut rates by 50 bps"}
	if len(claims) != len(expected) {
		t.Fatalf("expected %d claims, got %d: %v", len(expected), len(claims), claims)
	}
	for i := range expected {
		if claims[i] != expected[i] {
			t.Errorf("claim %d: expected %q, got %q", i, expected[i], claims[i])
		}
	}
}

func TestProcessFile_Missing(t *testing.T) {
	processor := NewBatchProcessor(&mockChecker{}, 1)
	if _, err := processor.ProcessFile(context.Background(), filepath.Join(t.TempDir(), "none.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}
