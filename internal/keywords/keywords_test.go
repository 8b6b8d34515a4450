package keywords

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_AppleAndTesla(t *testing.T) {
	got := Extract("What happened with Apple and Tesla?",
		"Claim: Tesla reported a 20% rise in Q3 2025 revenue. Verdict: Unverifiable")

	require.GreaterOrEqual(t, len(got), 2)
	assert.Equal(t, []string{"Apple", "Tesla"}, got[:2])
	assert.NotContains(t, got, "What")
}

func TestExtract_Heuristics(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"tickers", "Did TSLA beat AAPL today?", []string{"TSLA", "AAPL"}},
		{"finance markers", "margin up 150 bps YoY to 12.5% in q2 2024", []string{"150bps", "YoY", "12.5%", "Q2", "2024"}},
		{"attached basis points", "Fed hikes rates by 25bps", []string{"Fed", "25bps"}},
		{"spelled basis points", "a cut of 40 basis points", []string{"40bps"}},
		{"bare bps marker", "spreads widened a few bps", []string{"bps"}},
		{"stopwords dropped", "The Fed and The Market", []string{"Fed", "Market"}},
		{"single letters ignored", "I think A is fine", []string{}},
		{"non years ignored", "sold 1234 units and 5000 more", []string{}},
		{"empty", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text, ""))
		})
	}
}

func TestExtract_DedupeAndCap(t *testing.T) {
	got := Extract("Tesla TESLA tesla Apple Nvidia Microsoft Amazon Google Meta Netflix", "")

	assert.Len(t, got, DefaultMax)
	seen := map[string]bool{}
	for _, k := range got {
		key := strings.ToUpper(k)
		assert.False(t, seen[key], "duplicate %q", k)
		seen[key] = true
	}
	assert.Equal(t, "Tesla", got[0])
}

func TestExtract_Idempotent(t *testing.T) {
	text := "Nvidia guided Q4 revenue up 8% while AMD lagged"
	first := Extract(text, "semis")
	second := Extract(text, "semis")
	assert.Equal(t, first, second)
}

func TestExtractor_Symbols(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symbols.txt")
	require.NoError(t, os.WriteFile(path, []byte("# tickers\nf\nGOOGL\n\ntoolongsym\nBRK.B\n"), 0644))

	symbols, err := LoadSymbols(path)
	require.NoError(t, err)
	assert.True(t, symbols["F"])
	assert.True(t, symbols["GOOGL"])
	assert.False(t, symbols["TOOLONGSYM"])
	assert.Len(t, symbols, 2)

	e := New(symbols, 3)
	assert.Equal(t, []string{"F", "GOOGL"}, e.Extract("Is F cheaper than GOOGL?", ""))
}

func TestLoadSymbols_Missing(t *testing.T) {
	_, err := LoadSymbols(filepath.Join(t.TempDir(), "none.txt"))
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	got := Normalize([]string{" Tesla ", "", "tesla", "Q3", "AAPL", "2025", "Fed", "yoy", "extra"}, 6)
	want := []string{"Tesla", "Q3", "AAPL", "2025", "Fed", "yoy"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Normalize = %v, want %v", got, want)
	}
	if got := Normalize(nil, 0); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}
