package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/claimcheck/internal/model"
)

// Checker checks a single claim
type Checker interface {
	CheckClaim(ctx context.Context, text string) (*model.ClaimResult, error)
}

// ClaimJob checks one claim
type ClaimJob struct {
	Index   int
	Claim   string
	Checker Checker
}

// Execute executes the claim job
func (j *ClaimJob) Execute(ctx context.Context) Result {
	result, err := j.Checker.CheckClaim(ctx, j.Claim)
	return &ClaimOutcome{
		Index:  j.Index,
		Claim:  j.Claim,
		Result: result,
		Error:  err,
	}
}

// ClaimOutcome is the result of a claim job
type ClaimOutcome struct {
	Index  int
	Claim  string
	Result *model.ClaimResult
	Error  error
}

// GetError returns the error from the claim check
func (r *ClaimOutcome) GetError() error {
	return r.Error
}

// BatchProcessor checks many claims concurrently
type BatchProcessor struct {
	checker     Checker
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(checker Checker, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		checker:     checker,
		concurrency: concurrency,
	}
}

// ProcessClaims checks claims concurrently and returns outcomes in input
// order. Claims not started before ctx is cancelled are reported with the
// context error.
func (b *BatchProcessor) ProcessClaims(ctx context.Context, claims []string) []*ClaimOutcome {
	if len(claims) == 0 {
		return []*ClaimOutcome{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, claim := range claims {
		if !pool.Submit(&ClaimJob{Index: i, Claim: claim, Checker: b.checker}) {
			break
		}
	}

	outcomes := make([]*ClaimOutcome, len(claims))
	for _, r := range pool.Wait() {
		o := r.(*ClaimOutcome)
		outcomes[o.Index] = o
	}

	for i, o := range outcomes {
		if o != nil {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		outcomes[i] = &ClaimOutcome{Index: i, Claim: claims[i], Error: err}
	}
	return outcomes
}

// ProcessFile reads claims from a file and checks them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*ClaimOutcome, error) {
	claims, err := ReadClaimsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read claims: %w", err)
	}
	return b.ProcessClaims(ctx, claims), nil
}

// ReadClaimsFromFile reads claims from a file, one per line. Blank lines,
// # comments and repeated claims are skipped.
func ReadClaimsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var claims []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			claims = append(claims, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return claims, nil
}
