package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/worker"
)

var (
	concurrency  int
	batchOut     string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Check many claims from a file in parallel",
	Long: `Batch checks claims concurrently:
- Read claims from input file (one per line, # for comments)
- Check claims in parallel with a configurable worker count
- Write one JSON result per line, in input order

Example:
  claimcheck batch claims.txt
  claimcheck batch claims.txt --concurrency 8 --out results.jsonl
  claimcheck batch claims.txt --timeout 20m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVarP(&batchOut, "out", "o", "", "output file for JSON lines (default stdout)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
}

// batchLine is one line of batch output
type batchLine struct {
	Index  int                `json:"index"`
	Claim  string             `json:"claim"`
	Result *model.ClaimResult `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
	Code   model.ErrorCode    `json:"code,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Claimcheck Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	a, err := newApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	var out io.Writer = os.Stdout
	if batchOut != "" {
		f, err := os.Create(batchOut)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	processor := worker.NewBatchProcessor(a.pipeline, concurrency)

	fmt.Fprintf(os.Stderr, "⚙️  Checking claims with %d workers...\n", concurrency)
	fmt.Fprintf(os.Stderr, "\n")
	outcomes, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	counts, err := writeBatch(out, outcomes)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d claims\n", len(outcomes))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", counts.success)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", counts.failure)
	for _, l := range model.Labels {
		if n := counts.labels[l]; n > 0 {
			fmt.Fprintf(os.Stderr, "  %-12s %d\n", string(l)+":", n)
		}
	}
	if batchOut != "" {
		fmt.Fprintf(os.Stderr, "  Output:    %s\n", batchOut)
	}
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

type batchCounts struct {
	success int
	failure int
	labels  map[model.Label]int
}

// writeBatch writes outcomes as JSON lines and reports progress to stderr
func writeBatch(w io.Writer, outcomes []*worker.ClaimOutcome) (batchCounts, error) {
	counts := batchCounts{labels: make(map[model.Label]int)}
	enc := json.NewEncoder(w)

	for _, o := range outcomes {
		line := batchLine{Index: o.Index, Claim: o.Claim, Result: o.Result}
		if o.Error != nil {
			counts.failure++
			line.Result = nil
			line.Error = o.Error.Error()
			line.Code = model.CodeOf(o.Error)
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", o.Claim, o.Error)
		} else {
			counts.success++
			counts.labels[o.Result.Verdict.Label]++
			fmt.Fprintf(os.Stderr, "✓ %s (%s, %.2f)\n", o.Claim, o.Result.Verdict.Label, o.Result.Verdict.Confidence)
		}
		if err := enc.Encode(line); err != nil {
			return counts, fmt.Errorf("write result: %w", err)
		}
	}
	return counts, nil
}
