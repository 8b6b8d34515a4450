package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/claimcheck/internal/model"
)

var (
	checkJSON     bool
	checkTimeout  time.Duration
	checkNoOnline bool
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <claim>",
	Short: "Verify a single claim against local and online evidence",
	Long: `Check retrieves the most relevant evidence for a claim from the local index,
asks the language model for a verdict grounded in that evidence, and falls
back to live news when the local verdict is weak.

Example:
  claimcheck check "Tesla reported a 20% rise in Q3 2025 revenue"
  claimcheck check "Company X revenue grew 15% in Q3" --json
  claimcheck check "The Fed cut rates in September" --no-online`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "print the result as JSON")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 2*time.Minute, "overall timeout")
	checkCmd.Flags().BoolVar(&checkNoOnline, "no-online", false, "disable the online fallback")
}

func runCheck(cmd *cobra.Command, args []string) error {
	claim := strings.Join(args, " ")
	ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
	defer cancel()

	a, err := newApp(ctx, func(cfg *model.Config) {
		if checkNoOnline {
			cfg.Online.Enabled = false
		}
	})
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.pipeline.CheckClaim(ctx, claim)
	if err != nil {
		return fmt.Errorf("check failed [%s]: %w", model.CodeOf(err), err)
	}

	if checkJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printClaimResult(res)
	return nil
}

func printClaimResult(res *model.ClaimResult) {
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("  Verdict: %s (confidence %.2f)\n", res.Verdict.Label, res.Verdict.Confidence)
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Println()
	fmt.Printf("Claim:     %s\n", res.Claim)
	fmt.Printf("Reasoning: %s\n", res.Verdict.Reasoning)
	if res.Expanded {
		fmt.Println("Online:    live news was consulted")
	}
	printCitations(res.Verdict.Citations)
	printEvidence(res.Evidence)
}

func printCitations(citations []model.Citation) {
	fmt.Println()
	if len(citations) == 0 {
		fmt.Println("Citations: none")
		return
	}
	fmt.Println("Citations:")
	for _, c := range citations {
		if c.URL != "" {
			fmt.Printf("  - %s (%s)\n", c.Source, c.URL)
		} else {
			fmt.Printf("  - %s\n", c.Source)
		}
	}
}

func printEvidence(evidence []model.EvidenceChunk) {
	if !verbose || len(evidence) == 0 {
		return
	}
	fmt.Println()
	fmt.Println("Evidence:")
	for i, c := range evidence {
		text := c.Text
		if r := []rune(text); len(r) > 160 {
			text = string(r[:160]) + "..."
		}
		fmt.Printf("  [%d] %s score=%.2f %s\n      %s\n", i+1, c.Source, c.Score, c.Origin, text)
	}
}
