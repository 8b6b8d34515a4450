package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ppiankov/claimcheck/internal/model"
)

var (
	chatSession string
	chatContext string
	chatOnline  string
	chatDays    int
	chatTimeout time.Duration
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask follow-up questions about a claim interactively",
	Long: `Chat starts an interactive session. Each question is answered from local
evidence, optionally expanded with live news, and remembered in the session
so later questions can refer back to earlier ones.

Type "exit" or press Ctrl-D to quit.

Example:
  claimcheck chat --context "Company X revenue grew 15% in Q3"
  claimcheck chat --session 3f1c... --online on --days 7`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVar(&chatSession, "session", "", "session id to resume (default: new session)")
	chatCmd.Flags().StringVar(&chatContext, "context", "", "claim or text the conversation is about")
	chatCmd.Flags().StringVar(&chatOnline, "online", "auto", "online expansion: auto, on, off")
	chatCmd.Flags().IntVar(&chatDays, "days", 0, "online lookback in days (default from config)")
	chatCmd.Flags().DurationVar(&chatTimeout, "timeout", 2*time.Minute, "timeout per question")
}

func parseOnlineFlag(s string) (*bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return nil, nil
	case "on", "true", "yes":
		v := true
		return &v, nil
	case "off", "false", "no":
		v := false
		return &v, nil
	}
	return nil, fmt.Errorf("invalid --online value %q (want auto, on or off)", s)
}

func runChat(cmd *cobra.Command, _ []string) error {
	expand, err := parseOnlineFlag(chatOnline)
	if err != nil {
		return err
	}
	if chatDays < 0 {
		return fmt.Errorf("--days must be >= 0")
	}

	a, err := newApp(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer a.Close()

	id := chatSession
	if id == "" {
		id = uuid.NewString()
	}

	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Println("  Session:", id)
	fmt.Println("═══════════════════════════════════════════════════════════")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			break
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), chatTimeout)
		res, err := a.pipeline.Chat(ctx, model.ChatRequest{
			Message:      question,
			SessionID:    id,
			ExpandOnline: expand,
			Days:         chatDays,
			Context:      chatContext,
		})
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", model.CodeOf(err), err)
			continue
		}

		fmt.Println()
		fmt.Println(res.Answer.Answer)
		if res.Expanded {
			fmt.Println("\n(live news consulted)")
		}
		printCitations(res.Answer.Citations)
		printEvidence(res.Evidence)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}
