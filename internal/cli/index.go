package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/claimcheck/internal/index"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect the local vector index",
}

var indexInspectCmd = &cobra.Command{
	Use:   "inspect [path]",
	Short: "Print index statistics",
	Long: `Inspect loads and validates an index artifact and prints its size,
dimension, similarity metric and chunk count per source.

Example:
  claimcheck index inspect
  claimcheck index inspect ./data/index.gob`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := viper.GetString("index.path")
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			return fmt.Errorf("no index path: pass one or set index.path")
		}

		idx, err := index.Load(path)
		if err != nil {
			return err
		}

		data, err := yaml.Marshal(idx.Stats())
		if err != nil {
			return fmt.Errorf("marshal stats: %w", err)
		}

		fmt.Println("═══════════════════════════════════════════════════════════")
		fmt.Println("  Index:", path)
		fmt.Println("═══════════════════════════════════════════════════════════")
		fmt.Println()
		fmt.Print(string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexInspectCmd)
}
