package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"lair/internal/compression"
	"lair/internal/report"
)

var (
	truncateBudget    string
	truncateMaxTokens int
)

var truncateCmd = &cobra.Command{
	Use:   "truncate <file>",
	Short: "Cut a markdown report to a token budget",
	Long: `Cut a markdown report, such as the output of "lair analyze --format text",
to a token budget. Critical sections are kept first and elements are never
split. Use "-" to read stdin; files ending in .zst are decompressed.

Examples:
  lair truncate report.md --budget small
  lair analyze --format text auth | lair truncate - --max-tokens 4000`,
	Args: cobra.ExactArgs(1),
	RunE: runTruncate,
}

func init() {
	truncateCmd.Flags().StringVar(&truncateBudget, "budget", compression.PresetStandard, "Token budget preset (small, standard, large)")
	truncateCmd.Flags().IntVar(&truncateMaxTokens, "max-tokens", 0, "Token limit, overrides --budget")
	rootCmd.AddCommand(truncateCmd)
}

func runTruncate(cmd *cobra.Command, args []string) error {
	text, err := readReport(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	maxTokens := truncateMaxTokens
	if maxTokens <= 0 {
		if maxTokens, err = compression.PresetFor(truncateBudget); err != nil {
			return err
		}
	}
	budget := compression.DefaultBudget()
	budget.MaxTokens = maxTokens

	res := compression.TruncateReport(text, budget)
	if _, err := io.WriteString(cmd.OutOrStdout(), res.Text); err != nil {
		return err
	}
	if res.Truncated {
		fmt.Fprintf(cmd.ErrOrStderr(), "truncated: %d -> %d tokens\n", res.OriginalTokens, res.FinalTokens)
	}
	return nil
}

func readReport(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case path == "-":
		data, err = io.ReadAll(stdin)
	case strings.HasSuffix(path, ".zst"):
		data, err = report.ReadCompressed(path)
	default:
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}
