package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/V4T54L/defect-lens/internal/textdiff"
)

var diffFlags struct {
	files bool
}

var diffCmd = &cobra.Command{
	Use:   "diff OLD NEW",
	Short: "Show a word-level diff between two texts",
	Long:  "Print OLD and NEW as an inline word diff, marking removals as [-...-]\nand additions as {+...+}. With --files, OLD and NEW are file paths.",
	Args:  cobra.ExactArgs(2),
	RunE:  runDiff,
}

func init() {
	diffCmd.Flags().BoolVar(&diffFlags.files, "files", false, "Treat the arguments as file paths")
}

func runDiff(cmd *cobra.Command, args []string) error {
	oldText, newText := args[0], args[1]
	if diffFlags.files {
		var err error
		if oldText, err = readFile(args[0]); err != nil {
			return err
		}
		if newText, err = readFile(args[1]); err != nil {
			return err
		}
	}

	segments := textdiff.Diff(oldText, newText)
	stats := textdiff.Stats(segments)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, textdiff.Markup(segments))
	fmt.Fprintf(out, "\n%d change(s): +%d word(s), -%d word(s)\n", stats.Changes, stats.AddedWords, stats.RemovedWords)
	return nil
}

func readFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}
