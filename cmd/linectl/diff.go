package main

import (
	"github.com/spf13/cobra"

	"github.com/dgallion1/resumedit/internal/doctree"
	"github.com/dgallion1/resumedit/internal/lines"
)

var diffPayload bool

// diffCmd prints what saving the document would send. With --payload only
// the batch update body is printed.
var diffCmd = &cobra.Command{
	Use:   "diff <lines.json> <document.json|->",
	Short: "Diff an edited document against the original lines",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		original, err := readLines(cmd, args[0])
		if err != nil {
			return err
		}
		doc, err := readDocument(cmd, args[1])
		if err != nil {
			return err
		}
		current := doctree.Flatten(doc)
		changes := lines.Diff(original, current)
		if diffPayload {
			if changes == nil {
				changes = []lines.Update{}
			}
			return writeJSON(cmd, changes)
		}
		return writeJSON(cmd, map[string]any{
			"changes":  lines.Describe(original, changes),
			"trailing": lines.Trailing(original, current),
		})
	},
}

func init() {
	diffCmd.Flags().BoolVar(&diffPayload, "payload", false, "print only the batch update payload")
	rootCmd.AddCommand(diffCmd)
}
