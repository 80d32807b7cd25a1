package main

import (
	"github.com/spf13/cobra"

	"github.com/dgallion1/resumedit/internal/doctree"
)

var flattenCmd = &cobra.Command{
	Use:   "flatten <document.json|->",
	Short: "Flatten an editor document into numbered lines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readDocument(cmd, args[0])
		if err != nil {
			return err
		}
		return writeJSON(cmd, doctree.Flatten(doc))
	},
}

func init() {
	rootCmd.AddCommand(flattenCmd)
}
