package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/resumedit/internal/analysis"
	"github.com/dgallion1/resumedit/internal/extract"
)

var groupsAnalyze bool

var groupsCmd = &cobra.Command{
	Use:   "groups <lines.json|->",
	Short: "Print the analysis groups and sections of a line snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ls, err := readLines(cmd, args[0])
		if err != nil {
			return err
		}
		if groupsAnalyze {
			annotations, err := extract.Heuristic{}.AnalyzeLines(cmd.Context(), ls)
			if err != nil {
				return err
			}
			n := analysis.Apply(ls, annotations, time.Now())
			logger(cmd).Debug("annotated lines", "count", n)
		}
		groups := analysis.Groups(ls)
		if groups == nil {
			groups = []analysis.Group{}
		}
		sections := analysis.Sections(ls)
		if sections == nil {
			sections = []analysis.Section{}
		}
		return writeJSON(cmd, map[string]any{"groups": groups, "sections": sections})
	},
}

func init() {
	groupsCmd.Flags().BoolVar(&groupsAnalyze, "analyze", false, "annotate the lines with the offline heuristic first")
	rootCmd.AddCommand(groupsCmd)
}
