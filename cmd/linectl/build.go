package main

import (
	"github.com/spf13/cobra"

	"github.com/dgallion1/resumedit/internal/builder"
)

var buildMode string

var buildCmd = &cobra.Command{
	Use:   "build <lines.json|->",
	Short: "Build the editor document for a line snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := builder.ParseMode(buildMode)
		if err != nil {
			return err
		}
		ls, err := readLines(cmd, args[0])
		if err != nil {
			return err
		}
		log := logger(cmd)
		doc, used := builder.New(log).Build(ls, mode)
		if used != mode {
			log.Warn("built in fallback mode", "requested", mode, "mode", used)
		}
		return writeJSON(cmd, doc)
	},
}

func init() {
	buildCmd.Flags().StringVarP(&buildMode, "mode", "m", string(builder.ModePlain), "document mode: plain or markdown")
	rootCmd.AddCommand(buildCmd)
}
