package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/resumedit/internal/doctree"
	"github.com/dgallion1/resumedit/internal/lines"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "linectl",
	Short:         "Build, flatten, diff and group resume lines offline",
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// readInput reads a file, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// readLines accepts either a bare array of lines or the {"lines": [...]}
// envelope returned by the lines endpoint. The result is sorted.
func readLines(cmd *cobra.Command, path string) ([]lines.Line, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}
	var ls []lines.Line
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		var env struct {
			Lines []lines.Line `json:"lines"`
		}
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		ls = env.Lines
	} else if err := json.Unmarshal(data, &ls); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	lines.Sort(ls)
	if err := lines.Validate(ls); err != nil {
		logger(cmd).Warn("line numbers are not contiguous", "file", path, "error", err)
	}
	return ls, nil
}

func readDocument(cmd *cobra.Command, path string) (*doctree.Document, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}
	doc, err := doctree.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
