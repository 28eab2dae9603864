package main

import (
	"github.com/spf13/cobra"
)

type runFlags struct {
	configPath    string
	foundation    string
	indic         string
	international string
	out           string
	records       string
	tui           bool
	history       bool
	metricsFile   string
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "docqa",
		Short:         "Compare document question answering across language categories",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file (default ./config.yaml, then ~/.config/docqa/config.yaml)")
	root.AddCommand(
		buildRunCmd(&configPath),
		buildHistoryCmd(&configPath),
		buildShowCmd(&configPath),
	)
	return root
}

func buildRunCmd(configPath *string) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a QA session over one document per category",
		Long: `Run the configured question battery against each given document.

Every category is optional, but at least one document is required. Questions
come from the config file; categories without a document are left out.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.configPath = *configPath
			return runSession(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.foundation, "foundation", "", "English document (PDF)")
	cmd.Flags().StringVar(&f.indic, "indic", "", "Hindi document (PDF)")
	cmd.Flags().StringVar(&f.international, "international", "", "French document (PDF)")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Write the comparison table to this file (.csv, .json or .xlsx)")
	cmd.Flags().StringVar(&f.records, "records", "", "Write per-category question/answer/context records as JSON")
	cmd.Flags().BoolVar(&f.tui, "tui", false, "Browse the results interactively")
	cmd.Flags().BoolVar(&f.history, "history", false, "Save the session to the history database")
	cmd.Flags().StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics in textfile format")
	return cmd
}

func buildHistoryCmd(configPath *string) *cobra.Command {
	var (
		dbPath string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, *configPath, dbPath, limit)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "History database (default from config)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of sessions (0 for all)")
	return cmd
}

func buildShowCmd(configPath *string) *cobra.Command {
	var (
		dbPath string
		out    string
		tui    bool
	)
	cmd := &cobra.Command{
		Use:   "show [session-id]",
		Short: "Show the comparison table of a saved session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, *configPath, dbPath, args[0], out, tui)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "History database (default from config)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Export the table to this file (.csv, .json or .xlsx)")
	cmd.Flags().BoolVar(&tui, "tui", false, "Browse the session interactively")
	return cmd
}
