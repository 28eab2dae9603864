package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/evaluator"
	"docqa/internal/history"
	"docqa/internal/logger"
	"docqa/internal/session"
	"docqa/internal/tui"
)

// answerCellWidth bounds answer cells in the terminal table.
const answerCellWidth = 40

func loadConfig(path string) (*config.AppConfig, error) {
	if path == "" {
		cfg, _, err := config.LoadDefault()
		return cfg, err
	}
	return config.Load(path)
}

// sessionInput maps the document flags and configured questions to runner
// input. Categories without a document are dropped.
func sessionInput(cfg *config.AppConfig, f *runFlags) (map[string]string, map[string][]string, map[domain.Category]bool) {
	paths := map[string]string{}
	for cat, path := range map[domain.Category]string{
		domain.Foundation:    f.foundation,
		domain.Indic:         f.indic,
		domain.International: f.international,
	} {
		if path != "" {
			paths[string(cat)] = path
		}
	}
	questions := map[string][]string{}
	active := map[domain.Category]bool{}
	for name := range paths {
		questions[name] = cfg.Questions[name]
		active[domain.Category(name)] = true
	}
	return paths, questions, active
}

func runSession(cmd *cobra.Command, f *runFlags) error {
	cfg, err := loadConfig(f.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	paths, questions, active := sessionInput(cfg, f)
	if len(paths) == 0 {
		return errors.New("at least one of --foundation, --indic or --international is required")
	}
	log := logger.New(cfg.Logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, active, log, progressObserver(log))
	if err != nil {
		return err
	}
	defer a.Close()

	results, runErr := a.runner.RunQASession(ctx, paths, questions)
	var sessErr *domain.SessionError
	if runErr != nil {
		if !errors.As(runErr, &sessErr) || sessErr.Results == nil {
			return runErr
		}
		results = sessErr.Results
		log.WithError(runErr).Warn("session ended early, reporting partial results")
	}

	table := evaluator.GenerateComparisonTable(results)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "session %s\n", results.ID)
	fmt.Fprintln(out, tui.RenderTable(table, answerCellWidth))
	fmt.Fprint(out, tui.RenderSummary(evaluator.Summarize(results, table)))

	if f.out != "" {
		if err := exportTable(table, f.out); err != nil {
			return err
		}
		log.WithField("path", f.out).Info("comparison table written")
	}
	if f.records != "" {
		if err := writeJSONFile(f.records, results.Records()); err != nil {
			return err
		}
	}
	if f.history || cfg.History.Enabled {
		if err := saveHistory(ctx, cfg.History.Path, results, table); err != nil {
			log.WithError(err).Warn("session not saved to history")
		}
	}
	metricsFile := f.metricsFile
	if metricsFile == "" {
		metricsFile = cfg.Metrics.Textfile
	}
	if metricsFile != "" {
		if err := a.metrics.WriteTextfile(metricsFile); err != nil {
			log.WithError(err).Warn("metrics not written")
		}
	}
	if f.tui {
		if _, err := tea.NewProgram(tui.New(results, table), tea.WithAltScreen()).Run(); err != nil {
			return err
		}
	}
	return runErr
}

func progressObserver(log logrus.FieldLogger) session.Observer {
	return func(e session.Event) {
		entry := log.WithFields(logrus.Fields{"phase": e.Phase, "category": e.Category})
		switch {
		case e.Err != nil:
			entry.WithError(e.Err).Warn("category event")
		case e.Phase == session.PhaseAnswering && e.Result != nil:
			entry.WithFields(logrus.Fields{"index": e.Index, "status": e.Result.Status}).Info("question answered")
		default:
			entry.Debug("session event")
		}
	}
}

func exportTable(table *evaluator.ComparisonTable, path string) error {
	format, err := evaluator.FormatFromPath(path)
	if err != nil {
		return err
	}
	return writeFile(path, func(w io.Writer) error { return table.Write(w, format) })
}

func writeJSONFile(path string, v any) error {
	return writeFile(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	})
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f)
}

func saveHistory(ctx context.Context, path string, results *domain.SessionResults, table *evaluator.ComparisonTable) error {
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	// the run context may already be cancelled when a session was interrupted
	return store.SaveSession(context.WithoutCancel(ctx), results, table)
}

func openHistory(configPath, dbPath string) (*history.Store, error) {
	if dbPath == "" {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		dbPath = cfg.History.Path
	}
	return history.Open(dbPath)
}

func runHistory(cmd *cobra.Command, configPath, dbPath string, limit int) error {
	store, err := openHistory(configPath, dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	entries, err := store.ListSessions(cmd.Context(), limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "no saved sessions")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s  %s  %-40v rows=%d\n", e.ID, e.StartedAt.Local().Format("2006-01-02 15:04:05"), e.Categories, e.Rows)
	}
	return nil
}

func runShow(cmd *cobra.Command, configPath, dbPath, id, out string, browse bool) error {
	store, err := openHistory(configPath, dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	sess, err := store.GetSession(cmd.Context(), id)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "session %s\n", sess.ID)
	fmt.Fprintln(w, tui.RenderTable(sess.Table, answerCellWidth))
	fmt.Fprint(w, tui.RenderSummary(evaluator.Summarize(sess.Results, sess.Table)))
	if out != "" {
		if err := exportTable(sess.Table, out); err != nil {
			return err
		}
	}
	if browse {
		_, err := tea.NewProgram(tui.New(sess.Results, sess.Table), tea.WithAltScreen()).Run()
		return err
	}
	return nil
}
