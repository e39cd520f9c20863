package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/control-theory/vlexplore/internal/filesource"
	"github.com/control-theory/vlexplore/internal/logging"
	"github.com/control-theory/vlexplore/internal/tui"
	"github.com/control-theory/vlexplore/internal/vlogs"
)

// followRefresh is how often the query is re-run while following files
const followRefresh = 2 * time.Second

// runApp initializes and runs the application
func runApp(cmd *cobra.Command, args []string) error {
	// Check if version flag was used
	if v, _ := cmd.Flags().GetBool("version"); v {
		versionCmd.Run(cmd, args)
		return nil
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Filename = cfg.LogFile
	logCfg.Level = cfg.LogLevel
	logger, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("error setting up logging: %w", err)
	}
	defer logger.Sync()

	explorerCfg, err := explorerConfig(cfg)
	if err != nil {
		return err
	}

	var (
		backend tui.Backend
		tail    tui.TailFunc
	)
	if len(cfg.Files) > 0 {
		store, stop, err := loadFiles(cfg.Files, cfg.Follow, logger)
		if err != nil {
			return err
		}
		defer stop()
		backend = store
		explorerCfg.Source = fmt.Sprintf("%d file(s)", len(cfg.Files))
		logger.Info("exploring files", zap.Strings("patterns", cfg.Files), zap.Int("records", store.Len()))
	} else {
		client := newClient(cfg, logger)
		backend = client
		tail = tailFunc(client)
		explorerCfg.Source = client.BaseURL
		logger.Info("exploring server", zap.String("url", client.BaseURL))
	}

	model := tui.New(explorerCfg, backend, tail, logger)

	var p *tea.Program
	if cfg.TestMode {
		// Test mode - no TTY requirements
		p = tea.NewProgram(model, tea.WithInput(nil), tea.WithOutput(os.Stdout))
	} else {
		p = tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	}

	if _, err := p.Run(); err != nil {
		if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
			return fmt.Errorf("TUI requires a real terminal. Try --test-mode for non-interactive testing")
		}
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// explorerConfig maps the command line settings onto the explorer
func explorerConfig(c Config) (tui.Config, error) {
	view, err := tui.ParseView(c.View)
	if err != nil {
		return tui.Config{}, err
	}
	out := tui.Config{
		Query:        c.Query,
		Limit:        c.Limit,
		Since:        c.Since,
		HitsStep:     c.HitsStep,
		GroupBy:      c.GroupBy,
		FieldsLimit:  c.FieldsLimit,
		ContextLines: c.ContextLines,
		View:         view,
		Tail:         c.Tail,
	}
	if len(c.Files) > 0 {
		// exports cover whatever period they were taken over
		out.Since = 0
		if c.Follow {
			out.RefreshInterval = followRefresh
		}
	}
	return out, nil
}

func newClient(c Config, logger *zap.Logger) *vlogs.Client {
	return vlogs.NewClient(vlogs.Options{
		ServerURL: c.ServerURL,
		User:      c.User,
		Password:  c.Password,
		AccountID: c.AccountID,
		ProjectID: c.ProjectID,
		Logger:    logger.Named("vlogs"),
	})
}

func tailFunc(client *vlogs.Client) tui.TailFunc {
	return func(query string) tui.Tailer {
		return vlogs.NewReceiver(client, query, nil)
	}
}

// loadFiles reads the files into a store. Without follow the files are read
// completely before returning, with follow new lines keep arriving in the
// background until stop is called.
func loadFiles(patterns []string, follow bool, logger *zap.Logger) (*filesource.Store, func(), error) {
	reader, err := filesource.NewReader(patterns, follow, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("error setting up file reader: %w", err)
	}
	store := filesource.NewStore()
	records := reader.Start()

	if !follow {
		pump(records, store)
		return store, reader.Stop, nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		pump(records, store)
	}()
	stop := func() {
		reader.Stop()
		<-done
	}
	return store, stop, nil
}

// pump moves records into the store until the channel closes
func pump(records <-chan vlogs.Record, store *filesource.Store) {
	for rec := range records {
		store.Add(rec)
	}
}
