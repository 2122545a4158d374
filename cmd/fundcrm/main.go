package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/fundcrm/internal/config"
	"github.com/ajitpratap0/fundcrm/internal/equity"
	"github.com/ajitpratap0/fundcrm/internal/insight"
	"github.com/ajitpratap0/fundcrm/internal/persist"
	"github.com/ajitpratap0/fundcrm/internal/schedule"
	"github.com/ajitpratap0/fundcrm/internal/state"
	"github.com/ajitpratap0/fundcrm/internal/store"
)

var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:   "fundcrm",
		Short: "fundcrm: fundraising CRM for founders",
		Long:  "fundcrm tracks investors across fundraising rounds, projects equity dilution, and keeps the pipeline saved locally and remotely.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		mcpCmd(),
		importCmd(),
		exportCmd(),
		equityCmd(),
		roundCmd(),
		vcCmd(),
		noteCmd(),
		scratchpadCmd(),
		statusCmd(),
		healthCmd(),
	)

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil {
		switch cfg.Logging.Level {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg != nil && cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// newRemoteStore returns the configured remote document store. SQLite and
// Neo4j connect lazily, so an unreachable backend shows up as load and save
// errors rather than silently disabling remote saves. The memory backend
// yields nil, leaving persistence local-only.
func newRemoteStore(ctx context.Context, logger *slog.Logger) (store.DocumentStore, error) {
	var remote *store.LazyStore
	switch cfg.Remote.Backend {
	case config.BackendSQLite:
		remote = store.NewLazyStore("sqlite", func(ctx context.Context) (store.DocumentStore, error) {
			logger.Debug("opening sqlite store", "path", cfg.Remote.SQLitePath)
			return store.NewSQLiteStore(ctx, cfg.Remote.SQLitePath)
		})
	case config.BackendNeo4j:
		opts := store.Neo4jOptions{
			URI:      cfg.Neo4j.URI,
			Username: cfg.Neo4j.Username,
			Password: cfg.Neo4j.Password,
			Database: cfg.Neo4j.Database,
		}
		remote = store.NewLazyStore("neo4j", func(ctx context.Context) (store.DocumentStore, error) {
			logger.Debug("connecting to neo4j", "uri", opts.URI)
			return store.NewNeo4jStore(ctx, opts)
		})
	default:
		return nil, nil
	}
	return remote, remote.Connect(ctx)
}

func newLocalStore() (*store.FileLocalStore, error) {
	return store.NewFileLocalStore(cfg.Local.Dir)
}

func newBriefer(logger *slog.Logger) insight.Briefer {
	if cfg.Claude.APIKey == "" {
		return insight.DigestBriefer{}
	}
	return insight.NewClaudeBriefer(cfg.Claude.APIKey, cfg.Claude.Model, logger)
}

func equityOptions() equity.Options {
	return equity.Options{DefaultValuationCap: cfg.Equity.DefaultValuationCap}
}

// session is a loaded CRM state wired to persistence for one command run.
type session struct {
	logger *slog.Logger
	remote store.DocumentStore
	orch   *persist.Orchestrator
	d      *state.Dispatcher
	source persist.Source
}

// openSession connects the stores, loads the user's document and returns a
// dispatcher whose changes are saved by the orchestrator.
func openSession(ctx context.Context, logger *slog.Logger) (*session, error) {
	remote, err := newRemoteStore(ctx, logger)
	if err != nil {
		// Loads fall back to the local copy; saves retry the connection.
		logger.Warn("remote store unavailable", "backend", cfg.Remote.Backend, "error", err)
	}
	local, err := newLocalStore()
	if err != nil {
		if remote != nil {
			_ = remote.Close()
		}
		return nil, fmt.Errorf("opening local store: %w", err)
	}

	orch := persist.New(remote, local, persist.StaticIdentity{UserID: cfg.Identity.UserID}, schedule.RealClock{}, logger, persist.Options{
		Debounce:    cfg.Persist.Debounce,
		BaseDelay:   cfg.Persist.BaseDelay,
		MaxAttempts: cfg.Persist.MaxAttempts,
		KeyPrefix:   cfg.Local.KeyPrefix,
	})
	initial, src, err := orch.Load(ctx)
	if err != nil {
		orch.Close()
		if remote != nil {
			_ = remote.Close()
		}
		return nil, fmt.Errorf("loading state: %w", err)
	}

	d := state.NewDispatcher(initial, state.NewSlogNotifier(logger), logger)
	orch.Watch(d)
	return &session{logger: logger, remote: remote, orch: orch, d: d, source: src}, nil
}

// close flushes pending changes and releases the stores.
func (s *session) close(ctx context.Context) error {
	flushErr := s.orch.Flush(ctx)
	s.orch.Close()
	if s.remote != nil {
		if err := s.remote.Close(); err != nil {
			s.logger.Warn("closing remote store", "error", err)
		}
	}
	if flushErr != nil {
		return fmt.Errorf("saving state: %w", flushErr)
	}
	return nil
}

// withSession runs fn against a loaded session and saves afterwards.
func withSession(cmd *cobra.Command, fn func(s *session) error) (err error) {
	ctx := cmd.Context()
	s, err := openSession(ctx, newLogger())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.close(context.WithoutCancel(ctx)); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(s)
}

// apply dispatches a and turns a rejected action into an error.
func (s *session) apply(a state.Action) (state.Event, error) {
	_, ev := s.d.Dispatch(a)
	if ev.Level == state.LevelError {
		return ev, fmt.Errorf("%s", ev.Message)
	}
	if ev.IsZero() {
		fmt.Println("No changes.")
		return ev, nil
	}
	fmt.Println(ev.Message)
	return ev, nil
}

// resolveRound finds a round by id or case-insensitive name.
func (s *session) resolveRound(ref string) (string, error) {
	st := s.d.State()
	if st.RoundByID(ref) >= 0 {
		return ref, nil
	}
	for i := range st.Rounds {
		if strings.EqualFold(st.Rounds[i].Name, ref) {
			return st.Rounds[i].ID, nil
		}
	}
	return "", fmt.Errorf("round %q not found", ref)
}

// resolveVC finds a VC by id or case-insensitive name.
func (s *session) resolveVC(ref string) (string, error) {
	st := s.d.State()
	if _, ok := st.VCs[ref]; ok {
		return ref, nil
	}
	var match string
	for id, vc := range st.VCs {
		if strings.EqualFold(vc.Name, ref) {
			if match != "" {
				return "", fmt.Errorf("several investors are named %q; use the id", ref)
			}
			match = id
		}
	}
	if match == "" {
		return "", fmt.Errorf("investor %q not found", ref)
	}
	return match, nil
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen]) + "..."
	}
	return s
}
