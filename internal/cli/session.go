package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/basket/internal/api"
	"github.com/roach88/basket/internal/canonical"
	"github.com/roach88/basket/internal/cart"
	"github.com/roach88/basket/internal/config"
	"github.com/roach88/basket/internal/store"
	"github.com/roach88/basket/internal/syncer"
)

// session is the per-invocation wiring of config, database and cart.
// client and engine are set by connect.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *store.Store
	cart   *cart.Store
	client *api.Client
	engine *syncer.Engine
}

func newFormatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}
}

func newLogger(w io.Writer, verbose bool, level slog.Level) *slog.Logger {
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func loadConfig(opts *RootOptions) (*config.Config, error) {
	return config.Load(config.Options{
		Path: opts.ConfigPath,
		Overrides: config.Overrides{
			APIURL: opts.API,
			Token:  opts.Token,
			DB:     opts.DB,
		},
	})
}

func openSession(cmd *cobra.Command, opts *RootOptions, f *OutputFormatter) (*session, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeConfig, "load config", err)
	}
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose, cfg.LogLevel)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeStorage, "create database directory", err)
	}
	logger.Debug("opening database", "path", cfg.DBPath)
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeStorage, "open database", err)
	}

	c, err := cart.Open(cmd.Context(), db, cart.WithLogger(logger))
	if err != nil {
		db.Close()
		return nil, f.Fail(ExitCommandError, ErrCodeStorage, "load cart", err)
	}

	return &session{cfg: cfg, logger: logger, db: db, cart: c}, nil
}

// connect builds the marketplace client and sync engine. It requires a token.
func (s *session) connect(f *OutputFormatter) error {
	if s.cfg.Token == "" {
		return f.Fail(ExitCommandError, ErrCodeAuth,
			fmt.Sprintf("no token: set --token or %s", config.EnvToken), nil)
	}
	client, err := api.New(s.cfg.APIURL, s.cfg.Token,
		api.WithTimeout(s.cfg.Timeout),
		api.WithLogger(s.logger),
	)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "create client", err)
	}
	s.client = client
	s.engine = syncer.New(s.cart, client, s.db, canonical.SessionKey(s.cfg.Token),
		syncer.WithLogger(s.logger))
	return nil
}

func (s *session) Close() {
	if err := s.db.Close(); err != nil {
		s.logger.Error("error closing database", "error", err)
	}
}

// withSession opens a session, runs fn and closes it. connect additionally
// builds the remote side.
func withSession(cmd *cobra.Command, opts *RootOptions, connect bool, fn func(*session, *OutputFormatter) error) error {
	f := newFormatter(cmd, opts)
	s, err := openSession(cmd, opts, f)
	if err != nil {
		return err
	}
	defer s.Close()

	if connect {
		if err := s.connect(f); err != nil {
			return err
		}
	}
	return fn(s, f)
}

// remoteFailure maps a marketplace error to an exit error.
func remoteFailure(f *OutputFormatter, message string, err error) error {
	if api.IsUnauthorized(err) {
		return f.Fail(ExitFailure, ErrCodeAuth, message, err)
	}
	return f.Fail(ExitFailure, ErrCodeRemote, message, err)
}
