package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/basket/internal/api"
	"github.com/roach88/basket/internal/marketplace"
)

// shutdownTimeout bounds how long in-flight requests get on shutdown.
const shutdownTimeout = 5 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr      string
	UserToken string
	UserName  string
	UserEmail string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an in-memory marketplace backend for development",
		Long: `Run an in-memory marketplace backend for development.

The backend serves the account, cart and order endpoints the other commands
talk to. One user is registered under --user-token. State is lost on exit.

Example:
  basket serve --addr 127.0.0.1:8080
  BASKET_TOKEN=dev-token basket --api http://127.0.0.1:8080 checkout --method card`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&opts.UserToken, "user-token", "dev-token", "token of the registered user")
	cmd.Flags().StringVar(&opts.UserName, "user-name", "Dev User", "name of the registered user")
	cmd.Flags().StringVar(&opts.UserEmail, "user-email", "dev@example.com", "email of the registered user")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts.RootOptions)
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose, slog.LevelInfo)

	if opts.UserToken == "" {
		return f.Fail(ExitCommandError, ErrCodeInput, "--user-token must not be empty", nil)
	}

	backend := marketplace.New(marketplace.WithLogger(logger))
	userID := backend.AddUser(opts.UserToken, api.User{Name: opts.UserName, Email: opts.UserEmail})

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeInput, "listen", err)
	}

	srv := &http.Server{
		Handler:           backend,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	url := "http://" + ln.Addr().String()
	logger.Info("marketplace listening", "url", url, "user_id", userID)
	if f.JSON() {
		_ = f.Success(map[string]any{"url": url, "userId": userID, "token": opts.UserToken})
	} else {
		fmt.Fprintf(f.Writer, "listening on %s\n", url)
	}

	select {
	case err := <-errCh:
		return f.Fail(ExitFailure, ErrCodeGeneric, "serve", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return f.Fail(ExitFailure, ErrCodeGeneric, "shutdown", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return f.Fail(ExitFailure, ErrCodeGeneric, "serve", err)
	}
	logger.Info("stopped gracefully")
	return nil
}
