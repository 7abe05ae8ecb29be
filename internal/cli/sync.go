package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/basket/internal/canonical"
	"github.com/roach88/basket/internal/syncer"
)

// PullResult is the output of the pull command.
type PullResult struct {
	Pulled bool     `json:"pulled"`
	Cart   CartView `json:"cart"`
}

// NewPullCommand creates the pull command.
func NewPullCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Merge the account's server cart into the local cart",
		Long: `Merge the account's server cart into the local cart.

The merge happens once per session (per token). Quantities of lines present
on both sides are added; local titles and prices win. Later pulls do nothing
until the session is reset with 'basket sync-state --reset'.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, true, func(s *session, f *OutputFormatter) error {
				pulled, err := s.engine.FetchCart(cmd.Context())
				if err != nil {
					return remoteFailure(f, "pull cart", err)
				}
				view, err := newCartView(s.cart)
				if err != nil {
					return f.Fail(ExitFailure, ErrCodeGeneric, "compute total", err)
				}
				if f.JSON() {
					return f.Success(PullResult{Pulled: pulled, Cart: view})
				}
				if pulled {
					fmt.Fprintln(f.Writer, "merged server cart")
				} else {
					fmt.Fprintln(f.Writer, "already reconciled")
				}
				writeCartText(f.Writer, view)
				return nil
			})
		},
	}
}

// PushResult is the output of the push command.
type PushResult struct {
	Lines int `json:"lines"`
	Units int `json:"units"`
}

// NewPushCommand creates the push command.
func NewPushCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Replace the account's server cart with the local cart",
		Args:  cobra.NoArgs,
		Long: `Replace the account's server cart with the local cart. Lines removed
locally are removed on the server too.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, true, func(s *session, f *OutputFormatter) error {
				items := s.cart.Items()
				if err := s.engine.SyncCart(cmd.Context()); err != nil {
					return remoteFailure(f, "push cart", err)
				}
				res := PushResult{Lines: len(items), Units: items.Units()}
				if f.JSON() {
					return f.Success(res)
				}
				fmt.Fprintf(f.Writer, "pushed %d lines, %d units\n", res.Lines, res.Units)
				return nil
			})
		},
	}
}

// SyncStateResult is the output of the sync-state command.
type SyncStateResult struct {
	Session string       `json:"session"`
	State   syncer.State `json:"state"`
}

// NewSyncStateCommand creates the sync-state command.
func NewSyncStateCommand(rootOpts *RootOptions) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "sync-state",
		Short: "Show or reset the session's reconciliation state",
		Long: `Show whether the server cart has been merged for the current token
("reconciled") or not yet ("local"). With --reset the next pull merges again.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, true, func(s *session, f *OutputFormatter) error {
				ctx := cmd.Context()
				if reset {
					if err := s.engine.Reset(ctx); err != nil {
						return f.Fail(ExitCommandError, ErrCodeStorage, "reset sync state", err)
					}
				}
				state, err := s.engine.State(ctx)
				if err != nil {
					return f.Fail(ExitCommandError, ErrCodeStorage, "read sync state", err)
				}
				res := SyncStateResult{Session: canonical.SessionKey(s.cfg.Token), State: state}
				if f.JSON() {
					return f.Success(res)
				}
				fmt.Fprintln(f.Writer, res.State)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "forget the merge so the next pull merges again")
	return cmd
}
