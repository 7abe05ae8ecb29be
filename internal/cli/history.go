package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/basket/internal/store"
)

// SubmissionView is one ledger row as printed by the CLI.
type SubmissionView struct {
	Seq         int64  `json:"seq"`
	ID          string `json:"id"`
	Fingerprint string `json:"fingerprint"`
	Status      string `json:"status"`
	OrderID     string `json:"orderId,omitempty"`
	Error       string `json:"error,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List order submissions recorded on this machine",
		Long: `List every order submission attempt in the local ledger, oldest first.

Each attempt records the fingerprint of the cart and form it submitted, and
whether the server accepted it. Two attempts with the same fingerprint
submitted the same order.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, false, func(s *session, f *OutputFormatter) error {
				subs, err := s.db.ListSubmissions(cmd.Context())
				if err != nil {
					return f.Fail(ExitCommandError, ErrCodeStorage, "list submissions", err)
				}
				views := make([]SubmissionView, 0, len(subs))
				for _, sub := range subs {
					views = append(views, newSubmissionView(sub))
				}
				if f.JSON() {
					return f.Success(views)
				}
				if len(views) == 0 {
					fmt.Fprintln(f.Writer, "no submissions")
					return nil
				}
				for _, v := range views {
					fmt.Fprintf(f.Writer, "%d %s %s", v.Seq, v.ID, v.Status)
					if v.OrderID != "" {
						fmt.Fprintf(f.Writer, " order=%s", v.OrderID)
					}
					if v.Error != "" {
						fmt.Fprintf(f.Writer, " error=%q", v.Error)
					}
					fmt.Fprintln(f.Writer)
				}
				return nil
			})
		},
	}
}

func newSubmissionView(s store.Submission) SubmissionView {
	return SubmissionView{
		Seq:         s.Seq,
		ID:          s.ID,
		Fingerprint: s.Fingerprint,
		Status:      s.Status,
		OrderID:     s.OrderID,
		Error:       s.Error,
	}
}
