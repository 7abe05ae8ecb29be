package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/basket/internal/checkout"
)

// CheckoutOptions holds flags for the checkout command.
type CheckoutOptions struct {
	*RootOptions
	Method      string
	Address     string
	City        string
	Phone       string
	SaveAddress bool
}

// CheckoutResult is the output of a successful checkout.
type CheckoutResult struct {
	OrderID   string `json:"orderId"`
	AttemptID string `json:"attemptId"`
	Redirect  string `json:"redirect,omitempty"`
}

// pathNavigator hands the redirect path to the waiting command.
type pathNavigator chan string

func (n pathNavigator) Navigate(path string) {
	select {
	case n <- path:
	default:
	}
}

// NewCheckoutCommand creates the checkout command.
func NewCheckoutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckoutOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for the cart",
		Long: `Place an order for the cart.

The server cart is merged once for the session, then replaced with the local
cart, then the order is submitted. Shipping fields left empty are taken from
the account profile. The local cart is cleared only after the server accepts
the order. On failure the cart is kept and the command can be run again.

Example:
  basket checkout --method card --address "1 Main St" --city Almaty --phone 555-0100
  basket checkout --method cash --save-address`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckout(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Method, "method", "", "payment method, e.g. card or cash (required)")
	_ = cmd.MarkFlagRequired("method")
	cmd.Flags().StringVar(&opts.Address, "address", "", "shipping address")
	cmd.Flags().StringVar(&opts.City, "city", "", "shipping city")
	cmd.Flags().StringVar(&opts.Phone, "phone", "", "contact phone")
	cmd.Flags().BoolVar(&opts.SaveAddress, "save-address", false, "store the shipping fields on the account profile")

	return cmd
}

func runCheckout(opts *CheckoutOptions, cmd *cobra.Command) error {
	return withSession(cmd, opts.RootOptions, true, func(s *session, f *OutputFormatter) error {
		ctx := cmd.Context()

		// A failed merge is retried on the next command; checkout goes on
		// with the local cart.
		if _, err := s.engine.FetchCart(ctx); err != nil {
			s.logger.Warn("server cart not merged", "error", err)
		}

		nav := make(pathNavigator, 1)
		tx := checkout.New(checkout.Deps{
			Market:    s.client,
			Sync:      s.engine,
			Cart:      s.cart,
			Ledger:    s.db,
			Navigator: nav,
		},
			checkout.WithLogger(s.logger),
			checkout.WithRedirectDelay(s.cfg.RedirectDelay),
			checkout.WithOnTransition(func(from, to checkout.Status) {
				s.logger.Debug("checkout transition", "from", from, "to", to)
			}),
		)
		defer tx.Wait()

		if err := tx.Begin(ctx); err != nil {
			if checkout.IsLoginRequired(err) {
				return f.Fail(ExitFailure, ErrCodeAuth, "checkout", err)
			}
			return remoteFailure(f, "checkout", err)
		}

		sh := tx.Shipping()
		override := func(dst *string, v string) {
			if v != "" {
				*dst = v
			}
		}
		override(&sh.Address, opts.Address)
		override(&sh.City, opts.City)
		override(&sh.Phone, opts.Phone)
		if err := tx.SetShipping(sh); err != nil {
			return f.Fail(ExitFailure, ErrCodeGeneric, "checkout", err)
		}
		if err := tx.SetPaymentMethod(opts.Method); err != nil {
			return f.Fail(ExitFailure, ErrCodeGeneric, "checkout", err)
		}
		if err := tx.SetSaveProfile(opts.SaveAddress); err != nil {
			return f.Fail(ExitFailure, ErrCodeGeneric, "checkout", err)
		}

		orderID, err := tx.PlaceOrder(ctx)
		if err != nil {
			var ve *checkout.ValidationError
			if errors.As(err, &ve) {
				_ = f.Error(ErrCodeValidation, "checkout: "+ve.Error(), map[string]any{
					"code":   ve.Code,
					"fields": ve.Fields,
				})
				return WrapExitError(ExitFailure, "checkout", err)
			}
			return f.Fail(ExitFailure, ErrCodeOrder, "checkout", err)
		}

		res := CheckoutResult{OrderID: orderID.String(), AttemptID: tx.AttemptID()}
		select {
		case res.Redirect = <-nav:
		case <-ctx.Done():
			tx.Abandon()
		}

		if f.JSON() {
			return f.Success(res)
		}
		fmt.Fprintf(f.Writer, "order %s placed\n", res.OrderID)
		if res.Redirect != "" {
			fmt.Fprintf(f.Writer, "redirect %s\n", res.Redirect)
		}
		return nil
	})
}
