package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/basket/internal/cart"
	"github.com/roach88/basket/internal/pricing"
)

// LineView is one cart line as printed by the CLI.
type LineView struct {
	Key       string  `json:"key"`
	ProductID int     `json:"productId"`
	VariantID *int    `json:"variantId,omitempty"`
	Title     string  `json:"title"`
	Price     string  `json:"price"`
	Qty       int     `json:"qty"`
	LineTotal string  `json:"lineTotal"`
	Image     *string `json:"image,omitempty"`
}

// CartView is the cart as printed by the CLI.
type CartView struct {
	Items []LineView `json:"items"`
	Lines int        `json:"lines"`
	Units int        `json:"units"`
	Total string     `json:"total"`
}

func newCartView(c *cart.Store) (CartView, error) {
	items := c.Items()
	view := CartView{
		Items: make([]LineView, 0, len(items)),
		Lines: len(items),
		Units: items.Units(),
	}
	for _, it := range items {
		lt, err := pricing.LineTotal(it)
		if err != nil {
			return CartView{}, err
		}
		view.Items = append(view.Items, LineView{
			Key:       it.Key().String(),
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Title:     it.Title,
			Price:     pricing.Format(it.UnitPrice()),
			Qty:       it.Qty,
			LineTotal: pricing.Format(&lt),
			Image:     it.Image,
		})
	}
	total, err := c.TotalPrice()
	if err != nil {
		return CartView{}, err
	}
	view.Total = pricing.Format(&total)
	return view, nil
}

func writeCartText(w io.Writer, v CartView) {
	if len(v.Items) == 0 {
		fmt.Fprintln(w, "cart is empty")
		return
	}
	for _, l := range v.Items {
		fmt.Fprintf(w, "%-6s %s  %d x %s = %s\n", l.Key, l.Title, l.Qty, l.Price, l.LineTotal)
	}
	fmt.Fprintf(w, "%d lines, %d units, total %s\n", v.Lines, v.Units, v.Total)
}

// outputCart prints the current cart in the configured format.
func outputCart(s *session, f *OutputFormatter) error {
	view, err := newCartView(s.cart)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeGeneric, "compute total", err)
	}
	if f.JSON() {
		return f.Success(view)
	}
	writeCartText(f.Writer, view)
	return nil
}

// cartFailure maps a cart mutation error to an exit error.
func cartFailure(f *OutputFormatter, message string, err error) error {
	if errors.Is(err, cart.ErrInvalidQuantity) || errors.Is(err, cart.ErrInvalidProduct) {
		return f.Fail(ExitCommandError, ErrCodeInput, message, err)
	}
	return f.Fail(ExitCommandError, ErrCodeStorage, message, err)
}

func parseProductID(f *OutputFormatter, arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, f.Fail(ExitCommandError, ErrCodeInput,
			fmt.Sprintf("invalid product id %q: must be a positive integer", arg), nil)
	}
	return id, nil
}

// keyFlags holds the --variant flag shared by the key-addressed commands.
type keyFlags struct {
	variant int
}

func (k *keyFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&k.variant, "variant", 0, "variant id")
}

func (k *keyFlags) variantID(cmd *cobra.Command) *int {
	if !cmd.Flags().Changed("variant") {
		return nil
	}
	v := k.variant
	return &v
}

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	keyFlags
	Title string
	Price string
	Image string
	Qty   int
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to the cart",
		Long: `Add a product to the cart.

Adding a product that is already in the cart increases its quantity and
keeps the price recorded when it was first added.

Example:
  basket add 12 --title "Milk" --price 650 --qty 2
  basket add 12 --variant 3 --title "Milk 1L" --price 720`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(opts, args[0], cmd)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&opts.Title, "title", "", "product title (required)")
	_ = cmd.MarkFlagRequired("title")
	cmd.Flags().StringVar(&opts.Price, "price", "", "unit price, e.g. 2.49 (required)")
	_ = cmd.MarkFlagRequired("price")
	cmd.Flags().StringVar(&opts.Image, "image", "", "image URL")
	cmd.Flags().IntVar(&opts.Qty, "qty", 1, "quantity to add")

	return cmd
}

func runAdd(opts *AddOptions, arg string, cmd *cobra.Command) error {
	return withSession(cmd, opts.RootOptions, false, func(s *session, f *OutputFormatter) error {
		id, err := parseProductID(f, arg)
		if err != nil {
			return err
		}
		price, err := pricing.ParsePrice(opts.Price)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeInput, "invalid --price", err)
		}
		p := cart.Product{
			ProductID: id,
			VariantID: opts.variantID(cmd),
			Title:     opts.Title,
			Price:     price,
		}
		if cmd.Flags().Changed("image") {
			img := opts.Image
			p.Image = &img
		}
		if err := s.cart.AddToCart(p, opts.Qty); err != nil {
			return cartFailure(f, "add to cart", err)
		}
		s.logger.Info("added to cart", "key", p.Key(), "qty", opts.Qty)
		return outputCart(s, f)
	})
}

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	kf := &keyFlags{}

	cmd := &cobra.Command{
		Use:   "remove <product-id>",
		Short: "Remove a line from the cart",
		Long: `Remove a line from the cart. Removing a line that is not in the cart
does nothing.

Example:
  basket remove 12 --variant 3`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, false, func(s *session, f *OutputFormatter) error {
				id, err := parseProductID(f, args[0])
				if err != nil {
					return err
				}
				key := cart.NewKey(id, kf.variantID(cmd))
				if err := s.cart.RemoveFromCart(key); err != nil {
					return cartFailure(f, "remove from cart", err)
				}
				s.logger.Info("removed from cart", "key", key)
				return outputCart(s, f)
			})
		},
	}

	kf.register(cmd)
	return cmd
}

// NewQtyCommand creates the qty command.
func NewQtyCommand(rootOpts *RootOptions) *cobra.Command {
	kf := &keyFlags{}

	cmd := &cobra.Command{
		Use:   "qty <product-id> <n>",
		Short: "Set the quantity of a cart line",
		Long: `Set the quantity of a cart line exactly. A quantity of 0 removes the line.

Example:
  basket qty 12 4
  basket qty 12 0 --variant 3`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, false, func(s *session, f *OutputFormatter) error {
				id, err := parseProductID(f, args[0])
				if err != nil {
					return err
				}
				n, err := strconv.Atoi(args[1])
				if err != nil || n < 0 {
					return f.Fail(ExitCommandError, ErrCodeInput,
						fmt.Sprintf("invalid quantity %q: must be a non-negative integer", args[1]), nil)
				}
				key := cart.NewKey(id, kf.variantID(cmd))
				if err := s.cart.UpdateQty(key, n); err != nil {
					return cartFailure(f, "update quantity", err)
				}
				s.logger.Info("quantity updated", "key", key, "qty", n)
				return outputCart(s, f)
			})
		},
	}

	kf.register(cmd)
	return cmd
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "clear",
		Short:         "Empty the cart",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, false, func(s *session, f *OutputFormatter) error {
				if err := s.cart.ClearCart(); err != nil {
					return cartFailure(f, "clear cart", err)
				}
				s.logger.Info("cart cleared")
				return outputCart(s, f)
			})
		},
	}
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the cart with line totals",
		Long: `Print the cart: every line with its quantity, unit price and line total,
followed by the number of lines, the number of units and the total price.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, false, outputCart)
		},
	}
}
