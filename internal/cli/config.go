package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ConfigView is the effective configuration with the token redacted.
type ConfigView struct {
	Source        string `json:"source,omitempty"`
	APIURL        string `json:"api_url"`
	Token         string `json:"token"`
	DB            string `json:"db"`
	Timeout       string `json:"timeout"`
	LogLevel      string `json:"log_level"`
	RedirectDelay string `json:"redirect_delay"`
}

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after applying defaults, the config file,
BASKET_* environment variables and flags, in that order. The token is
redacted.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(cmd, rootOpts)
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeConfig, "load config", err)
			}
			v := ConfigView{
				Source:        cfg.Source,
				APIURL:        cfg.APIURL,
				Token:         cfg.RedactedToken(),
				DB:            cfg.DBPath,
				Timeout:       cfg.Timeout.String(),
				LogLevel:      cfg.LogLevel.String(),
				RedirectDelay: cfg.RedirectDelay.String(),
			}
			if f.JSON() {
				return f.Success(v)
			}
			w := f.Writer
			if v.Source != "" {
				fmt.Fprintf(w, "# from %s\n", v.Source)
			}
			fmt.Fprintf(w, "api_url: %s\n", v.APIURL)
			fmt.Fprintf(w, "token: %s\n", v.Token)
			fmt.Fprintf(w, "db: %s\n", v.DB)
			fmt.Fprintf(w, "timeout: %s\n", v.Timeout)
			fmt.Fprintf(w, "log_level: %s\n", v.LogLevel)
			fmt.Fprintf(w, "redirect_delay: %s\n", v.RedirectDelay)
			return nil
		},
	}
}
