package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/keyhawk/internal/api"
	"github.com/telhawk-systems/keyhawk/internal/config"
	"github.com/telhawk-systems/keyhawk/internal/credentials"
	"github.com/telhawk-systems/keyhawk/internal/logging"
	"github.com/telhawk-systems/keyhawk/pkg/output"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "khawk",
	Short: "Keygen licensing admin CLI",
	Long: `khawk is an admin console for a Keygen licensing account.

Manage products, policies, licenses, users and machines from your terminal,
or run 'khawk serve' for the local dashboard backend.`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
}

// Execute runs the root command and reports any error.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		reportError(err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.khawk/config.yaml)")
	rootCmd.PersistentFlags().String("profile", "", "profile to use (default: current profile)")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "output format: table, json, yaml")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
}

func initConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		output.Warn("Could not load config: %v", err)
		cfg = config.Default()
	}

	level := cfg.Logging.Level
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	logger = logging.NewWithWriter(output.Stderr, logging.ParseLevel(level), cfg.Logging.Format)

	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		output.DisableColor()
	}
	return nil
}

func outputFormat(cmd *cobra.Command) string {
	f, _ := cmd.Flags().GetString("output")
	return f
}

func outputFormatValue(cmd *cobra.Command) (output.Format, error) {
	return output.ParseFormat(outputFormat(cmd))
}

// reportError prints err, field by field for validation failures, with a
// login hint when credentials are missing or were rejected.
func reportError(err error) {
	var apiErr *api.Error
	switch {
	case errors.As(err, &apiErr) && len(apiErr.ValidationErrors) > 0:
		output.Error("%s", apiErr.Message)
		for _, v := range apiErr.ValidationErrors {
			output.FieldError(v.Field, v.Message)
		}
	case errors.Is(err, api.ErrUnauthorized):
		output.Error("%v", err)
		output.Warn("Credentials were rejected. Run 'khawk login' to sign in again.")
	case errors.Is(err, credentials.ErrNotLoggedIn), errors.Is(err, api.ErrMissingAccount):
		output.Error("Not logged in")
		output.Warn("Run 'khawk login' or set KHAWK_ACCOUNT_ID and KHAWK_TOKEN.")
	default:
		output.Error("%v", err)
	}
}
