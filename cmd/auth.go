package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/keyhawk/internal/api"
	"github.com/telhawk-systems/keyhawk/internal/config"
	"github.com/telhawk-systems/keyhawk/pkg/output"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to a licensing account",
	Long: `Authenticate with an account and save the credentials to the active profile.

Either exchange an email and password for a new admin token, or store an
existing token with --token.`,
	Example: `  khawk login --account my-account --email admin@example.com --password secret
  khawk login --account my-account --token admin-...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, a *app) error {
			accountID, _ := cmd.Flags().GetString("account")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			token, _ := cmd.Flags().GetString("token")
			baseURL, _ := cmd.Flags().GetString("base-url")

			if accountID == "" {
				return fmt.Errorf("account is required")
			}
			if token == "" && (email == "" || password == "") {
				return fmt.Errorf("either --token or both --email and --password are required")
			}

			if token == "" {
				tok, err := a.loginClient(accountID, baseURL).Tokens.Login(ctx, email, password)
				if err != nil {
					return fmt.Errorf("login failed: %w", err)
				}
				token = tok.Attributes.Token
			}

			if err := a.provider.Save(ctx, api.Credentials{
				AccountID: accountID,
				Token:     token,
				BaseURL:   baseURL,
			}); err != nil {
				return fmt.Errorf("failed to save credentials: %w", err)
			}

			if email != "" && a.cfg.Credentials.Backend != config.BackendRedis {
				if err := a.cfg.UpdateProfile(a.profile, func(p *config.Profile) {
					p.Email = email
				}); err != nil {
					return fmt.Errorf("failed to save profile: %w", err)
				}
			}

			who := accountID
			if email != "" {
				who = email
			}
			output.Success("Successfully logged in as %s", who)
			output.Info("Profile '%s' saved", a.profile)
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out of the active profile",
	Long:  "Remove the stored token for the active profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, a *app) error {
			if err := a.provider.Clear(ctx); err != nil {
				return err
			}
			output.Success("Successfully logged out from profile '%s'", a.profile)
			return nil
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Display the authenticated identity",
	Long:  "Show the account and the user or token the stored credentials belong to",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, a *app) error {
			me, err := a.keygen.Tokens.Me(ctx)
			if err != nil {
				return err
			}
			creds, _ := a.provider.Load(ctx)
			name := me.Attributes.FullName
			if name == "" {
				name = me.Attributes.Name
			}

			if a.format != output.FormatTable {
				return output.Render(a.format, map[string]any{
					"profile":  a.profile,
					"account":  creds.AccountID,
					"base_url": creds.BaseURL,
					"type":     me.Type,
					"id":       me.ID,
					"name":     name,
					"email":    me.Attributes.Email,
					"role":     me.Attributes.Role,
				}, nil)
			}

			output.KeyValue([][2]string{
				{"Profile", a.profile},
				{"Account", creds.AccountID},
				{"API", creds.BaseURL},
				{"Identity", me.Type + "/" + me.ID},
				{"Name", name},
				{"Email", me.Attributes.Email},
				{"Role", me.Attributes.Role},
			})
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)

	loginCmd.Flags().StringP("account", "a", "", "Account ID or slug")
	loginCmd.Flags().StringP("email", "e", "", "Admin email")
	loginCmd.Flags().StringP("password", "p", "", "Admin password")
	loginCmd.Flags().String("token", "", "Existing admin token")
	loginCmd.Flags().String("base-url", "", "API base URL (default from config)")
}
