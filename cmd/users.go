package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/keyhawk/internal/keygen"
	"github.com/telhawk-systems/keyhawk/pkg/output"
)

var usersCmd = &cobra.Command{
	Use:     "users",
	Aliases: []string{"user"},
	Short:   "User management",
	Long:    "Create, list, ban and manage users of the account",
}

var usersListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List users",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		role, _ := cmd.Flags().GetString("role")
		return run(cmd, func(ctx context.Context, a *app) error {
			list, err := a.keygen.Users.List(ctx, status, role, listOptions(cmd))
			if err != nil {
				return fmt.Errorf("failed to list users: %w", err)
			}
			return renderList(a, cmd, "users", list,
				[]string{"ID", "Name", "Email", "Role", "Status", "Created"},
				func(u keygen.Resource[keygen.User]) []string {
					return []string{
						u.ID,
						u.Attributes.DisplayName(),
						u.Attributes.Email,
						orDash(u.Attributes.Role),
						orDash(u.Attributes.Status),
						formatTime(u.Attributes.Created),
					}
				})
		})
	},
}

var usersGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get a user by ID or email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, a *app) error {
			u, err := a.keygen.Users.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return renderOne(a, u, [][2]string{
				{"Name", u.Attributes.DisplayName()},
				{"Email", u.Attributes.Email},
				{"Role", orDash(u.Attributes.Role)},
				{"Status", orDash(u.Attributes.Status)},
				{"Metadata", formatMetadata(u.Attributes.Metadata)},
				{"Created", formatTime(u.Attributes.Created)},
			})
		})
	},
}

func userInput(cmd *cobra.Command) (keygen.UserInput, error) {
	first, _ := cmd.Flags().GetString("first-name")
	last, _ := cmd.Flags().GetString("last-name")
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	role, _ := cmd.Flags().GetString("role")
	metadata, err := metadataFlag(cmd)
	if err != nil {
		return keygen.UserInput{}, err
	}
	return keygen.UserInput{
		FirstName: first,
		LastName:  last,
		Email:     email,
		Password:  password,
		Role:      role,
		Metadata:  metadata,
	}, nil
}

var usersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := userInput(cmd)
		if err != nil {
			return err
		}
		return run(cmd, func(ctx context.Context, a *app) error {
			u, err := a.keygen.Users.Create(ctx, in)
			if err != nil {
				return err
			}
			if a.format != output.FormatTable {
				return output.Render(a.format, u, nil)
			}
			output.Success("Created user %s (%s)", u.Attributes.Email, u.ID)
			return nil
		})
	},
}

var usersUpdateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Update a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := userInput(cmd)
		if err != nil {
			return err
		}
		return run(cmd, func(ctx context.Context, a *app) error {
			u, err := a.keygen.Users.Update(ctx, args[0], in)
			if err != nil {
				return err
			}
			if a.format != output.FormatTable {
				return output.Render(a.format, u, nil)
			}
			output.Success("Updated user %s", u.ID)
			return nil
		})
	},
}

func newUserActionCmd(use, short, done string, action func(ctx context.Context, a *app, id string) (*keygen.Resource[keygen.User], error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app) error {
				u, err := action(ctx, a, args[0])
				if err != nil {
					return err
				}
				if u != nil && a.format != output.FormatTable {
					return output.Render(a.format, u, nil)
				}
				output.Success("%s user %s", done, args[0])
				return nil
			})
		},
	}
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersGetCmd)
	usersCmd.AddCommand(usersCreateCmd)
	usersCmd.AddCommand(usersUpdateCmd)
	usersCmd.AddCommand(newDeleteCmd("user", func(ctx context.Context, a *app, id string) error {
		return a.keygen.Users.Delete(ctx, id)
	}))
	usersCmd.AddCommand(newUserActionCmd("ban", "Ban a user", "Banned",
		func(ctx context.Context, a *app, id string) (*keygen.Resource[keygen.User], error) {
			return a.keygen.Users.Ban(ctx, id)
		}))
	usersCmd.AddCommand(newUserActionCmd("unban", "Lift a user ban", "Unbanned",
		func(ctx context.Context, a *app, id string) (*keygen.Resource[keygen.User], error) {
			return a.keygen.Users.Unban(ctx, id)
		}))
	usersCmd.AddCommand(newMetadataCmd(keygen.TypeUsers))

	addListFlags(usersListCmd)
	usersListCmd.Flags().String("status", "", "Filter by status: active, inactive, banned")
	usersListCmd.Flags().String("role", "", "Filter by role")

	for _, c := range []*cobra.Command{usersCreateCmd, usersUpdateCmd} {
		c.Flags().String("first-name", "", "First name")
		c.Flags().String("last-name", "", "Last name")
		c.Flags().String("email", "", "Email address")
		c.Flags().String("password", "", "Password")
		c.Flags().String("role", "", "Role: user, admin, developer, read-only, sales-agent, support-agent")
		addMetadataFlag(c)
	}
	usersCreateCmd.MarkFlagRequired("email")
}
