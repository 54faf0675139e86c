package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/keyhawk/internal/keygen"
	"github.com/telhawk-systems/keyhawk/pkg/output"
)

var licensesCmd = &cobra.Command{
	Use:     "licenses",
	Aliases: []string{"license", "lic"},
	Short:   "License management",
	Long:    "Create, list, validate and manage the lifecycle of licenses",
}

var licensesListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List licenses",
	RunE: func(cmd *cobra.Command, args []string) error {
		var f keygen.LicenseFilter
		f.ProductID, _ = cmd.Flags().GetString("product")
		f.PolicyID, _ = cmd.Flags().GetString("policy")
		f.UserID, _ = cmd.Flags().GetString("user")
		f.Status, _ = cmd.Flags().GetString("status")

		return run(cmd, func(ctx context.Context, a *app) error {
			list, err := a.keygen.Licenses.List(ctx, f, listOptions(cmd))
			if err != nil {
				return fmt.Errorf("failed to list licenses: %w", err)
			}
			return renderList(a, cmd, "licenses", list,
				[]string{"ID", "Name", "Key", "Status", "Uses", "Expiry", "Policy"},
				func(l keygen.Resource[keygen.License]) []string {
					return []string{
						l.ID,
						orDash(l.Attributes.Name),
						output.Truncate(l.Attributes.Key, 24),
						l.Attributes.Status,
						strconv.Itoa(l.Attributes.Uses),
						formatTimePtr(l.Attributes.Expiry),
						orDash(l.RelatedID("policy")),
					}
				})
		})
	},
}

func licensePairs(l *keygen.Resource[keygen.License]) [][2]string {
	return [][2]string{
		{"Name", orDash(l.Attributes.Name)},
		{"Key", l.Attributes.Key},
		{"Status", l.Attributes.Status},
		{"Suspended", strconv.FormatBool(l.Attributes.Suspended)},
		{"Uses", strconv.Itoa(l.Attributes.Uses)},
		{"Max Uses", formatIntPtr(l.Attributes.MaxUses)},
		{"Max Machines", formatIntPtr(l.Attributes.MaxMachines)},
		{"Expiry", formatTimePtr(l.Attributes.Expiry)},
		{"Last Validated", formatTimePtr(l.Attributes.LastValidated)},
		{"Policy", orDash(l.RelatedID("policy"))},
		{"Product", orDash(l.RelatedID("product"))},
		{"User", orDash(l.RelatedID("user"))},
		{"Metadata", formatMetadata(l.Attributes.Metadata)},
		{"Created", formatTime(l.Attributes.Created)},
	}
}

var licensesGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get a license by ID or key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, a *app) error {
			l, err := a.keygen.Licenses.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return renderOne(a, l, licensePairs(l))
		})
	},
}

func licenseInput(cmd *cobra.Command) (keygen.LicenseInput, error) {
	name, _ := cmd.Flags().GetString("name")
	key, _ := cmd.Flags().GetString("key")
	metadata, err := metadataFlag(cmd)
	if err != nil {
		return keygen.LicenseInput{}, err
	}

	in := keygen.LicenseInput{
		Name:        name,
		Key:         key,
		Protected:   boolFlag(cmd, "protected"),
		MaxMachines: intFlag(cmd, "max-machines"),
		MaxUses:     intFlag(cmd, "max-uses"),
		Metadata:    metadata,
	}
	if expiry, _ := cmd.Flags().GetString("expiry"); expiry != "" {
		t, err := time.Parse(time.RFC3339, expiry)
		if err != nil {
			return in, fmt.Errorf("invalid --expiry %q: expected RFC 3339 time", expiry)
		}
		in.Expiry = &t
	}
	return in, nil
}

var licensesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a license under a policy",
	RunE: func(cmd *cobra.Command, args []string) error {
		policyID, _ := cmd.Flags().GetString("policy")
		userID, _ := cmd.Flags().GetString("user")
		in, err := licenseInput(cmd)
		if err != nil {
			return err
		}
		return run(cmd, func(ctx context.Context, a *app) error {
			l, err := a.keygen.Licenses.Create(ctx, policyID, userID, in)
			if err != nil {
				return err
			}
			if a.format != output.FormatTable {
				return output.Render(a.format, l, nil)
			}
			output.Success("Created license %s", l.ID)
			output.Info("Key: %s", l.Attributes.Key)
			return nil
		})
	},
}

var licensesUpdateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Update a license",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := licenseInput(cmd)
		if err != nil {
			return err
		}
		return run(cmd, func(ctx context.Context, a *app) error {
			l, err := a.keygen.Licenses.Update(ctx, args[0], in)
			if err != nil {
				return err
			}
			if a.format != output.FormatTable {
				return output.Render(a.format, l, nil)
			}
			output.Success("Updated license %s", l.ID)
			return nil
		})
	},
}

var licensesValidateCmd = &cobra.Command{
	Use:   "validate [id]",
	Short: "Validate a license",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, a *app) error {
			v, err := a.keygen.Licenses.Validate(ctx, args[0])
			if err != nil {
				return err
			}
			if a.format != output.FormatTable {
				return output.Render(a.format, map[string]any{
					"valid":  v.Valid,
					"code":   v.Code,
					"detail": v.Detail,
				}, nil)
			}
			if v.Valid {
				output.Success("License %s is valid", args[0])
			} else {
				output.Warn("License %s is not valid", args[0])
			}
			output.Info("Code: %s", orDash(v.Code))
			output.Info("Detail: %s", orDash(v.Detail))
			return nil
		})
	},
}

// newLicenseActionCmd builds a lifecycle action returning the license.
func newLicenseActionCmd(use, short, done string, action func(ctx context.Context, a *app, id string) (*keygen.Resource[keygen.License], error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app) error {
				l, err := action(ctx, a, args[0])
				if err != nil {
					return err
				}
				if l != nil && a.format != output.FormatTable {
					return output.Render(a.format, l, nil)
				}
				output.Success("%s license %s", done, args[0])
				if l != nil {
					output.Info("Status: %s, expiry: %s, uses: %d",
						l.Attributes.Status, formatTimePtr(l.Attributes.Expiry), l.Attributes.Uses)
				}
				return nil
			})
		},
	}
}

var licensesRevokeCmd = &cobra.Command{
	Use:   "revoke [id]",
	Short: "Permanently revoke a license",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, a *app) error {
			if err := a.keygen.Licenses.Revoke(ctx, args[0]); err != nil {
				return err
			}
			output.Success("Revoked license %s", args[0])
			return nil
		})
	},
}

var licensesUsageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Adjust license usage counters",
}

func init() {
	rootCmd.AddCommand(licensesCmd)
	licensesCmd.AddCommand(licensesListCmd)
	licensesCmd.AddCommand(licensesGetCmd)
	licensesCmd.AddCommand(licensesCreateCmd)
	licensesCmd.AddCommand(licensesUpdateCmd)
	licensesCmd.AddCommand(newDeleteCmd("license", func(ctx context.Context, a *app, id string) error {
		return a.keygen.Licenses.Delete(ctx, id)
	}))
	licensesCmd.AddCommand(licensesValidateCmd)
	licensesCmd.AddCommand(newLicenseActionCmd("suspend", "Suspend a license", "Suspended",
		func(ctx context.Context, a *app, id string) (*keygen.Resource[keygen.License], error) {
			return a.keygen.Licenses.Suspend(ctx, id)
		}))
	licensesCmd.AddCommand(newLicenseActionCmd("reinstate", "Reinstate a suspended license", "Reinstated",
		func(ctx context.Context, a *app, id string) (*keygen.Resource[keygen.License], error) {
			return a.keygen.Licenses.Reinstate(ctx, id)
		}))
	licensesCmd.AddCommand(newLicenseActionCmd("renew", "Renew a license by its policy duration", "Renewed",
		func(ctx context.Context, a *app, id string) (*keygen.Resource[keygen.License], error) {
			return a.keygen.Licenses.Renew(ctx, id)
		}))
	licensesCmd.AddCommand(licensesRevokeCmd)
	licensesCmd.AddCommand(newMetadataCmd(keygen.TypeLicenses))

	licensesCmd.AddCommand(licensesUsageCmd)
	incrementCmd := newLicenseActionCmd("increment", "Increment the usage count", "Incremented usage of",
		func(ctx context.Context, a *app, id string) (*keygen.Resource[keygen.License], error) {
			return a.keygen.Licenses.IncrementUsage(ctx, id, usageBy)
		})
	decrementCmd := newLicenseActionCmd("decrement", "Decrement the usage count", "Decremented usage of",
		func(ctx context.Context, a *app, id string) (*keygen.Resource[keygen.License], error) {
			return a.keygen.Licenses.DecrementUsage(ctx, id, usageBy)
		})
	for _, c := range []*cobra.Command{incrementCmd, decrementCmd} {
		c.Flags().IntVar(&usageBy, "by", 1, "Amount to change usage by")
	}
	licensesUsageCmd.AddCommand(incrementCmd, decrementCmd)
	licensesUsageCmd.AddCommand(newLicenseActionCmd("reset", "Reset the usage count to zero", "Reset usage of",
		func(ctx context.Context, a *app, id string) (*keygen.Resource[keygen.License], error) {
			return a.keygen.Licenses.ResetUsage(ctx, id)
		}))

	addListFlags(licensesListCmd)
	licensesListCmd.Flags().String("product", "", "Filter by product ID")
	licensesListCmd.Flags().String("policy", "", "Filter by policy ID")
	licensesListCmd.Flags().String("user", "", "Filter by user ID")
	licensesListCmd.Flags().String("status", "", "Filter by status: active, inactive, expiring, expired, suspended, banned")

	licensesCreateCmd.Flags().String("policy", "", "Policy ID")
	licensesCreateCmd.Flags().String("user", "", "Owner user ID")
	licensesCreateCmd.MarkFlagRequired("policy")

	for _, c := range []*cobra.Command{licensesCreateCmd, licensesUpdateCmd} {
		c.Flags().String("name", "", "License name")
		c.Flags().String("key", "", "Custom license key")
		c.Flags().String("expiry", "", "Expiry time (RFC 3339)")
		c.Flags().Int("max-machines", 0, "Override the policy machine limit")
		c.Flags().Int("max-uses", 0, "Override the policy usage limit")
		c.Flags().Bool("protected", false, "Only admins may manage this license")
		addMetadataFlag(c)
	}
}

var usageBy int
