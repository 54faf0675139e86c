package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/keyhawk/internal/keygen"
	"github.com/telhawk-systems/keyhawk/pkg/output"
)

var policiesCmd = &cobra.Command{
	Use:     "policies",
	Aliases: []string{"policy"},
	Short:   "Policy management",
	Long:    "Create, list and manage license policies",
}

var policiesListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List policies",
	RunE: func(cmd *cobra.Command, args []string) error {
		productID, _ := cmd.Flags().GetString("product")
		return run(cmd, func(ctx context.Context, a *app) error {
			list, err := a.keygen.Policies.List(ctx, productID, listOptions(cmd))
			if err != nil {
				return fmt.Errorf("failed to list policies: %w", err)
			}
			return renderList(a, cmd, "policies", list,
				[]string{"ID", "Name", "Product", "Duration", "Max Machines", "Floating", "Scheme"},
				func(p keygen.Resource[keygen.Policy]) []string {
					return []string{
						p.ID,
						p.Attributes.Name,
						orDash(p.RelatedID("product")),
						formatDuration(p.Attributes.Duration),
						formatIntPtr(p.Attributes.MaxMachines),
						strconv.FormatBool(p.Attributes.Floating),
						orDash(p.Attributes.Scheme),
					}
				})
		})
	},
}

var policiesGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get a policy by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, a *app) error {
			p, err := a.keygen.Policies.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return renderOne(a, p, [][2]string{
				{"Name", p.Attributes.Name},
				{"Product", orDash(p.RelatedID("product"))},
				{"Duration", formatDuration(p.Attributes.Duration)},
				{"Max Machines", formatIntPtr(p.Attributes.MaxMachines)},
				{"Max Uses", formatIntPtr(p.Attributes.MaxUses)},
				{"Floating", strconv.FormatBool(p.Attributes.Floating)},
				{"Strict", strconv.FormatBool(p.Attributes.Strict)},
				{"Protected", strconv.FormatBool(p.Attributes.Protected)},
				{"Scheme", orDash(p.Attributes.Scheme)},
				{"Expiration", orDash(p.Attributes.ExpirationStrategy)},
				{"Authentication", orDash(p.Attributes.AuthenticationStrategy)},
				{"Metadata", formatMetadata(p.Attributes.Metadata)},
				{"Created", formatTime(p.Attributes.Created)},
			})
		})
	},
}

// formatDuration renders a policy duration given in seconds.
func formatDuration(seconds *int) string {
	if seconds == nil {
		return "perpetual"
	}
	if *seconds%86400 == 0 {
		return fmt.Sprintf("%dd", *seconds/86400)
	}
	return fmt.Sprintf("%ds", *seconds)
}

func policyInput(cmd *cobra.Command) (keygen.PolicyInput, error) {
	name, _ := cmd.Flags().GetString("name")
	scheme, _ := cmd.Flags().GetString("scheme")
	expiration, _ := cmd.Flags().GetString("expiration-strategy")
	authentication, _ := cmd.Flags().GetString("authentication-strategy")
	metadata, err := metadataFlag(cmd)
	if err != nil {
		return keygen.PolicyInput{}, err
	}

	in := keygen.PolicyInput{
		Name:                   name,
		Strict:                 boolFlag(cmd, "strict"),
		Floating:               boolFlag(cmd, "floating"),
		Protected:              boolFlag(cmd, "protected"),
		Scheme:                 strings.ToUpper(scheme),
		MaxMachines:            intFlag(cmd, "max-machines"),
		MaxUses:                intFlag(cmd, "max-uses"),
		ExpirationStrategy:     strings.ToUpper(expiration),
		AuthenticationStrategy: strings.ToUpper(authentication),
		Metadata:               metadata,
	}
	if days := intFlag(cmd, "duration-days"); days != nil {
		seconds := *days * 86400
		in.Duration = &seconds
	}
	return in, nil
}

var policiesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a policy for a product",
	RunE: func(cmd *cobra.Command, args []string) error {
		productID, _ := cmd.Flags().GetString("product")
		in, err := policyInput(cmd)
		if err != nil {
			return err
		}
		return run(cmd, func(ctx context.Context, a *app) error {
			p, err := a.keygen.Policies.Create(ctx, productID, in)
			if err != nil {
				return err
			}
			if a.format != output.FormatTable {
				return output.Render(a.format, p, nil)
			}
			output.Success("Created policy %s (%s)", p.Attributes.Name, p.ID)
			return nil
		})
	},
}

var policiesUpdateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Update a policy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := policyInput(cmd)
		if err != nil {
			return err
		}
		return run(cmd, func(ctx context.Context, a *app) error {
			p, err := a.keygen.Policies.Update(ctx, args[0], in)
			if err != nil {
				return err
			}
			if a.format != output.FormatTable {
				return output.Render(a.format, p, nil)
			}
			output.Success("Updated policy %s", p.ID)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(policiesCmd)
	policiesCmd.AddCommand(policiesListCmd)
	policiesCmd.AddCommand(policiesGetCmd)
	policiesCmd.AddCommand(policiesCreateCmd)
	policiesCmd.AddCommand(policiesUpdateCmd)
	policiesCmd.AddCommand(newDeleteCmd("policy", func(ctx context.Context, a *app, id string) error {
		return a.keygen.Policies.Delete(ctx, id)
	}))
	policiesCmd.AddCommand(newMetadataCmd(keygen.TypePolicies))

	addListFlags(policiesListCmd)
	policiesListCmd.Flags().String("product", "", "Filter by product ID")

	policiesCreateCmd.Flags().String("product", "", "Product ID")
	policiesCreateCmd.MarkFlagRequired("product")

	for _, c := range []*cobra.Command{policiesCreateCmd, policiesUpdateCmd} {
		c.Flags().String("name", "", "Policy name")
		c.Flags().Int("duration-days", 0, "License duration in days")
		c.Flags().Int("max-machines", 0, "Maximum machines per license")
		c.Flags().Int("max-uses", 0, "Maximum uses per license")
		c.Flags().Bool("floating", false, "Allow more than one machine per license")
		c.Flags().Bool("strict", false, "Enforce machine limits during validation")
		c.Flags().Bool("protected", false, "Only admins may create licenses")
		c.Flags().String("scheme", "", "Cryptographic scheme for license keys")
		c.Flags().String("expiration-strategy", "", "restrict_access, revoke_access or maintain_access")
		c.Flags().String("authentication-strategy", "", "token, license, mixed or none")
		addMetadataFlag(c)
	}
	policiesCreateCmd.MarkFlagRequired("name")
}
