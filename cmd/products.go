package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/keyhawk/internal/keygen"
	"github.com/telhawk-systems/keyhawk/pkg/output"
)

var productsCmd = &cobra.Command{
	Use:     "products",
	Aliases: []string{"product"},
	Short:   "Product management",
	Long:    "Create, list and manage products",
}

var productsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List products",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, a *app) error {
			list, err := a.keygen.Products.List(ctx, listOptions(cmd))
			if err != nil {
				return fmt.Errorf("failed to list products: %w", err)
			}
			return renderList(a, cmd, "products", list,
				[]string{"ID", "Name", "Code", "Distribution", "Platforms", "Created"},
				func(p keygen.Resource[keygen.Product]) []string {
					return []string{
						p.ID,
						p.Attributes.Name,
						orDash(p.Attributes.Code),
						orDash(p.Attributes.DistributionStrategy),
						orDash(strings.Join(p.Attributes.Platforms, ",")),
						formatTime(p.Attributes.Created),
					}
				})
		})
	},
}

var productsGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get a product by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, a *app) error {
			p, err := a.keygen.Products.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return renderOne(a, p, [][2]string{
				{"Name", p.Attributes.Name},
				{"Code", orDash(p.Attributes.Code)},
				{"URL", orDash(p.Attributes.URL)},
				{"Distribution", orDash(p.Attributes.DistributionStrategy)},
				{"Platforms", orDash(strings.Join(p.Attributes.Platforms, ", "))},
				{"Metadata", formatMetadata(p.Attributes.Metadata)},
				{"Created", formatTime(p.Attributes.Created)},
				{"Updated", formatTime(p.Attributes.Updated)},
			})
		})
	},
}

func productInput(cmd *cobra.Command) (keygen.ProductInput, error) {
	name, _ := cmd.Flags().GetString("name")
	code, _ := cmd.Flags().GetString("code")
	url, _ := cmd.Flags().GetString("url")
	strategy, _ := cmd.Flags().GetString("distribution")
	platforms, _ := cmd.Flags().GetStringSlice("platform")
	metadata, err := metadataFlag(cmd)
	if err != nil {
		return keygen.ProductInput{}, err
	}
	return keygen.ProductInput{
		Name:                 name,
		Code:                 code,
		URL:                  url,
		DistributionStrategy: strings.ToUpper(strategy),
		Platforms:            platforms,
		Metadata:             metadata,
	}, nil
}

var productsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a product",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := productInput(cmd)
		if err != nil {
			return err
		}
		return run(cmd, func(ctx context.Context, a *app) error {
			p, err := a.keygen.Products.Create(ctx, in)
			if err != nil {
				return err
			}
			if a.format != output.FormatTable {
				return output.Render(a.format, p, nil)
			}
			output.Success("Created product %s (%s)", p.Attributes.Name, p.ID)
			return nil
		})
	},
}

var productsUpdateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Update a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := productInput(cmd)
		if err != nil {
			return err
		}
		return run(cmd, func(ctx context.Context, a *app) error {
			p, err := a.keygen.Products.Update(ctx, args[0], in)
			if err != nil {
				return err
			}
			if a.format != output.FormatTable {
				return output.Render(a.format, p, nil)
			}
			output.Success("Updated product %s", p.ID)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(productsCmd)
	productsCmd.AddCommand(productsListCmd)
	productsCmd.AddCommand(productsGetCmd)
	productsCmd.AddCommand(productsCreateCmd)
	productsCmd.AddCommand(productsUpdateCmd)
	productsCmd.AddCommand(newDeleteCmd("product", func(ctx context.Context, a *app, id string) error {
		return a.keygen.Products.Delete(ctx, id)
	}))
	productsCmd.AddCommand(newMetadataCmd(keygen.TypeProducts))

	addListFlags(productsListCmd)

	for _, c := range []*cobra.Command{productsCreateCmd, productsUpdateCmd} {
		c.Flags().String("name", "", "Product name")
		c.Flags().String("code", "", "Unique product code")
		c.Flags().String("url", "", "Product URL")
		c.Flags().String("distribution", "", "Distribution strategy: licensed, open, closed")
		c.Flags().StringSlice("platform", nil, "Supported platforms")
		addMetadataFlag(c)
	}
	productsCreateCmd.MarkFlagRequired("name")
}
