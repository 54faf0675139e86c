package cmd

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/keyhawk/internal/keygen"
	"github.com/telhawk-systems/keyhawk/pkg/output"
)

func addListFlags(cmd *cobra.Command) {
	cmd.Flags().Int("limit", keygen.DefaultPageSize, "Results per page (max 100)")
	cmd.Flags().Int("page", 1, "Page number")
	cmd.Flags().StringP("query", "q", "", "Only show results containing this text")
}

func listOptions(cmd *cobra.Command) *keygen.ListOptions {
	limit, _ := cmd.Flags().GetInt("limit")
	page, _ := cmd.Flags().GetInt("page")
	return &keygen.ListOptions{PageSize: limit, PageNumber: page}
}

func listQuery(cmd *cobra.Command) string {
	q, _ := cmd.Flags().GetString("query")
	return q
}

// renderList prints one page of results followed by a paging hint.
func renderList[A keygen.Searchable](a *app, cmd *cobra.Command, noun string, list *keygen.List[A], headers []string, row func(keygen.Resource[A]) []string) error {
	items := keygen.Filter(list.Items, listQuery(cmd))

	if a.format != output.FormatTable {
		return output.Render(a.format, items, nil)
	}
	if len(items) == 0 {
		output.Info("No %s found", noun)
		return nil
	}

	table := output.NewTable(headers)
	for _, item := range items {
		table.AddRow(row(item))
	}
	table.Render()

	if total := list.Count(); total > len(items) {
		output.Info("\nShowing %d of %d %s", len(items), total, noun)
	}
	if list.HasNext() {
		page, _ := cmd.Flags().GetInt("page")
		output.Info("More results: --page %d", page+1)
	}
	return nil
}

// renderOne prints a single resource as key/value pairs or as a document.
func renderOne[A any](a *app, res *keygen.Resource[A], pairs [][2]string) error {
	if a.format != output.FormatTable {
		return output.Render(a.format, res, nil)
	}
	output.KeyValue(append([][2]string{{"ID", res.ID}}, pairs...))
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatTime(*t)
}

func formatIntPtr(n *int) string {
	if n == nil {
		return "-"
	}
	return strconv.Itoa(*n)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatMetadata(m map[string]any) string {
	if len(m) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, m[k]))
	}
	return strings.Join(parts, ", ")
}

// intFlag returns the flag value when it was set explicitly.
func intFlag(cmd *cobra.Command, name string) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetInt(name)
	return &v
}

func boolFlag(cmd *cobra.Command, name string) *bool {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetBool(name)
	return &v
}

func metadataFlag(cmd *cobra.Command) (map[string]any, error) {
	pairs, _ := cmd.Flags().GetStringArray("metadata")
	if len(pairs) == 0 {
		return nil, nil
	}
	return keygen.ParseMetadata(pairs)
}

func addMetadataFlag(cmd *cobra.Command) {
	cmd.Flags().StringArray("metadata", nil, "Metadata key=value (repeatable)")
}

// newDeleteCmd builds "<resource> delete <id>".
func newDeleteCmd(noun string, del func(ctx context.Context, a *app, id string) error) *cobra.Command {
	return &cobra.Command{
		Use:     "delete [id]",
		Aliases: []string{"rm"},
		Short:   "Delete a " + noun,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app) error {
				if err := del(ctx, a, args[0]); err != nil {
					return err
				}
				output.Success("Deleted %s %s", noun, args[0])
				return nil
			})
		},
	}
}

// newMetadataCmd builds "<resource> metadata set <id> key=value...".
func newMetadataCmd(resourceType string) *cobra.Command {
	metadataCmd := &cobra.Command{
		Use:   "metadata",
		Short: "Manage resource metadata",
	}
	setCmd := &cobra.Command{
		Use:   "set [id] [key=value...]",
		Short: "Replace the metadata of a resource",
		Long: `Replace the metadata of a resource. Values that parse as JSON keep
their type (numbers, booleans, objects); anything else is stored as a string.`,
		Example: "  khawk " + resourceType + " metadata set abc123 tier=gold seats=10",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			metadata, err := keygen.ParseMetadata(args[1:])
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, a *app) error {
				if err := a.keygen.UpdateMetadata(ctx, resourceType, args[0], metadata); err != nil {
					return err
				}
				output.Success("Updated metadata of %s %s", strings.TrimSuffix(resourceType, "s"), args[0])
				return nil
			})
		},
	}
	metadataCmd.AddCommand(setCmd)
	return metadataCmd
}
