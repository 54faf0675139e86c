package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/keyhawk/internal/keygen"
	"github.com/telhawk-systems/keyhawk/pkg/output"
)

var machinesCmd = &cobra.Command{
	Use:     "machines",
	Aliases: []string{"machine"},
	Short:   "Machine management",
	Long:    "Activate, list and deactivate machines",
}

var machinesListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List machines",
	RunE: func(cmd *cobra.Command, args []string) error {
		var f keygen.MachineFilter
		f.LicenseID, _ = cmd.Flags().GetString("license")
		f.UserID, _ = cmd.Flags().GetString("user")
		f.Fingerprint, _ = cmd.Flags().GetString("fingerprint")

		return run(cmd, func(ctx context.Context, a *app) error {
			list, err := a.keygen.Machines.List(ctx, f, listOptions(cmd))
			if err != nil {
				return fmt.Errorf("failed to list machines: %w", err)
			}
			return renderList(a, cmd, "machines", list,
				[]string{"ID", "Name", "Fingerprint", "Platform", "Heartbeat", "License"},
				func(m keygen.Resource[keygen.Machine]) []string {
					return []string{
						m.ID,
						orDash(m.Attributes.Name),
						output.Truncate(m.Attributes.Fingerprint, 24),
						orDash(m.Attributes.Platform),
						orDash(m.Attributes.HeartbeatStatus),
						orDash(m.RelatedID("license")),
					}
				})
		})
	},
}

var machinesGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get a machine by ID or fingerprint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, a *app) error {
			m, err := a.keygen.Machines.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return renderOne(a, m, [][2]string{
				{"Name", orDash(m.Attributes.Name)},
				{"Fingerprint", m.Attributes.Fingerprint},
				{"Hostname", orDash(m.Attributes.Hostname)},
				{"IP", orDash(m.Attributes.IP)},
				{"Platform", orDash(m.Attributes.Platform)},
				{"Cores", formatIntPtr(m.Attributes.Cores)},
				{"Heartbeat", orDash(m.Attributes.HeartbeatStatus)},
				{"Last Heartbeat", formatTimePtr(m.Attributes.LastHeartbeat)},
				{"License", orDash(m.RelatedID("license"))},
				{"Metadata", formatMetadata(m.Attributes.Metadata)},
				{"Created", formatTime(m.Attributes.Created)},
			})
		})
	},
}

func machineInput(cmd *cobra.Command) (keygen.MachineInput, error) {
	fingerprint, _ := cmd.Flags().GetString("fingerprint")
	name, _ := cmd.Flags().GetString("name")
	ip, _ := cmd.Flags().GetString("ip")
	hostname, _ := cmd.Flags().GetString("hostname")
	platform, _ := cmd.Flags().GetString("platform")
	metadata, err := metadataFlag(cmd)
	if err != nil {
		return keygen.MachineInput{}, err
	}
	return keygen.MachineInput{
		Fingerprint: fingerprint,
		Name:        name,
		IP:          ip,
		Hostname:    hostname,
		Platform:    platform,
		Cores:       intFlag(cmd, "cores"),
		Metadata:    metadata,
	}, nil
}

var machinesCreateCmd = &cobra.Command{
	Use:     "create",
	Aliases: []string{"activate"},
	Short:   "Activate a machine for a license",
	RunE: func(cmd *cobra.Command, args []string) error {
		licenseID, _ := cmd.Flags().GetString("license")
		in, err := machineInput(cmd)
		if err != nil {
			return err
		}
		return run(cmd, func(ctx context.Context, a *app) error {
			m, err := a.keygen.Machines.Create(ctx, licenseID, in)
			if err != nil {
				return err
			}
			if a.format != output.FormatTable {
				return output.Render(a.format, m, nil)
			}
			output.Success("Activated machine %s (%s)", m.Attributes.Fingerprint, m.ID)
			return nil
		})
	},
}

var machinesUpdateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Update a machine",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := machineInput(cmd)
		if err != nil {
			return err
		}
		return run(cmd, func(ctx context.Context, a *app) error {
			m, err := a.keygen.Machines.Update(ctx, args[0], in)
			if err != nil {
				return err
			}
			if a.format != output.FormatTable {
				return output.Render(a.format, m, nil)
			}
			output.Success("Updated machine %s", m.ID)
			return nil
		})
	},
}

var machinesResetCmd = &cobra.Command{
	Use:   "reset [id]",
	Short: "Reset the heartbeat monitor of a machine",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, a *app) error {
			m, err := a.keygen.Machines.ResetHeartbeat(ctx, args[0])
			if err != nil {
				return err
			}
			if m != nil && a.format != output.FormatTable {
				return output.Render(a.format, m, nil)
			}
			output.Success("Reset heartbeat of machine %s", args[0])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(machinesCmd)
	machinesCmd.AddCommand(machinesListCmd)
	machinesCmd.AddCommand(machinesGetCmd)
	machinesCmd.AddCommand(machinesCreateCmd)
	machinesCmd.AddCommand(machinesUpdateCmd)
	machinesCmd.AddCommand(newDeleteCmd("machine", func(ctx context.Context, a *app, id string) error {
		return a.keygen.Machines.Delete(ctx, id)
	}))
	machinesCmd.AddCommand(machinesResetCmd)
	machinesCmd.AddCommand(newMetadataCmd(keygen.TypeMachines))

	addListFlags(machinesListCmd)
	machinesListCmd.Flags().String("license", "", "Filter by license ID")
	machinesListCmd.Flags().String("user", "", "Filter by user ID")
	machinesListCmd.Flags().String("fingerprint", "", "Filter by fingerprint")

	machinesCreateCmd.Flags().String("license", "", "License ID")
	machinesCreateCmd.MarkFlagRequired("license")

	for _, c := range []*cobra.Command{machinesCreateCmd, machinesUpdateCmd} {
		c.Flags().String("fingerprint", "", "Unique machine fingerprint")
		c.Flags().String("name", "", "Machine name")
		c.Flags().String("ip", "", "IP address")
		c.Flags().String("hostname", "", "Hostname")
		c.Flags().String("platform", "", "Platform")
		c.Flags().Int("cores", 0, "CPU cores")
		addMetadataFlag(c)
	}
	machinesCreateCmd.MarkFlagRequired("fingerprint")
}
