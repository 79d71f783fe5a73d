// Package cli holds the cobra command tree for the samus binary.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/loteknowledG/samus-manus/internal/config"
)

func NewRootCmd(version string) *cobra.Command {
	var homeOverride string

	cmd := &cobra.Command{
		Use:          "samus",
		Short:        "Samus-Manus, a local desktop agent with memory and an approval gate",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			home, err := config.ResolveHome(homeOverride)
			if err != nil {
				return err
			}
			cmd.SetContext(config.WithHome(cmd.Context(), home))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&homeOverride, "home", "", "Override Samus home directory (default: ~/.samus, env: SAMUS_HOME)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newHeartbeatCmd())
	cmd.AddCommand(newTaskCmd())
	cmd.AddCommand(newMemoryCmd())
	cmd.AddCommand(newAuditCmd())
	cmd.AddCommand(newWebCmd())
	cmd.AddCommand(newBackupCmd())
	cmd.AddCommand(newDoctorCmd())

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.SetVersionTemplate("{{.Version}}\n")
	if version != "" {
		cmd.Version = version
	} else {
		cmd.Version = "dev"
	}

	return cmd
}
