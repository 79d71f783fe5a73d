package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loteknowledG/samus-manus/internal/backup"
	"github.com/loteknowledG/samus-manus/internal/config"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up and restore runtime state (queue, heartbeat, memory, audit)",
	}
	cmd.AddCommand(newBackupCreateCmd())
	cmd.AddCommand(newBackupListCmd())
	cmd.AddCommand(newBackupInspectCmd())
	cmd.AddCommand(newBackupRestoreCmd())
	return cmd
}

func newBackupCreateCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a timestamped state archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			path, err := backup.Create(home, out)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Archive path (default: <home>/backups/state-<stamp>.zip)")
	return cmd
}

func newBackupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archives, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			names, err := backup.List(home)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No backups found in %s\n", backup.Dir(home))
				return nil
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}

func newBackupInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.zip>",
		Short: "Show the files inside an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := backup.Inspect(args[0])
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%-40s  %8d bytes\n", e.Name, e.Size)
			}
			return nil
		},
	}
}

func newBackupRestoreCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "restore <file.zip>",
		Short: "Restore state files from an archive (overwrites; requires --yes)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			entries, err := backup.Inspect(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Will restore the following files:")
			for _, e := range entries {
				fmt.Fprintf(out, "  %s\n", e.Name)
			}
			if !yes {
				return fmt.Errorf("refusing to overwrite without --yes")
			}
			restored, err := backup.Restore(args[0], home)
			for _, p := range restored {
				fmt.Fprintf(out, "Restored: %s\n", p)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Restore complete.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Overwrite existing state files without prompting")
	return cmd
}
