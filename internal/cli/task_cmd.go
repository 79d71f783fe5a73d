package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/loteknowledG/samus-manus/internal/config"
	"github.com/loteknowledG/samus-manus/internal/heartbeat"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage the heartbeat task queue",
	}
	cmd.AddCommand(newTaskAddCmd())
	cmd.AddCommand(newTaskListCmd())
	return cmd
}

func newTaskAddCmd() *cobra.Command {
	var autoApprove bool

	cmd := &cobra.Command{
		Use:   "add <text...>",
		Short: "Queue a task for the next heartbeat tick",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			q := heartbeat.DefaultQueue(home)
			t, err := q.Append(strings.Join(args, " "), autoApprove)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued %s: %s\n", t.ID, t.Task)
			return nil
		},
	}
	cmd.Flags().BoolVar(&autoApprove, "auto-approve", false, "Whitelist the task for real actions")
	return cmd
}

func newTaskListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			tasks, err := heartbeat.DefaultQueue(home).Load()
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tasks")
				return nil
			}
			for _, t := range tasks {
				flags := ""
				if t.AutoFlagged() {
					flags = " [auto]"
				}
				when := ""
				if t.CreatedAt > 0 {
					when = time.Unix(t.CreatedAt, 0).Format("2006-01-02 15:04")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-8s %s %s%s\n", t.ID, t.Status, when, t.Task, flags)
			}
			return nil
		},
	}
	return cmd
}
