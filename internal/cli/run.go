package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/loteknowledG/samus-manus/internal/agent"
	"github.com/loteknowledG/samus-manus/internal/config"
)

func newRunCmd() *cobra.Command {
	var apply bool
	var noApprove bool
	var maxSteps int

	cmd := &cobra.Command{
		Use:   "run <task...>",
		Short: "Plan a task and execute its actions (simulated unless --apply)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			home := config.MustHomeFrom(ctx)
			cfg, err := config.Load(home)
			if err != nil {
				return err
			}
			store, err := openStore(home, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			loop := newLoop(home, cfg, store, "")
			loop.Out = cmd.OutOrStdout()
			task := strings.Join(args, " ")
			_, err = loop.Run(ctx, task, agent.RunOptions{
				Apply:       apply,
				ApproveEach: !noApprove,
				MaxSteps:    maxSteps,
			})
			return err
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "Execute real actions through the automation backend")
	cmd.Flags().BoolVar(&noApprove, "no-approve", false, "Don't ask before each action")
	cmd.Flags().IntVar(&maxSteps, "max-steps", agent.DefaultMaxSteps, "Maximum actions per run")
	return cmd
}
