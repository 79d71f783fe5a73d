package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/loteknowledG/samus-manus/internal/audit"
	"github.com/loteknowledG/samus-manus/internal/config"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "View the approval audit log",
	}
	cmd.AddCommand(newAuditListCmd())
	cmd.AddCommand(newAuditAACmd())
	return cmd
}

func loadAudit(cmd *cobra.Command) ([]audit.Entry, error) {
	home := config.MustHomeFrom(cmd.Context())
	return audit.DefaultLog(home).Load()
}

// entryQuestion prefers the recorded question, falling back to a summary of
// the gated action.
func entryQuestion(e audit.Entry) string {
	if e.Question != "" {
		return e.Question
	}
	return e.Action.Summary()
}

// entryAnswer prefers approval over answer, matching older log lines that
// only carried one of the two fields.
func entryAnswer(e audit.Entry) string {
	if e.Approval != "" {
		return e.Approval
	}
	return e.Answer
}

func printEntry(w io.Writer, e audit.Entry) {
	autoFlag := "manual"
	if e.Auto {
		autoFlag = "auto"
	}
	fmt.Fprintf(w, "%s | %s | %s | %s | step:%d | %s\n",
		e.Time().Format("2006-01-02 15:04:05"), autoFlag, entryAnswer(e), e.Task, e.Step, entryQuestion(e))
}

func newAuditListCmd() *cobra.Command {
	var (
		limit    int
		autoOnly bool
		task     string
		since    float64
		raw      bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent audit entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := loadAudit(cmd)
			if err != nil {
				return err
			}
			entries = audit.Filter{
				AutoOnly:     autoOnly,
				TaskContains: task,
				SinceSeconds: since,
			}.Apply(entries)
			if len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}
			out := cmd.OutOrStdout()
			if raw {
				enc := json.NewEncoder(out)
				for _, e := range entries {
					if err := enc.Encode(e); err != nil {
						return err
					}
				}
				return nil
			}
			for _, e := range entries {
				printEntry(out, e)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries")
	cmd.Flags().BoolVar(&autoOnly, "auto-only", false, "Only auto-approved entries")
	cmd.Flags().StringVar(&task, "task", "", "Filter by task substring")
	cmd.Flags().Float64Var(&since, "since", 0, "Only entries newer than now minus this many seconds")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print raw JSON lines")
	return cmd
}

// newAuditAACmd is the quick view: `samus audit aa [last|list|flamegraph]
// [N|today]`. Bare `aa` prints the question text of the last five entries.
func newAuditAACmd() *cobra.Command {
	var textOnly bool

	cmd := &cobra.Command{
		Use:   "aa [last|list|flamegraph] [N|today]",
		Short: "Quick audit views: recent entries or a per-task histogram",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := loadAudit(cmd)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return nil
			}

			verb := "last"
			if len(args) > 0 {
				verb = args[0]
			}
			n := 0
			today := false
			if len(args) > 1 {
				if args[1] == "today" {
					today = true
				} else if v, err := strconv.Atoi(args[1]); err == nil {
					n = v
				} else {
					return fmt.Errorf("expected a number or %q, got %q", "today", args[1])
				}
			}
			// Bare `aa` defaults to question text only.
			if len(args) == 0 && !cmd.Flags().Changed("text") {
				textOnly = true
			}
			out := cmd.OutOrStdout()

			switch verb {
			case "last", "list":
				sel := entries
				if verb == "list" && today {
					sel = audit.Filter{SinceSeconds: 86400}.Apply(sel)
				} else {
					if n <= 0 {
						n = 5
					}
					if len(sel) > n {
						sel = sel[len(sel)-n:]
					}
				}
				for _, e := range sel {
					if textOnly {
						fmt.Fprintln(out, entryQuestion(e))
						continue
					}
					fmt.Fprintf(out, "%s | %s | %s\n",
						e.Time().Format("2006-01-02 15:04:05"), entryAnswer(e), entryQuestion(e))
				}
				return nil
			case "flamegraph":
				if today {
					entries = audit.Filter{SinceSeconds: 86400}.Apply(entries)
				}
				if n <= 0 {
					n = 10
				}
				fmt.Fprint(out, audit.RenderFlamegraph(audit.Flamegraph(entries, n)))
				return nil
			default:
				return fmt.Errorf("unsupported view %q (want last, list, or flamegraph)", verb)
			}
		},
	}
	cmd.Flags().BoolVar(&textOnly, "text", false, "Print only the question text per entry")
	return cmd
}
