package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loteknowledG/samus-manus/internal/audit"
	"github.com/loteknowledG/samus-manus/internal/config"
	"github.com/loteknowledG/samus-manus/internal/memory"
)

func newMemoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect and edit the agent's memory store",
	}
	cmd.AddCommand(newMemoryAddCmd())
	cmd.AddCommand(newMemoryListCmd())
	cmd.AddCommand(newMemoryQueryCmd())
	cmd.AddCommand(newMemoryExportCmd())
	cmd.AddCommand(newMemoryImportCmd())
	cmd.AddCommand(newMemoryRebuildCmd())
	cmd.AddCommand(newMemoryKGQueryCmd())
	cmd.AddCommand(newMemoryPersonaCmds()...)
	return cmd
}

// withStore opens the store for the command's home and hands it to fn.
func withStore(cmd *cobra.Command, fn func(store memory.Store, cfg config.Config, home string) error) error {
	home := config.MustHomeFrom(cmd.Context())
	cfg, err := config.Load(home)
	if err != nil {
		return err
	}
	store, err := openStore(home, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return fn(store, cfg, home)
}

func newMemoryAddCmd() *cobra.Command {
	var meta string

	cmd := &cobra.Command{
		Use:   "add <kind> <text>",
		Short: "Append a memory record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(store memory.Store, _ config.Config, _ string) error {
				metadata := map[string]any{}
				if meta != "" {
					if err := json.Unmarshal([]byte(meta), &metadata); err != nil {
						return fmt.Errorf("--meta is not valid JSON: %w", err)
					}
				}
				id, err := store.Add(cmd.Context(), args[0], args[1], metadata)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&meta, "meta", "", "Metadata as a JSON object")
	return cmd
}

func newMemoryListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent memory records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(store memory.Store, _ config.Config, _ string) error {
				recs, err := store.All(cmd.Context(), limit)
				if err != nil {
					return err
				}
				for _, r := range recs {
					fmt.Fprintf(cmd.OutOrStdout(), "%4d %-12.12s %s  %s\n",
						r.ID, r.Kind, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Text)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum records")
	return cmd
}

func newMemoryQueryCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Rank records by similarity (embeddings, or substring fallback)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(store memory.Store, _ config.Config, _ string) error {
				scored, err := store.QuerySimilar(cmd.Context(), args[0], topK)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(scored)
			})
		},
	}
	cmd.Flags().IntVar(&topK, "top-k", 5, "Number of results")
	return cmd
}

func newMemoryExportCmd() *cobra.Command {
	var out string
	var limit int

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export records to a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(store memory.Store, _ config.Config, _ string) error {
				recs, err := store.All(cmd.Context(), limit)
				if err != nil {
					return err
				}
				data, err := json.MarshalIndent(recs, "", "  ")
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d records to %s\n", len(recs), out)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Output file")
	cmd.Flags().IntVar(&limit, "limit", 1000, "Maximum records")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newMemoryImportCmd() *cobra.Command {
	var in string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import records from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(store memory.Store, _ config.Config, _ string) error {
				data, err := os.ReadFile(in)
				if err != nil {
					return err
				}
				var recs []memory.Record
				if err := json.Unmarshal(data, &recs); err != nil {
					return err
				}
				count := 0
				for _, r := range recs {
					kind := r.Kind
					if kind == "" {
						kind = "import"
					}
					if _, err := store.Add(cmd.Context(), kind, r.Text, r.Metadata); err != nil {
						return err
					}
					count++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d\n", count)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "Input file")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func newMemoryRebuildCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "rebuild-embeddings",
		Short: "Backfill embeddings for records that have none",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(store memory.Store, _ config.Config, _ string) error {
				updated, err := store.RebuildMissingEmbeddings(cmd.Context(), limit)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "embeddings updated: %d\n", updated)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum records to backfill")
	return cmd
}

func newMemoryKGQueryCmd() *cobra.Command {
	var topK int
	var noApprovals bool

	cmd := &cobra.Command{
		Use:   "kg-query <text>",
		Short: "Query memory and the approval log together",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(store memory.Store, _ config.Config, home string) error {
				res, err := memory.Retrieve(cmd.Context(), store, audit.DefaultLog(home), args[0], topK, !noApprovals)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, res.Summarize())
				if len(res.Memory) > 0 {
					fmt.Fprintln(out, "\nMemory matches:")
					for _, r := range res.Memory {
						fmt.Fprintf(out, "- %s %.120s\n", r.Kind, r.Text)
					}
				}
				if len(res.Approvals) > 0 {
					fmt.Fprintln(out, "\nApproval matches:")
					for _, a := range res.Approvals {
						answer := a.Answer
						if answer == "" {
							answer = a.Approval
						}
						question := a.Question
						if question == "" {
							question = a.Task
						}
						fmt.Fprintf(out, "- %s %s - %s\n", a.Time().Format("2006-01-02 15:04:05"), answer, question)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&topK, "top-k", 5, "Number of results per source")
	cmd.Flags().BoolVar(&noApprovals, "no-approvals", false, "Do not search the approval audit log")
	return cmd
}

// newMemoryPersonaCmds covers persona-set/show and voice-set/show; both are
// just the latest record of a well-known kind.
func newMemoryPersonaCmds() []*cobra.Command {
	set := func(use, short, kind string) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <text>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd, func(store memory.Store, _ config.Config, _ string) error {
					_, err := store.Add(cmd.Context(), kind, args[0], nil)
					return err
				})
			},
		}
	}
	show := func(use, short, kind, missing string) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd, func(store memory.Store, _ config.Config, _ string) error {
					text, err := memory.LatestOfKind(cmd.Context(), store, kind, 50)
					if err != nil {
						return err
					}
					if text == "" {
						fmt.Fprintln(cmd.OutOrStdout(), missing)
						return nil
					}
					fmt.Fprintln(cmd.OutOrStdout(), text)
					return nil
				})
			},
		}
	}
	return []*cobra.Command{
		set("persona-set", "Set the persistent persona used by the agent", memory.KindPersona),
		show("persona-show", "Show the most recent persona", memory.KindPersona, "No persona set"),
		set("voice-set", "Set the preferred TTS voice", memory.KindVoice),
		show("voice-show", "Show the preferred TTS voice", memory.KindVoice, "No preferred voice set"),
	}
}
