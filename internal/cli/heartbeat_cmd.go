package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/loteknowledG/samus-manus/internal/audit"
	"github.com/loteknowledG/samus-manus/internal/config"
	"github.com/loteknowledG/samus-manus/internal/heartbeat"
	"github.com/loteknowledG/samus-manus/internal/memory"
	"github.com/loteknowledG/samus-manus/internal/speech"
	"github.com/loteknowledG/samus-manus/internal/statusapi"
	"github.com/loteknowledG/samus-manus/internal/telemetry"
)

func newHeartbeatCmd() *cobra.Command {
	var (
		once          bool
		intervalSec   int
		announce      bool
		background    bool
		stop          bool
		status        bool
		autoApply     bool
		autoApplyMode string
		httpAddr      string
	)

	cmd := &cobra.Command{
		Use:   "heartbeat",
		Short: "Poll the task queue and run pending tasks on an interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			home := config.MustHomeFrom(ctx)
			cfg, err := config.Load(home)
			if err != nil {
				return err
			}
			state := heartbeat.DefaultStateFile(home)

			if stop {
				stopped, err := heartbeat.StopBackground(ctx, state)
				if err != nil {
					return err
				}
				if stopped {
					fmt.Fprintln(cmd.OutOrStdout(), "Heartbeat stopped")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "No heartbeat running")
				}
				return nil
			}

			if status {
				st := state.Load()
				running, pid := heartbeat.Running(state)
				fmt.Fprintf(cmd.OutOrStdout(), "running: %v\n", running)
				if running {
					fmt.Fprintf(cmd.OutOrStdout(), "pid: %d\n", pid)
				}
				if st.LastHeartbeat != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "last heartbeat: %s\n",
						time.Unix(int64(*st.LastHeartbeat), 0).Format("2006-01-02 15:04:05"))
				}
				if st.Interval > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "interval: %ds\n", st.Interval)
				}
				if st.AutoApply {
					fmt.Fprintf(cmd.OutOrStdout(), "auto-apply: %v (%s)\n", st.AutoApply, st.AutoApplyMode)
				}
				return nil
			}

			if intervalSec <= 0 {
				intervalSec = cfg.HeartbeatInterval
			}
			interval := time.Duration(intervalSec) * time.Second
			if autoApplyMode != "" && autoApplyMode != heartbeat.ModeGlobal && autoApplyMode != heartbeat.ModeWhitelist {
				return fmt.Errorf("--auto-apply-mode must be %q or %q", heartbeat.ModeGlobal, heartbeat.ModeWhitelist)
			}

			if background {
				pid, err := heartbeat.StartBackground(ctx, state, heartbeat.BackgroundArgs{
					Home:          home,
					Interval:      interval,
					Announce:      announce,
					AutoApply:     autoApply,
					AutoApplyMode: autoApplyMode,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Heartbeat started, pid %d\n", pid)
				return nil
			}

			store, err := openStore(home, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			// A previously saved auto-apply preference governs runs where the
			// flags are unset.
			globalApply, applyMode := heartbeat.ResolveApplyPolicy(state.Load(), autoApply, autoApplyMode)

			hb := &heartbeat.Heartbeat{
				Queue:     heartbeat.DefaultQueue(home),
				State:     state,
				Runner:    &heartbeat.LoopRunner{Loop: newLoop(home, cfg, store, "y")},
				Announcer: newAnnouncer(ctx, cmd, cfg, store),
			}
			opts := heartbeat.Options{
				Interval:    interval,
				Announce:    announce || cfg.Announce,
				GlobalApply: globalApply,
				Mode:        applyMode,
				Out:         cmd.OutOrStdout(),
			}

			if once {
				return hb.CheckOnce(ctx, opts)
			}
			return runForeground(ctx, hb, opts, home, httpAddr)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "Run one check and exit")
	cmd.Flags().IntVar(&intervalSec, "interval", 0, "Interval in seconds (default from config, 1800)")
	cmd.Flags().BoolVar(&announce, "announce", false, "Announce heartbeat and tasks over TTS")
	cmd.Flags().BoolVar(&background, "background", false, "Start as a detached background process")
	cmd.Flags().BoolVar(&stop, "stop", false, "Stop a background heartbeat")
	cmd.Flags().BoolVar(&status, "status", false, "Show heartbeat status")
	cmd.Flags().BoolVar(&autoApply, "auto-apply", false, "Run pending tasks with real actions")
	cmd.Flags().StringVar(&autoApplyMode, "auto-apply-mode", "", "How --auto-apply applies: global (all pending) or whitelist (flagged tasks only)")
	cmd.Flags().StringVar(&httpAddr, "http", "", "Serve status and metrics on this address (e.g. :8673)")
	return cmd
}

// runForeground runs the heartbeat loop, plus the status server when an
// address was given, until the context is cancelled.
func runForeground(ctx context.Context, hb *heartbeat.Heartbeat, opts heartbeat.Options, home, httpAddr string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := hb.Run(ctx, opts)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if httpAddr != "" {
		metrics, err := telemetry.InitMeterProvider(ctx, "samus")
		if err != nil {
			return err
		}
		srv := statusapi.NewServer(statusapi.ServerOptions{
			Addr:           httpAddr,
			Queue:          hb.Queue,
			State:          hb.State,
			Audit:          audit.DefaultLog(home),
			MetricsHandler: metrics,
		})
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	return g.Wait()
}

// newAnnouncer prefers the voice stored in memory, then the configured one,
// and degrades to printed lines when no TTS engine exists.
func newAnnouncer(ctx context.Context, cmd *cobra.Command, cfg config.Config, store memory.Store) heartbeat.Announcer {
	voice := cfg.Voice
	if v, err := memory.LatestOfKind(ctx, store, memory.KindVoice, 50); err == nil && v != "" {
		voice = v
	}
	if a := speech.Detect(voice); a != nil {
		return a
	}
	return &speech.PrintAnnouncer{Out: cmd.OutOrStdout()}
}
