package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	initMetricsOnce  sync.Once
	actionsCounter   metric.Int64Counter
	approvalsCounter metric.Int64Counter
	ticksCounter     metric.Int64Counter
	tasksCounter     metric.Int64Counter
	planDuration     metric.Float64Histogram
)

// initMetrics creates the meter instruments. Safe to call multiple times;
// only runs once. Called by InitMeterProvider.
func initMetrics() error {
	var err error
	initMetricsOnce.Do(func() {
		m := meter()
		actionsCounter, err = m.Int64Counter("samus_actions_total", metric.WithDescription("Total actions executed or simulated"))
		if err != nil {
			return
		}
		approvalsCounter, err = m.Int64Counter("samus_approvals_total", metric.WithDescription("Total approval decisions recorded"))
		if err != nil {
			return
		}
		ticksCounter, err = m.Int64Counter("samus_heartbeat_ticks_total", metric.WithDescription("Total heartbeat ticks"))
		if err != nil {
			return
		}
		tasksCounter, err = m.Int64Counter("samus_tasks_processed_total", metric.WithDescription("Total queue tasks processed"))
		if err != nil {
			return
		}
		planDuration, err = m.Float64Histogram("samus_plan_duration_seconds", metric.WithDescription("Planner latency in seconds"))
	})
	return err
}

// RecordAction records one executed (or simulated) action.
func RecordAction(ctx context.Context, kind string, applied bool) {
	if actionsCounter == nil {
		return
	}
	actionsCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("applied", applied),
	))
}

// RecordApproval records one approval decision.
func RecordApproval(ctx context.Context, auto bool, answer string) {
	if approvalsCounter == nil {
		return
	}
	approvalsCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("auto", auto),
		attribute.String("answer", answer),
	))
}

// RecordTick records a heartbeat tick with the observed pending count.
func RecordTick(ctx context.Context, pending int) {
	if ticksCounter == nil {
		return
	}
	ticksCounter.Add(ctx, 1, metric.WithAttributes(attribute.Int("pending", pending)))
}

// RecordTask records one processed queue task.
func RecordTask(ctx context.Context, applied bool) {
	if tasksCounter == nil {
		return
	}
	tasksCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("applied", applied)))
}

// RecordPlan records planner latency.
func RecordPlan(ctx context.Context, d time.Duration) {
	if planDuration == nil {
		return
	}
	planDuration.Record(ctx, d.Seconds())
}
