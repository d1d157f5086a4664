package server

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/gate-controller/internal/logger"
)

// tickJobName names the monitor job in scheduler logs.
const tickJobName = "gate-monitor-tick"

// ticker is anything that runs one evaluation pass.
type ticker interface {
	Tick(ctx context.Context)
}

// newTickScheduler schedules t every period. A tick that is still running when
// the next one is due is rescheduled instead of run concurrently.
func newTickScheduler(
	ctx context.Context,
	t ticker,
	period time.Duration,
	clock clockwork.Clock,
) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler(
		gocron.WithClock(clock),
		gocron.WithLogger(logger.NewKVLogger(logger.FromContext(ctx).Named("scheduler"), zapcore.WarnLevel)),
	)
	if err != nil {
		return nil, fmt.Errorf("create tick scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(period),
		gocron.NewTask(func() {
			t.Tick(ctx)
		}),
		gocron.WithName(tickJobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()

		return nil, fmt.Errorf("schedule monitor tick: %w", err)
	}

	return s, nil
}
