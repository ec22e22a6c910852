package subscription

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const sweeperName = "SubscriptionSweeper"

// Sweeper runs ExpireLapsed on a cron schedule.
type Sweeper struct {
	svc  *Service
	cron *cron.Cron
	log  zerolog.Logger
}

// NewSweeper schedules svc.ExpireLapsed with spec (standard cron syntax or
// descriptors such as "@hourly").
func NewSweeper(svc *Service, spec string, log zerolog.Logger) (*Sweeper, error) {
	sw := &Sweeper{svc: svc, cron: cron.New(), log: log.With().Str("worker", sweeperName).Logger()}
	if _, err := sw.cron.AddFunc(spec, sw.run); err != nil {
		return nil, err
	}
	return sw, nil
}

func (sw *Sweeper) Start() { sw.cron.Start() }

// Stop waits for a running sweep to finish or ctx to end.
func (sw *Sweeper) Stop(ctx context.Context) error {
	done := sw.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (sw *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	n, err := sw.svc.ExpireLapsed(ctx)
	if err != nil {
		sw.log.Error().Err(err).Msg("expire subscriptions")
		return
	}
	if n > 0 {
		sw.log.Info().Int64("expired", n).Msg("subscriptions expired")
	}
}
