// services/scheduler.go
package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"skirmish-server/game"
	"skirmish-server/logging"
	"skirmish-server/store"
)

// IdleReaper completes in-progress matches nobody has played for IdleTimeout.
type IdleReaper struct {
	Matches     *store.MatchStore
	Engine      *game.Engine
	IdleTimeout time.Duration
	BatchSize   int

	now func() time.Time
}

func NewIdleReaper(matches *store.MatchStore, engine *game.Engine, idle time.Duration) *IdleReaper {
	return &IdleReaper{
		Matches:     matches,
		Engine:      engine,
		IdleTimeout: idle,
		BatchSize:   100,
		now:         time.Now,
	}
}

// Sweep completes one batch of idle matches and reports how many it closed.
func (r *IdleReaper) Sweep(ctx context.Context) (int, error) {
	cutoff := r.now().Add(-r.IdleTimeout)
	ids, err := r.Matches.ListIdle(ctx, cutoff, r.BatchSize)
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, id := range ids {
		ok, err := r.Engine.CompleteIdle(ctx, id, cutoff)
		if err != nil {
			logging.Error("failed to complete idle match", zap.String("match_id", id), zap.Error(err))
			continue
		}
		if ok {
			closed++
			logging.Info("idle match completed", zap.String("match_id", id))
		}
	}
	return closed, nil
}

// Start runs Sweep every interval until the returned scheduler is shut down.
func (r *IdleReaper) Start(interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if _, err := r.Sweep(context.Background()); err != nil {
				logging.Error("idle sweep failed", zap.Error(err))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	return sched, nil
}
