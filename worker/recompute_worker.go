package worker

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	logPrefix = "worker"

	// idleInterval is how often a disabled worker rereads its interval.
	idleInterval = time.Minute
)

type Recomputer interface {
	RecomputeAll(ctx context.Context) (int, error)
}

// Sweeper drops expired in-memory state, e.g. rate limiter windows.
type Sweeper interface {
	Sweep() int
}

// RecomputeWorker periodically rebuilds every cached score so retuned
// parameters and recency decay reach scores nobody rated recently.
type RecomputeWorker struct {
	Engine   Recomputer
	Interval func() time.Duration
	Sweepers []Sweeper

	idle time.Duration
}

// NewRecomputeWorker reads interval before every run; a non-positive
// interval pauses recomputation while sweeping continues.
func NewRecomputeWorker(engine Recomputer, interval func() time.Duration, sweepers ...Sweeper) *RecomputeWorker {
	return &RecomputeWorker{
		Engine:   engine,
		Interval: interval,
		Sweepers: sweepers,
		idle:     idleInterval,
	}
}

func (w *RecomputeWorker) Run(ctx context.Context) {
	log.WithFields(log.Fields{
		"prefix":   logPrefix,
		"interval": w.Interval(),
	}).Info("recompute worker started")

	for {
		wait := w.Interval()
		enabled := wait > 0
		if !enabled {
			wait = w.idle
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.WithField("prefix", logPrefix).Info("recompute worker stopped")
			return
		case <-timer.C:
			if enabled {
				w.ProcessRecompute(ctx)
			}
			w.sweep()
		}
	}
}

// ProcessRecompute runs one full recompute and logs its outcome.
func (w *RecomputeWorker) ProcessRecompute(ctx context.Context) int {
	started := time.Now()
	n, err := w.Engine.RecomputeAll(ctx)
	if err != nil {
		log.WithFields(log.Fields{
			"prefix":   logPrefix,
			"subjects": n,
			"error":    err,
		}).Error("recompute all")
		return n
	}

	log.WithFields(log.Fields{
		"prefix":   logPrefix,
		"subjects": n,
		"elapsed":  time.Since(started),
	}).Debug("recompute finished")
	return n
}

func (w *RecomputeWorker) sweep() {
	for _, s := range w.Sweepers {
		if n := s.Sweep(); n > 0 {
			log.WithFields(log.Fields{
				"prefix":  logPrefix,
				"expired": n,
			}).Debug("swept expired windows")
		}
	}
}
