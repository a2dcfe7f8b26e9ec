// Package reputation computes trust scores from peer ratings and decides
// whether an identity may post, reply or rate.
package reputation

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/soonab/Soonab-sub000/config"
	"github.com/soonab/Soonab-sub000/schema"
	"github.com/soonab/Soonab-sub000/store"
)

const logPrefix = "reputation"

//go:generate mockgen -source=engine.go -destination=mocks/mock_notifier.go -package=mocks

// FlagNotifier receives every brigade flag once it is stored.
type FlagNotifier interface {
	Publish(flag schema.BrigadeFlag)
}

type Engine struct {
	store    store.Store
	config   *config.Source
	notifier FlagNotifier
	now      func() time.Time
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func WithNotifier(n FlagNotifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

func New(s store.Store, cfg *config.Source, opts ...Option) *Engine {
	e := &Engine{
		store:  s,
		config: cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Params returns the parameters currently in effect.
func (e *Engine) Params() config.Params {
	return e.config.Reputation()
}

func (e *Engine) clock() time.Time {
	return e.now().UTC()
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func logger(fields log.Fields) *log.Entry {
	fields["prefix"] = logPrefix
	return log.WithFields(fields)
}

// Now is the engine clock in UTC.
func (e *Engine) Now() time.Time {
	return e.clock()
}
