package reputation

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/soonab/Soonab-sub000/schema"
)

const brigadeReason = "distinct_raters_in_window"

// MaybeFlagBrigade records a flag when the target was rated by at least
// BrigadeMinRaters distinct raters within the trailing window. Flags are
// advisory: scores are untouched and every qualifying check flags again.
func (e *Engine) MaybeFlagBrigade(ctx context.Context, surface schema.RatingSurface, target string) (*schema.BrigadeFlag, error) {
	p := e.Params()
	if p.BrigadeMinRaters <= 0 || p.BrigadeWindow <= 0 {
		return nil, nil
	}

	now := e.clock()
	start := now.Add(-p.BrigadeWindow)
	raters, err := e.store.DistinctRatersSince(ctx, surface, target, start)
	if err != nil {
		return nil, fmt.Errorf("count distinct raters: %w", err)
	}
	if len(raters) < p.BrigadeMinRaters {
		return nil, nil
	}

	sort.Strings(raters)
	flag := schema.BrigadeFlag{
		ID:             uuid.New().String(),
		Surface:        surface,
		Target:         target,
		WindowStart:    start,
		WindowEnd:      now,
		Reason:         brigadeReason,
		DistinctRaters: len(raters),
		Raters:         raters,
		CreatedAt:      now,
	}
	if err := e.store.AddBrigadeFlag(ctx, flag); err != nil {
		return nil, fmt.Errorf("add brigade flag: %w", err)
	}

	logger(log.Fields{
		"surface": surface,
		"target":  target,
		"raters":  len(raters),
	}).Warn("possible rating brigade")

	if e.notifier != nil {
		e.notifier.Publish(flag)
	}
	return &flag, nil
}

// ListBrigadeFlags returns recent flags, newest first.
func (e *Engine) ListBrigadeFlags(ctx context.Context, surface schema.RatingSurface, target string, limit int) ([]schema.BrigadeFlag, error) {
	if surface != "" && !surface.Valid() {
		return nil, invalid(RuleInvalidSurface, "unknown rating surface %q", surface)
	}
	return e.store.ListBrigadeFlags(ctx, surface, target, limit)
}
