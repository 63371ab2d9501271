package service

import (
	"time"

	"github.com/thenielthevis/capstone-project-sub006/internal/domain/model"
	"github.com/thenielthevis/capstone-project-sub006/internal/domain/port"
	"github.com/thenielthevis/capstone-project-sub006/internal/domain/valueobject"
)

// FreshnessDecider decides whether a request is answered from the cached
// prediction set or needs a new inference run.
type FreshnessDecider struct {
	clock port.Clock
}

// NewFreshnessDecider creates a FreshnessDecider reading "now" from clock.
func NewFreshnessDecider(clock port.Clock) *FreshnessDecider {
	return &FreshnessDecider{clock: clock}
}

// FreshnessRequest carries the caller's flags.
type FreshnessRequest struct {
	ForceRegenerate bool
	ReadOnly        bool
}

// Decide applies the freshness table:
//
//	read-only, no cache        -> NotFound
//	read-only, cached          -> ReturnCached (staleness and force ignored)
//	forced                     -> Compute
//	no cache                   -> Compute
//	cached today               -> ReturnCached
//	cached on an earlier day   -> Compute
func (d *FreshnessDecider) Decide(cached *model.CachedPredictionSet, req FreshnessRequest) valueobject.FreshnessDecision {
	hasCache := !cached.IsEmpty()

	if req.ReadOnly {
		if hasCache {
			return valueobject.DecisionReturnCached
		}
		return valueobject.DecisionNotFound
	}

	if req.ForceRegenerate || !hasCache {
		return valueobject.DecisionCompute
	}

	if d.IsFromToday(cached.PredictedAt) {
		return valueobject.DecisionReturnCached
	}
	return valueobject.DecisionCompute
}

// IsFromToday reports whether t falls on the clock's current local calendar day.
func (d *FreshnessDecider) IsFromToday(t time.Time) bool {
	return SameCalendarDay(t, d.clock.Now())
}

// SameCalendarDay compares year, month and day of t and ref, both viewed in
// ref's location. Time of day is irrelevant.
func SameCalendarDay(t, ref time.Time) bool {
	if t.IsZero() {
		return false
	}
	ty, tm, td := t.In(ref.Location()).Date()
	ry, rm, rd := ref.Date()
	return ty == ry && tm == rm && td == rd
}
