// Package planner computes the exact timestamps a forecast request feeds to
// the model, reconciling the model's training cutoff with the requested start.
package planner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"stock-forecast/internal/apperror"
	"stock-forecast/internal/contract"
	"stock-forecast/pkg/logger"
	"stock-forecast/pkg/timeseries"
	"time"
)

const (
	defaultMaxExtendRounds = 8
	// ten years of calendar days past the training cutoff
	defaultMaxStartAheadDays = 3650
)

type Request struct {
	Start     time.Time
	Period    int
	Frequency timeseries.Frequency
}

type Plan struct {
	Timestamps       []time.Time
	LastTrainingDate time.Time
	RequestedStart   time.Time
	EffectiveStart   time.Time
	// Gap is the number of frequency steps between the cutoff and EffectiveStart.
	Gap      int
	Adjusted bool
	Notice   string
}

type Planner interface {
	Plan(ctx context.Context, f contract.FutureProjector, cutoff time.Time, req Request) (*Plan, error)
}

type planner struct {
	cal           *timeseries.Calendar
	maxRounds     int
	maxStartAhead int
	log           *logger.Logger
}

// New builds a Planner. maxStartAheadDays bounds how many calendar days past
// the training cutoff a request may start.
func New(cal *timeseries.Calendar, maxExtendRounds, maxStartAheadDays int, log *logger.Logger) Planner {
	if maxExtendRounds <= 0 {
		maxExtendRounds = defaultMaxExtendRounds
	}
	if maxStartAheadDays <= 0 {
		maxStartAheadDays = defaultMaxStartAheadDays
	}
	return &planner{
		cal:           cal,
		maxRounds:     maxExtendRounds,
		maxStartAhead: maxStartAheadDays,
		log:           log,
	}
}

// window accumulates qualifying steps: at or after the effective start, first
// occurrence wins.
type window struct {
	from  time.Time
	seen  map[time.Time]struct{}
	steps []time.Time
	last  time.Time
}

func newWindow(from, cutoff time.Time, capacity int) *window {
	return &window{
		from:  from,
		seen:  make(map[time.Time]struct{}, capacity),
		steps: make([]time.Time, 0, capacity),
		last:  cutoff,
	}
}

// add returns how many projected timestamps lie beyond the furthest step seen so far.
func (w *window) add(ts []time.Time) int {
	advanced := 0
	for _, t := range ts {
		t = timeseries.TruncateDay(t)
		if t.After(w.last) {
			w.last = t
			advanced++
		}
		if t.Before(w.from) {
			continue
		}
		if _, dup := w.seen[t]; dup {
			continue
		}
		w.seen[t] = struct{}{}
		w.steps = append(w.steps, t)
	}
	return advanced
}

func (p *planner) Plan(ctx context.Context, f contract.FutureProjector, cutoff time.Time, req Request) (*Plan, error) {
	if req.Period <= 0 {
		return nil, fmt.Errorf("period must be positive, got %d: %w", req.Period, apperror.ErrInvalidArgument)
	}
	if !req.Frequency.Valid() {
		return nil, fmt.Errorf("frequency %q: %w", req.Frequency, apperror.ErrInvalidArgument)
	}
	if req.Start.IsZero() {
		return nil, fmt.Errorf("start date is required: %w", apperror.ErrInvalidArgument)
	}

	cutoff = timeseries.TruncateDay(cutoff)
	plan := &Plan{
		LastTrainingDate: cutoff,
		RequestedStart:   timeseries.TruncateDay(req.Start),
		EffectiveStart:   timeseries.TruncateDay(req.Start),
	}
	if !plan.RequestedStart.After(cutoff) {
		plan.EffectiveStart = cutoff
		plan.Adjusted = true
		plan.Notice = fmt.Sprintf(
			"Start date %s is on or before the model's last training date; the forecast starts from %s instead.",
			timeseries.FormatDate(plan.RequestedStart), timeseries.FormatDate(cutoff),
		)
		p.log.InfoContext(ctx, "Forecast start adjusted to training cutoff",
			logger.DateField("requested_start", plan.RequestedStart),
			logger.DateField("effective_start", cutoff),
		)
	}

	if limit := cutoff.AddDate(0, 0, p.maxStartAhead); plan.EffectiveStart.After(limit) {
		return nil, fmt.Errorf("start date %s is more than %d days after the last training date %s: %w",
			timeseries.FormatDate(plan.EffectiveStart), p.maxStartAhead, timeseries.FormatDate(cutoff), apperror.ErrInvalidArgument)
	}

	gap, err := p.cal.StepsBetween(cutoff, plan.EffectiveStart, req.Frequency)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, apperror.ErrInvalidArgument)
	}
	plan.Gap = gap

	requested := gap + req.Period
	projected, err := f.ProjectFuture(ctx, requested, req.Frequency, false)
	if err != nil {
		return nil, projectionError(err)
	}

	w := newWindow(plan.EffectiveStart, cutoff, req.Period+1)
	if plan.EffectiveStart.Equal(cutoff) && p.cal.IsStep(cutoff, req.Frequency) {
		w.add([]time.Time{cutoff})
	}
	w.add(projected)

	for round := 0; len(w.steps) < req.Period; round++ {
		if round >= p.maxRounds {
			return nil, fmt.Errorf("only %d of %d steps after %d extensions: %w",
				len(w.steps), req.Period, round, apperror.ErrExhausted)
		}

		need := req.Period - len(w.steps)
		var more []time.Time
		if ext, ok := f.(contract.FutureExtender); ok {
			more, err = ext.ProjectAfter(ctx, w.last, need, req.Frequency)
		} else {
			requested += need
			more, err = f.ProjectFuture(ctx, requested, req.Frequency, false)
		}
		if err != nil {
			return nil, projectionError(err)
		}
		if w.add(more) == 0 {
			return nil, fmt.Errorf("forecaster cannot project past %s (%d of %d steps): %w",
				timeseries.FormatDate(w.last), len(w.steps), req.Period, apperror.ErrExhausted)
		}
		p.log.DebugContext(ctx, "Extended projection window",
			logger.IntField("round", round+1),
			logger.DateField("last_step", w.last),
			logger.IntField("have", len(w.steps)),
		)
	}

	slices.SortFunc(w.steps, func(a, b time.Time) int { return a.Compare(b) })
	plan.Timestamps = w.steps[:req.Period]
	return plan, nil
}

func projectionError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("project future steps: %w", err)
	}
	return fmt.Errorf("project future steps: %v: %w", err, apperror.ErrPredictionFailed)
}
