package forecastmodel

import (
	"context"
	"fmt"
	"stock-forecast/pkg/timeseries"
	"time"
)

// projector implements the timestamp side of a model: it knows the training
// range and, optionally, a horizon past which the model refuses to project.
type projector struct {
	cal          *timeseries.Calendar
	historyStart time.Time
	historyFreq  timeseries.Frequency
	trainEnd     time.Time
	maxHorizon   int
}

func newProjector(cal *timeseries.Calendar, a *Artifact) projector {
	return projector{
		cal:          cal,
		historyStart: a.HistoryStart.Time,
		historyFreq:  a.HistoryFrequency,
		trainEnd:     timeseries.TruncateDay(a.TrainEnd.Time),
		maxHorizon:   a.MaxHorizon,
	}
}

func (p projector) LastTrainingDate() time.Time {
	return p.trainEnd
}

func (p projector) ProjectFuture(ctx context.Context, periods int, freq timeseries.Frequency, includeHistory bool) ([]time.Time, error) {
	future, err := p.ProjectAfter(ctx, p.trainEnd, periods, freq)
	if err != nil {
		return nil, err
	}
	if !includeHistory || p.historyStart.IsZero() {
		return future, nil
	}

	history, err := p.history()
	if err != nil {
		return nil, err
	}
	return append(history, future...), nil
}

// ProjectAfter returns up to periods steps after the given timestamp. Fewer
// are returned when the horizon is reached.
func (p projector) ProjectAfter(ctx context.Context, after time.Time, periods int, freq timeseries.Frequency) ([]time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !freq.Valid() {
		return nil, fmt.Errorf("%q, %w", freq, timeseries.ErrUnsupportedFrequency)
	}
	steps, err := p.cal.Steps(after, periods, freq)
	if err != nil {
		return nil, err
	}
	if p.maxHorizon <= 0 {
		return steps, nil
	}

	limit := p.trainEnd.AddDate(0, 0, p.maxHorizon)
	for i, t := range steps {
		if t.After(limit) {
			return steps[:i], nil
		}
	}
	return steps, nil
}

func (p projector) history() ([]time.Time, error) {
	start := timeseries.TruncateDay(p.historyStart)
	if start.After(p.trainEnd) {
		return nil, fmt.Errorf("history start %s after train end %s", timeseries.FormatDate(start), timeseries.FormatDate(p.trainEnd))
	}
	n, err := p.cal.StepsBetween(start, p.trainEnd, p.historyFreq)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, n+1)
	if p.cal.IsStep(start, p.historyFreq) {
		out = append(out, start)
	}
	steps, err := p.cal.Steps(start, n, p.historyFreq)
	if err != nil {
		return nil, err
	}
	for _, t := range steps {
		if t.After(p.trainEnd) {
			break
		}
		out = append(out, t)
	}
	return out, nil
}
