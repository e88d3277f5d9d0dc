package planner

import (
	"context"
	"errors"
	"stock-forecast/internal/apperror"
	"stock-forecast/internal/forecastmodel"
	"stock-forecast/pkg/logger"
	"stock-forecast/pkg/timeseries"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProjector emits daily steps after the cutoff. With duplicate set every
// step is emitted twice, so a request for n steps yields n/2 distinct dates.
type stubProjector struct {
	cutoff    time.Time
	horizon   int
	duplicate bool
	fail      error
	requested []int
}

func (s *stubProjector) steps(after time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	cur := after
	limit := s.cutoff.AddDate(0, 0, s.horizon)
	for len(out) < n {
		cur = cur.AddDate(0, 0, 1)
		if s.horizon > 0 && cur.After(limit) {
			break
		}
		out = append(out, cur)
		if s.duplicate && len(out) < n {
			out = append(out, cur)
		}
	}
	return out
}

func (s *stubProjector) ProjectFuture(ctx context.Context, periods int, freq timeseries.Frequency, includeHistory bool) ([]time.Time, error) {
	s.requested = append(s.requested, periods)
	if s.fail != nil {
		return nil, s.fail
	}
	return s.steps(s.cutoff, periods), nil
}

type stubExtender struct {
	*stubProjector
	after []time.Time
}

func (s *stubExtender) ProjectAfter(ctx context.Context, after time.Time, periods int, freq timeseries.Frequency) ([]time.Time, error) {
	s.after = append(s.after, after)
	return s.steps(after, periods), nil
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := timeseries.ParseDate(s)
	require.NoError(t, err)
	return d
}

func dates(ts []time.Time) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = timeseries.FormatDate(t)
	}
	return out
}

func newPlanner() Planner {
	return New(timeseries.NewCalendar(), 16, 0, logger.NewNop())
}

func assertWellFormed(t *testing.T, plan *Plan, period int) {
	t.Helper()
	require.Len(t, plan.Timestamps, period)
	for i, ts := range plan.Timestamps {
		assert.False(t, ts.Before(plan.EffectiveStart), "step %d before effective start", i)
		if i > 0 {
			assert.True(t, ts.After(plan.Timestamps[i-1]), "step %d not strictly increasing", i)
		}
	}
}

func TestPlanClampsStartToCutoff(t *testing.T) {
	cutoff := date(t, "2024-01-01")
	f := &stubProjector{cutoff: cutoff}

	plan, err := newPlanner().Plan(context.Background(), f, cutoff, Request{
		Start:     date(t, "2023-06-01"),
		Period:    5,
		Frequency: timeseries.Daily,
	})
	require.NoError(t, err)

	assert.True(t, plan.Adjusted)
	assert.NotEmpty(t, plan.Notice)
	assert.Equal(t, cutoff, plan.EffectiveStart)
	assert.Equal(t, 0, plan.Gap)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"}, dates(plan.Timestamps))
	assertWellFormed(t, plan, 5)
}

func TestPlanStartOnCutoffIsAdjusted(t *testing.T) {
	cutoff := date(t, "2024-01-01")
	plan, err := newPlanner().Plan(context.Background(), &stubProjector{cutoff: cutoff}, cutoff, Request{
		Start:     cutoff,
		Period:    3,
		Frequency: timeseries.Daily,
	})
	require.NoError(t, err)
	assert.True(t, plan.Adjusted)
	assert.Equal(t, "2024-01-01", timeseries.FormatDate(plan.Timestamps[0]))
}

func TestPlanSkipsGapAfterCutoff(t *testing.T) {
	cutoff := date(t, "2024-01-01")
	f := &stubProjector{cutoff: cutoff}

	plan, err := newPlanner().Plan(context.Background(), f, cutoff, Request{
		Start:     date(t, "2024-02-01"),
		Period:    10,
		Frequency: timeseries.Daily,
	})
	require.NoError(t, err)

	assert.False(t, plan.Adjusted)
	assert.Empty(t, plan.Notice)
	assert.Equal(t, 31, plan.Gap)
	require.NotEmpty(t, f.requested)
	assert.GreaterOrEqual(t, f.requested[0], 41)
	assert.Equal(t, []string{
		"2024-02-01", "2024-02-02", "2024-02-03", "2024-02-04", "2024-02-05",
		"2024-02-06", "2024-02-07", "2024-02-08", "2024-02-09", "2024-02-10",
	}, dates(plan.Timestamps))
	assertWellFormed(t, plan, 10)
}

func TestPlanIsIdempotent(t *testing.T) {
	cutoff := date(t, "2024-01-01")
	p := newPlanner()
	req := Request{Start: date(t, "2024-03-15"), Period: 20, Frequency: timeseries.Daily}

	first, err := p.Plan(context.Background(), &stubProjector{cutoff: cutoff}, cutoff, req)
	require.NoError(t, err)
	second, err := p.Plan(context.Background(), &stubProjector{cutoff: cutoff}, cutoff, req)
	require.NoError(t, err)

	assert.Equal(t, first.Timestamps, second.Timestamps)
}

func TestPlanDropsDuplicatesAndPads(t *testing.T) {
	cutoff := date(t, "2024-01-01")
	want := []string{"2024-01-11", "2024-01-12", "2024-01-13", "2024-01-14", "2024-01-15", "2024-01-16"}

	t.Run("incremental extension", func(t *testing.T) {
		f := &stubExtender{stubProjector: &stubProjector{cutoff: cutoff, duplicate: true}}
		plan, err := newPlanner().Plan(context.Background(), f, cutoff, Request{
			Start:     date(t, "2024-01-11"),
			Period:    6,
			Frequency: timeseries.Daily,
		})
		require.NoError(t, err)
		assert.Equal(t, want, dates(plan.Timestamps))
		require.NotEmpty(t, f.after)
		// extension continues from the last projected step, not the cutoff
		assert.True(t, f.after[0].After(cutoff))
		assertWellFormed(t, plan, 6)
	})

	t.Run("widened window", func(t *testing.T) {
		f := &stubProjector{cutoff: cutoff, duplicate: true}
		plan, err := newPlanner().Plan(context.Background(), f, cutoff, Request{
			Start:     date(t, "2024-01-11"),
			Period:    6,
			Frequency: timeseries.Daily,
		})
		require.NoError(t, err)
		assert.Equal(t, want, dates(plan.Timestamps))
		assert.Greater(t, len(f.requested), 1)
		assertWellFormed(t, plan, 6)
	})
}

func TestPlanBusinessDays(t *testing.T) {
	cal := timeseries.NewCalendar()
	model, err := forecastmodel.NewAdditiveModel(cal, &forecastmodel.Artifact{
		TrainEnd: forecastmodel.Date{Time: date(t, "2024-01-01")},
		Trend:    &forecastmodel.Trend{Intercept: 10},
	})
	require.NoError(t, err)

	tests := []struct {
		name  string
		start string
		want  []string
	}{
		{
			name:  "cutoff on a holiday is not a step",
			start: "2023-12-01",
			want:  []string{"2024-01-02", "2024-01-03", "2024-01-04"},
		},
		{
			name:  "skips weekend and MLK day",
			start: "2024-01-12",
			want:  []string{"2024-01-12", "2024-01-16", "2024-01-17"},
		},
		{
			name:  "start on a weekend moves to next business day",
			start: "2024-01-13",
			want:  []string{"2024-01-16", "2024-01-17", "2024-01-18"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := New(cal, 4, 0, logger.NewNop()).Plan(context.Background(), model, model.LastTrainingDate(), Request{
				Start:     date(t, tt.start),
				Period:    3,
				Frequency: timeseries.BusinessDay,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, dates(plan.Timestamps))
		})
	}
}

func TestPlanExhausted(t *testing.T) {
	cutoff := date(t, "2024-01-01")

	t.Run("bounded extender", func(t *testing.T) {
		f := &stubExtender{stubProjector: &stubProjector{cutoff: cutoff, horizon: 15}}
		_, err := newPlanner().Plan(context.Background(), f, cutoff, Request{
			Start:     date(t, "2024-01-10"),
			Period:    10,
			Frequency: timeseries.Daily,
		})
		assert.ErrorIs(t, err, apperror.ErrExhausted)
	})

	t.Run("bounded projector", func(t *testing.T) {
		f := &stubProjector{cutoff: cutoff, horizon: 15}
		_, err := newPlanner().Plan(context.Background(), f, cutoff, Request{
			Start:     date(t, "2024-01-10"),
			Period:    10,
			Frequency: timeseries.Daily,
		})
		assert.ErrorIs(t, err, apperror.ErrExhausted)
	})

	t.Run("model horizon", func(t *testing.T) {
		model, err := forecastmodel.NewAdditiveModel(timeseries.NewCalendar(), &forecastmodel.Artifact{
			TrainEnd:   forecastmodel.Date{Time: cutoff},
			MaxHorizon: 30,
			Trend:      &forecastmodel.Trend{Intercept: 10},
		})
		require.NoError(t, err)
		_, err = newPlanner().Plan(context.Background(), model, cutoff, Request{
			Start:     date(t, "2024-01-20"),
			Period:    20,
			Frequency: timeseries.Daily,
		})
		assert.ErrorIs(t, err, apperror.ErrExhausted)
	})
}

func TestPlanInvalidArguments(t *testing.T) {
	cutoff := date(t, "2024-01-01")
	tests := []struct {
		name string
		req  Request
	}{
		{name: "zero period", req: Request{Start: cutoff, Period: 0, Frequency: timeseries.Daily}},
		{name: "negative period", req: Request{Start: cutoff, Period: -3, Frequency: timeseries.Daily}},
		{name: "unsupported frequency", req: Request{Start: cutoff, Period: 5, Frequency: "H"}},
		{name: "missing start", req: Request{Period: 5, Frequency: timeseries.Daily}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &stubProjector{cutoff: cutoff}
			_, err := newPlanner().Plan(context.Background(), f, cutoff, tt.req)
			assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
			assert.Empty(t, f.requested)
		})
	}
}

func TestPlanRejectsStartTooFarAhead(t *testing.T) {
	cutoff := date(t, "2024-01-01")
	tests := []struct {
		name  string
		start string
		freq  timeseries.Frequency
	}{
		{name: "business days", start: "9999-12-31", freq: timeseries.BusinessDay},
		{name: "daily", start: "2034-01-01", freq: timeseries.Daily},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &stubProjector{cutoff: cutoff}
			_, err := New(timeseries.NewCalendar(), 4, 3650, logger.NewNop()).Plan(context.Background(), f, cutoff, Request{
				Start:     date(t, tt.start),
				Period:    3,
				Frequency: tt.freq,
			})
			assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
			assert.Empty(t, f.requested)
		})
	}
}

func TestPlanFarStartCountsWholeDays(t *testing.T) {
	cutoff := date(t, "2024-01-01")
	f := &stubProjector{cutoff: cutoff}
	plan, err := New(timeseries.NewCalendar(), 4, 200000, logger.NewNop()).Plan(context.Background(), f, cutoff, Request{
		Start:     date(t, "2400-01-01"),
		Period:    3,
		Frequency: timeseries.Daily,
	})
	require.NoError(t, err)
	assert.Equal(t, 137331, plan.Gap)
	assert.Equal(t, []int{137334}, f.requested)
	assert.Equal(t, []string{"2400-01-01", "2400-01-02", "2400-01-03"}, dates(plan.Timestamps))
}

func TestPlanWrapsProjectionFailure(t *testing.T) {
	cutoff := date(t, "2024-01-01")
	f := &stubProjector{cutoff: cutoff, fail: errors.New("boom")}
	_, err := newPlanner().Plan(context.Background(), f, cutoff, Request{
		Start: cutoff, Period: 5, Frequency: timeseries.Weekly,
	})
	assert.ErrorIs(t, err, apperror.ErrPredictionFailed)
}
