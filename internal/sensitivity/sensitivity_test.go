package sensitivity

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iwvelando/facility-valuation/internal/valuation"
	"github.com/iwvelando/facility-valuation/pkg/testutil"
)

func noiParameter(id string, min, max float64) Parameter {
	return Parameter{ID: id, Path: "facility.noi", DefaultValue: 1_800_000, Min: min, Max: max, Step: 50_000, Unit: "$"}
}

func TestRunTornadoOrdering(t *testing.T) {
	runner := NewRunner(nil, nil)
	sc := testutil.CapRateScenario()

	// With a 10% cap rate every NOI dollar is worth ten dollars of value.
	params := []Parameter{
		noiParameter("five", 1_000_000, 1_050_000),
		noiParameter("fifty", 1_000_000, 1_500_000),
		noiParameter("ten", 1_000_000, 1_100_000),
	}

	report, err := runner.Run(context.Background(), sc, params, Options{})
	require.NoError(t, err)
	assert.False(t, report.Cancelled)
	assert.InDelta(t, 18_000_000, report.BaselineValue, 1e-3)
	results := report.Results
	require.Len(t, results, 3)

	ids := []string{results[0].Parameter, results[1].Parameter, results[2].Parameter}
	assert.Equal(t, []string{"fifty", "ten", "five"}, ids)
	assert.InDelta(t, 5_000_000, results[0].Range, 1e-3)
	assert.InDelta(t, 1_000_000, results[1].Range, 1e-3)
	assert.InDelta(t, 500_000, results[2].Range, 1e-3)

	for _, r := range results {
		assert.InDelta(t, 18_000_000, r.BaselineValue, 1e-3)
		assert.InDelta(t, 10_000_000, r.LowValue, 1e-3)
	}
}

func TestRunBaselineUsesCurrentValues(t *testing.T) {
	runner := NewRunner(nil, valuation.NewEngine(nil))
	current := 2_000_000.0
	params := []Parameter{
		{ID: "noi", Path: "facility.noi", Value: &current, Min: 1_000_000, Max: 3_000_000},
		{ID: "cap", Path: "settings.assetTypes.snf.capRate.base", Min: 0.09, Max: 0.12},
	}

	report, err := runner.Run(context.Background(), testutil.CapRateScenario(), params, Options{})
	require.NoError(t, err)
	results := report.Results
	for _, r := range results {
		assert.InDelta(t, 20_000_000, r.BaselineValue, 1e-3)
	}

	var capRow Result
	for _, r := range results {
		if r.Parameter == "cap" {
			capRow = r
		}
	}
	assert.InDelta(t, 2_000_000/0.09, capRow.LowValue, 1e-3, "sweeps start from the current NOI")
	assert.InDelta(t, 2_000_000/0.12, capRow.HighValue, 1e-3)
}

func TestRunSkipsLockedParameters(t *testing.T) {
	runner := NewRunner(nil, nil)
	params := []Parameter{
		noiParameter("a", 1_000_000, 2_000_000),
		noiParameter("b", 1_000_000, 1_100_000),
	}

	var mu sync.Mutex
	var reported []int
	report, err := runner.Run(context.Background(), testutil.CapRateScenario(), params, Options{
		Locked:  []string{"a"},
		Workers: 2,
		Progress: func(p int) {
			mu.Lock()
			reported = append(reported, p)
			mu.Unlock()
		},
	})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, 1, report.Requested)
	assert.Equal(t, "b", report.Results[0].Parameter)
	assert.Equal(t, []int{100}, reported)
}

func TestRunErrors(t *testing.T) {
	runner := NewRunner(nil, nil)
	sc := testutil.CapRateScenario()

	_, err := runner.Run(context.Background(), sc, []Parameter{noiParameter("bad", 2, 1)}, Options{})
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = runner.Run(context.Background(), sc, []Parameter{{ID: "x", Path: "facility.unknown", Min: 0, Max: 1}}, Options{})
	assert.Error(t, err)

	_, err = runner.Run(context.Background(), sc, []Parameter{{ID: "nopath", Min: 0, Max: 1}}, Options{})
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestRunCancellationKeepsFinishedRows(t *testing.T) {
	runner := NewRunner(nil, nil)
	params := []Parameter{
		noiParameter("a", 1_000_000, 1_100_000),
		noiParameter("b", 1_000_000, 1_500_000),
		noiParameter("c", 1_000_000, 1_200_000),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// One worker runs parameters in order, so only "a" finishes before the cancel.
	report, err := runner.Run(ctx, testutil.CapRateScenario(), params, Options{
		Workers:  1,
		Progress: func(int) { cancel() },
	})
	require.NoError(t, err)
	assert.True(t, report.Cancelled)
	assert.Equal(t, 3, report.Requested)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "a", report.Results[0].Parameter)
	assert.InDelta(t, 1_000_000, report.Results[0].Range, 1e-3)
	assert.InDelta(t, 18_000_000, report.BaselineValue, 1e-3)

	cancelled, stop := context.WithCancel(context.Background())
	stop()
	report, err = runner.Run(cancelled, testutil.CapRateScenario(), params, Options{})
	require.NoError(t, err)
	assert.True(t, report.Cancelled)
	assert.Empty(t, report.Results)
}

func TestCurve(t *testing.T) {
	runner := NewRunner(nil, nil)
	params := []Parameter{noiParameter("noi", 1_000_000, 1_200_000)}

	points, err := runner.Curve(context.Background(), testutil.CapRateScenario(), params, "noi")
	require.NoError(t, err)
	require.Len(t, points, 5)
	assert.InDelta(t, 10_000_000, points[0].ReconciledValue, 1e-3)
	assert.InDelta(t, 12_000_000, points[4].ReconciledValue, 1e-3)

	params[0].Step = 0
	_, err = runner.Curve(context.Background(), testutil.CapRateScenario(), params, "noi")
	assert.ErrorIs(t, err, ErrInvalidStep)

	_, err = runner.Curve(context.Background(), testutil.CapRateScenario(), params, "missing")
	assert.Error(t, err)
}
