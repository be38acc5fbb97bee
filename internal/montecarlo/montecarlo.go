// Package montecarlo samples uncertain scenario inputs and aggregates the
// distribution of reconciled values.
//
// Samples for every iteration are drawn up front from a single seeded source,
// so a seed reproduces a run regardless of how many workers evaluate it.
package montecarlo

import (
	"context"
	"math"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iwvelando/facility-valuation/internal/valuation"
	"github.com/iwvelando/facility-valuation/pkg/constants"
	"github.com/iwvelando/facility-valuation/pkg/mathutil"
)

// seedStream is the PCG stream selector paired with every seed.
const seedStream = 0x9e3779b97f4a7c15

// Options tune a simulation run.
type Options struct {
	Iterations       int    `yaml:"iterations" json:"iterations"`
	Buckets          int    `yaml:"buckets" json:"buckets"`
	Seed             uint64 `yaml:"seed" json:"seed"`
	Workers          int    `yaml:"workers" json:"workers"`
	ProgressInterval int    `yaml:"progressInterval" json:"progressInterval"`
	// Progress, when set, receives increasing percentages from 0 to 100.
	Progress func(percent int) `yaml:"-" json:"-"`
}

// Overlay returns o with every field set in override applied on top. A
// non-zero iteration count always applies so that out-of-range requests reach
// validation.
func (o Options) Overlay(override *Options) Options {
	if override == nil {
		return o
	}
	if override.Iterations != 0 {
		o.Iterations = override.Iterations
	}
	if override.Buckets > 0 {
		o.Buckets = override.Buckets
	}
	if override.Seed != 0 {
		o.Seed = override.Seed
	}
	if override.Workers > 0 {
		o.Workers = override.Workers
	}
	if override.ProgressInterval > 0 {
		o.ProgressInterval = override.ProgressInterval
	}
	if override.Progress != nil {
		o.Progress = override.Progress
	}
	return o
}

func (o Options) withDefaults() Options {
	if o.Iterations <= 0 {
		o.Iterations = constants.DefaultIterations
	}
	if o.Buckets <= 0 {
		o.Buckets = constants.DefaultHistogramBuckets
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = constants.DefaultProgressInterval
	}
	if o.Seed == 0 {
		o.Seed = uint64(time.Now().UnixNano())
	}
	return o
}

// Percentiles are linear-interpolated order statistics.
type Percentiles struct {
	P5  float64 `yaml:"p5" json:"p5"`
	P25 float64 `yaml:"p25" json:"p25"`
	P50 float64 `yaml:"p50" json:"p50"`
	P75 float64 `yaml:"p75" json:"p75"`
	P95 float64 `yaml:"p95" json:"p95"`
}

// Bucket is one fixed-width histogram bin.
type Bucket struct {
	Min        float64 `yaml:"min" json:"min"`
	Max        float64 `yaml:"max" json:"max"`
	Count      int     `yaml:"count" json:"count"`
	Percentage float64 `yaml:"percentage" json:"percentage"`
}

// Result aggregates the reconciled values of the completed iterations.
type Result struct {
	RunID           string        `yaml:"runId" json:"runId"`
	Mean            float64       `yaml:"mean" json:"mean"`
	Median          float64       `yaml:"median" json:"median"`
	StdDev          float64       `yaml:"stdDev" json:"stdDev"`
	Min             float64       `yaml:"min" json:"min"`
	Max             float64       `yaml:"max" json:"max"`
	Percentiles     Percentiles   `yaml:"percentiles" json:"percentiles"`
	Distribution    []Bucket      `yaml:"distribution" json:"distribution"`
	Iterations      int           `yaml:"iterations" json:"iterations"`
	Requested       int           `yaml:"requested" json:"requested"`
	Seed            uint64        `yaml:"seed" json:"seed"`
	Cancelled       bool          `yaml:"cancelled" json:"cancelled"`
	CalculationTime time.Duration `yaml:"calculationTime" json:"calculationTime"`
}

// Simulator runs Monte Carlo simulations over the valuation engine.
type Simulator struct {
	logger *zap.Logger
	engine *valuation.Engine
}

// NewSimulator constructs a Simulator. A nil engine uses a default one.
func NewSimulator(logger *zap.Logger, engine *valuation.Engine) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = valuation.NewEngine(logger)
	}
	return &Simulator{logger: logger, engine: engine}
}

// Run samples every distribution once per iteration, values the perturbed
// scenario and aggregates the results. Cancelling ctx stops the run at the
// next iteration boundary; the returned result then covers the completed
// iterations and is flagged Cancelled.
func (s *Simulator) Run(ctx context.Context, sc valuation.Scenario, dists []Distribution, opts Options) (Result, error) {
	start := time.Now()
	opts = opts.withDefaults()
	for _, d := range dists {
		if err := d.Validate(); err != nil {
			return Result{}, err
		}
	}

	runID := uuid.NewString()
	samples := draw(dists, opts.Iterations, opts.Seed)
	values := make([]float64, opts.Iterations)
	completed := make([]bool, opts.Iterations)
	report := newProgress(opts.Iterations, opts.ProgressInterval, opts.Progress)

	var next atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < opts.Workers; w++ {
		g.Go(func() error {
			for gctx.Err() == nil {
				i := int(next.Add(1) - 1)
				if i >= opts.Iterations {
					return nil
				}
				v, err := s.iterate(sc, dists, samples[i])
				if err != nil {
					return eris.Wrapf(err, "iteration %d", i)
				}
				values[i] = v
				completed[i] = true
				report.step()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	done := make([]float64, 0, opts.Iterations)
	for i, ok := range completed {
		if ok {
			done = append(done, values[i])
		}
	}

	result := Aggregate(done, opts.Buckets)
	result.RunID = runID
	result.Requested = opts.Iterations
	result.Seed = opts.Seed
	result.Cancelled = ctx.Err() != nil && len(done) < opts.Iterations
	result.CalculationTime = time.Since(start)
	if !result.Cancelled {
		report.finish()
	}

	s.logger.Info("monte carlo simulation complete",
		zap.String("op", "montecarlo.Run"),
		zap.String("run_id", result.RunID),
		zap.Int("iterations", result.Iterations),
		zap.Int("requested", result.Requested),
		zap.Uint64("seed", result.Seed),
		zap.Bool("cancelled", result.Cancelled),
		zap.Float64("mean", result.Mean),
		zap.Duration("elapsed", result.CalculationTime),
	)
	return result, nil
}

func (s *Simulator) iterate(sc valuation.Scenario, dists []Distribution, sample []float64) (float64, error) {
	var err error
	for j, d := range dists {
		if sc, err = sc.With(d.Parameter, sample[j]); err != nil {
			return 0, err
		}
	}
	result, err := s.engine.ValueScenario(sc)
	if err != nil {
		return 0, err
	}
	return result.ReconciledValue, nil
}

// draw returns iterations × len(dists) samples in a fixed order.
func draw(dists []Distribution, iterations int, seed uint64) [][]float64 {
	rng := rand.New(rand.NewPCG(seed, seedStream))
	out := make([][]float64, iterations)
	for i := range out {
		row := make([]float64, len(dists))
		for j, d := range dists {
			row[j] = d.Sample(rng)
		}
		out[i] = row
	}
	return out
}

// Aggregate computes the summary statistics and histogram of values.
func Aggregate(values []float64, buckets int) Result {
	result := Result{Iterations: len(values), Distribution: []Bucket{}}
	if len(values) == 0 {
		return result
	}
	if buckets <= 0 {
		buckets = constants.DefaultHistogramBuckets
	}
	sorted := mathutil.Sorted(values)
	result.Min = sorted[0]
	result.Max = sorted[len(sorted)-1]
	if result.Min == result.Max {
		// A constant sample reports its value exactly.
		result.Mean = result.Min
	} else {
		result.Mean = mathutil.Mean(sorted)
		result.StdDev = mathutil.StdDev(sorted)
	}
	result.Median = mathutil.Percentile(sorted, 50)
	result.Percentiles = Percentiles{
		P5:  mathutil.Percentile(sorted, 5),
		P25: mathutil.Percentile(sorted, 25),
		P50: result.Median,
		P75: mathutil.Percentile(sorted, 75),
		P95: mathutil.Percentile(sorted, 95),
	}
	result.Distribution = histogram(sorted, result.Min, result.Max, buckets)
	return result
}

func histogram(values []float64, min, max float64, buckets int) []Bucket {
	width := (max - min) / float64(buckets)
	if width == 0 || math.IsNaN(width) || math.IsInf(width, 0) {
		return []Bucket{{Min: min, Max: max, Count: len(values), Percentage: constants.PercentageMultiplier}}
	}
	out := make([]Bucket, buckets)
	for i := range out {
		out[i].Min = min + float64(i)*width
		out[i].Max = min + float64(i+1)*width
	}
	out[buckets-1].Max = max
	for _, v := range values {
		idx := int((v - min) / width)
		if idx >= buckets {
			idx = buckets - 1
		}
		if idx < 0 {
			idx = 0
		}
		out[idx].Count++
	}
	for i := range out {
		out[i].Percentage = mathutil.CalculatePercentage(float64(out[i].Count), float64(len(values)))
	}
	return out
}

// progress reports at most once per interval and never goes backwards.
type progress struct {
	mu       sync.Mutex
	total    int
	interval int
	done     int
	last     int
	fn       func(int)
}

func newProgress(total, interval int, fn func(int)) *progress {
	return &progress{total: total, interval: interval, last: -1, fn: fn}
}

func (p *progress) step() {
	if p.fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	if p.done%p.interval != 0 || p.done == p.total {
		return
	}
	p.emit(p.done * 100 / p.total)
}

func (p *progress) finish() {
	if p.fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emit(100)
}

func (p *progress) emit(pct int) {
	if pct > p.last {
		p.last = pct
		p.fn(pct)
	}
}
