// Package sensitivity ranks input parameters by how far they move the
// reconciled value when swept one at a time across their range.
package sensitivity

import (
	"context"
	"errors"
	"math"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iwvelando/facility-valuation/internal/valuation"
)

var (
	// ErrInvalidRange is returned when a parameter's min exceeds its max.
	ErrInvalidRange = errors.New("parameter min exceeds max")

	// ErrInvalidStep is returned by Curve for a non-positive step.
	ErrInvalidStep = errors.New("parameter step must be positive")

	// ErrInvalidParameter is returned for a parameter without a path or an
	// unknown parameter id.
	ErrInvalidParameter = errors.New("invalid sensitivity parameter")
)

// maxCurvePoints bounds the number of evaluations Curve will run.
const maxCurvePoints = 1000

// Parameter is one sweepable input addressed by a dotted path into the
// scenario, e.g. "facility.occupancyRate" or "settings.assetTypes.snf.capRate.base".
type Parameter struct {
	ID           string   `yaml:"id" json:"id"`
	Label        string   `yaml:"label,omitempty" json:"label,omitempty"`
	Path         string   `yaml:"path" json:"path"`
	Value        *float64 `yaml:"value,omitempty" json:"value,omitempty"`
	DefaultValue float64  `yaml:"defaultValue" json:"defaultValue"`
	Min          float64  `yaml:"min" json:"min"`
	Max          float64  `yaml:"max" json:"max"`
	Step         float64  `yaml:"step,omitempty" json:"step,omitempty"`
	Unit         string   `yaml:"unit,omitempty" json:"unit,omitempty"`
}

func (p Parameter) validate() error {
	if strings.TrimSpace(p.Path) == "" {
		return eris.Wrapf(ErrInvalidParameter, "parameter %q has no path", p.ID)
	}
	if p.Min > p.Max {
		return eris.Wrapf(ErrInvalidRange, "parameter %q: %g > %g", p.ID, p.Min, p.Max)
	}
	return nil
}

// Result is one tornado row.
type Result struct {
	Parameter     string  `yaml:"parameter" json:"parameter"`
	Label         string  `yaml:"label,omitempty" json:"label,omitempty"`
	Path          string  `yaml:"path" json:"path"`
	Min           float64 `yaml:"min" json:"min"`
	Max           float64 `yaml:"max" json:"max"`
	LowValue      float64 `yaml:"lowValue" json:"lowValue"`
	HighValue     float64 `yaml:"highValue" json:"highValue"`
	Range         float64 `yaml:"range" json:"range"`
	BaselineValue float64 `yaml:"baselineValue" json:"baselineValue"`
}

// Report is the tornado for one run. A cancelled run holds only the rows
// that finished before the context ended.
type Report struct {
	Results       []Result `yaml:"results" json:"results"`
	BaselineValue float64  `yaml:"baselineValue" json:"baselineValue"`
	Requested     int      `yaml:"requested" json:"requested"`
	Cancelled     bool     `yaml:"cancelled" json:"cancelled"`
}

// Point is one sample of a sensitivity curve.
type Point struct {
	Input           float64 `yaml:"input" json:"input"`
	ReconciledValue float64 `yaml:"reconciledValue" json:"reconciledValue"`
}

// Options tune a sensitivity run.
type Options struct {
	// Locked parameter ids are applied to the baseline but never swept.
	Locked []string
	// Workers bounds concurrent evaluations; zero means GOMAXPROCS.
	Workers int
	// Progress, when set, receives 0-100 as parameters complete.
	Progress func(percent int)
}

// Runner drives the valuation engine as a black box.
type Runner struct {
	logger *zap.Logger
	engine *valuation.Engine
}

// NewRunner constructs a Runner around engine. A nil engine uses a default one.
func NewRunner(logger *zap.Logger, engine *valuation.Engine) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = valuation.NewEngine(logger)
	}
	return &Runner{logger: logger, engine: engine}
}

// Baseline applies every parameter's current value to the scenario.
// Parameters without a current value leave the scenario unchanged.
func Baseline(sc valuation.Scenario, params []Parameter) (valuation.Scenario, error) {
	for _, p := range params {
		if p.Value == nil {
			continue
		}
		next, err := sc.With(p.Path, *p.Value)
		if err != nil {
			return valuation.Scenario{}, eris.Wrapf(err, "parameter %q", p.ID)
		}
		sc = next
	}
	return sc, nil
}

// Run sweeps each unlocked parameter to its min and max and returns the rows
// sorted by descending range. Cancelling ctx stops new parameters from
// starting; the report then carries the rows already computed.
func (r *Runner) Run(ctx context.Context, sc valuation.Scenario, params []Parameter, opts Options) (Report, error) {
	start := time.Now()
	for _, p := range params {
		if err := p.validate(); err != nil {
			return Report{}, err
		}
	}

	base, err := Baseline(sc, params)
	if err != nil {
		return Report{}, err
	}
	baseline, err := r.engine.ValueScenario(base)
	if err != nil {
		return Report{}, eris.Wrap(err, "baseline valuation")
	}

	locked := make(map[string]bool, len(opts.Locked))
	for _, id := range opts.Locked {
		locked[id] = true
	}
	var sweep []Parameter
	for _, p := range params {
		if !locked[p.ID] {
			sweep = append(sweep, p)
		}
	}

	results := make([]Result, len(sweep))
	finished := make([]bool, len(sweep))
	report := newProgress(len(sweep), opts.Progress)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers(opts.Workers))
	for i, p := range sweep {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			low, err := r.valueAt(base, p, p.Min)
			if err != nil {
				return err
			}
			high, err := r.valueAt(base, p, p.Max)
			if err != nil {
				return err
			}
			results[i] = Result{
				Parameter:     p.ID,
				Label:         p.Label,
				Path:          p.Path,
				Min:           p.Min,
				Max:           p.Max,
				LowValue:      low,
				HighValue:     high,
				Range:         math.Abs(high - low),
				BaselineValue: baseline.ReconciledValue,
			}
			finished[i] = true
			report.step()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	completed := results[:0]
	for i, ok := range finished {
		if ok {
			completed = append(completed, results[i])
		}
	}
	results = completed

	sort.SliceStable(results, func(a, b int) bool {
		if results[a].Range != results[b].Range {
			return results[a].Range > results[b].Range
		}
		return results[a].Parameter < results[b].Parameter
	})

	out := Report{
		Results:       results,
		BaselineValue: baseline.ReconciledValue,
		Requested:     len(sweep),
		Cancelled:     ctx.Err() != nil && len(results) < len(sweep),
	}

	r.logger.Info("sensitivity analysis complete",
		zap.String("op", "sensitivity.Run"),
		zap.Int("parameters", len(results)),
		zap.Int("requested", len(sweep)),
		zap.Int("locked", len(params)-len(sweep)),
		zap.Bool("cancelled", out.Cancelled),
		zap.Float64("baseline", baseline.ReconciledValue),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

// Curve returns the reconciled value at every step from min to max.
func (r *Runner) Curve(ctx context.Context, sc valuation.Scenario, params []Parameter, id string) ([]Point, error) {
	var target *Parameter
	for i := range params {
		if params[i].ID == id {
			target = &params[i]
			break
		}
	}
	if target == nil {
		return nil, eris.Wrapf(ErrInvalidParameter, "unknown parameter %q", id)
	}
	if err := target.validate(); err != nil {
		return nil, err
	}
	if target.Step <= 0 {
		return nil, eris.Wrapf(ErrInvalidStep, "parameter %q", id)
	}

	base, err := Baseline(sc, params)
	if err != nil {
		return nil, err
	}

	var points []Point
	for i := 0; i < maxCurvePoints; i++ {
		x := target.Min + float64(i)*target.Step
		if x > target.Max+target.Step*1e-9 {
			break
		}
		if err := ctx.Err(); err != nil {
			return points, err
		}
		v, err := r.valueAt(base, *target, x)
		if err != nil {
			return nil, err
		}
		points = append(points, Point{Input: x, ReconciledValue: v})
	}
	return points, nil
}

func (r *Runner) valueAt(sc valuation.Scenario, p Parameter, x float64) (float64, error) {
	perturbed, err := sc.With(p.Path, x)
	if err != nil {
		return 0, eris.Wrapf(err, "parameter %q", p.ID)
	}
	result, err := r.engine.ValueScenario(perturbed)
	if err != nil {
		return 0, eris.Wrapf(err, "parameter %q at %g", p.ID, x)
	}
	return result.ReconciledValue, nil
}

func workers(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}

// progress serialises callbacks and keeps reported percentages increasing.
type progress struct {
	mu    sync.Mutex
	total int
	done  int
	last  int
	fn    func(int)
}

func newProgress(total int, fn func(int)) *progress {
	return &progress{total: total, last: -1, fn: fn}
}

func (p *progress) step() {
	if p.fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	pct := 100
	if p.total > 0 {
		pct = p.done * 100 / p.total
	}
	if pct > p.last {
		p.last = pct
		p.fn(pct)
	}
}
