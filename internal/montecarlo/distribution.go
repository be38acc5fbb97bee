package montecarlo

import (
	"errors"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrInvalidDistribution is returned for unknown or inconsistent distributions.
var ErrInvalidDistribution = errors.New("invalid distribution")

// DistributionType names a sampling distribution.
type DistributionType string

const (
	Uniform    DistributionType = "uniform"
	Normal     DistributionType = "normal"
	Triangular DistributionType = "triangular"
)

// Distribution describes how one scenario parameter is sampled. Parameter is a
// dotted path into the scenario. Uniform uses Min and Max, Normal uses Mean and
// StdDev, Triangular uses Min, Mode and Max.
type Distribution struct {
	Parameter string           `yaml:"parameter" json:"parameter"`
	Type      DistributionType `yaml:"distribution" json:"distribution"`
	Min       float64          `yaml:"min,omitempty" json:"min,omitempty"`
	Max       float64          `yaml:"max,omitempty" json:"max,omitempty"`
	Mean      float64          `yaml:"mean,omitempty" json:"mean,omitempty"`
	StdDev    float64          `yaml:"stdDev,omitempty" json:"stdDev,omitempty"`
	Mode      float64          `yaml:"mode,omitempty" json:"mode,omitempty"`
}

// Validate checks the distribution parameters.
func (d Distribution) Validate() error {
	if strings.TrimSpace(d.Parameter) == "" {
		return eris.Wrap(ErrInvalidDistribution, "missing parameter path")
	}
	switch d.Type {
	case Uniform:
		if d.Min > d.Max {
			return eris.Wrapf(ErrInvalidDistribution, "%s: uniform min %g exceeds max %g", d.Parameter, d.Min, d.Max)
		}
	case Normal:
		if d.StdDev < 0 || math.IsNaN(d.StdDev) {
			return eris.Wrapf(ErrInvalidDistribution, "%s: negative stdDev %g", d.Parameter, d.StdDev)
		}
	case Triangular:
		if d.Min > d.Mode || d.Mode > d.Max {
			return eris.Wrapf(ErrInvalidDistribution, "%s: triangular requires min <= mode <= max", d.Parameter)
		}
	default:
		return eris.Wrapf(ErrInvalidDistribution, "%s: unknown distribution %q", d.Parameter, d.Type)
	}
	return nil
}

// Sample draws one value. The distribution must be valid.
func (d Distribution) Sample(r *rand.Rand) float64 {
	switch d.Type {
	case Normal:
		return d.Mean + d.StdDev*r.NormFloat64()
	case Triangular:
		return triangular(r.Float64(), d.Min, d.Mode, d.Max)
	default:
		return d.Min + r.Float64()*(d.Max-d.Min)
	}
}

// triangular is the inverse CDF of the triangular distribution.
func triangular(u, min, mode, max float64) float64 {
	span := max - min
	if span == 0 {
		return min
	}
	if u < (mode-min)/span {
		return min + math.Sqrt(u*span*(mode-min))
	}
	return max - math.Sqrt((1-u)*span*(max-mode))
}
