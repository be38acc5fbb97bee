package valuation

import (
	"fmt"
	"math"
	"strings"

	"github.com/iwvelando/facility-valuation/internal/settings"
)

// subject is the normalised view of a facility shared by the calculators.
type subject struct {
	facility  Facility
	beds      *float64
	quality   *float64
	medicaid  *float64
	region    settings.Region
	regionKey string
	hasRegion bool
}

func newSubject(f Facility, s settings.Settings) subject {
	sub := subject{facility: f}
	if f.Beds != nil {
		beds := float64(*f.Beds)
		sub.beds = &beds
	}
	sub.quality = qualityRating(f, s.CMSScoring)
	if f.PayerMix != nil {
		medicaid := f.PayerMix.Medicaid
		sub.medicaid = &medicaid
	}
	sub.region, sub.regionKey, sub.hasRegion = s.RegionFor(f.Region, f.State)
	return sub
}

// qualityRating returns the overall star rating, falling back to the
// CMS-weighted composite of the available sub-ratings. Zero means unrated.
func qualityRating(f Facility, weights settings.CMSScoringWeights) *float64 {
	if f.QualityRating != nil && *f.QualityRating > 0 {
		q := float64(*f.QualityRating)
		return &q
	}
	if f.CMSRatings == nil {
		return nil
	}
	var total, weight float64
	for _, part := range []struct {
		rating *int
		weight float64
	}{
		{f.CMSRatings.HealthInspection, weights.HealthInspection},
		{f.CMSRatings.Staffing, weights.Staffing},
		{f.CMSRatings.QualityMeasures, weights.QualityMeasures},
	} {
		if part.rating == nil || *part.rating <= 0 || part.weight <= 0 {
			continue
		}
		total += float64(*part.rating) * part.weight
		weight += part.weight
	}
	if weight == 0 {
		return nil
	}
	q := math.Round(total / weight)
	return &q
}

// requirement is one attribute a method needs.
type requirement struct {
	name      string
	present   bool
	essential bool
}

func has[T any](p *T) bool { return p != nil }

// step is one bracket lookup. A step with available false is skipped.
type step struct {
	label     string
	available bool
	lookup    func() (string, float64, bool)
}

func numericStep(label string, table settings.NumericTable, value *float64) step {
	return step{
		label:     label,
		available: value != nil,
		lookup: func() (string, float64, bool) {
			b, ok := table.Lookup(*value)
			return b.Name, b.Adjustment, ok
		},
	}
}

func categoryStep(label string, table settings.CategoryTable, value string) step {
	return step{
		label:     label,
		available: strings.TrimSpace(value) != "",
		lookup: func() (string, float64, bool) {
			b, ok := table.Lookup(value)
			name := b.Name
			if name == "" {
				name = b.Match
			}
			return name, b.Adjustment, ok
		},
	}
}

// builder accumulates a MethodResult while a calculator runs.
type builder struct {
	result MethodResult
}

func newBuilder(method string) *builder {
	return &builder{result: MethodResult{Method: method, Confidence: ConfidenceHigh, Applicable: true}}
}

func (b *builder) number(name string, v float64) {
	b.result.Inputs = append(b.result.Inputs, NumberInput(name, v))
}

func (b *builder) text(name, v string) {
	b.result.Inputs = append(b.result.Inputs, TextInput(name, v))
}

func (b *builder) note(format string, args ...any) {
	b.result.Notes = append(b.result.Notes, fmt.Sprintf(format, args...))
}

func (b *builder) adjust(description string, impact float64) {
	b.result.Adjustments = append(b.result.Adjustments, Adjustment{Description: description, Impact: impact})
}

func (b *builder) downgrade() {
	b.result.Confidence = b.result.Confidence.Downgrade()
}

// require checks the attribute list, downgrading once per missing attribute.
// It reports false when the method cannot run.
func (b *builder) require(reqs []requirement) bool {
	present := 0
	for _, r := range reqs {
		if r.present {
			present++
			continue
		}
		if r.essential {
			b.note("%s is required", r.name)
			return false
		}
		b.note("%s not provided", r.name)
		b.downgrade()
	}
	if 2*present < len(reqs) {
		b.note("only %d of %d required attributes provided", present, len(reqs))
		return false
	}
	return true
}

// applyAdditive returns the sum of the matched step adjustments.
func (b *builder) applyAdditive(steps []step) float64 {
	total := 0.0
	for _, s := range steps {
		if name, adj, ok := b.apply(s); ok {
			total += adj
			b.adjust(s.label+": "+name, adj)
		}
	}
	return total
}

// applyMultiplicative returns the product of the matched step multipliers.
func (b *builder) applyMultiplicative(steps []step) float64 {
	product := 1.0
	for _, s := range steps {
		if name, adj, ok := b.apply(s); ok {
			product *= adj
			b.adjust(s.label+": "+name, adj)
		}
	}
	return product
}

func (b *builder) apply(s step) (string, float64, bool) {
	if !s.available {
		return "", 0, false
	}
	return s.lookup()
}

func (b *builder) notApplicable(reason string) MethodResult {
	if reason != "" {
		b.note("%s", reason)
	}
	b.result.Applicable = false
	b.result.Value = 0
	b.result.Weight = 0
	b.result.Confidence = ConfidenceLow
	return b.result
}

func (b *builder) done(value float64) MethodResult {
	if value <= 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return b.notApplicable("computed value is not positive")
	}
	b.result.Value = value
	return b.result
}

// multiplier treats zero as neutral.
func multiplier(m float64) float64 {
	if m == 0 {
		return 1
	}
	return m
}
