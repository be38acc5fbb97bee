package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iwvelando/facility-valuation/internal/leaseback"
	"github.com/iwvelando/facility-valuation/internal/montecarlo"
	"github.com/iwvelando/facility-valuation/internal/settings"
	"github.com/iwvelando/facility-valuation/internal/valuation"
)

const lakesideYAML = `
facility:
  name: Lakeside Care Center
  assetType: SNF
  state: OH
  beds: 120
  occupancyRate: 0.86
  noi: 1000000
  ebitdar: 1600000
comparables:
  - id: c1
    assetType: SNF
    distanceMiles: 12
    saleAgeMonths: 10
    beds: 110
    pricePerBed: 100000
settings:
  assetTypes:
    snf:
      capRate:
        base: 0.11
parameters:
  - id: noi
    path: facility.noi
    defaultValue: 1000000
    min: 800000
    max: 1200000
distributions:
  - parameter: facility.occupancyRate
    distribution: triangular
    min: 0.80
    mode: 0.86
    max: 0.92
monteCarlo:
  iterations: 500
  seed: 7
`

func TestDecodeYAML(t *testing.T) {
	f, err := Decode(strings.NewReader(lakesideYAML))
	require.NoError(t, err)

	assert.Equal(t, "Lakeside Care Center", f.Facility.Name)
	assert.Equal(t, settings.SNF, f.Facility.AssetType)
	require.NotNil(t, f.Facility.Beds)
	assert.Equal(t, 120, *f.Facility.Beds)
	require.Len(t, f.Comparables, 1)
	assert.Equal(t, 100000.0, f.Comparables[0].PricePerBed)
	require.Len(t, f.Parameters, 1)
	assert.Equal(t, "facility.noi", f.Parameters[0].Path)
	require.Len(t, f.Distributions, 1)
	assert.Equal(t, montecarlo.Triangular, f.Distributions[0].Type)
	require.NotNil(t, f.MonteCarlo)
	assert.Equal(t, 500, f.MonteCarlo.Iterations)
	assert.Equal(t, uint64(7), f.MonteCarlo.Seed)
}

func TestDecodeJSON(t *testing.T) {
	doc := `{"facility": {"assetType": "ALF", "beds": 80, "noi": 950000}, "leaseback": {"yieldRate": 0.09}}`

	f, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, settings.ALF, f.Facility.AssetType)
	require.NotNil(t, f.Leaseback)
	require.NotNil(t, f.Leaseback.YieldRate)
	assert.InDelta(t, 0.09, *f.Leaseback.YieldRate, 1e-12)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = Decode(strings.NewReader("facility:\n  assetType: SNF\n  bedz: 12\n"))
	assert.Error(t, err, "unknown keys are rejected")

	_, err = Decode(strings.NewReader("facility: [1, 2"))
	assert.Error(t, err)
}

func TestScenarioOverlaysSettings(t *testing.T) {
	f, err := Decode(strings.NewReader(lakesideYAML))
	require.NoError(t, err)

	base := settings.Default()
	sc, err := f.Scenario(base)
	require.NoError(t, err)

	assert.InDelta(t, 0.11, sc.Settings.AssetTypes.SNF.CapRate.Base, 1e-12)
	assert.Equal(t, base.AssetTypes.SNF.CapRate.Quality, sc.Settings.AssetTypes.SNF.CapRate.Quality)
	assert.Equal(t, base.AssetTypes.ALF, sc.Settings.AssetTypes.ALF)
	assert.Equal(t, f.Facility, sc.Facility)
	assert.Len(t, sc.Comparables, 1)

	result, err := valuation.NewEngine(nil).ValueScenario(sc)
	require.NoError(t, err)
	assert.Greater(t, result.ReconciledValue, 0.0)
}

func TestLeasebackInput(t *testing.T) {
	f, err := Decode(strings.NewReader(lakesideYAML))
	require.NoError(t, err)

	in := f.LeasebackInput()
	assert.Equal(t, "1000000", in.NOI.String())
	assert.Equal(t, "1600000", in.EBITDAR.String())
	assert.True(t, in.CapRate.IsZero(), "zero cap rate defers to settings")

	r, err := leaseback.Analyze(in, settings.Default().SaleLeaseback)
	require.NoError(t, err)
	assert.Equal(t, "13333333.33", r.PurchasePrice.StringFixed(2))
	assert.Equal(t, "1133333.33", r.AnnualRent.StringFixed(2))
	assert.Equal(t, "1.41", r.CoverageRatio.StringFixed(2))
	assert.Equal(t, leaseback.Healthy, r.Status)

	assert.Nil(t, r.DSCR)

	noi, debt := 2_000_000.0, 800_000.0
	f.Leaseback = &LeasebackTerms{NOI: &noi, DebtService: &debt}
	in = f.LeasebackInput()
	assert.Equal(t, "2000000", in.NOI.String())
	assert.Equal(t, "800000", in.DebtService.String())
}

func TestWarnings(t *testing.T) {
	beds := -4
	occupancy := 1.3
	f := File{
		Facility:    valuation.Facility{AssetType: settings.SNF, Beds: &beds, OccupancyRate: &occupancy},
		Comparables: []valuation.ComparableSale{{ID: "bad", AssetType: settings.SNF}},
	}

	warnings := f.Warnings()
	joined := strings.Join(warnings, "\n")
	assert.Contains(t, joined, "beds")
	assert.Contains(t, joined, "occupancyRate")
	assert.Contains(t, joined, "comparable bad")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lakeside.yaml")
	require.NoError(t, os.WriteFile(path, []byte(lakesideYAML), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "OH", f.Facility.State)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
