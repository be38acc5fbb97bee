package valuation

import (
	"math"
	"strings"

	"github.com/iwvelando/facility-valuation/internal/settings"
	"github.com/iwvelando/facility-valuation/pkg/constants"
	"github.com/iwvelando/facility-valuation/pkg/mathutil"
)

// Risk category scores on a 0-100 scale, used when an attribute is missing or
// the regulatory status is unknown.
const (
	neutralRiskScore = 50.0
	fullOccupancy    = 0.95
	occupancyRiskGap = 0.35
)

var regulatoryRisk = map[string]float64{
	"clean":         0,
	"deficiencies":  50,
	"special_focus": 100,
}

// riskScore combines the quality, occupancy, payer-mix and regulatory risk
// categories into a weighted 0-100 score.
func riskScore(sub subject, w settings.RiskWeights) float64 {
	f := sub.facility
	quality, occupancy, payer, regulatory := neutralRiskScore, neutralRiskScore, neutralRiskScore, neutralRiskScore
	if sub.quality != nil {
		quality = mathutil.Clamp((5-*sub.quality)/4*100, 0, 100)
	}
	if f.OccupancyRate != nil {
		occupancy = mathutil.Clamp((fullOccupancy-*f.OccupancyRate)/occupancyRiskGap*100, 0, 100)
	}
	if sub.medicaid != nil {
		payer = mathutil.Clamp(*sub.medicaid*100, 0, 100)
	}
	if status := strings.ToLower(strings.TrimSpace(f.RegulatoryStatus)); status != "" {
		if score, ok := regulatoryRisk[status]; ok {
			regulatory = score
		}
	}
	score, err := mathutil.WeightedMean(
		[]float64{quality, occupancy, payer, regulatory},
		[]float64{w.Quality, w.Occupancy, w.PayerMix, w.Regulatory},
	)
	if err != nil {
		return neutralRiskScore
	}
	return score
}

// projection is one projected period.
type projection struct {
	revenue float64
	noi     float64
	fcf     float64
}

func dcfValue(sub subject, s settings.Settings, ats settings.AssetTypeSettings) MethodResult {
	f := sub.facility
	t := ats.DCF
	g := s.DCF
	b := newBuilder(MethodDCF)

	if !b.require([]requirement{
		{name: "revenue", present: has(f.Revenue), essential: true},
		{name: "noi", present: has(f.NOI)},
		{name: "beds", present: has(f.Beds)},
		{name: "occupancyRate", present: has(f.OccupancyRate)},
	}) {
		return b.notApplicable("insufficient data")
	}
	revenue := *f.Revenue
	if revenue <= 0 {
		return b.notApplicable("revenue is not positive")
	}

	years := g.ProjectionYears
	if years <= 0 {
		years = constants.DefaultProjectionYears
	}
	if g.MaxProjectionYears > 0 && years > g.MaxProjectionYears {
		b.note("projection capped at %d years", g.MaxProjectionYears)
		years = g.MaxProjectionYears
	}

	score := riskScore(sub, s.RiskWeights)
	tier, ok := g.RiskTiers.Lookup(score)
	if ok && tier.Adjustment != 0 {
		b.adjust("risk tier: "+tier.Name, tier.Adjustment)
	}
	rate := g.RiskFreeRate + g.EquityRiskPremium + g.SizePremium + g.IndustryPremium + g.CompanyPremium + tier.Adjustment
	if t.MaxDiscountRate > 0 {
		rate = mathutil.Clamp(rate, t.MinDiscountRate, t.MaxDiscountRate)
	}
	if rate <= 0 {
		return b.notApplicable("discount rate is not positive")
	}

	periods := project(sub, t, g.WorkingCapitalPercent, revenue, years)
	monthly := strings.EqualFold(g.Periodicity, constants.PeriodicityMonthly)

	pv := 0.0
	for i, p := range periods {
		pv += discountYear(p.fcf, rate, i+1, monthly)
	}

	last := periods[len(periods)-1]
	var terminal float64
	tv := g.TerminalValue
	if tv.UseExitCapRate {
		exitCap := mathutil.Clamp(ats.CapRate.Base+tv.ExitCapRateSpread, math.Max(ats.CapRate.Min, s.GlobalMinCapRate), math.Min(ats.CapRate.Max, s.GlobalMaxCapRate))
		if exitCap <= 0 {
			return b.notApplicable("exit cap rate is not positive")
		}
		terminal = last.noi * (1 + tv.PerpetuityGrowth) / exitCap
		b.text("terminalMethod", "exitCapRate")
		b.number("exitCapRate", exitCap)
	} else {
		if rate <= tv.PerpetuityGrowth {
			return b.notApplicable("discount rate does not exceed perpetuity growth")
		}
		terminal = last.fcf * (1 + tv.PerpetuityGrowth) / (rate - tv.PerpetuityGrowth)
		b.text("terminalMethod", "perpetuityGrowth")
		b.number("perpetuityGrowth", tv.PerpetuityGrowth)
	}
	pvTerminal := terminal / math.Pow(1+rate, float64(years))
	value := pv + pvTerminal

	if sub.beds != nil && *sub.beds > 0 && t.MaxPerBed > 0 {
		value = mathutil.Clamp(value / *sub.beds, t.MinPerBed, t.MaxPerBed) * *sub.beds
	}

	b.number("riskScore", score)
	b.text("riskTier", tier.Name)
	b.number("discountRate", rate)
	b.number("projectionYears", float64(years))
	b.number("presentValueCashFlows", pv)
	b.number("terminalValue", terminal)
	b.number("presentValueTerminal", pvTerminal)
	return b.done(value)
}

// project returns one entry per year. Revenue grows with the asset-type rate
// and with occupancy ramping towards the target; expenses grow independently.
func project(sub subject, t settings.DCFTable, workingCapital, revenue0 float64, years int) []projection {
	f := sub.facility
	expenses0 := revenue0 * t.DefaultExpenseRatio
	if f.NOI != nil {
		expenses0 = revenue0 - *f.NOI
	}
	occ0 := t.TargetOccupancy
	if f.OccupancyRate != nil && *f.OccupancyRate > 0 {
		occ0 = *f.OccupancyRate
	}
	beds := 0.0
	if sub.beds != nil {
		beds = *sub.beds
	}

	out := make([]projection, 0, years)
	occ := occ0
	prevRevenue := revenue0
	for year := 1; year <= years; year++ {
		if occ < t.TargetOccupancy {
			occ = math.Min(t.TargetOccupancy, occ+t.OccupancyRampPerYear)
		}
		revenueGrowth := math.Pow(1+t.RevenueGrowth, float64(year))
		expenseGrowth := math.Pow(1+t.ExpenseGrowth, float64(year))

		revenue := revenue0 * revenueGrowth
		if occ0 > 0 {
			revenue *= occ / occ0
		}
		noi := revenue - expenses0*expenseGrowth
		capex := t.RoutineCapexPerBed*beds*expenseGrowth + t.MajorCapexPercent*revenue
		fcf := noi - capex - workingCapital*(revenue-prevRevenue)

		out = append(out, projection{revenue: revenue, noi: noi, fcf: fcf})
		prevRevenue = revenue
	}
	return out
}

// discountYear returns the present value of one year's cash flow. Monthly
// periodicity spreads the flow evenly over twelve months.
func discountYear(cash, rate float64, year int, monthly bool) float64 {
	if !monthly {
		return cash / math.Pow(1+rate, float64(year))
	}
	monthlyRate := math.Pow(1+rate, 1/float64(constants.MonthsPerYear)) - 1
	pv := 0.0
	for m := 1; m <= constants.MonthsPerYear; m++ {
		period := (year-1)*constants.MonthsPerYear + m
		pv += cash / float64(constants.MonthsPerYear) / math.Pow(1+monthlyRate, float64(period))
	}
	return pv
}
