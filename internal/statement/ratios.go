package statement

// Ratio names form the fixed catalog the calculator produces.
const (
	RatioGrossMargin    = "gross_margin"
	RatioNetMargin      = "net_margin"
	RatioPretaxMargin   = "pretax_margin"
	RatioExpenseRatio   = "expense_ratio"
	RatioCurrentRatio   = "current_ratio"
	RatioDebtToEquity   = "debt_to_equity"
	RatioReturnOnAssets = "return_on_assets"
	RatioReturnOnEquity = "return_on_equity"
	RatioAssetTurnover  = "asset_turnover"
	RatioCashFlowMargin = "cash_flow_margin"
)

// RatioValue holds one computed ratio. Defined is false when a required
// metric was absent or a denominator was zero.
type RatioValue struct {
	Value   float64 `json:"value"`
	Defined bool    `json:"defined"`
}

// Ratios maps every ratio in the catalog to its computed value. Values are
// dimensionless fractions (a 10% net margin is 0.1).
type Ratios map[string]RatioValue

// DefinedCount returns how many ratios could be computed.
func (r Ratios) DefinedCount() int {
	n := 0
	for _, v := range r {
		if v.Defined {
			n++
		}
	}
	return n
}

type ratioDef struct {
	name    string
	compute func(Metrics) (float64, bool)
}

var ratioCatalog = []ratioDef{
	{RatioGrossMargin, func(m Metrics) (float64, bool) {
		revenue, ok := m.Lookup(MetricTotalRevenue)
		cost, ok2 := m.Lookup(MetricCostOfSales)
		if !ok || !ok2 {
			return 0, false
		}
		return div(revenue-cost, revenue)
	}},
	{RatioNetMargin, ratio(MetricNetIncome, MetricTotalRevenue)},
	{RatioPretaxMargin, ratio(MetricProfitBeforeTax, MetricTotalRevenue)},
	{RatioExpenseRatio, ratio(MetricTotalExpenses, MetricTotalRevenue)},
	{RatioCurrentRatio, ratio(MetricCurrentAssets, MetricCurrentLiabilities)},
	{RatioDebtToEquity, ratio(MetricTotalLiabilities, MetricShareholdersEquity)},
	{RatioReturnOnAssets, ratio(MetricNetIncome, MetricTotalAssets)},
	{RatioReturnOnEquity, ratio(MetricNetIncome, MetricShareholdersEquity)},
	{RatioAssetTurnover, ratio(MetricTotalRevenue, MetricTotalAssets)},
	{RatioCashFlowMargin, ratio(MetricOperatingCashFlow, MetricTotalRevenue)},
}

// ratio builds a simple numerator/denominator computation over two metrics.
func ratio(numerator, denominator string) func(Metrics) (float64, bool) {
	return func(m Metrics) (float64, bool) {
		num, ok := m.Lookup(numerator)
		den, ok2 := m.Lookup(denominator)
		if !ok || !ok2 {
			return 0, false
		}
		return div(num, den)
	}
}

func div(num, den float64) (float64, bool) {
	if den == 0 {
		return 0, false
	}
	return num / den, true
}

// CalculateRatios computes the fixed ratio catalog from one extraction.
// Each ratio computes independently: an absent input or zero denominator
// marks that ratio undefined without affecting the others. Recomputing from
// the same input yields an identical result.
func CalculateRatios(m Metrics) Ratios {
	out := make(Ratios, len(ratioCatalog))
	for _, def := range ratioCatalog {
		value, defined := def.compute(m)
		out[def.name] = RatioValue{Value: value, Defined: defined}
	}
	return out
}

// RatioNames returns the catalog in canonical order.
func RatioNames() []string {
	names := make([]string, 0, len(ratioCatalog))
	for _, def := range ratioCatalog {
		names = append(names, def.name)
	}
	return names
}
