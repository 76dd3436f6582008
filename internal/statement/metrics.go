package statement

// Metric names form the fixed vocabulary the extractor recognizes.
const (
	MetricTotalRevenue       = "total_revenue"
	MetricCostOfSales        = "cost_of_sales"
	MetricGrossProfit        = "gross_profit"
	MetricTotalExpenses      = "total_expenses"
	MetricOperatingIncome    = "operating_income"
	MetricProfitBeforeTax    = "profit_before_tax"
	MetricIncomeTaxExpense   = "income_tax_expense"
	MetricNetIncome          = "net_income"
	MetricTotalAssets        = "total_assets"
	MetricCurrentAssets      = "current_assets"
	MetricTotalLiabilities   = "total_liabilities"
	MetricCurrentLiabilities = "current_liabilities"
	MetricShareholdersEquity = "shareholders_equity"
	MetricOperatingCashFlow  = "operating_cash_flow"
)

// MetricValue holds one extracted figure. Found is false when the document
// contained no recognizable line for the metric; Value is zero in that case.
type MetricValue struct {
	Value float64 `json:"value"`
	Found bool    `json:"found"`
}

// Metrics maps every known metric name to its extracted value. An extraction
// always contains every name in the vocabulary.
type Metrics map[string]MetricValue

// Lookup returns the metric value and whether it was found in the document.
func (m Metrics) Lookup(name string) (float64, bool) {
	v, ok := m[name]
	if !ok || !v.Found {
		return 0, false
	}
	return v.Value, true
}

// FoundCount returns how many metrics were located in the document.
func (m Metrics) FoundCount() int {
	n := 0
	for _, v := range m {
		if v.Found {
			n++
		}
	}
	return n
}

// MetricNames returns the vocabulary in canonical statement order.
func MetricNames() []string {
	names := make([]string, 0, len(metricPatterns))
	for _, p := range metricPatterns {
		names = append(names, p.metric)
	}
	return names
}
