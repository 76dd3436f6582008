package statement

import "testing"

func metricsFrom(values map[string]float64) Metrics {
	m := make(Metrics)
	for _, name := range MetricNames() {
		m[name] = MetricValue{}
	}
	for name, v := range values {
		m[name] = MetricValue{Value: v, Found: true}
	}
	return m
}

func TestCalculateRatiosFullStatement(t *testing.T) {
	m := metricsFrom(map[string]float64{
		MetricTotalRevenue:       1000000,
		MetricCostOfSales:        600000,
		MetricTotalExpenses:      250000,
		MetricProfitBeforeTax:    130000,
		MetricNetIncome:          100000,
		MetricTotalAssets:        2000000,
		MetricCurrentAssets:      500000,
		MetricTotalLiabilities:   800000,
		MetricCurrentLiabilities: 200000,
		MetricShareholdersEquity: 1200000,
		MetricOperatingCashFlow:  180000,
	})

	r := CalculateRatios(m)

	want := map[string]float64{
		RatioGrossMargin:    0.4,
		RatioNetMargin:      0.1,
		RatioPretaxMargin:   0.13,
		RatioExpenseRatio:   0.25,
		RatioCurrentRatio:   2.5,
		RatioDebtToEquity:   800000.0 / 1200000.0,
		RatioReturnOnAssets: 0.05,
		RatioReturnOnEquity: 100000.0 / 1200000.0,
		RatioAssetTurnover:  0.5,
		RatioCashFlowMargin: 0.18,
	}
	if len(r) != len(want) {
		t.Fatalf("catalog size: got %d want %d", len(r), len(want))
	}
	for name, wantValue := range want {
		got, ok := r[name]
		if !ok {
			t.Errorf("ratio %s: missing from result", name)
			continue
		}
		if !got.Defined {
			t.Errorf("ratio %s: undefined", name)
			continue
		}
		if !almostEqual(got.Value, wantValue) {
			t.Errorf("ratio %s: got %v want %v", name, got.Value, wantValue)
		}
	}
	if r.DefinedCount() != len(want) {
		t.Errorf("defined count: got %d want %d", r.DefinedCount(), len(want))
	}
}

func TestCalculateRatiosMissingInputs(t *testing.T) {
	m := metricsFrom(map[string]float64{
		MetricTotalRevenue: 1000000,
		MetricNetIncome:    100000,
	})

	r := CalculateRatios(m)

	if got := r[RatioNetMargin]; !got.Defined || !almostEqual(got.Value, 0.1) {
		t.Errorf("net_margin: got %+v want defined 0.1", got)
	}
	for _, name := range []string{RatioGrossMargin, RatioCurrentRatio, RatioDebtToEquity, RatioReturnOnAssets} {
		if got := r[name]; got.Defined {
			t.Errorf("ratio %s: defined despite missing inputs, value %v", name, got.Value)
		}
	}
	// Every catalog entry is present even when undefined.
	if len(r) != len(RatioNames()) {
		t.Errorf("catalog size: got %d want %d", len(r), len(RatioNames()))
	}
}

func TestCalculateRatiosZeroDenominator(t *testing.T) {
	m := metricsFrom(map[string]float64{
		MetricTotalRevenue: 0,
		MetricNetIncome:    100000,
		MetricCostOfSales:  600000,
	})

	r := CalculateRatios(m)

	if got := r[RatioNetMargin]; got.Defined {
		t.Errorf("net_margin: defined with zero revenue, value %v", got.Value)
	}
	if got := r[RatioGrossMargin]; got.Defined {
		t.Errorf("gross_margin: defined with zero revenue, value %v", got.Value)
	}
}

func TestCalculateRatiosNegativeInputs(t *testing.T) {
	m := metricsFrom(map[string]float64{
		MetricTotalRevenue: 1000000,
		MetricNetIncome:    -50000,
	})

	r := CalculateRatios(m)

	got := r[RatioNetMargin]
	if !got.Defined {
		t.Fatal("net_margin: undefined")
	}
	if !almostEqual(got.Value, -0.05) {
		t.Errorf("net_margin: got %v want -0.05", got.Value)
	}
}

func TestCalculateRatiosIdempotent(t *testing.T) {
	m := metricsFrom(map[string]float64{
		MetricTotalRevenue:       1000000,
		MetricCostOfSales:        600000,
		MetricNetIncome:          100000,
		MetricCurrentAssets:      500000,
		MetricCurrentLiabilities: 200000,
	})

	first := CalculateRatios(m)
	second := CalculateRatios(m)

	for name, v := range first {
		if second[name] != v {
			t.Errorf("ratio %s: %+v vs %+v across runs", name, v, second[name])
		}
	}
}
