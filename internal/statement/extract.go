package statement

import (
	"regexp"
	"strconv"
	"strings"
)

// metricPattern pairs a metric name with its recognition patterns. Patterns
// are tried in order and the first one that matches wins; within a pattern
// the first occurrence in document order wins.
type metricPattern struct {
	metric   string
	patterns []*regexp.Regexp
}

// amountPattern matches the numeric token following a label: an optional
// currency symbol, thousands separators, decimals, and either a leading
// minus or accounting-style parentheses for negatives.
const amountPattern = `(\(\s*[$€£]?\s*\d[\d,]*(?:\.\d+)?\s*\)|-?\s*[$€£]?\s*\d[\d,]*(?:\.\d+)?)`

// labelGap sits between a label and its amount: separators and prose, but
// never a digit, newline, minus, or opening parenthesis (those start the
// amount itself).
const labelGap = `[^0-9\n(\-]*`

func labelPattern(labels ...string) *regexp.Regexp {
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = regexp.QuoteMeta(l)
	}
	// No trailing \b: labels such as "Net Profit/(Loss)" end on punctuation.
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)` + labelGap + amountPattern)
}

var metricPatterns = []metricPattern{
	{MetricTotalRevenue, []*regexp.Regexp{
		labelPattern("Total Revenue", "Total Revenues"),
		labelPattern("Net Sales", "Total Sales"),
		labelPattern("Revenue", "Revenues"),
	}},
	{MetricCostOfSales, []*regexp.Regexp{
		labelPattern("Total Cost of Sales", "Cost of Sales"),
		labelPattern("Cost of Goods Sold", "Cost of Revenue"),
	}},
	{MetricGrossProfit, []*regexp.Regexp{
		labelPattern("Gross Profit", "Gross Margin"),
	}},
	{MetricTotalExpenses, []*regexp.Regexp{
		labelPattern("Total Expenses", "Total Operating Expenses"),
		labelPattern("Operating Expenses"),
	}},
	{MetricOperatingIncome, []*regexp.Regexp{
		labelPattern("Operating Income", "Operating Profit", "Income from Operations"),
	}},
	{MetricProfitBeforeTax, []*regexp.Regexp{
		labelPattern("Profit Before Tax", "Income Before Tax", "Earnings Before Tax", "Profit Before Income Tax"),
	}},
	{MetricIncomeTaxExpense, []*regexp.Regexp{
		labelPattern("Income Tax Expenses", "Income Tax Expense", "Provision for Income Taxes", "Tax Expense"),
	}},
	{MetricNetIncome, []*regexp.Regexp{
		labelPattern("Net Income", "Net Profit/(Loss)", "Net Profit", "Profit For the Year", "Net Earnings"),
	}},
	{MetricTotalAssets, []*regexp.Regexp{
		labelPattern("Total Assets"),
	}},
	{MetricCurrentAssets, []*regexp.Regexp{
		labelPattern("Total Current Assets", "Current Assets"),
	}},
	{MetricTotalLiabilities, []*regexp.Regexp{
		labelPattern("Total Liabilities"),
	}},
	{MetricCurrentLiabilities, []*regexp.Regexp{
		labelPattern("Total Current Liabilities", "Current Liabilities"),
	}},
	{MetricShareholdersEquity, []*regexp.Regexp{
		labelPattern("Total Shareholders' Equity", "Shareholders' Equity", "Shareholders Equity", "Stockholders' Equity", "Total Equity"),
	}},
	{MetricOperatingCashFlow, []*regexp.Regexp{
		labelPattern("Net Cash from Operating Activities", "Cash Flow from Operations", "Operating Cash Flow", "Net Cash Provided by Operating Activities"),
	}},
}

// Extract scans document text for known financial line items. It never
// fails: metrics without a recognizable line are marked absent, and text
// with no financial content yields a result with every metric absent.
func Extract(text string) Metrics {
	out := make(Metrics, len(metricPatterns))
	for _, mp := range metricPatterns {
		out[mp.metric] = MetricValue{}
		for _, re := range mp.patterns {
			match := re.FindStringSubmatch(text)
			if match == nil {
				continue
			}
			value, ok := parseAmount(match[1])
			if !ok {
				continue
			}
			out[mp.metric] = MetricValue{Value: value, Found: true}
			break
		}
	}
	return out
}

// parseAmount normalizes an amount token to a signed float. Parenthesized
// values are negative.
func parseAmount(token string) (float64, bool) {
	s := strings.TrimSpace(token)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}
	for _, strip := range []string{"$", "€", "£", ",", " ", "\t"} {
		s = strings.ReplaceAll(s, strip, "")
	}
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		value = -value
	}
	return value, true
}
