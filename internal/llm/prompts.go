package llm

import (
	"fmt"
	"strings"

	"statement-backend/internal/statement"
)

const analystBrief = `You are a senior financial analyst.
Using the following financial data, provide:
- Summary of performance
- Strengths and weaknesses
- Cost efficiency analysis
- Recommendations for improvement`

// percentRatios render as percentages in the prompt; the rest as plain
// multiples. Stored ratio values stay numeric either way.
var percentRatios = map[string]bool{
	statement.RatioGrossMargin:    true,
	statement.RatioNetMargin:      true,
	statement.RatioPretaxMargin:   true,
	statement.RatioExpenseRatio:   true,
	statement.RatioCashFlowMargin: true,
}

// BuildPrompt renders the analyst brief with the extracted metrics and
// computed ratios in canonical order. Absent metrics and undefined ratios
// are omitted so the model only sees established figures.
func BuildPrompt(input GenerateInput) string {
	var b strings.Builder
	b.WriteString(analystBrief)

	b.WriteString("\n\nExtracted Metrics:\n")
	found := 0
	for _, name := range statement.MetricNames() {
		value, ok := input.Metrics.Lookup(name)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", displayName(name), formatAmount(value))
		found++
	}
	if found == 0 {
		b.WriteString("- none found\n")
	}

	b.WriteString("\nCalculated Ratios:\n")
	defined := 0
	for _, name := range statement.RatioNames() {
		v, ok := input.Ratios[name]
		if !ok || !v.Defined {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", displayName(name), formatRatio(name, v.Value))
		defined++
	}
	if defined == 0 {
		b.WriteString("- none computed\n")
	}

	b.WriteString("\nProvide the analysis in a clear, structured format.")
	return b.String()
}

func displayName(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func formatAmount(value float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", value), "0"), ".")
}

func formatRatio(name string, value float64) string {
	if percentRatios[name] {
		return fmt.Sprintf("%.2f%%", value*100)
	}
	return fmt.Sprintf("%.2f", value)
}
