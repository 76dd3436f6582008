package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"statement-backend/internal/statement"
)

func TestBuildPromptIncludesFoundFigures(t *testing.T) {
	input := GenerateInput{
		Metrics: statement.Metrics{
			statement.MetricTotalRevenue: {Value: 1000000, Found: true},
			statement.MetricNetIncome:    {Value: 100000, Found: true},
			statement.MetricTotalAssets:  {Found: false},
		},
		Ratios: statement.Ratios{
			statement.RatioNetMargin:    {Value: 0.1, Defined: true},
			statement.RatioCurrentRatio: {Value: 2.5, Defined: true},
			statement.RatioDebtToEquity: {Defined: false},
		},
	}

	prompt := BuildPrompt(input)

	if !strings.Contains(prompt, "senior financial analyst") {
		t.Error("analyst brief missing")
	}
	if !strings.Contains(prompt, "- Total Revenue: 1000000") {
		t.Errorf("revenue line missing:\n%s", prompt)
	}
	if !strings.Contains(prompt, "- Net Margin: 10.00%") {
		t.Errorf("net margin not rendered as percent:\n%s", prompt)
	}
	if !strings.Contains(prompt, "- Current Ratio: 2.50") {
		t.Errorf("current ratio not rendered as multiple:\n%s", prompt)
	}
	if strings.Contains(prompt, "Total Assets") {
		t.Error("absent metric rendered")
	}
	if strings.Contains(prompt, "Debt To Equity") {
		t.Error("undefined ratio rendered")
	}
}

func TestBuildPromptEmptyInputs(t *testing.T) {
	prompt := BuildPrompt(GenerateInput{Metrics: statement.Metrics{}, Ratios: statement.Ratios{}})

	if !strings.Contains(prompt, "- none found") {
		t.Error("missing placeholder for empty metrics")
	}
	if !strings.Contains(prompt, "- none computed") {
		t.Error("missing placeholder for empty ratios")
	}
}

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"total_revenue":    "Total Revenue",
		"net_margin":       "Net Margin",
		"return_on_equity": "Return On Equity",
	}
	for in, want := range cases {
		if got := displayName(in); got != want {
			t.Errorf("displayName(%q): got %q want %q", in, got, want)
		}
	}
}

func TestPlaceholderClient(t *testing.T) {
	_, err := PlaceholderClient{}.Generate(context.Background(), GenerateInput{})
	if err == nil {
		t.Fatal("expected error from placeholder client")
	}
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected ServiceError, got %T", err)
	}
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured in chain, got %v", err)
	}
}
