package tools

import (
	"context"
	"testing"
)

func TestCalculatorExpressions(t *testing.T) {
	tool := &CalculatorTool{}

	cases := []struct {
		expr string
		want string
	}{
		{"1 + 2", "3"},
		{"2 * 3 + 4", "10"},
		{"2 + 3 * 4", "14"},
		{"(2 + 3) * 4", "20"},
		{"10 / 4", "2.5"},
		{"10 % 3", "1"},
		{"2 ^ 10", "1024"},
		{"2 ^ 3 ^ 2", "512"}, // right-associative
		{"-5 + 3", "-2"},
		{"25 * 8", "200"},
	}
	for _, c := range cases {
		got, err := tool.Execute(context.Background(), map[string]interface{}{"expression": c.expr})
		if err != nil {
			t.Errorf("Execute(%q) error: %v", c.expr, err)
			continue
		}
		if got != c.want {
			t.Errorf("Execute(%q) = %q, want %q", c.expr, got, c.want)
		}
	}
}

func TestCalculatorErrors(t *testing.T) {
	tool := &CalculatorTool{}

	for _, expr := range []string{"1 / 0", "5 % 0", "1 +", "(1 + 2", "abc"} {
		if _, err := tool.Execute(context.Background(), map[string]interface{}{"expression": expr}); err == nil {
			t.Errorf("Execute(%q) expected an error", expr)
		}
	}

	if _, err := tool.Execute(context.Background(), map[string]interface{}{}); err == nil {
		t.Error("Expected an error when the expression argument is missing")
	}
}
