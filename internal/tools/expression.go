package tools

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/Knetic/govaluate"
)

// Matches a full arithmetic expression: numbers joined by + - * / % ^
// with optional parentheses and whitespace.
var expressionPattern = regexp.MustCompile(`[-+]?[\d(][\d\s()+\-*/%^.]*[\d)]`)

// ExpressionTool evaluates the first arithmetic expression found in the
// query. Unlike CalculatorTool it handles all basic operators.
type ExpressionTool struct{}

// NewExpressionTool creates an ExpressionTool.
func NewExpressionTool() *ExpressionTool {
	return &ExpressionTool{}
}

func (e *ExpressionTool) Name() string { return "expression" }

func (e *ExpressionTool) Description() string {
	return "Evaluates an arithmetic expression in the query, e.g. '(3 + 4) * 2'"
}

func (e *ExpressionTool) Run(ctx context.Context, input string) (string, error) {
	raw := expressionPattern.FindString(input)
	if raw == "" {
		return "", &ExecError{
			Tool:    e.Name(),
			Message: fmt.Sprintf("no arithmetic expression found in %q", input),
		}
	}

	expr, err := govaluate.NewEvaluableExpression(raw)
	if err != nil {
		return "", &ExecError{Tool: e.Name(), Message: fmt.Sprintf("parse %q: %v", raw, err)}
	}

	result, err := expr.Evaluate(nil)
	if err != nil {
		return "", &ExecError{Tool: e.Name(), Message: fmt.Sprintf("evaluate %q: %v", raw, err)}
	}

	switch v := result.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}
