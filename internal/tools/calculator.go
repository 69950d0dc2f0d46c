package tools

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
)

var multiplyPattern = regexp.MustCompile(`(\d+)\s*\*\s*(\d+)`)

// CalculatorTool multiplies the first "a * b" integer pair found in the query.
type CalculatorTool struct{}

// NewCalculatorTool creates a CalculatorTool.
func NewCalculatorTool() *CalculatorTool {
	return &CalculatorTool{}
}

func (c *CalculatorTool) Name() string { return "calculator" }

func (c *CalculatorTool) Description() string {
	return "Multiplies two integers found in the query, e.g. 'calculate 15 * 24'"
}

func (c *CalculatorTool) Run(ctx context.Context, input string) (string, error) {
	m := multiplyPattern.FindStringSubmatch(input)
	if m == nil {
		return "", &ExecError{
			Tool:    c.Name(),
			Message: fmt.Sprintf("could not parse a multiplication from %q", input),
		}
	}

	a, err := strconv.Atoi(m[1])
	if err != nil {
		return "", &ExecError{Tool: c.Name(), Message: fmt.Sprintf("parse %q: %v", m[1], err)}
	}
	b, err := strconv.Atoi(m[2])
	if err != nil {
		return "", &ExecError{Tool: c.Name(), Message: fmt.Sprintf("parse %q: %v", m[2], err)}
	}

	return strconv.Itoa(a * b), nil
}
