package builtin

import (
	"context"

	"github.com/maravicoffee/project-alfred/internal/capability"
)

// Calculator returns the arithmetic capability. The result is reported as
// a bare number so downstream response generation can quote it directly.
func Calculator() capability.Executor {
	return &calculatorExecutor{}
}

type calculatorExecutor struct{}

func (c *calculatorExecutor) Metadata() capability.Metadata {
	return capability.Metadata{
		Name:        "calculator",
		Description: "Performs basic arithmetic operations",
		Category:    "computation",
		Parameters: []capability.Parameter{
			{Name: "operation", Type: "string", Description: "The operation to perform: add, subtract, multiply, divide", Required: true},
			{Name: "a", Type: "number", Description: "First number", Required: true},
			{Name: "b", Type: "number", Description: "Second number", Required: true},
		},
	}
}

func (c *calculatorExecutor) Run(ctx context.Context, args map[string]any) capability.Result {
	operation, _ := stringArg(args, "operation")
	a, okA := floatArg(args, "a")
	b, okB := floatArg(args, "b")
	if !okA || !okB {
		return capability.Fail("a and b must be numbers")
	}

	var result float64
	switch operation {
	case "add":
		result = a + b
	case "subtract":
		result = a - b
	case "multiply":
		result = a * b
	case "divide":
		if b == 0 {
			return capability.Fail("division by zero")
		}
		result = a / b
	default:
		return capability.Fail("unknown operation: %s", operation)
	}

	return capability.Ok(result)
}
