package builtin

import (
	"context"

	"github.com/maravicoffee/project-alfred/internal/capability"
)

// DataAnalysis returns the statistics capability over number arrays.
func DataAnalysis() capability.Executor {
	return &dataAnalysisExecutor{}
}

type dataAnalysisExecutor struct{}

func (d *dataAnalysisExecutor) Metadata() capability.Metadata {
	return capability.Metadata{
		Name:        "data_analysis",
		Description: "Analyze data and perform statistical operations",
		Category:    "computation",
		Parameters: []capability.Parameter{
			{Name: "operation", Type: "string", Description: "Operation: 'sum', 'average', 'max', 'min', 'count'", Required: true},
			{Name: "data", Type: "array", Description: "Array of numbers to analyze", Required: true},
		},
	}
}

func (d *dataAnalysisExecutor) Run(ctx context.Context, args map[string]any) capability.Result {
	operation, _ := stringArg(args, "operation")
	data, ok := floatSliceArg(args, "data")
	if !ok {
		return capability.Fail("data must be an array of numbers")
	}
	if len(data) == 0 {
		return capability.Fail("data array is empty")
	}

	var result float64
	switch operation {
	case "sum":
		for _, v := range data {
			result += v
		}
	case "average":
		for _, v := range data {
			result += v
		}
		result /= float64(len(data))
	case "max":
		result = data[0]
		for _, v := range data[1:] {
			if v > result {
				result = v
			}
		}
	case "min":
		result = data[0]
		for _, v := range data[1:] {
			if v < result {
				result = v
			}
		}
	case "count":
		result = float64(len(data))
	default:
		return capability.Fail("unknown operation: %s", operation)
	}

	return capability.Ok(map[string]any{
		"operation":   operation,
		"result":      result,
		"data_points": len(data),
	})
}
