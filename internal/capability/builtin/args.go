// Package builtin ships the capability executors the assistant registers at
// startup: echo, calculator, data analysis, file operations, code execution,
// and web search. Each executor reports failures inline in its Result and
// never lets an error escape the Run boundary.
package builtin

import (
	"fmt"
	"strconv"
)

// stringArg reads a string argument, tolerating any stringable value.
func stringArg(args map[string]any, name string) (string, bool) {
	v, ok := args[name]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprintf("%v", v), true
}

// floatArg reads a numeric argument. Arguments arrive from JSON decoding
// (float64), from the parameter extractor (typed), or from callers passing
// literals, so all the common numeric shapes are accepted.
func floatArg(args map[string]any, name string) (float64, bool) {
	v, ok := args[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// intArg reads an integer argument with the same tolerance as floatArg.
func intArg(args map[string]any, name string) (int, bool) {
	f, ok := floatArg(args, name)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// floatSliceArg reads an array-of-numbers argument.
func floatSliceArg(args map[string]any, name string) ([]float64, bool) {
	v, ok := args[name]
	if !ok {
		return nil, false
	}
	switch vs := v.(type) {
	case []float64:
		return vs, true
	case []any:
		out := make([]float64, 0, len(vs))
		for _, item := range vs {
			switch n := item.(type) {
			case float64:
				out = append(out, n)
			case int:
				out = append(out, float64(n))
			default:
				return nil, false
			}
		}
		return out, true
	default:
		return nil, false
	}
}
