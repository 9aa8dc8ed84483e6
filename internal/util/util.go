// Package util holds the argument helpers shared by the command handlers.
package util

import (
	"fmt"
	"strconv"
	"strings"
)

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// CleanArgs trims whitespace and quotes from every argument in place and
// returns the slice.
func CleanArgs(args []string) []string {
	for i, a := range args {
		args[i] = FixEscapeQuotes(TrimQuotes(strings.TrimSpace(a)))
	}
	return args
}

// ArgFloat parses args[i] as a float.
func ArgFloat(args []string, i int) (float64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("argument %d missing", i)
	}
	v, err := strconv.ParseFloat(args[i], 64)
	if err != nil {
		return 0, fmt.Errorf("argument %d: %w", i, err)
	}
	return v, nil
}

// ArgInt parses args[i] as an int.
func ArgInt(args []string, i int) (int, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("argument %d missing", i)
	}
	v, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("argument %d: %w", i, err)
	}
	return v, nil
}

// ArgFloatOr parses args[i] as a float, returning def when it is absent.
func ArgFloatOr(args []string, i int, def float64) (float64, error) {
	if i >= len(args) || args[i] == "" {
		return def, nil
	}
	return ArgFloat(args, i)
}
