package rules

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValidateRule checks that a complete rule carries a known key, a known
// operator and finite numeric value/score strings.
// position is the 1-based position used in error messages.
func ValidateRule(position int, r Rule) error {
	if !r.Key.Valid() {
		return fmt.Errorf("rule %d has unknown key %q", position, r.Key)
	}

	if !r.Output.Operator.Valid() {
		return fmt.Errorf("rule %d has unknown operator %q", position, r.Output.Operator)
	}

	if _, err := parseNumber(r.Output.Value); err != nil {
		return fmt.Errorf("rule %d value %q: %w", position, r.Output.Value, err)
	}

	if _, err := parseNumber(r.Output.Score); err != nil {
		return fmt.Errorf("rule %d score %q: %w", position, r.Output.Score, err)
	}

	return nil
}

// parseNumber parses a numeric string as entered in a number input
func parseNumber(s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("is empty")
	}

	// Decimal notation only.
	digits := strings.TrimLeft(s, "+-")
	if len(digits) > 1 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		return 0, fmt.Errorf("is not a number")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("is not a number")
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("is not a finite number")
	}

	return v, nil
}
