// Package volemia estimates a donor's total blood volume with Nadler's formula.
package volemia

import (
	"fmt"
	"strings"
)

// Sex selects the Nadler coefficient set.
type Sex string

const (
	Male   Sex = "M"
	Female Sex = "F"
)

// ParseSex accepts "M", "F", "male" and "female" in any case.
func ParseSex(raw string) (Sex, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "m", "male":
		return Male, nil
	case "f", "female":
		return Female, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSex, raw)
	}
}

// Valid reports whether s is one of the supported values.
func (s Sex) Valid() bool {
	return s == Male || s == Female
}

// Anthropometric bounds accepted by callers before estimating.
const (
	MinWeightKg = 1.0
	MaxWeightKg = 200.0
	MinHeightCm = 50.0
	MaxHeightCm = 250.0
)

// Estimate returns the blood volume in litres. Inputs are not range checked.
func Estimate(weightKg, heightCm float64, sex Sex) float64 {
	h := heightCm / 100
	h3 := h * h * h
	if sex == Male {
		return 0.3669*h3 + 0.03219*weightKg + 0.6041
	}
	return 0.3561*h3 + 0.03308*weightKg + 0.1833
}
