package collection

import (
	"fmt"
	"strings"
)

// Marker identifies the cell population being collected.
type Marker string

const (
	CD34 Marker = "CD34"
	CD3  Marker = "CD3"
)

// ParseMarker accepts marker names in any case.
func ParseMarker(raw string) (Marker, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(CD34):
		return CD34, nil
	case string(CD3):
		return CD3, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMarker, raw)
	}
}

// Label is the human-readable cell population name.
func (m Marker) Label() string {
	switch m {
	case CD34:
		return "CD34+ stem cells"
	case CD3:
		return "CD3+ lymphocytes"
	default:
		return string(m)
	}
}

// Unit is the unit of the pre-apheresis concentration.
func (m Marker) Unit() string {
	return "cells/μL"
}

// Valid reports whether m is a supported marker.
func (m Marker) Valid() bool {
	return m == CD34 || m == CD3
}
