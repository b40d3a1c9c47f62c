package collection

import "errors"

// ErrUnknownMarker is returned when a marker name is not CD34 or CD3.
var ErrUnknownMarker = errors.New("marker must be CD34 or CD3")
