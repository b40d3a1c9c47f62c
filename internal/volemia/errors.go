package volemia

import "errors"

// ErrUnknownSex is returned when the sex value cannot be parsed.
var ErrUnknownSex = errors.New("sex must be M or F")
