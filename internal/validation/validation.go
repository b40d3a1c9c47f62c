// Package validation aggregates input problems into a single caller-facing error.
package validation

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/multierr"
)

// ErrInvalidInput is matched by every Error produced by this package.
var ErrInvalidInput = errors.New("invalid input")

// Error carries every problem found in one request.
type Error struct {
	err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidInput, strings.Join(e.Messages(), "; "))
}

// Messages returns the human-readable problems in the order they were found.
func (e *Error) Messages() []string {
	errs := multierr.Errors(e.err)
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}

// Is reports whether target is ErrInvalidInput.
func (e *Error) Is(target error) bool {
	return target == ErrInvalidInput
}

// Collector accumulates problems; the zero value is ready to use.
type Collector struct {
	err error
}

// Addf records a problem.
func (c *Collector) Addf(format string, args ...any) {
	c.err = multierr.Append(c.err, fmt.Errorf(format, args...))
}

// Check records the problem when ok is false.
func (c *Collector) Check(ok bool, format string, args ...any) {
	if !ok {
		c.Addf(format, args...)
	}
}

// Err returns nil when nothing was recorded, otherwise an *Error.
func (c *Collector) Err() error {
	if c.err == nil {
		return nil
	}
	return &Error{err: c.err}
}

// Messages extracts the problem list from err. Errors that are not validation
// errors yield a single message.
func Messages(err error) []string {
	if err == nil {
		return nil
	}
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Messages()
	}
	return []string{err.Error()}
}

// InRange reports whether v is a number within [min, max].
func InRange(v, min, max float64) bool {
	return Finite(v) && v >= min && v <= max
}

// Positive reports whether v is a finite number greater than zero.
func Positive(v float64) bool {
	return Finite(v) && v > 0
}

// Finite rejects NaN and infinities.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
