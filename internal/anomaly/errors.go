package anomaly

import (
	"errors"
	"fmt"

	"github.com/sells-group/temp-anomaly/internal/model"
)

// ErrUnknownCity is returned by the per-city statistics when the city has no rows.
var ErrUnknownCity = errors.New("anomaly: unknown city")

// MalformedInputError reports an input table that is missing required columns or holds a
// value that cannot be parsed. Row is the 1-based data row (0 for header problems).
type MalformedInputError struct {
	Row    int
	Column string
	Value  string
	Reason string
}

func (e *MalformedInputError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("malformed input: %s", e.Reason)
	}
	return fmt.Sprintf("malformed input: row %d column %q value %q: %s", e.Row, e.Column, e.Value, e.Reason)
}

// MissingBaselineError reports a (city, season) pair with no baseline.
type MissingBaselineError struct {
	City   string
	Season model.Season
}

func (e *MissingBaselineError) Error() string {
	return fmt.Sprintf("missing baseline for city %q season %q", e.City, e.Season)
}

// IsMalformedInput reports whether err wraps a MalformedInputError.
func IsMalformedInput(err error) bool {
	var target *MalformedInputError
	return errors.As(err, &target)
}

// IsMissingBaseline reports whether err wraps a MissingBaselineError.
func IsMissingBaseline(err error) bool {
	var target *MissingBaselineError
	return errors.As(err, &target)
}
