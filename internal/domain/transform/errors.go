// Package transform coerces raw CSV cell strings into typed telemetry values.
package transform

import (
	"fmt"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/perf-import/internal/domain/telemetry"
)

// Error is a per-cell coercion failure. It never aborts a batch.
type Error struct {
	Transform telemetry.Transform
	Value     string
	Reason    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %q", e.Transform, e.Reason, e.Value)
}

func newError(t telemetry.Transform, value, reason string) error {
	return crerr.WithStack(&Error{Transform: t, Value: value, Reason: reason})
}

// AsError unwraps err into a transform Error when it carries one.
func AsError(err error) (*Error, bool) {
	var te *Error
	if crerr.As(err, &te) {
		return te, true
	}
	return nil, false
}
