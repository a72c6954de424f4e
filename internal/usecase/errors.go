package usecase

import (
	"errors"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/perf-import/internal/domain/kv"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrStoreUnavailable is the template/roster store being down or too slow.
	// Callers treat it as a cache miss.
	ErrStoreUnavailable = kv.ErrUnavailable
)

// dependencyFailure marks err so that it maps to ErrDependencyUnavailable.
func dependencyFailure(err error, msg string) error {
	return crerr.Mark(crerr.Wrap(err, msg), ErrDependencyUnavailable)
}
