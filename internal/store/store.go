// Package store provides the pieces shared by the task/audit backends.
//
// Each backend (postgres, sqlite, memory) lives in its own subpackage and
// implements domain.Backend. Backends never import each other; shared logic
// lives in this package.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultQueryTimeout bounds every single store round trip.
const DefaultQueryTimeout = 30 * time.Second

// ErrReadOnly is returned when a mutation is attempted through a read scope.
var ErrReadOnly = errors.New("scope is read-only")

// Base contains shared dependencies for all backends.
// Embed this in each backend struct.
type Base struct {
	Log   *logrus.Logger
	Clock *Clock
}

// NewBase fills in defaults for a nil logger or clock.
func NewBase(log *logrus.Logger, clock *Clock) Base {
	if log == nil {
		log = logrus.New()
	}

	if clock == nil {
		clock = NewClock()
	}

	return Base{Log: log, Clock: clock}
}

// WithTimeout creates a context with the default query timeout.
func WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, DefaultQueryTimeout)
}
