package embedx

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var logger atomic.Pointer[zap.Logger]

// Logger returns the package logger. It is a no-op logger until SetLogger
// is called.
func Logger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return zap.NewNop()
}

// SetLogger routes embedx logs to the host's logger. Instances created with
// WithLogger keep their own logger.
func SetLogger(l *zap.Logger) {
	logger.Store(l)
}
