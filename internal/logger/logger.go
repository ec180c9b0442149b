package logger

import (
	"go.uber.org/zap"
)

// New builds the process-wide zap logger. Production config by default;
// set debug for human-readable development output.
func New(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
