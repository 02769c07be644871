package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// New builds a zap logger. Production mode emits JSON at info level,
// anything else emits console output at debug level.
func New(mode string) (*zap.Logger, error) {
	var (
		l   *zap.Logger
		err error
	)
	switch strings.ToLower(mode) {
	case "prod", "production":
		l, err = zap.NewProduction()
	default:
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return l, nil
}

// Component returns a child logger tagged with the component name.
func Component(l *zap.Logger, name string) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return l.With(zap.String("component", name))
}
