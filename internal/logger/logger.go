package logger

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the application logger and installs it as the zap global.
var Module = fx.Module("logger",
	fx.Provide(Provide),
	fx.Invoke(ReplaceGlobals),
)

// Provide returns a production-ready zap logger configured for the application.
func Provide() (*zap.Logger, error) {
	return zap.NewProduction()
}

// ReplaceGlobals installs the logger so packages can use zap.L().
func ReplaceGlobals(l *zap.Logger) {
	zap.ReplaceGlobals(l)
}
