package observability

import (
	"fmt"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/egannguyen/ecommerce-orders/internal/config"
)

const instrumentationScope = config.ServiceName + ".manual"

// NewLogger builds the JSON console logger, tee'd into provider when it is not nil.
func NewLogger(level string, provider log.LoggerProvider) (*zap.Logger, error) {
	return newLogger(level, provider, zapcore.Lock(os.Stdout))
}

func newLogger(level string, provider log.LoggerProvider, out zapcore.WriteSyncer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), out, lvl)

	if provider != nil {
		core = zapcore.NewTee(
			core,
			otelzap.NewCore(instrumentationScope, otelzap.WithLoggerProvider(provider)),
		)
	}

	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service.name", config.ServiceName)),
	), nil
}
