package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log/noop"
	"go.uber.org/zap/zapcore"

	"github.com/egannguyen/ecommerce-orders/internal/config"
)

func TestNewLogger_WritesJSONWithServiceName(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger("info", noop.NewLoggerProvider(), zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("Service: Placing order")
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Service: Placing order", entry["msg"])
	assert.Equal(t, config.ServiceName, entry["service.name"])
	assert.Contains(t, entry, "caller")
}

func TestNewLogger_RejectsUnknownLevel(t *testing.T) {
	_, err := NewLogger("chatty", nil)
	assert.Error(t, err)
}

func TestSetup_WithoutEndpointIsNoop(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{}

	tp, traceShutdown, err := SetupTracingSDK(ctx, cfg)
	require.NoError(t, err)
	assert.Nil(t, tp)

	logShutdown, err := SetupLoggingSDK(ctx, cfg)
	require.NoError(t, err)

	assert.NoError(t, Shutdown(ctx, traceShutdown, logShutdown, nil))
}

func TestShutdown_JoinsErrors(t *testing.T) {
	first := errors.New("first")
	second := errors.New("second")
	err := Shutdown(context.Background(),
		func(context.Context) error { return first },
		func(context.Context) error { return second },
	)
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
}
