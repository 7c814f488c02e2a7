package trace

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	ctx := context.Background()

	cfg := DefaultConfig("test")
	cfg.ExporterType = "bogus"
	assert.Error(t, Initialize(ctx, cfg))

	cfg.ExporterType = "none"
	require.NoError(t, Initialize(ctx, cfg))
	defer func() { require.NoError(t, Shutdown(ctx)) }()

	assert.Error(t, Initialize(ctx, cfg), "second initialize should fail")

	err := WithSpan(ctx, "op", func(context.Context) error { return errors.New("boom") })
	assert.EqualError(t, err, "boom")
}

func TestLogWithTrace(t *testing.T) {
	assert.Equal(t, "hello", LogWithTrace(context.Background(), "hello"))
}

func TestInstrumentWithoutProvider(t *testing.T) {
	ctx, span := InstrumentCommand(context.Background(), "light", "set_mode")
	defer span.End()
	assert.NotNil(t, ctx)

	_, hop := InstrumentHop(ctx, 44100, 1536)
	hop.End()
}
