package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()

	shutdown, err := Init(ctx, Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	err = shutdown(ctx)
	assert.NoError(t, err)

	assert.False(t, IsEnabled())
}

func TestTracerReturnsNoOp(t *testing.T) {
	tracer = nil
	enabled = false

	tr := Tracer()
	require.NotNil(t, tr)
}

func TestStartSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartSpan(ctx, "test.operation")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}

func TestRecordError(t *testing.T) {
	ctx := context.Background()

	require.NotPanics(t, func() {
		RecordError(ctx, nil)
	})
	require.NotPanics(t, func() {
		RecordError(ctx, errors.New("test error"))
	})
}

func TestTraceID(t *testing.T) {
	assert.Equal(t, "", TraceID(context.Background()))
}

func TestAttributeHelpers(t *testing.T) {
	t.Run("Path", func(t *testing.T) {
		attr := Path("/readme")
		assert.Equal(t, AttrPath, string(attr.Key))
		assert.Equal(t, "/readme", attr.Value.AsString())
	})

	t.Run("Hops", func(t *testing.T) {
		attr := Hops(3)
		assert.Equal(t, AttrHops, string(attr.Key))
		assert.Equal(t, int64(3), attr.Value.AsInt64())
	})

	t.Run("Server", func(t *testing.T) {
		attr := Server("echo")
		assert.Equal(t, AttrServer, string(attr.Key))
		assert.Equal(t, "echo", attr.Value.AsString())
	})

	t.Run("CID", func(t *testing.T) {
		attr := CID("AAAAAAAB")
		assert.Equal(t, AttrCID, string(attr.Key))
		assert.Equal(t, "AAAAAAAB", attr.Value.AsString())
	})
}

func TestStartResolveSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartResolveSpan(ctx, "/docs", Hops(0))
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}

func TestStartContentSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartContentSpan(ctx, "read", "AAAAAAAB", Size(1))
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}
