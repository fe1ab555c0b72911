package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"

	"stixpattern/pattern"
)

func newTracedCache(t *testing.T, size int) (*PatternCache, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down tracer provider: %v", err)
		}
	})

	c, err := New(size, zaptest.NewLogger(t).Sugar(), WithTracerProvider(tp))
	require.NoError(t, err)
	return c, exporter
}

func spanAttr(span tracetest.SpanStub, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestParse_HitAndMiss(t *testing.T) {
	c, exporter := newTracedCache(t, 8)
	ctx := context.Background()

	first, err := c.Parse(ctx, "[a:b = 1]")
	require.NoError(t, err)
	second, err := c.Parse(ctx, "[a:b = 1]")
	require.NoError(t, err)

	assert.Same(t, first.(*pattern.Comparison), second.(*pattern.Comparison))
	assert.Equal(t, Stats{Hits: 1, Misses: 1, Size: 1, Capacity: 8}, c.Stats())

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	for i, wantHit := range []bool{false, true} {
		assert.Equal(t, "stixpat.cache.parse", spans[i].Name)
		hit, ok := spanAttr(spans[i], "cache.hit")
		require.True(t, ok)
		assert.Equal(t, wantHit, hit.AsBool())
		length, ok := spanAttr(spans[i], "pattern.length")
		require.True(t, ok)
		assert.Equal(t, int64(len("[a:b = 1]")), length.AsInt64())
	}
}

func TestParse_ErrorsAreNotCached(t *testing.T) {
	c, exporter := newTracedCache(t, 8)

	for i := 0; i < 2; i++ {
		_, err := c.Parse(context.Background(), "[a:b = ")
		assert.ErrorIs(t, err, pattern.ErrParse)
	}
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, uint64(2), c.Stats().Misses)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "parse_error", spans[0].Status.Description)
	require.NotEmpty(t, spans[0].Events)
	assert.Equal(t, "exception", spans[0].Events[0].Name)
}

func TestParse_Eviction(t *testing.T) {
	c, err := New(2, nil)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.Parse(ctx, fmt.Sprintf("[a:b = %d]", i))
		require.NoError(t, err)
	}
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, uint64(1), c.Stats().Evictions)

	// The oldest entry was evicted, so it misses again.
	_, err = c.Parse(ctx, "[a:b = 0]")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), c.Stats().Misses)

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestParse_Disabled(t *testing.T) {
	c, err := New(0, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := c.Parse(context.Background(), "[a:b = 1]")
		require.NoError(t, err)
	}
	assert.Equal(t, Stats{Misses: 3}, c.Stats())
	c.Purge()
}

func TestParse_CanceledContext(t *testing.T) {
	c, exporter := newTracedCache(t, 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Parse(ctx, "[a:b = 1]")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Stats{Capacity: 4}, c.Stats())
	require.Len(t, exporter.GetSpans(), 1)
	assert.Equal(t, codes.Error, exporter.GetSpans()[0].Status.Code)
}

func TestNew_NegativeSize(t *testing.T) {
	_, err := New(-1, nil)
	assert.Error(t, err)
}

func TestParse_Concurrent(t *testing.T) {
	c, err := New(16, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				expr, err := c.Parse(context.Background(), fmt.Sprintf("[a:b = %d]", i%20))
				if assert.NoError(t, err) {
					assert.Equal(t, pattern.IntConstant(i%20), pattern.Comparisons(expr)[0].Operand)
				}
			}
		}()
	}
	wg.Wait()

	stats := c.Stats()
	assert.Equal(t, uint64(800), stats.Hits+stats.Misses)
	assert.LessOrEqual(t, stats.Size, 16)
}
