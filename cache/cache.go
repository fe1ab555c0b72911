// Package cache memoizes parsed STIX patterns by their source text.
package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"stixpattern/metrics"
	"stixpattern/pattern"
)

// TracerName identifies spans started by the cache.
const TracerName = "stixpattern/cache"

// PatternCache is a thread-safe LRU of parse results. Only successful
// parses are stored; parsed trees are immutable so they are shared
// between callers.
type PatternCache struct {
	entries  *lru.Cache[string, pattern.PatternExpression]
	capacity int
	tracer   trace.Tracer
	logger   *zap.SugaredLogger

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      uint64 `json:"hits" yaml:"hits"`
	Misses    uint64 `json:"misses" yaml:"misses"`
	Evictions uint64 `json:"evictions" yaml:"evictions"`
	Size      int    `json:"size" yaml:"size"`
	Capacity  int    `json:"capacity" yaml:"capacity"`
}

// Option configures a PatternCache.
type Option func(*PatternCache)

// WithTracerProvider makes the cache start spans from tp instead of the
// no-op provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *PatternCache) {
		c.tracer = tp.Tracer(TracerName)
	}
}

// New returns a cache holding at most size patterns. A size of zero
// disables storage, every Parse then runs the parser.
func New(size int, logger *zap.SugaredLogger, opts ...Option) (*PatternCache, error) {
	if size < 0 {
		return nil, fmt.Errorf("cache size must be non-negative, got %d", size)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	c := &PatternCache{
		capacity: size,
		tracer:   noop.NewTracerProvider().Tracer(TracerName),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	if size > 0 {
		entries, err := lru.NewWithEvict(size, c.onEvict)
		if err != nil {
			return nil, fmt.Errorf("failed to create pattern cache: %w", err)
		}
		c.entries = entries
	}
	return c, nil
}

func (c *PatternCache) onEvict(key string, _ pattern.PatternExpression) {
	c.evictions.Add(1)
	metrics.RecordCacheEviction()
	c.logger.Debugw("Pattern evicted from cache", "pattern_length", len(key))
}

// Parse returns the tree for text, parsing it on a miss.
func (c *PatternCache) Parse(ctx context.Context, text string) (pattern.PatternExpression, error) {
	ctx, span := c.tracer.Start(ctx, "stixpat.cache.parse",
		trace.WithAttributes(attribute.Int("pattern.length", len(text))))
	defer span.End()

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if c.entries != nil {
		if expr, ok := c.entries.Get(text); ok {
			c.hits.Add(1)
			metrics.RecordCacheHit()
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return expr, nil
		}
	}
	c.misses.Add(1)
	metrics.RecordCacheMiss()
	span.SetAttributes(attribute.Bool("cache.hit", false))

	start := time.Now()
	expr, err := pattern.Parse(text)
	metrics.RecordParse(err, time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, metrics.ResultFor(err))
		return nil, err
	}

	if c.entries != nil {
		c.entries.Add(text, expr)
		metrics.UpdateCacheSize(c.entries.Len())
	}
	return expr, nil
}

// Len returns the number of cached patterns.
func (c *PatternCache) Len() int {
	if c.entries == nil {
		return 0
	}
	return c.entries.Len()
}

// Purge drops every cached pattern.
func (c *PatternCache) Purge() {
	if c.entries == nil {
		return
	}
	c.entries.Purge()
	metrics.UpdateCacheSize(0)
}

// Stats returns the current counters.
func (c *PatternCache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Size:      c.Len(),
		Capacity:  c.capacity,
	}
}
