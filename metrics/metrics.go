package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"stixpattern/pattern"
)

// Result label values shared by the counters below.
const (
	ResultOK       = "ok"
	ResultLex      = "lex_error"
	ResultLiteral  = "literal_error"
	ResultParse    = "parse_error"
	ResultSkipped  = "skipped"
	ResultInvalid  = "invalid"
	ResultCanceled = "canceled"
)

var (
	// ParseTotal counts pattern parses.
	// Labels:
	//   - result: "ok", "lex_error", "literal_error" or "parse_error"
	ParseTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stixpat",
			Name:      "parse_total",
			Help:      "Total number of STIX pattern parses",
		},
		[]string{"result"},
	)

	// ParseDuration measures time spent in the parser.
	// Buckets: 1μs to ~0.5s, patterns are short.
	ParseDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "stixpat",
			Name:      "parse_duration_seconds",
			Help:      "Time spent parsing STIX patterns",
			Buckets:   prometheus.ExponentialBuckets(0.000001, 4, 10),
		},
	)

	// CacheHitsTotal counts parses served from the pattern cache.
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stixpat",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of pattern cache hits",
		},
	)

	// CacheMissesTotal counts lookups that had to run the parser.
	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stixpat",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of pattern cache misses",
		},
	)

	// CacheEvictionsTotal counts LRU evictions.
	CacheEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stixpat",
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Total number of pattern cache evictions",
		},
	)

	// CacheSize is the current number of cached patterns.
	CacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stixpat",
			Subsystem: "cache",
			Name:      "size",
			Help:      "Current number of patterns in cache",
		},
	)

	// BundleIndicatorsTotal counts indicators seen while loading bundles.
	// Labels:
	//   - result: "ok", "invalid", "skipped", "canceled" or a parse error result
	BundleIndicatorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stixpat",
			Subsystem: "bundle",
			Name:      "indicators_total",
			Help:      "Total number of bundle indicators processed",
		},
		[]string{"result"},
	)

	// BundleLoadDuration measures the time to load one bundle.
	BundleLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "stixpat",
			Subsystem: "bundle",
			Name:      "load_duration_seconds",
			Help:      "Time spent loading and parsing STIX bundles",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
		},
	)

	// SemanticIssuesTotal counts problems reported by the semantic checker.
	// Labels:
	//   - rule: the check that failed, e.g. "operand_type", "regex"
	SemanticIssuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stixpat",
			Subsystem: "semantic",
			Name:      "issues_total",
			Help:      "Total number of semantic issues found in parsed patterns",
		},
		[]string{"rule"},
	)
)

// ResultFor maps a Parse error to its result label.
func ResultFor(err error) string {
	if err == nil {
		return ResultOK
	}
	var perr pattern.Error
	if !errors.As(err, &perr) {
		return ResultParse
	}
	switch perr.Kind() {
	case pattern.ErrKindLex:
		return ResultLex
	case pattern.ErrKindLiteral:
		return ResultLiteral
	default:
		return ResultParse
	}
}

// RecordParse records one parse with its outcome and duration.
func RecordParse(err error, durationSec float64) {
	ParseTotal.WithLabelValues(ResultFor(err)).Inc()
	ParseDuration.Observe(durationSec)
}

// RecordCacheHit records a cache hit.
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss records a cache miss.
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordCacheEviction records an LRU cache eviction.
func RecordCacheEviction() {
	CacheEvictionsTotal.Inc()
}

// UpdateCacheSize updates the current cache size gauge.
func UpdateCacheSize(size int) {
	CacheSize.Set(float64(size))
}

// RecordBundleIndicator records the outcome for one bundle indicator.
func RecordBundleIndicator(result string) {
	BundleIndicatorsTotal.WithLabelValues(result).Inc()
}

// RecordBundleLoad records the time to load a bundle.
func RecordBundleLoad(durationSec float64) {
	BundleLoadDuration.Observe(durationSec)
}

// RecordSemanticIssue records one semantic issue by rule.
func RecordSemanticIssue(rule string) {
	SemanticIssuesTotal.WithLabelValues(rule).Inc()
}

// WriteTextfile dumps the default registry in the Prometheus text format,
// for node_exporter's textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
