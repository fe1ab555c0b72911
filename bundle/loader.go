package bundle

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"stixpattern/metrics"
	"stixpattern/pattern"
	"stixpattern/util/goroutine"
)

//go:embed schema.json
var schemaJSON []byte

var (
	// ErrTooLarge is returned when the input exceeds Config.MaxFileSize.
	ErrTooLarge = errors.New("bundle exceeds maximum size")
	// ErrInvalidBundle wraps schema and decoding failures of the bundle itself.
	ErrInvalidBundle = errors.New("invalid STIX bundle")
	// ErrInvalidIndicator wraps per-indicator validation failures.
	ErrInvalidIndicator = errors.New("invalid indicator")
)

// ParseFunc parses one pattern. cache.PatternCache.Parse satisfies it.
type ParseFunc func(ctx context.Context, text string) (pattern.PatternExpression, error)

// Config controls a Loader.
type Config struct {
	Workers     int
	MaxFileSize int64
	// Parse defaults to pattern.Parse.
	Parse ParseFunc
}

// Loader reads STIX bundles and parses their indicator patterns.
type Loader struct {
	cfg      Config
	logger   *zap.SugaredLogger
	schema   *gojsonschema.Schema
	validate *validator.Validate
}

// NewLoader compiles the bundle schema and returns a Loader.
func NewLoader(cfg Config, logger *zap.SugaredLogger) (*Loader, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 64 << 20
	}
	if cfg.Parse == nil {
		cfg.Parse = func(_ context.Context, text string) (pattern.PatternExpression, error) {
			start := time.Now()
			expr, err := pattern.Parse(text)
			metrics.RecordParse(err, time.Since(start).Seconds())
			return expr, err
		}
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to compile bundle schema: %w", err)
	}

	return &Loader{
		cfg:      cfg,
		logger:   logger,
		schema:   schema,
		validate: validator.New(),
	}, nil
}

// Load reads a bundle from r and parses every STIX indicator pattern.
// Per-indicator failures are recorded in the Report; an error is returned
// only when the bundle itself is unusable or ctx is done.
func (l *Loader) Load(ctx context.Context, r io.Reader) (*Report, error) {
	start := time.Now()
	defer func() { metrics.RecordBundleLoad(time.Since(start).Seconds()) }()

	data, err := io.ReadAll(io.LimitReader(r, l.cfg.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle: %w", err)
	}
	if int64(len(data)) > l.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, l.cfg.MaxFileSize)
	}

	result, err := l.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}
	if !result.Valid() {
		var msgs []string
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidBundle, strings.Join(msgs, "; "))
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}

	report := &Report{BundleID: env.ID, Objects: len(env.Objects)}
	var jobs []int
	for _, raw := range env.Objects {
		res, parse := l.prepare(raw)
		if res == nil {
			continue
		}
		report.Results = append(report.Results, *res)
		if parse {
			jobs = append(jobs, len(report.Results)-1)
		}
	}

	l.parseAll(ctx, report.Results, jobs)

	for _, res := range report.Results {
		metrics.RecordBundleIndicator(res.Status)
		switch {
		case res.Status == metrics.ResultSkipped:
			report.Skipped++
		case res.OK():
			report.Parsed++
		default:
			report.Failed++
		}
	}

	l.logger.Infow("Bundle loaded",
		"bundle_id", report.BundleID,
		"objects", report.Objects,
		"indicators", len(report.Results),
		"parsed", report.Parsed,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"duration", time.Since(start))

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// prepare decodes and validates one bundle object. It returns nil for
// non-indicator objects and reports whether the pattern should be parsed.
func (l *Loader) prepare(raw json.RawMessage) (*Result, bool) {
	var header objectHeader
	if err := json.Unmarshal(raw, &header); err != nil || header.Type != "indicator" {
		return nil, false
	}

	var ind Indicator
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&ind); err != nil {
		return invalid(Result{ID: header.ID}, err), false
	}
	res := Result{ID: ind.ID, Name: ind.Name, Pattern: ind.Pattern}

	if err := l.validate.Struct(&ind); err != nil {
		return invalid(res, err), false
	}
	if err := validateID(ind.ID, "indicator"); err != nil {
		return invalid(res, err), false
	}

	if ind.PatternType != "" && ind.PatternType != PatternTypeSTIX {
		l.logger.Debugw("Skipping non-STIX indicator",
			"id", ind.ID,
			"pattern_type", ind.PatternType)
		res.Status = metrics.ResultSkipped
		return &res, false
	}
	return &res, true
}

func invalid(res Result, err error) *Result {
	res.Status = metrics.ResultInvalid
	res.Err = fmt.Errorf("%w: %v", ErrInvalidIndicator, err)
	return &res
}

// validateID checks a STIX identifier of the form "<type>--<uuid>".
func validateID(id, objectType string) error {
	prefix := objectType + "--"
	if !strings.HasPrefix(id, prefix) {
		return fmt.Errorf("id %q must start with %q", id, prefix)
	}
	if _, err := uuid.Parse(strings.TrimPrefix(id, prefix)); err != nil {
		return fmt.Errorf("id %q has an invalid UUID: %w", id, err)
	}
	return nil
}

// parseAll fans the selected results out to a bounded worker pool. Each
// worker writes only to the slots it was handed.
func (l *Loader) parseAll(ctx context.Context, results []Result, jobs []int) {
	if len(jobs) == 0 {
		return
	}
	workers := l.cfg.Workers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	queue := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range queue {
				l.parseOne(ctx, &results[i])
			}
		}()
	}

	for _, i := range jobs {
		queue <- i
	}
	close(queue)
	wg.Wait()
}

func (l *Loader) parseOne(ctx context.Context, res *Result) {
	if err := ctx.Err(); err != nil {
		res.Status = metrics.ResultCanceled
		res.Err = err
		return
	}

	expr, err := l.safeParse(ctx, res.Pattern)
	if err != nil {
		var panicErr *goroutine.PanicError
		switch {
		case errors.As(err, &panicErr):
			res.Status = metrics.ResultInvalid
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			res.Status = metrics.ResultCanceled
		default:
			res.Status = metrics.ResultFor(err)
		}
		res.Err = err
		l.logger.Debugw("Indicator pattern rejected",
			"id", res.ID,
			"error", err)
		return
	}
	res.Status = metrics.ResultOK
	res.Expr = expr
}

func (l *Loader) safeParse(ctx context.Context, text string) (expr pattern.PatternExpression, err error) {
	defer goroutine.RecoverInto("bundle-parser", l.logger, &err)
	return l.cfg.Parse(ctx, text)
}
