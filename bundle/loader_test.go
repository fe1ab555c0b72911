package bundle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"stixpattern/metrics"
	"stixpattern/pattern"
	"stixpattern/util/goroutine"
)

// indicator builds an indicator object for test bundles.
func indicator(id, patternText, patternType string) map[string]interface{} {
	obj := map[string]interface{}{
		"type":         "indicator",
		"spec_version": "2.1",
		"id":           id,
		"name":         "test " + id,
		"pattern":      patternText,
		"valid_from":   "2020-01-01T00:00:00Z",
	}
	if patternType != "" {
		obj["pattern_type"] = patternType
	}
	return obj
}

func newID(objectType string) string {
	return objectType + "--" + uuid.NewString()
}

func makeBundle(t *testing.T, objects ...map[string]interface{}) string {
	t.Helper()
	data, err := json.Marshal(map[string]interface{}{
		"type":    "bundle",
		"id":      newID("bundle"),
		"objects": objects,
	})
	require.NoError(t, err)
	return string(data)
}

func newTestLoader(t *testing.T, cfg Config) *Loader {
	t.Helper()
	loader, err := NewLoader(cfg, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	return loader
}

func TestLoad_MixedBundle(t *testing.T) {
	goroutine.AssertNoLeaks(t)

	good, bad, sigma := newID("indicator"), newID("indicator"), newID("indicator")
	doc := makeBundle(t,
		indicator(good, "[file:name = 'x'] REPEATS 2 TIMES", "stix"),
		map[string]interface{}{"type": "malware", "id": newID("malware"), "name": "x"},
		indicator(bad, "[file:name = 'x'", "stix"),
		indicator(sigma, "title: x", "sigma"),
	)

	report, err := newTestLoader(t, Config{Workers: 2}).Load(context.Background(), strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, 4, report.Objects)
	require.Len(t, report.Results, 3)
	assert.Equal(t, 1, report.Parsed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Skipped)

	assert.Equal(t, good, report.Results[0].ID)
	assert.True(t, report.Results[0].OK())
	assert.Equal(t, metrics.ResultOK, report.Results[0].Status)
	assert.IsType(t, &pattern.QualifiedPattern{}, report.Results[0].Expr)

	assert.Equal(t, bad, report.Results[1].ID)
	assert.Equal(t, metrics.ResultParse, report.Results[1].Status)
	assert.ErrorIs(t, report.Results[1].Err, pattern.ErrParse)

	assert.Equal(t, sigma, report.Results[2].ID)
	assert.Equal(t, metrics.ResultSkipped, report.Results[2].Status)
	assert.NoError(t, report.Results[2].Err)

	failures := report.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, bad, failures[0].ID)
}

func TestLoad_STIX20WithoutPatternType(t *testing.T) {
	obj := indicator(newID("indicator"), "[ipv4-addr:value = '10.0.0.1']", "")
	obj["spec_version"] = "2.0"

	report, err := newTestLoader(t, Config{}).Load(context.Background(), strings.NewReader(makeBundle(t, obj)))
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.True(t, report.Results[0].OK())
}

func TestLoad_InvalidIndicators(t *testing.T) {
	noValidFrom := indicator(newID("indicator"), "[a:b = 1]", "stix")
	delete(noValidFrom, "valid_from")

	tests := []struct {
		name string
		obj  map[string]interface{}
		want string
	}{
		{"missing valid_from", noValidFrom, "ValidFrom"},
		{"empty pattern", indicator(newID("indicator"), "", "stix"), "Pattern"},
		{"bad uuid", indicator("indicator--not-a-uuid", "[a:b = 1]", "stix"), "invalid UUID"},
		{"bad spec version", func() map[string]interface{} {
			o := indicator(newID("indicator"), "[a:b = 1]", "stix")
			o["spec_version"] = "3.0"
			return o
		}(), "SpecVersion"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := newTestLoader(t, Config{}).Load(context.Background(), strings.NewReader(makeBundle(t, tt.obj)))
			require.NoError(t, err)
			require.Len(t, report.Results, 1)

			res := report.Results[0]
			assert.Equal(t, metrics.ResultInvalid, res.Status)
			assert.ErrorIs(t, res.Err, ErrInvalidIndicator)
			assert.Contains(t, res.Err.Error(), tt.want)
			assert.Equal(t, 1, report.Failed)
		})
	}
}

func TestLoad_RejectsBundle(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", "{"},
		{"wrong type", `{"type": "report", "id": "bundle--x", "objects": []}`},
		{"missing objects", `{"type": "bundle", "id": "bundle--x"}`},
		{"object without id", `{"type": "bundle", "id": "bundle--x", "objects": [{"type": "indicator"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestLoader(t, Config{}).Load(context.Background(), strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidBundle)
		})
	}
}

func TestLoad_TooLarge(t *testing.T) {
	doc := makeBundle(t, indicator(newID("indicator"), "[a:b = 1]", "stix"))
	_, err := newTestLoader(t, Config{MaxFileSize: 16}).Load(context.Background(), strings.NewReader(doc))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestLoad_ManyIndicatorsKeepOrder(t *testing.T) {
	goroutine.AssertNoLeaks(t)

	var objects []map[string]interface{}
	for i := 0; i < 200; i++ {
		objects = append(objects, indicator(newID("indicator"), fmt.Sprintf("[file:size = %d]", i), ""))
	}

	var calls atomic.Int64
	loader := newTestLoader(t, Config{
		Workers: 8,
		Parse: func(_ context.Context, text string) (pattern.PatternExpression, error) {
			calls.Add(1)
			return pattern.Parse(text)
		},
	})

	report, err := loader.Load(context.Background(), strings.NewReader(makeBundle(t, objects...)))
	require.NoError(t, err)
	assert.Equal(t, int64(200), calls.Load())
	assert.Equal(t, 200, report.Parsed)
	for i, res := range report.Results {
		cmp := pattern.Comparisons(res.Expr)[0]
		assert.Equal(t, pattern.IntConstant(i), cmp.Operand)
	}
}

func TestLoad_PanicInParserIsContained(t *testing.T) {
	goroutine.AssertNoLeaks(t)

	doc := makeBundle(t,
		indicator(newID("indicator"), "[a:b = 1]", ""),
		indicator(newID("indicator"), "boom", ""),
		indicator(newID("indicator"), "[a:b = 2]", ""),
	)
	loader := newTestLoader(t, Config{
		Workers: 2,
		Parse: func(_ context.Context, text string) (pattern.PatternExpression, error) {
			if text == "boom" {
				panic("parser exploded")
			}
			return pattern.Parse(text)
		},
	})

	report, err := loader.Load(context.Background(), strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Parsed)
	assert.Equal(t, 1, report.Failed)

	var panicErr *goroutine.PanicError
	require.True(t, errors.As(report.Results[1].Err, &panicErr))
	assert.Equal(t, "parser exploded", panicErr.Value)
	assert.Equal(t, metrics.ResultInvalid, report.Results[1].Status)
}

func TestLoad_Canceled(t *testing.T) {
	goroutine.AssertNoLeaks(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc := makeBundle(t,
		indicator(newID("indicator"), "[a:b = 1]", ""),
		indicator(newID("indicator"), "[a:b = 2]", ""),
	)
	report, err := newTestLoader(t, Config{Workers: 4}).Load(ctx, strings.NewReader(doc))
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	for _, res := range report.Results {
		assert.Equal(t, metrics.ResultCanceled, res.Status)
	}
	assert.Equal(t, 2, report.Failed)
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, validateID("indicator--8e2e2d2b-17d4-4cbf-938f-98ee46b3cd3f", "indicator"))
	assert.Error(t, validateID("malware--8e2e2d2b-17d4-4cbf-938f-98ee46b3cd3f", "indicator"))
	assert.Error(t, validateID("indicator--1234", "indicator"))
}
