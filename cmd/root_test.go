package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"stixpattern/ioc"
)

// run executes the CLI in a clean working directory and returns the exit
// code with captured stdout and stderr.
func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), append([]string{"--no-color"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// inTempDir switches to a fresh directory so no stray stixpat.yaml is read.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewRootCmd(t *testing.T) {
	root := NewRootCmd()
	assert.Equal(t, "stixpat", root.Use)

	names := map[string]bool{}
	for _, sub := range root.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"parse", "check", "iocs", "match", "bundle"} {
		assert.True(t, names[want], "Missing command: %s", want)
	}

	for _, flag := range []string{"config", "output", "no-color", "quiet", "metrics-file", "log-level"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "Missing flag: %s", flag)
	}
}

func TestParseCmd_Text(t *testing.T) {
	inTempDir(t)
	code, stdout, stderr := run(t, "parse", "[a:b=1] or [a:b=2]")
	assert.Equal(t, 0, code, stderr)
	assert.Equal(t, "[a:b = 1] OR [a:b = 2]\n", stdout)
}

func TestParseCmd_JoinsArguments(t *testing.T) {
	inTempDir(t)
	code, stdout, _ := run(t, "parse", "[a:b = 1]", "REPEATS", "2", "TIMES")
	assert.Equal(t, 0, code)
	assert.Equal(t, "[a:b = 1] REPEATS 2 TIMES\n", stdout)
}

func TestParseCmd_JSONTree(t *testing.T) {
	inTempDir(t)
	code, stdout, stderr := run(t, "parse", "-o", "json", "[file:hashes.'SHA-256' = 'ab' AND file:size IN (1, 2)] WITHIN 5 SECONDS")
	require.Equal(t, 0, code, stderr)

	var out parseOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "[file:hashes.'SHA-256' = 'ab' AND file:size IN (1, 2)] WITHIN 5.0 SECONDS", out.Canonical)

	require.NotNil(t, out.Tree)
	assert.Equal(t, "qualified", out.Tree.Kind)
	assert.Equal(t, 5.0, out.Tree.Within)

	inner := out.Tree.Pattern
	require.NotNil(t, inner)
	assert.Equal(t, "comparison_expression", inner.Kind)
	assert.Equal(t, "AND", inner.Op)

	left := inner.Left
	assert.Equal(t, "file", left.Path.ObjectType)
	assert.Equal(t, []componentView{{Name: "hashes"}, {Name: "SHA-256"}}, left.Path.Properties)
	assert.Equal(t, []constantView{{Type: "string", Value: "ab"}}, left.Operand)

	right := inner.Right
	assert.Equal(t, "IN", right.Op)
	require.Len(t, right.Operand, 2)
	assert.Equal(t, "integer", right.Operand[0].Type)
}

func TestParseCmd_YAML(t *testing.T) {
	inTempDir(t)
	code, stdout, _ := run(t, "parse", "--output", "yaml", "[a:b EXISTS]")
	require.Equal(t, 0, code)

	var out map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "[a:b EXISTS]", out["canonical"])
	tree := out["tree"].(map[string]interface{})
	assert.Equal(t, "comparison", tree["kind"])
	assert.Equal(t, "EXISTS", tree["op"])
	assert.NotContains(t, tree, "operand")
}

func TestParseCmd_ErrorWithCaret(t *testing.T) {
	inTempDir(t)
	code, stdout, stderr := run(t, "parse", "[a:b = 1] extra")
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Equal(t,
		"✗ parse error at 1:11: expected end of input but found identifier \"extra\"\n"+
			"  1 | [a:b = 1] extra\n"+
			"    |           ^\n",
		stderr)
}

func TestParseCmd_SemanticIssues(t *testing.T) {
	inTempDir(t)

	code, stdout, stderr := run(t, "parse", "[file:size > true]")
	assert.Equal(t, 0, code)
	assert.Equal(t, "[file:size > true]\n", stdout)
	assert.Contains(t, stderr, "⚠ file:size >: boolean values cannot be ordered")

	code, _, stderr = run(t, "parse", "--strict", "[file:size > true]")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Error: semantic error: file:size >: boolean values cannot be ordered")
}

func TestParseCmd_Stdin(t *testing.T) {
	inTempDir(t)
	root := NewRootCmd()
	var stdout bytes.Buffer
	root.SetArgs([]string{"--no-color", "parse"})
	root.SetIn(strings.NewReader("[a:b = 'x']\n"))
	root.SetOut(&stdout)
	root.SetErr(&bytes.Buffer{})

	require.NoError(t, root.Execute())
	assert.Equal(t, "[a:b = 'x']\n", stdout.String())

	root = NewRootCmd()
	root.SetArgs([]string{"parse"})
	root.SetIn(strings.NewReader("  \n"))
	root.SetOut(&bytes.Buffer{})
	assert.EqualError(t, root.Execute(), "no pattern given")
}

func TestCheckCmd_LineFile(t *testing.T) {
	dir := inTempDir(t)
	path := writeFile(t, dir, "patterns.txt", "# sample patterns\n[file:name = 'a']\n\n[a:b = 1] OR [c:d = 2]\n[a:b = ]\n")

	code, stdout, stderr := run(t, "check", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "✓ line 2: [file:name = 'a']\n")
	assert.Contains(t, stdout, "✓ line 4: [a:b = 1] OR [c:d = 2]\n")
	assert.Contains(t, stdout, "✗ line 5\nparse error at 1:8")
	assert.Contains(t, stdout, "3 patterns checked, 2 valid, 1 invalid, 0 with warnings")
	assert.Equal(t, "Error: 1 of 3 patterns failed\n", stderr)
}

func TestCheckCmd_YAMLFileJSONOutput(t *testing.T) {
	dir := inTempDir(t)
	path := writeFile(t, dir, "patterns.yaml", `- "[file:name = 'a']"
- name: bad-one
  pattern: "[a:b = ]"
- name: warn
  pattern: "[file:size > true]"
`)

	code, stdout, _ := run(t, "check", "-o", "json", path)
	assert.Equal(t, 1, code)

	var results []checkResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &results))
	require.Len(t, results, 3)

	assert.Equal(t, 1, results[0].Line)
	assert.True(t, results[0].Valid)

	assert.Equal(t, "bad-one", results[1].Name)
	assert.Equal(t, 2, results[1].Line)
	assert.False(t, results[1].Valid)
	assert.Contains(t, results[1].Error, "parse error")

	assert.Equal(t, "warn", results[2].Name)
	assert.True(t, results[2].Valid)
	require.Len(t, results[2].Issues, 1)
	assert.Equal(t, "ordering", results[2].Issues[0].Rule)
}

func TestCheckCmd_StrictAndQuiet(t *testing.T) {
	dir := inTempDir(t)
	path := writeFile(t, dir, "p.txt", "[a:b = 1]\n[file:size > true]\n")

	code, stdout, _ := run(t, "check", "--quiet", path)
	assert.Equal(t, 0, code)
	assert.NotContains(t, stdout, "✓")
	assert.Contains(t, stdout, "⚠ line 2: [file:size > true]")

	code, stdout, stderr := run(t, "check", "--strict", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "✗ line 2: [file:size > true]")
	assert.Contains(t, stderr, "1 of 2 patterns failed")
}

func TestIOCsCmd(t *testing.T) {
	inTempDir(t)
	src := "[domain-name:value = 'Evil.test' OR ipv4-addr:value = '10.0.0.1'] FOLLOWEDBY [file:hashes.MD5 = 'ABCD']"

	code, stdout, _ := run(t, "iocs", "-o", "json", src)
	require.Equal(t, 0, code)
	var all []ioc.Indicator
	require.NoError(t, json.Unmarshal([]byte(stdout), &all))
	require.Len(t, all, 3)
	assert.Equal(t, ioc.Indicator{Type: ioc.TypeDomain, Value: "evil.test", Path: "domain-name:value"}, all[0])

	code, stdout, _ = run(t, "iocs", "-o", "json", "--type", "ip,hash", src)
	require.Equal(t, 0, code)
	var filtered []ioc.Indicator
	require.NoError(t, json.Unmarshal([]byte(stdout), &filtered))
	require.Len(t, filtered, 2)
	assert.Equal(t, ioc.TypeIP, filtered[0].Type)
	assert.Equal(t, "MD5", filtered[1].Algorithm)

	code, stdout, _ = run(t, "iocs", src)
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "TYPE")
	assert.Contains(t, stdout, "hash/MD5")
	assert.Contains(t, stdout, "abcd")

	code, stdout, _ = run(t, "iocs", "-o", "json", "[file:size = 1]")
	require.Equal(t, 0, code)
	assert.Equal(t, "[]\n", stdout)
}

func TestMatchCmd(t *testing.T) {
	inTempDir(t)
	src := "[url:value MATCHES '^https://evil\\\\.' AND url:value NOT MATCHES 'safe' AND url:value = 'x']"

	code, stdout, stderr := run(t, "match", src, "https://evil.test/safe")
	assert.Equal(t, 0, code, stderr)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "✓ url:value MATCHES"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "- url:value NOT MATCHES"), lines[1])

	code, stdout, _ = run(t, "match", "-o", "json", src, "https://evil.test/")
	require.Equal(t, 0, code)
	var results []matchResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &results))
	require.Len(t, results, 2)
	assert.True(t, results[0].Matched)
	assert.False(t, results[1].Matched)
	assert.True(t, results[1].Negated)
	assert.True(t, results[1].Holds)
}

func TestMatchCmd_Failures(t *testing.T) {
	inTempDir(t)

	code, _, stderr := run(t, "match", "[file:name = 'x']", "x")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "no MATCHES comparisons")

	code, stdout, stderr := run(t, "match", "[file:name MATCHES '(' OR file:name MATCHES 'a']", "a")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "✗ file:name MATCHES '('")
	assert.Contains(t, stdout, "✓ file:name MATCHES 'a'")
	assert.Contains(t, stderr, "1 of 2 regexes failed")

	code, _, _ = run(t, "match", "[file:name MATCHES 'a']")
	assert.Equal(t, 1, code)
}

const testBundle = `{
  "type": "bundle",
  "id": "bundle--5d0092c5-5f74-4287-9642-33f4c354e56d",
  "objects": [
    {
      "type": "indicator",
      "spec_version": "2.1",
      "id": "indicator--8e2e2d2b-17d4-4cbf-938f-98ee46b3cd3f",
      "name": "Malicious site",
      "pattern": "[domain-name:value = 'evil.test']",
      "pattern_type": "stix",
      "valid_from": "2020-01-01T00:00:00Z"
    },
    {
      "type": "indicator",
      "spec_version": "2.1",
      "id": "indicator--a932fcc6-e032-476c-826f-cb970a5a1ade",
      "name": "Sigma rule",
      "pattern": "title: x",
      "pattern_type": "sigma",
      "valid_from": "2020-01-01T00:00:00Z"
    }%s
  ]
}`

const brokenIndicator = `,
    {
      "type": "indicator",
      "spec_version": "2.1",
      "id": "indicator--1e3c8a7b-3c5b-4d47-9d2f-0a4e63f2e6a1",
      "name": "Broken",
      "pattern": "[file:name = 'x'",
      "pattern_type": "stix",
      "valid_from": "2020-01-01T00:00:00Z"
    }`

func TestBundleCmd_Text(t *testing.T) {
	dir := inTempDir(t)
	path := writeFile(t, dir, "bundle.json", strings.Replace(testBundle, "%s", "", 1))

	code, stdout, stderr := run(t, "bundle", "--progress=false", path)
	assert.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Bundle bundle--5d0092c5-5f74-4287-9642-33f4c354e56d")
	assert.Contains(t, stdout, "indicator--8e2e2d2b-17d4-4cbf-938f-98ee46b3cd3f")
	assert.Contains(t, stdout, "✓ 1 parsed, 0 failed, 1 skipped")
}

func TestBundleCmd_JSONWithFailure(t *testing.T) {
	dir := inTempDir(t)
	path := writeFile(t, dir, "bundle.json", strings.Replace(testBundle, "%s", brokenIndicator, 1))

	code, stdout, stderr := run(t, "bundle", "-o", "json", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "1 of 3 indicators failed")

	var out bundleOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, 3, out.Objects)
	assert.Equal(t, 1, out.Parsed)
	assert.Equal(t, 1, out.Failed)
	assert.Equal(t, 1, out.Skipped)
	require.Len(t, out.Indicators, 3)
	assert.Equal(t, "[domain-name:value = 'evil.test']", out.Indicators[0].Canonical)
	assert.Equal(t, "skipped", out.Indicators[1].Status)
	assert.Equal(t, "parse_error", out.Indicators[2].Status)
	assert.NotEmpty(t, out.Indicators[2].Error)
}

func TestBundleCmd_Rejected(t *testing.T) {
	dir := inTempDir(t)
	path := writeFile(t, dir, "bundle.json", `{"type": "report"}`)

	code, _, stderr := run(t, "bundle", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "failed to load bundle: invalid STIX bundle")

	code, _, stderr = run(t, "bundle", filepath.Join(dir, "missing.json"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "failed to open")
}

func TestConfigFileAndMetrics(t *testing.T) {
	dir := inTempDir(t)
	cfgPath := writeFile(t, dir, "custom.yaml", "output:\n  format: yaml\ncache:\n  size: 0\n")
	metricsPath := filepath.Join(dir, "stixpat.prom")

	code, stdout, stderr := run(t, "--config", cfgPath, "--metrics-file", metricsPath, "parse", "[a:b = 1]")
	require.Equal(t, 0, code, stderr)
	var out map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "[a:b = 1]", out["canonical"])

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "stixpat_parse_total")
}

func TestInvalidConfig(t *testing.T) {
	dir := inTempDir(t)

	code, _, stderr := run(t, "--config", filepath.Join(dir, "nope.yaml"), "parse", "[a:b = 1]")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Error: failed to read config file")

	code, _, stderr = run(t, "--output", "xml", "parse", "[a:b = 1]")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "output.format")
}
