package cmd

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// readInputFile reads a regular file of at most maxSize bytes. "-" reads
// standard input.
func readInputFile(cmdIn io.Reader, filename string, maxSize int64) ([]byte, error) {
	var r io.Reader = cmdIn
	if filename != "-" {
		cleanPath := filepath.Clean(filename)
		info, err := os.Stat(cleanPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", filename, err)
		}
		if !info.Mode().IsRegular() {
			return nil, fmt.Errorf("%s is not a regular file", filename)
		}
		if info.Size() > maxSize {
			return nil, fmt.Errorf("%s is %d bytes, limit is %d", filename, info.Size(), maxSize)
		}
		f, err := os.Open(cleanPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", filename, err)
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%s exceeds %d bytes", filename, maxSize)
	}
	return data, nil
}

// patternEntry is one pattern of a check input.
type patternEntry struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
	Line    int    `yaml:"-"`
}

// UnmarshalYAML accepts either a bare string or a {name, pattern} mapping.
func (e *patternEntry) UnmarshalYAML(node *yaml.Node) error {
	e.Line = node.Line
	if node.Kind == yaml.ScalarNode {
		e.Pattern = node.Value
		return nil
	}
	type plain patternEntry
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	if p.Pattern == "" {
		return fmt.Errorf("line %d: entry has no pattern", node.Line)
	}
	e.Name, e.Pattern = p.Name, p.Pattern
	return nil
}

// parseEntries splits check input into patterns. YAML files hold a list;
// anything else holds one pattern per line, with blank lines and lines
// starting with '#' ignored.
func parseEntries(filename string, data []byte) ([]patternEntry, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".yaml" || ext == ".yml" {
		var entries []patternEntry
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
		}
		return entries, nil
	}

	var entries []patternEntry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxPatternSize)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		entries = append(entries, patternEntry{Pattern: text, Line: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return entries, nil
}
