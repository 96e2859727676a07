// Package model holds the classifier's label table.
package model

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// ErrNoLabels is returned when a label source yields nothing
var ErrNoLabels = errors.New("label table is empty")

// LabelTable maps classifier output indices to label names. It is immutable
// after construction.
type LabelTable struct {
	labels []string
}

// NewLabelTable builds a table from labels in output order
func NewLabelTable(labels []string) (*LabelTable, error) {
	if len(labels) == 0 {
		return nil, ErrNoLabels
	}
	for i, l := range labels {
		if strings.TrimSpace(l) == "" {
			return nil, fmt.Errorf("label %d is blank", i)
		}
	}
	return &LabelTable{labels: append([]string(nil), labels...)}, nil
}

// Len returns the number of labels
func (t *LabelTable) Len() int {
	return len(t.labels)
}

// Label returns the label at index i
func (t *LabelTable) Label(i int) (string, bool) {
	if i < 0 || i >= len(t.labels) {
		return "", false
	}
	return t.labels[i], true
}

// Labels returns a copy of every label in order
func (t *LabelTable) Labels() []string {
	return append([]string(nil), t.labels...)
}

// LoadLabels reads a label table from disk. Accepted layouts are a JSON
// array ("classes.json"), a JSON object keyed by class index, or plain
// text with one label per line.
func LoadLabels(path string) (*LabelTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}

	labels, err := ParseLabels(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse labels %s: %w", path, err)
	}
	return NewLabelTable(labels)
}

// ParseLabels decodes the formats accepted by LoadLabels
func ParseLabels(data []byte) ([]string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrNoLabels
	}

	switch trimmed[0] {
	case '[':
		var labels []string
		if err := json.Unmarshal(trimmed, &labels); err != nil {
			return nil, err
		}
		return labels, nil
	case '{':
		return parseIndexed(trimmed)
	}

	var labels []string
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		labels = append(labels, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return labels, nil
}

// parseIndexed handles {"0": "angry", "1": "disgust", ...}. Indices must
// cover 0..n-1 without gaps.
func parseIndexed(data []byte) ([]string, error) {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	indices := make([]int, 0, len(raw))
	byIndex := make(map[int]string, len(raw))
	for k, v := range raw {
		i, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("label key %q is not an index", k)
		}
		indices = append(indices, i)
		byIndex[i] = v
	}
	sort.Ints(indices)

	labels := make([]string, len(indices))
	for pos, i := range indices {
		if i != pos {
			return nil, fmt.Errorf("label index %d missing", pos)
		}
		labels[pos] = byIndex[i]
	}
	return labels, nil
}
