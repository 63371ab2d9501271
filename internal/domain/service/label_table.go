package service

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultDiseaseLabels is the positional label order the bundled model was
// trained with.
var DefaultDiseaseLabels = []string{
	"Diabetes",
	"Hypertension",
	"Heart Disease",
	"Stroke",
	"Asthma",
	"Chronic Kidney Disease",
	"Obesity",
	"Depression",
	"Anxiety",
	"COPD",
	"Liver Disease",
	"Arthritis",
}

// DefaultDescriptionPlaceholders are descriptions treated as missing.
var DefaultDescriptionPlaceholders = []string{
	"",
	"No description available",
	"Description not available",
	"N/A",
}

// LabelTable assigns disease names to positional model outputs.
type LabelTable struct {
	labels []string
}

// NewLabelTable builds a table from an ordered label list. Labels must be
// non-empty and unique.
func NewLabelTable(labels []string) (*LabelTable, error) {
	seen := make(map[string]struct{}, len(labels))
	cleaned := make([]string, len(labels))
	for i, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			return nil, fmt.Errorf("label %d is empty", i)
		}
		if _, dup := seen[l]; dup {
			return nil, fmt.Errorf("label %q appears more than once", l)
		}
		seen[l] = struct{}{}
		cleaned[i] = l
	}
	return &LabelTable{labels: cleaned}, nil
}

// DefaultLabelTable returns the built-in table.
func DefaultLabelTable() *LabelTable {
	t, _ := NewLabelTable(DefaultDiseaseLabels)
	return t
}

// Label returns the name for index i, or the decimal index itself when the
// table has no entry for it.
func (t *LabelTable) Label(i int) string {
	if t != nil && i >= 0 && i < len(t.labels) {
		return t.labels[i]
	}
	return strconv.Itoa(i)
}

// Len returns the number of labels.
func (t *LabelTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.labels)
}

// Labels returns a copy of the ordered labels.
func (t *LabelTable) Labels() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.labels...)
}
