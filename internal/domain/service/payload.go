package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/thenielthevis/capstone-project-sub006/internal/domain/model"
)

// Payload is the decoded inference output, classified once into one of the
// shapes the procedure is known to emit. The concrete types are
// ArrayOfObjects, ArrayOfNumbers, NumericKeyedMap, NamedMap and EmptyPayload.
type Payload interface {
	shape() string
}

// RawPrediction is an entry of an ArrayOfObjects payload. Optional fields
// are nil when the procedure left them out.
type RawPrediction struct {
	Name        string
	Probability float64
	Source      string
	Percentage  *float64
	Description string
}

// ArrayOfObjects is a list of entries already shaped like predictions.
type ArrayOfObjects []RawPrediction

// ArrayOfNumbers is a list of per-index probabilities.
type ArrayOfNumbers []float64

// NumericKeyedMap holds the values of an object whose keys are all decimal
// digits, ordered by numeric key.
type NumericKeyedMap []float64

// NamedProbability is one entry of a NamedMap.
type NamedProbability struct {
	Name        string
	Probability float64
}

// NamedMap maps disease names to probabilities, sorted by name.
type NamedMap []NamedProbability

// EmptyPayload carries no predictions. Reason explains why.
type EmptyPayload struct {
	Reason string
}

func (ArrayOfObjects) shape() string  { return "array_of_objects" }
func (ArrayOfNumbers) shape() string  { return "array_of_numbers" }
func (NumericKeyedMap) shape() string { return "numeric_keyed_map" }
func (NamedMap) shape() string        { return "named_map" }
func (EmptyPayload) shape() string    { return "empty" }

// ShapeOf names the payload's shape for logs and metrics.
func ShapeOf(p Payload) string {
	if p == nil {
		return "empty"
	}
	return p.shape()
}

// DecodePayload classifies raw procedure output. Whitespace-only output and
// null decode to EmptyPayload. When the whole output is not JSON the last
// non-empty line is tried, since procedures often log before printing their
// result. Bytes that still cannot be decoded yield ErrInferenceOutput.
func DecodePayload(raw []byte) (Payload, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return EmptyPayload{Reason: "inference procedure produced no output"}, nil
	}

	v, err := decodeJSON(trimmed)
	if err != nil {
		line := lastNonEmptyLine(trimmed)
		if len(line) == len(trimmed) {
			return nil, fmt.Errorf("%w: %v", model.ErrInferenceOutput, err)
		}
		if v, err = decodeJSON(line); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrInferenceOutput, err)
		}
	}
	return classify(v), nil
}

func decodeJSON(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}

func lastNonEmptyLine(b []byte) []byte {
	lines := bytes.Split(b, []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		if l := bytes.TrimSpace(lines[i]); len(l) > 0 {
			return l
		}
	}
	return nil
}

func classify(v any) Payload {
	switch t := v.(type) {
	case nil:
		return EmptyPayload{Reason: "inference procedure returned null"}
	case []any:
		return classifyArray(t)
	case map[string]any:
		return classifyObject(t)
	default:
		return EmptyPayload{Reason: fmt.Sprintf("unsupported payload type %T", v)}
	}
}

func classifyArray(items []any) Payload {
	if len(items) == 0 {
		return EmptyPayload{Reason: "inference procedure returned an empty array"}
	}

	if objects, ok := asObjects(items); ok {
		return objects
	}
	if numbers, ok := asNumbers(items); ok {
		return ArrayOfNumbers(numbers)
	}
	return EmptyPayload{Reason: "array payload mixes or contains unsupported element types"}
}

func asObjects(items []any) (ArrayOfObjects, bool) {
	out := make(ArrayOfObjects, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		nameRaw, hasName := obj["name"]
		probRaw, hasProb := obj["probability"]
		if !hasName || !hasProb {
			return nil, false
		}
		name, ok := nameRaw.(string)
		if !ok {
			return nil, false
		}
		p, ok := toFloat(probRaw)
		if !ok {
			return nil, false
		}
		rp := RawPrediction{Name: name, Probability: p}
		if s, ok := obj["source"].(string); ok {
			rp.Source = s
		}
		if pct, ok := toFloat(obj["percentage"]); ok {
			rp.Percentage = &pct
		}
		if d, ok := obj["description"].(string); ok {
			rp.Description = d
		}
		out = append(out, rp)
	}
	return out, true
}

func asNumbers(items []any) ([]float64, bool) {
	out := make([]float64, 0, len(items))
	for _, item := range items {
		f, ok := toFloat(item)
		if !ok {
			return nil, false
		}
		out = append(out, f)
	}
	return out, true
}

func classifyObject(obj map[string]any) Payload {
	if len(obj) == 0 {
		return EmptyPayload{Reason: "inference procedure returned an empty object"}
	}

	if isNumericKeyed(obj) {
		type indexed struct {
			key   string
			index int
			value float64
		}
		entries := make([]indexed, 0, len(obj))
		for k, raw := range obj {
			f, ok := toFloat(raw)
			if !ok {
				return EmptyPayload{Reason: fmt.Sprintf("numeric-keyed payload has a non-numeric value at key %q", k)}
			}
			n, err := strconv.Atoi(k)
			if err != nil {
				return EmptyPayload{Reason: fmt.Sprintf("numeric-keyed payload key %q is out of range", k)}
			}
			entries = append(entries, indexed{key: k, index: n, value: f})
		}
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].index != entries[j].index {
				return entries[i].index < entries[j].index
			}
			return entries[i].key < entries[j].key
		})
		out := make(NumericKeyedMap, len(entries))
		for i, e := range entries {
			out[i] = e.value
		}
		return out
	}

	named := make(NamedMap, 0, len(obj))
	for k, raw := range obj {
		f, ok := toFloat(raw)
		if !ok {
			return EmptyPayload{Reason: fmt.Sprintf("named payload has a non-numeric value for %q", k)}
		}
		named = append(named, NamedProbability{Name: k, Probability: f})
	}
	sort.Slice(named, func(i, j int) bool { return named[i].Name < named[j].Name })
	return named
}

func isNumericKeyed(obj map[string]any) bool {
	for k := range obj {
		if k == "" {
			return false
		}
		for _, r := range k {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	default:
		return 0, false
	}
}
