package service

import (
	"fmt"
	"strings"

	"github.com/thenielthevis/capstone-project-sub006/internal/domain/model"
	"github.com/thenielthevis/capstone-project-sub006/internal/domain/valueobject"
)

// WarningNoPredictions is reported when the procedure produced nothing usable.
const WarningNoPredictions = "inference procedure returned no predictions"

// ResultNormalizer turns a classified payload into canonical predictions.
type ResultNormalizer struct {
	labels *LabelTable
}

// NewResultNormalizer creates a normalizer using labels for positional shapes.
// A nil table falls back to the built-in labels.
func NewResultNormalizer(labels *LabelTable) *ResultNormalizer {
	if labels == nil {
		labels = DefaultLabelTable()
	}
	return &ResultNormalizer{labels: labels}
}

// Normalize never fails. Entries it cannot use are dropped and explained in
// the returned warnings. Values are not range-checked here; ValidatePredictions
// does that before anything is stored.
func (n *ResultNormalizer) Normalize(payload Payload) ([]model.RiskPrediction, []string) {
	var warnings []string

	switch p := payload.(type) {
	case ArrayOfObjects:
		out := make([]model.RiskPrediction, 0, len(p))
		for i, raw := range p {
			rp, err := fromRaw(raw)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("entry %d dropped: %v", i, err))
				continue
			}
			out = append(out, rp)
		}
		return out, warnings

	case ArrayOfNumbers:
		return n.positional(p), nil

	case NumericKeyedMap:
		return n.positional(p), nil

	case NamedMap:
		out := make([]model.RiskPrediction, 0, len(p))
		for _, e := range p {
			name := strings.TrimSpace(e.Name)
			if name == "" {
				warnings = append(warnings, "entry with empty name dropped")
				continue
			}
			out = append(out, modelPrediction(name, e.Probability))
		}
		return out, warnings

	case EmptyPayload:
		warnings = append(warnings, WarningNoPredictions)
		if p.Reason != "" {
			warnings = append(warnings, p.Reason)
		}
		return []model.RiskPrediction{}, warnings

	default:
		return []model.RiskPrediction{}, []string{WarningNoPredictions}
	}
}

func (n *ResultNormalizer) positional(values []float64) []model.RiskPrediction {
	out := make([]model.RiskPrediction, len(values))
	for i, p := range values {
		out[i] = modelPrediction(n.labels.Label(i), p)
	}
	return out
}

func modelPrediction(name string, p float64) model.RiskPrediction {
	return model.RiskPrediction{
		Name:        name,
		Probability: p,
		Source:      valueobject.SourceModel,
		Percentage:  p * 100,
	}
}

func fromRaw(raw RawPrediction) (model.RiskPrediction, error) {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return model.RiskPrediction{}, fmt.Errorf("name is empty")
	}

	source := valueobject.SourceModel
	if s := strings.TrimSpace(raw.Source); s != "" {
		parsed, err := valueobject.PredictionSourceFromString(s)
		if err != nil {
			return model.RiskPrediction{}, err
		}
		source = parsed
	}

	rp := model.RiskPrediction{
		Name:        name,
		Probability: raw.Probability,
		Source:      source,
		Percentage:  raw.Probability * 100,
		Description: raw.Description,
	}
	if raw.Percentage != nil {
		rp.Percentage = *raw.Percentage
	}
	return rp, nil
}
