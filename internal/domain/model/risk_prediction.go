package model

import (
	"fmt"
	"math"
	"strings"

	"github.com/thenielthevis/capstone-project-sub006/internal/domain/valueobject"
)

// RiskPrediction is one ranked disease-risk entry shown to the user.
type RiskPrediction struct {
	Name        string                       `json:"name"`
	Probability float64                      `json:"probability"`
	Source      valueobject.PredictionSource `json:"source"`
	Percentage  float64                      `json:"percentage"`
	Description string                       `json:"description,omitempty"`
}

// NewRiskPrediction builds a validated prediction with the percentage
// derived from the probability.
func NewRiskPrediction(name string, probability float64, source valueobject.PredictionSource) (RiskPrediction, error) {
	p := RiskPrediction{
		Name:        strings.TrimSpace(name),
		Probability: probability,
		Source:      source,
		Percentage:  probability * 100,
	}
	if err := p.Validate(); err != nil {
		return RiskPrediction{}, err
	}
	return p, nil
}

// Validate checks the numeric sanity of a single prediction.
func (p RiskPrediction) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("prediction name is required")
	}
	if math.IsNaN(p.Probability) || math.IsInf(p.Probability, 0) {
		return fmt.Errorf("prediction %q has a non-finite probability", p.Name)
	}
	if p.Probability < 0 || p.Probability > 1 {
		return fmt.Errorf("prediction %q probability %v is outside [0,1]", p.Name, p.Probability)
	}
	if p.Source.IsZero() {
		return fmt.Errorf("prediction %q has no source", p.Name)
	}
	return nil
}

// NeedsDescription reports whether the description is missing or one of the
// generic placeholders. Placeholder comparison ignores case and surrounding space.
func (p RiskPrediction) NeedsDescription(placeholders []string) bool {
	d := strings.TrimSpace(p.Description)
	if d == "" {
		return true
	}
	for _, ph := range placeholders {
		if strings.EqualFold(d, strings.TrimSpace(ph)) {
			return true
		}
	}
	return false
}

// ValidatePredictions checks a list before it may be persisted: it must be
// non-empty and every entry must pass Validate. The returned error wraps
// ErrValidation.
func ValidatePredictions(predictions []RiskPrediction) error {
	if len(predictions) == 0 {
		return fmt.Errorf("%w: prediction list is empty", ErrValidation)
	}
	return ValidateEntries(predictions)
}

// ValidateEntries checks every entry of a possibly empty list.
func ValidateEntries(predictions []RiskPrediction) error {
	for i, p := range predictions {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: entry %d: %v", ErrValidation, i, err)
		}
	}
	return nil
}
