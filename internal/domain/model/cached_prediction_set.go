package model

import (
	"time"

	"github.com/thenielthevis/capstone-project-sub006/internal/domain/valueobject"
)

// Set-level provenance written to CachedPredictionSet.Source.
const (
	SetSourceModel  = "model"
	SetSourceHybrid = "hybrid"
)

// CachedPredictionSet is the prediction result embedded on a user record.
// Each computation replaces it wholesale; only descriptions are ever
// patched in place.
type CachedPredictionSet struct {
	Predictions    []RiskPrediction `json:"predictions"`
	DiseaseNames   []string         `json:"diseaseNames"`
	TopProbability float64          `json:"topProbability"`
	PredictedAt    time.Time        `json:"predictedAt"`
	Source         string           `json:"source"`
}

// NewCachedPredictionSet validates the ranked predictions and derives the
// summary fields. predictedAt is stored in UTC and truncated to
// microseconds so a written set reads back identical.
func NewCachedPredictionSet(predictions []RiskPrediction, predictedAt time.Time) (*CachedPredictionSet, error) {
	if err := ValidatePredictions(predictions); err != nil {
		return nil, err
	}

	ranked := make([]RiskPrediction, len(predictions))
	copy(ranked, predictions)

	return &CachedPredictionSet{
		Predictions:    ranked,
		DiseaseNames:   DiseaseNames(ranked),
		TopProbability: ranked[0].Probability,
		PredictedAt:    predictedAt.UTC().Truncate(time.Microsecond),
		Source:         SetSourceOf(ranked),
	}, nil
}

// DiseaseNames lists prediction names in order.
func DiseaseNames(predictions []RiskPrediction) []string {
	names := make([]string, len(predictions))
	for i, p := range predictions {
		names[i] = p.Name
	}
	return names
}

// SetSourceOf returns SetSourceModel when every entry came from the model
// and SetSourceHybrid otherwise.
func SetSourceOf(predictions []RiskPrediction) string {
	for _, p := range predictions {
		if !p.Source.Equal(valueobject.SourceModel) {
			return SetSourceHybrid
		}
	}
	return SetSourceModel
}

// IsEmpty reports whether the set holds no predictions. A nil set is empty.
func (s *CachedPredictionSet) IsEmpty() bool {
	return s == nil || len(s.Predictions) == 0
}

// ApplyDescriptions sets the description of every prediction whose name has
// a non-empty entry in descriptions. Nothing else changes. It returns the
// number of predictions updated.
func (s *CachedPredictionSet) ApplyDescriptions(descriptions map[string]string) int {
	if s == nil {
		return 0
	}
	updated := 0
	for i := range s.Predictions {
		d, ok := descriptions[s.Predictions[i].Name]
		if !ok || d == "" || s.Predictions[i].Description == d {
			continue
		}
		s.Predictions[i].Description = d
		updated++
	}
	return updated
}

// Clone returns a deep copy.
func (s *CachedPredictionSet) Clone() *CachedPredictionSet {
	if s == nil {
		return nil
	}
	c := *s
	c.Predictions = append([]RiskPrediction(nil), s.Predictions...)
	c.DiseaseNames = append([]string(nil), s.DiseaseNames...)
	return &c
}
