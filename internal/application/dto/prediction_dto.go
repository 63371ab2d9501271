package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/thenielthevis/capstone-project-sub006/internal/domain/model"
)

// GetOrCreatePredictionRequest is the input DTO for the GetOrCreatePrediction use case.
type GetOrCreatePredictionRequest struct {
	UserID          uuid.UUID `json:"user_id"`
	ForceRegenerate bool      `json:"force_regenerate"`
	ReadOnly        bool      `json:"read_only"`
}

// PredictionDTO is one ranked prediction as returned to callers.
type PredictionDTO struct {
	Name        string  `json:"name"`
	Source      string  `json:"source"`
	Description string  `json:"description,omitempty"`
	Probability float64 `json:"probability"`
	Percentage  float64 `json:"percentage"`
}

// PredictionResponse is the output DTO of GetOrCreatePrediction.
//
// Cached is true when the stored set was returned without running
// inference. Persisted is false when a freshly computed result could not be
// stored, so callers must not assume a later read returns it.
// ValidationFailed marks computed data that failed the numeric sanity check.
type PredictionResponse struct {
	PredictedAt      time.Time       `json:"predicted_at"`
	Predictions      []PredictionDTO `json:"predictions"`
	DiseaseNames     []string        `json:"disease_names"`
	Warnings         []string        `json:"warnings,omitempty"`
	Source           string          `json:"source"`
	TopProbability   float64         `json:"top_probability"`
	Cached           bool            `json:"cached"`
	Persisted        bool            `json:"persisted"`
	ValidationFailed bool            `json:"validation_failed"`
}

// EnrichDescriptionsRequest is the input DTO for the EnrichDescriptions use case.
type EnrichDescriptionsRequest struct {
	PredictedAt time.Time
	Predictions []model.RiskPrediction
	UserID      uuid.UUID
}

// EnrichDescriptionsResponse reports what an enrichment run changed.
type EnrichDescriptionsResponse struct {
	Requested []string `json:"requested"`
	Described []string `json:"described"`
	Updated   int      `json:"updated"`
}

// FromPredictions maps domain predictions to DTOs.
func FromPredictions(predictions []model.RiskPrediction) []PredictionDTO {
	out := make([]PredictionDTO, len(predictions))
	for i, p := range predictions {
		out[i] = PredictionDTO{
			Name:        p.Name,
			Probability: p.Probability,
			Source:      p.Source.String(),
			Percentage:  p.Percentage,
			Description: p.Description,
		}
	}
	return out
}

// FromCachedSet maps a stored prediction set to a response. The caller sets
// the flags.
func FromCachedSet(set *model.CachedPredictionSet) PredictionResponse {
	if set.IsEmpty() {
		return PredictionResponse{Predictions: []PredictionDTO{}, DiseaseNames: []string{}}
	}
	return PredictionResponse{
		Predictions:    FromPredictions(set.Predictions),
		DiseaseNames:   append([]string(nil), set.DiseaseNames...),
		TopProbability: set.TopProbability,
		PredictedAt:    set.PredictedAt,
		Source:         set.Source,
	}
}
