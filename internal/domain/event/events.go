package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/thenielthevis/capstone-project-sub006/pkg/events"
)

const (
	// EventTypePredictionGenerated is emitted when a freshly computed
	// prediction set has been stored on the user record.
	EventTypePredictionGenerated = "healthrisk.prediction.generated"

	// EventTypeDescriptionsEnriched is emitted when background enrichment
	// has written descriptions for a stored prediction set.
	EventTypeDescriptionsEnriched = "healthrisk.prediction.descriptions_enriched"

	// AggregateTypeUserPrediction names the aggregate all events belong to.
	AggregateTypeUserPrediction = "user_prediction"
)

// PredictionGeneratedBody is the serialized payload of PredictionGenerated.
type PredictionGeneratedBody struct {
	UserID         uuid.UUID `json:"user_id"`
	DiseaseNames   []string  `json:"disease_names"`
	TopProbability float64   `json:"top_probability"`
	Source         string    `json:"source"`
	PredictedAt    time.Time `json:"predicted_at"`
}

// PredictionGenerated is published after a recomputed prediction set has
// been persisted.
type PredictionGenerated struct {
	events.BaseEvent
	Body PredictionGeneratedBody
}

// NewPredictionGenerated builds the event; the payload is the JSON body.
func NewPredictionGenerated(userID uuid.UUID, diseaseNames []string, topProbability float64, source string, predictedAt time.Time) PredictionGenerated {
	body := PredictionGeneratedBody{
		UserID:         userID,
		DiseaseNames:   diseaseNames,
		TopProbability: topProbability,
		Source:         source,
		PredictedAt:    predictedAt.UTC(),
	}
	return PredictionGenerated{
		BaseEvent: events.NewBaseEvent(EventTypePredictionGenerated, userID, AggregateTypeUserPrediction, predictedAt, mustMarshal(body)),
		Body:      body,
	}
}

// DescriptionsEnrichedBody is the serialized payload of DescriptionsEnriched.
type DescriptionsEnrichedBody struct {
	UserID      uuid.UUID `json:"user_id"`
	Diseases    []string  `json:"diseases"`
	EnrichedAt  time.Time `json:"enriched_at"`
	PredictedAt time.Time `json:"predicted_at"`
}

// DescriptionsEnriched is published after enrichment updated at least one
// stored description.
type DescriptionsEnriched struct {
	events.BaseEvent
	Body DescriptionsEnrichedBody
}

// NewDescriptionsEnriched builds the event; the payload is the JSON body.
func NewDescriptionsEnriched(userID uuid.UUID, diseases []string, predictedAt, enrichedAt time.Time) DescriptionsEnriched {
	body := DescriptionsEnrichedBody{
		UserID:      userID,
		Diseases:    diseases,
		EnrichedAt:  enrichedAt.UTC(),
		PredictedAt: predictedAt.UTC(),
	}
	return DescriptionsEnriched{
		BaseEvent: events.NewBaseEvent(EventTypeDescriptionsEnriched, userID, AggregateTypeUserPrediction, enrichedAt, mustMarshal(body)),
		Body:      body,
	}
}

// mustMarshal serializes event bodies, which contain only plain data and
// cannot fail to encode.
func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
