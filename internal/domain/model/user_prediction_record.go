package model

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/thenielthevis/capstone-project-sub006/internal/domain/event"
	"github.com/thenielthevis/capstone-project-sub006/pkg/events"
)

// UserPredictionRecord is the aggregate root: a user's health profile plus the
// prediction set cached on the same document.
type UserPredictionRecord struct {
	events.EventCollector
	profile UserHealthProfile
	cached  *CachedPredictionSet
	userID  uuid.UUID
}

// ReconstructUserPredictionRecord rebuilds a record from persisted data (no validation, no events).
func ReconstructUserPredictionRecord(userID uuid.UUID, profile UserHealthProfile, cached *CachedPredictionSet) *UserPredictionRecord {
	return &UserPredictionRecord{
		userID:  userID,
		profile: profile,
		cached:  cached,
	}
}

// ReplacePredictions installs a stored prediction set and records a
// PredictionGenerated event.
func (r *UserPredictionRecord) ReplacePredictions(set *CachedPredictionSet) error {
	if set.IsEmpty() {
		return fmt.Errorf("replacement prediction set is empty")
	}
	r.cached = set
	r.Record(event.NewPredictionGenerated(r.userID, set.DiseaseNames, set.TopProbability, set.Source, set.PredictedAt))
	return nil
}

// HasCachedPredictions reports whether a non-empty prediction set is stored.
func (r *UserPredictionRecord) HasCachedPredictions() bool {
	return !r.cached.IsEmpty()
}

func (r *UserPredictionRecord) UserID() uuid.UUID                        { return r.userID }
func (r *UserPredictionRecord) Profile() UserHealthProfile               { return r.profile }
func (r *UserPredictionRecord) CachedPredictions() *CachedPredictionSet { return r.cached }

// DomainEvents returns all accumulated domain events and clears them.
func (r *UserPredictionRecord) DomainEvents() []events.DomainEvent {
	return r.ClearEvents()
}
