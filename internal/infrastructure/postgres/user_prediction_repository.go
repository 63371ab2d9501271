package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/thenielthevis/capstone-project-sub006/internal/domain/model"
	pgutil "github.com/thenielthevis/capstone-project-sub006/pkg/postgres"
)

// UserPredictionRepository implements port.PredictionStore on the users
// table. The profile and the cached prediction set live in JSONB columns of
// the same row.
type UserPredictionRepository struct {
	db pgutil.DB
}

// NewUserPredictionRepository creates a new PostgreSQL-backed prediction store.
func NewUserPredictionRepository(db pgutil.DB) *UserPredictionRepository {
	return &UserPredictionRepository{db: db}
}

// FindByID loads the profile and cached predictions of a user.
func (r *UserPredictionRepository) FindByID(ctx context.Context, userID uuid.UUID) (*model.UserPredictionRecord, error) {
	query := `
		SELECT health_profile, risk_predictions
		FROM users
		WHERE id = $1
	`

	var profileJSON, predictionsJSON []byte
	err := r.db.QueryRow(ctx, query, userID).Scan(&profileJSON, &predictionsJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", model.ErrUserNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user %s: %w", userID, err)
	}

	var profile model.UserHealthProfile
	if len(profileJSON) > 0 {
		if err := json.Unmarshal(profileJSON, &profile); err != nil {
			return nil, fmt.Errorf("failed to decode health profile of user %s: %w", userID, err)
		}
	}

	cached, err := decodePredictionSet(predictionsJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cached predictions of user %s: %w", userID, err)
	}

	return model.ReconstructUserPredictionRecord(userID, profile, cached), nil
}

// ReplacePredictions overwrites the whole cached set in a single
// update-and-return statement.
func (r *UserPredictionRepository) ReplacePredictions(ctx context.Context, userID uuid.UUID, set *model.CachedPredictionSet) (*model.CachedPredictionSet, error) {
	payload, err := json.Marshal(set)
	if err != nil {
		return nil, fmt.Errorf("%w: encode predictions: %v", model.ErrPersistence, err)
	}

	query := `
		UPDATE users
		SET risk_predictions = $2, updated_at = now()
		WHERE id = $1
		RETURNING risk_predictions
	`

	var stored []byte
	err = r.db.QueryRow(ctx, query, userID, payload).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %w: %s", model.ErrPersistence, model.ErrUserNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: replace predictions of user %s: %v", model.ErrPersistence, userID, err)
	}

	out, err := decodePredictionSet(stored)
	if err != nil {
		return nil, fmt.Errorf("%w: decode stored predictions: %v", model.ErrPersistence, err)
	}
	return out, nil
}

// UpdateDescriptions rewrites only description fields. The row is locked for
// the read-modify-write so a concurrent ReplacePredictions is not lost.
func (r *UserPredictionRepository) UpdateDescriptions(ctx context.Context, userID uuid.UUID, descriptions map[string]string) (int, error) {
	if len(descriptions) == 0 {
		return 0, nil
	}

	updated := 0
	err := pgutil.WithTransaction(ctx, r.db, func(tx pgx.Tx) error {
		var current []byte
		err := tx.QueryRow(ctx, `SELECT risk_predictions FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", model.ErrUserNotFound, userID)
		}
		if err != nil {
			return fmt.Errorf("failed to lock predictions of user %s: %w", userID, err)
		}

		set, err := decodePredictionSet(current)
		if err != nil {
			return fmt.Errorf("failed to decode predictions of user %s: %w", userID, err)
		}
		if updated = set.ApplyDescriptions(descriptions); updated == 0 {
			return nil
		}

		payload, err := json.Marshal(set)
		if err != nil {
			return fmt.Errorf("failed to encode predictions: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE users SET risk_predictions = $2, updated_at = now() WHERE id = $1`, userID, payload); err != nil {
			return fmt.Errorf("failed to update descriptions of user %s: %w", userID, err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}
	return updated, nil
}

// decodePredictionSet treats SQL NULL and JSON null as "no cached set".
func decodePredictionSet(raw []byte) (*model.CachedPredictionSet, error) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	var set model.CachedPredictionSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, err
	}
	return &set, nil
}
