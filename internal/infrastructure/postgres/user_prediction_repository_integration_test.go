//go:build integration

package postgres_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenielthevis/capstone-project-sub006/internal/domain/model"
	"github.com/thenielthevis/capstone-project-sub006/internal/infrastructure/postgres"
	"github.com/thenielthevis/capstone-project-sub006/pkg/testutil"
)

func TestUserPredictionRepository_Integration(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Cleanup(t)

	repo := postgres.NewUserPredictionRepository(pc.Pool)
	pc.SeedUser(ctx, t, testutil.TestUserID1, testutil.SampleProfile())

	t.Run("fresh user has no cache", func(t *testing.T) {
		record, err := repo.FindByID(ctx, testutil.TestUserID1)
		require.NoError(t, err)
		assert.False(t, record.HasCachedPredictions())
		assert.Equal(t, []string{"Asthma"}, record.Profile().ReportedConditions())
	})

	t.Run("round trip is identical", func(t *testing.T) {
		set := sampleSet(t)
		stored, err := repo.ReplacePredictions(ctx, testutil.TestUserID1, set)
		require.NoError(t, err)

		record, err := repo.FindByID(ctx, testutil.TestUserID1)
		require.NoError(t, err)
		read := record.CachedPredictions()

		assert.Equal(t, set.Predictions, read.Predictions)
		assert.True(t, set.PredictedAt.Equal(read.PredictedAt))
		assert.Equal(t, set.Source, read.Source)
		assert.Equal(t, stored, read)

		want, err := json.Marshal(set.Predictions)
		require.NoError(t, err)
		got, err := json.Marshal(read.Predictions)
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got))
	})

	t.Run("descriptions patch leaves the rest untouched", func(t *testing.T) {
		before, err := repo.FindByID(ctx, testutil.TestUserID1)
		require.NoError(t, err)

		n, err := repo.UpdateDescriptions(ctx, testutil.TestUserID1, map[string]string{"Hypertension": "Raised arterial pressure."})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		after, err := repo.FindByID(ctx, testutil.TestUserID1)
		require.NoError(t, err)
		assert.Equal(t, "Raised arterial pressure.", after.CachedPredictions().Predictions[0].Description)
		assert.Equal(t, before.CachedPredictions().PredictedAt, after.CachedPredictions().PredictedAt)
		assert.Equal(t, before.CachedPredictions().Predictions[0].Probability, after.CachedPredictions().Predictions[0].Probability)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, model.ErrUserNotFound)

		_, err = repo.ReplacePredictions(ctx, uuid.New(), sampleSet(t))
		assert.ErrorIs(t, err, model.ErrUserNotFound)
	})

	t.Run("concurrent description updates do not lose writes", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		done := make(chan error, 2)
		go func() {
			_, err := repo.UpdateDescriptions(ctx, testutil.TestUserID1, map[string]string{"Hypertension": "A"})
			done <- err
		}()
		go func() {
			_, err := repo.UpdateDescriptions(ctx, testutil.TestUserID1, map[string]string{"Asthma": "B"})
			done <- err
		}()
		require.NoError(t, <-done)
		require.NoError(t, <-done)

		record, err := repo.FindByID(ctx, testutil.TestUserID1)
		require.NoError(t, err)
		assert.Equal(t, "A", record.CachedPredictions().Predictions[0].Description)
		assert.Equal(t, "B", record.CachedPredictions().Predictions[1].Description)
	})
}
