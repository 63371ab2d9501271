package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/thenielthevis/capstone-project-sub006/internal/application/dto"
	"github.com/thenielthevis/capstone-project-sub006/internal/bootstrap"
	"github.com/thenielthevis/capstone-project-sub006/internal/infrastructure/config"
)

// Predict-specific flag values.
var (
	predictForce    bool
	predictReadOnly bool
)

// predictCmd runs one prediction request in-process.
var predictCmd = &cobra.Command{
	Use:   "predict <user-id>",
	Short: "Get or compute today's predictions for a user",
	Long: `Run the prediction pipeline once for a user and print the response as JSON.

The command uses the same configuration as riskd. It waits for background
description enrichment to finish, up to ENRICH_DRAIN_TIMEOUT, before exiting.`,
	Args: cobra.ExactArgs(1),
	RunE: runPredict,
}

func init() {
	predictCmd.Flags().BoolVar(&predictForce, "force", false, "recompute even when today's predictions are cached")
	predictCmd.Flags().BoolVar(&predictReadOnly, "read-only", false, "never run inference; return the stored predictions")
}

func runPredict(cmd *cobra.Command, args []string) error {
	userID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", args[0], err)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := cmd.Context()
	app, err := bootstrap.Build(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Enrichment.DrainTimeout)
		defer cancel()
		_ = app.Close(drainCtx)
	}()

	resp, err := app.Predictions.Execute(ctx, dto.GetOrCreatePredictionRequest{
		UserID:          userID,
		ForceRegenerate: predictForce,
		ReadOnly:        predictReadOnly,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
