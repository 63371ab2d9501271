package grpc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/thenielthevis/capstone-project-sub006/internal/application/dto"
	"github.com/thenielthevis/capstone-project-sub006/internal/domain/model"
	"github.com/thenielthevis/capstone-project-sub006/pkg/auth"
)

// PredictionExecutor is satisfied by *usecase.GetOrCreatePrediction.
type PredictionExecutor interface {
	Execute(ctx context.Context, req dto.GetOrCreatePredictionRequest) (dto.PredictionResponse, error)
}

// authorizeUser checks that the caller may read userID's predictions. With
// authentication disabled there are no claims and every caller is allowed.
func (h *PredictionServiceHandler) authorizeUser(ctx context.Context, userID uuid.UUID) error {
	if !h.authEnabled {
		return nil
	}
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "authentication required")
	}
	if !claims.CanAccessUser(userID) {
		return status.Error(codes.PermissionDenied, "insufficient permissions")
	}
	return nil
}

// Compile-time assertion that PredictionServiceHandler implements PredictionServiceServer.
var _ PredictionServiceServer = (*PredictionServiceHandler)(nil)

// PredictionServiceHandler implements the gRPC PredictionServiceServer interface.
type PredictionServiceHandler struct {
	UnimplementedPredictionServiceServer
	predictions PredictionExecutor
	logger      *slog.Logger
	authEnabled bool
}

// NewPredictionServiceHandler creates a new gRPC handler.
func NewPredictionServiceHandler(predictions PredictionExecutor, authEnabled bool, logger *slog.Logger) *PredictionServiceHandler {
	return &PredictionServiceHandler{
		predictions: predictions,
		logger:      logger,
		authEnabled: authEnabled,
	}
}

// Proto-aligned request/response message types.

// GetOrCreatePredictionRequest represents the proto GetOrCreatePredictionRequest message.
type GetOrCreatePredictionRequest struct {
	UserID          string `json:"user_id"`
	ForceRegenerate bool   `json:"force_regenerate"`
}

// GetPredictionRequest represents the proto GetPredictionRequest message.
type GetPredictionRequest struct {
	UserID string `json:"user_id"`
}

// PredictionMsg represents the proto Prediction message.
type PredictionMsg struct {
	Name        string  `json:"name"`
	Source      string  `json:"source"`
	Description string  `json:"description,omitempty"`
	Probability float64 `json:"probability"`
	Percentage  float64 `json:"percentage"`
}

// PredictionResponse represents the proto PredictionResponse message.
type PredictionResponse struct {
	UserID           string           `json:"user_id"`
	PredictedAt      string           `json:"predicted_at,omitempty"`
	Predictions      []*PredictionMsg `json:"predictions"`
	Warnings         []string         `json:"warnings,omitempty"`
	Source           string           `json:"source,omitempty"`
	Cached           bool             `json:"cached"`
	Persisted        bool             `json:"persisted"`
	ValidationFailed bool             `json:"validation_failed"`
}

// GetOrCreatePrediction returns today's predictions, computing them when the
// cache is stale or a regeneration is forced.
func (h *PredictionServiceHandler) GetOrCreatePrediction(ctx context.Context, req *GetOrCreatePredictionRequest) (*PredictionResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	return h.serve(ctx, req.UserID, req.ForceRegenerate, false)
}

// GetPrediction returns the stored predictions without ever running inference.
func (h *PredictionServiceHandler) GetPrediction(ctx context.Context, req *GetPredictionRequest) (*PredictionResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	return h.serve(ctx, req.UserID, false, true)
}

func (h *PredictionServiceHandler) serve(ctx context.Context, rawUserID string, force, readOnly bool) (*PredictionResponse, error) {
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid user_id: %v", err)
	}
	if err := h.authorizeUser(ctx, userID); err != nil {
		return nil, err
	}

	result, err := h.predictions.Execute(ctx, dto.GetOrCreatePredictionRequest{
		UserID:          userID,
		ForceRegenerate: force,
		ReadOnly:        readOnly,
	})
	if err != nil {
		return nil, h.toStatus(userID, err)
	}
	return toResponse(userID, result), nil
}

// toStatus maps domain error kinds to gRPC codes. Internal details are
// logged, not returned.
func (h *PredictionServiceHandler) toStatus(userID uuid.UUID, err error) error {
	switch {
	case errors.Is(err, model.ErrUserNotFound):
		return status.Error(codes.NotFound, "user not found")
	case errors.Is(err, model.ErrNoPredictionsAvailable):
		return status.Error(codes.FailedPrecondition, "no predictions available")
	case errors.Is(err, model.ErrInferenceTimeout):
		return status.Error(codes.DeadlineExceeded, "inference timed out")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	default:
		h.logger.Error("prediction request failed",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()),
		)
		return status.Error(codes.Internal, "internal error")
	}
}

func toResponse(userID uuid.UUID, r dto.PredictionResponse) *PredictionResponse {
	msgs := make([]*PredictionMsg, len(r.Predictions))
	for i, p := range r.Predictions {
		msgs[i] = &PredictionMsg{
			Name:        p.Name,
			Source:      p.Source,
			Description: p.Description,
			Probability: p.Probability,
			Percentage:  p.Percentage,
		}
	}
	resp := &PredictionResponse{
		UserID:           userID.String(),
		Predictions:      msgs,
		Warnings:         r.Warnings,
		Source:           r.Source,
		Cached:           r.Cached,
		Persisted:        r.Persisted,
		ValidationFailed: r.ValidationFailed,
	}
	if !r.PredictedAt.IsZero() {
		resp.PredictedAt = r.PredictedAt.Format(time.RFC3339Nano)
	}
	return resp
}
