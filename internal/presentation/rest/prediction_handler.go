package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/thenielthevis/capstone-project-sub006/internal/application/dto"
	"github.com/thenielthevis/capstone-project-sub006/internal/domain/model"
	"github.com/thenielthevis/capstone-project-sub006/pkg/auth"
)

const serviceName = "healthrisk-engine"

// PredictionExecutor is satisfied by *usecase.GetOrCreatePrediction.
type PredictionExecutor interface {
	Execute(ctx context.Context, req dto.GetOrCreatePredictionRequest) (dto.PredictionResponse, error)
}

// ErrorResponse is the JSON body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PredictionHandler serves GET /v1/users/{userID}/predictions.
type PredictionHandler struct {
	predictions PredictionExecutor
	logger      *slog.Logger
	authEnabled bool
}

// NewPredictionHandler creates a new prediction handler.
func NewPredictionHandler(predictions PredictionExecutor, authEnabled bool, logger *slog.Logger) *PredictionHandler {
	return &PredictionHandler{
		predictions: predictions,
		logger:      logger,
		authEnabled: authEnabled,
	}
}

// RegisterRoutes registers the prediction endpoint on the provided ServeMux.
func (h *PredictionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/users/{userID}/predictions", h.GetPredictions)
}

// GetPredictions returns the user's predictions. ?force=true recomputes and
// ?readOnly=true never runs inference.
func (h *PredictionHandler) GetPredictions(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.PathValue("userID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid user id"})
		return
	}

	force, err := queryBool(r, "force")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid force parameter"})
		return
	}
	readOnly, err := queryBool(r, "readOnly")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid readOnly parameter"})
		return
	}

	if h.authEnabled {
		claims, ok := auth.ClaimsFromContext(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
			return
		}
		if !claims.CanAccessUser(userID) {
			writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "insufficient permissions"})
			return
		}
	}

	resp, err := h.predictions.Execute(r.Context(), dto.GetOrCreatePredictionRequest{
		UserID:          userID,
		ForceRegenerate: force,
		ReadOnly:        readOnly,
	})
	if err != nil {
		code, msg := h.statusFor(userID, err)
		writeJSON(w, code, ErrorResponse{Error: msg})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *PredictionHandler) statusFor(userID uuid.UUID, err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, model.ErrNoPredictionsAvailable):
		return http.StatusConflict, "no predictions available"
	case errors.Is(err, model.ErrInferenceTimeout):
		return http.StatusGatewayTimeout, "inference timed out"
	default:
		h.logger.Error("prediction request failed",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()),
		)
		return http.StatusInternalServerError, "internal error"
	}
}

func queryBool(r *http.Request, key string) (bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}
