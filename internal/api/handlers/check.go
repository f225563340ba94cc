package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/cloo-solutions/plancheck/internal/api"
	"github.com/cloo-solutions/plancheck/internal/domain"
	"github.com/cloo-solutions/plancheck/internal/logger"
)

// ComplianceChecker answers one compliance question.
type ComplianceChecker interface {
	Process(ctx context.Context, question string, drawing []domain.DrawingEntity) (*domain.ComplianceResult, error)
}

// DrawingSource resolves the drawing attached to an upload session.
type DrawingSource interface {
	GetDrawing(ctx context.Context, sessionID string) ([]domain.DrawingEntity, error)
}

type CheckHandler struct {
	checker  ComplianceChecker
	drawings DrawingSource
}

// NewCheckHandler creates a CheckHandler. drawings may be nil, in which case
// session_id is ignored.
func NewCheckHandler(checker ComplianceChecker, drawings DrawingSource) *CheckHandler {
	return &CheckHandler{checker: checker, drawings: drawings}
}

// CheckRequest carries either an inline drawing or a session to read one
// from. An inline drawing wins when both are present.
type CheckRequest struct {
	Question  string                 `json:"question" validate:"required,max=4000"`
	Drawing   []domain.EntityPayload `json:"drawing,omitempty" validate:"omitempty,max=100000,dive"`
	SessionID string                 `json:"session_id,omitempty" validate:"max=128"`
}

func (h *CheckHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := domain.ValidateStruct(req); err != nil {
		api.HandleError(w, err)
		return
	}

	drawing, err := h.resolveDrawing(r.Context(), req)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	result, err := h.checker.Process(r.Context(), req.Question, drawing)
	if err != nil {
		logger.FromContext(r.Context()).Warn("compliance check failed", zap.Error(err))
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}

// resolveDrawing returns nil when no drawing is available. A non-nil empty
// inline drawing is passed through so the geometry step still runs.
func (h *CheckHandler) resolveDrawing(ctx context.Context, req CheckRequest) ([]domain.DrawingEntity, error) {
	if req.Drawing != nil {
		return domain.EntitiesFromPayloads(req.Drawing), nil
	}
	if req.SessionID == "" || h.drawings == nil {
		return nil, nil
	}

	drawing, err := h.drawings.GetDrawing(ctx, req.SessionID)
	if errors.Is(err, domain.ErrDrawingNotFound) {
		logger.FromContext(ctx).Info("no drawing for session", zap.String("session_id", req.SessionID))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return drawing, nil
}
