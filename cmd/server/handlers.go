package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ZanzyTHEbar/diabetes-o-meter/internal/analysis"
	apperrors "github.com/ZanzyTHEbar/diabetes-o-meter/internal/errors"
	"github.com/gin-gonic/gin"
)

// PredictRequest is the body of POST /api/v1/predict
type PredictRequest struct {
	Features []float64 `json:"features" binding:"required"`
}

// PredictResponse is the result of a single prediction
type PredictResponse struct {
	Label             int                     `json:"label"`
	LikelihoodPercent float64                 `json:"likelihood_percent"`
	Score             float64                 `json:"score"`
	Threshold         float64                 `json:"threshold"`
	Contributions     []analysis.Contribution `json:"contributions"`
}

// ModelResponse describes the active model
type ModelResponse struct {
	Dataset  string                        `json:"dataset"`
	Features [analysis.FeatureCount]string `json:"features"`
	Params   analysis.ModelParameters      `json:"params"`
	Stats    analysis.DatasetStatistics    `json:"stats"`
}

// handlePredict classifies one feature vector
// @Summary Classify a sample
// @Accept json
// @Produce json
// @Param request body PredictRequest true "Eight feature values"
// @Success 200 {object} PredictResponse
// @Router /api/v1/predict [post]
func (s *Server) handlePredict(c *gin.Context) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Abort(c, apperrors.NewValidationError("Invalid request body", err))
		return
	}

	x := analysis.FeatureVector(req.Features)
	if err := x.Validate(); err != nil {
		apperrors.Abort(c, err)
		return
	}

	model, ok := s.requireModel(c)
	if !ok {
		return
	}

	start := time.Now()
	exp, err := analysis.Explain(model.Params, x)
	if err != nil {
		apperrors.Abort(c, err)
		return
	}

	s.metrics.RecordPrediction(exp.Label)
	s.logger.PredictionLogger(exp.Label, *exp.LikelihoodPercent, time.Since(start))

	c.JSON(http.StatusOK, PredictResponse{
		Label:             exp.Label,
		LikelihoodPercent: *exp.LikelihoodPercent,
		Score:             exp.Score,
		Threshold:         exp.Threshold,
		Contributions:     exp.Contributions,
	})
}

// handleModel reports the active model
// @Summary Active model parameters and dataset statistics
// @Produce json
// @Success 200 {object} ModelResponse
// @Router /api/v1/model [get]
func (s *Server) handleModel(c *gin.Context) {
	model, ok := s.requireModel(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.modelResponse(model))
}

// handleRebuild rereads the dataset
// @Summary Rebuild the model from the dataset
// @Produce json
// @Success 200 {object} ModelResponse
// @Router /api/v1/model/rebuild [post]
func (s *Server) handleRebuild(c *gin.Context) {
	model, ok, err := s.Rebuild()
	if err != nil {
		apperrors.Abort(c, apperrors.NewInternalError("Model rebuild failed", err))
		return
	}
	if !ok {
		apperrors.Abort(c, apperrors.NewModelUnavailableError(s.cfg.Dataset.Path, nil))
		return
	}
	c.JSON(http.StatusOK, s.modelResponse(model))
}

// handleModels lists recorded model snapshots
// @Summary Model snapshot history
// @Produce json
// @Param limit query int false "Maximum snapshots"
// @Router /api/v1/models [get]
func (s *Server) handleModels(c *gin.Context) {
	if s.repo == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "model storage is disabled"})
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	snapshots, err := s.repo.ListModels(c.Request.Context(), limit)
	if err != nil {
		apperrors.Abort(c, apperrors.NewInternalError("Failed to list models", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"models": snapshots,
		"count":  len(snapshots),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	_, ok, err := s.Model()
	status := "ok"
	if err != nil || !ok {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          status,
		"model_available": ok,
		"timestamp":       time.Now().Format(time.RFC3339),
		"metrics":         s.metrics.GetStats(),
		"cache":           s.models.Stats(),
		"ratelimit":       s.limiter.GetStats(),
		"redis":           s.redisStatus(c.Request.Context()),
	})
}

// requireModel aborts with 503 when no model can be built
func (s *Server) requireModel(c *gin.Context) (analysis.Model, bool) {
	model, ok, err := s.Model()
	if err != nil {
		apperrors.Abort(c, apperrors.NewInternalError("Failed to build model", err))
		return analysis.Model{}, false
	}
	if !ok {
		apperrors.Abort(c, apperrors.NewModelUnavailableError(s.cfg.Dataset.Path, nil))
		return analysis.Model{}, false
	}
	return model, true
}

func (s *Server) modelResponse(model analysis.Model) ModelResponse {
	return ModelResponse{
		Dataset:  s.cfg.Dataset.Path,
		Features: analysis.FeatureLabels,
		Params:   model.Params,
		Stats:    model.Stats,
	}
}
