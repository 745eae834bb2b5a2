package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/user/image-pipeline/internal/pipeline"
)

// RunRequest is the payload for the batch invocation surface.
type RunRequest struct {
	BatchSize int `json:"batch_size"`
}

func (s *Server) handleRunRequest(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = s.config.DefaultBatchSize
	}

	stats, err := s.pipeline.Run(r.Context(), batchSize)
	if err != nil {
		if errors.Is(err, pipeline.ErrRunInProgress) {
			s.respondWithError(w, http.StatusConflict, "A batch run is already in progress")
			return
		}
		s.logger.Error("batch run failed", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Batch run failed")
		return
	}

	s.respondWithJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	healthStatus := make(map[string]string)

	if err := s.store.Ping(ctx); err != nil {
		healthStatus["postgres"] = "unhealthy"
		s.logger.Error("health check failed for postgres", zap.Error(err))
	} else {
		healthStatus["postgres"] = "healthy"
	}

	if err := s.redisStore.Ping(ctx); err != nil {
		healthStatus["redis"] = "unhealthy"
		s.logger.Error("health check failed for redis", zap.Error(err))
	} else {
		healthStatus["redis"] = "healthy"
	}

	isHealthy := healthStatus["postgres"] == "healthy" && healthStatus["redis"] == "healthy"
	if !isHealthy {
		s.respondWithJSON(w, http.StatusServiceUnavailable, healthStatus)
		return
	}

	s.respondWithJSON(w, http.StatusOK, healthStatus)
}

// --- Helper Functions ---

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
