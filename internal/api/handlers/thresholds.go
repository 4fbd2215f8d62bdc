package handlers

import (
	"net/http"

	"github.com/wonny/quadrant/internal/classifier"
	"github.com/wonny/quadrant/internal/thresholdconfig"
	"github.com/wonny/quadrant/pkg/logger"
)

// ThresholdHandler exposes the active grid and the built-in presets
type ThresholdHandler struct {
	classifier *classifier.Classifier
	logger     *logger.Logger
}

// NewThresholdHandler creates a new threshold handler
func NewThresholdHandler(c *classifier.Classifier, log *logger.Logger) *ThresholdHandler {
	return &ThresholdHandler{
		classifier: c,
		logger:     log,
	}
}

// ThresholdResponse is the active configuration and its hash
type ThresholdResponse struct {
	classifier.Thresholds
	Hash string `json:"hash"`
}

// Get returns the active thresholds
// GET /api/thresholds
func (h *ThresholdHandler) Get(w http.ResponseWriter, r *http.Request) {
	t := h.classifier.Thresholds()

	hash, err := thresholdconfig.Hash(t)
	if err != nil {
		h.logger.WithError(err).Error("Failed to hash thresholds")
		respondError(w, http.StatusInternalServerError, "Failed to hash thresholds")
		return
	}

	respondJSON(w, http.StatusOK, ThresholdResponse{Thresholds: t, Hash: hash})
}

// Presets lists the built-in presets
// GET /api/thresholds/presets
func (h *ThresholdHandler) Presets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"presets": classifier.Presets(),
	})
}
