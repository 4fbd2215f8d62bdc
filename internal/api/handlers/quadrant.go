package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/wonny/quadrant/internal/batch"
	"github.com/wonny/quadrant/internal/classifier"
	"github.com/wonny/quadrant/internal/contracts"
	"github.com/wonny/quadrant/internal/report"
	"github.com/wonny/quadrant/pkg/logger"
)

// DefaultMaxSymbols caps one request
const DefaultMaxSymbols = 100

// QuadrantHandler handles classification endpoints
// ⭐ SSOT: 분류 API 핸들러는 이 구조체에서만
type QuadrantHandler struct {
	runner     *batch.Runner
	logger     *logger.Logger
	maxSymbols int
}

// NewQuadrantHandler creates a new quadrant handler
func NewQuadrantHandler(runner *batch.Runner, log *logger.Logger) *QuadrantHandler {
	return &QuadrantHandler{
		runner:     runner,
		logger:     log,
		maxSymbols: DefaultMaxSymbols,
	}
}

// ClassifyRequest is the POST body
type ClassifyRequest struct {
	Symbols   []string `json:"symbols"`
	MarginPct *float64 `json:"margin_pct,omitempty"`
	Multiple  *float64 `json:"multiple,omitempty"`
}

// ClassifyResponse carries ordered results plus derived views
type ClassifyResponse struct {
	Thresholds classifier.Thresholds            `json:"thresholds"`
	Results    []contracts.ClassificationResult `json:"results"`
	Counts     map[contracts.Quadrant]int       `json:"counts"`
	Summaries  []string                         `json:"summaries"`
}

// Get classifies symbols from the query string
// GET /api/quadrants?symbols=TCS,INFY&margin=10&multiple=15
func (h *QuadrantHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := ClassifyRequest{Symbols: batch.ParseSymbolList(q.Get("symbols"))}

	var err error
	if req.MarginPct, err = queryFloat(q.Get("margin")); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'margin': "+err.Error())
		return
	}
	if req.Multiple, err = queryFloat(q.Get("multiple")); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'multiple': "+err.Error())
		return
	}

	h.classify(w, r, req)
}

// Post classifies symbols from a JSON body
// POST /api/quadrants
func (h *QuadrantHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.classify(w, r, req)
}

func (h *QuadrantHandler) classify(w http.ResponseWriter, r *http.Request, req ClassifyRequest) {
	symbols, runner, msg := h.prepare(req.Symbols, req.MarginPct, req.Multiple)
	if msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	results := runner.Run(r.Context(), symbols)

	h.logger.WithFields(map[string]interface{}{
		"symbols":  len(symbols),
		"margin":   runner.Classifier().Thresholds().MarginPct,
		"multiple": runner.Classifier().Thresholds().Multiple,
	}).Info("Quadrants classified")

	summaries := report.Summaries(results)
	if summaries == nil {
		summaries = []string{}
	}

	respondJSON(w, http.StatusOK, ClassifyResponse{
		Thresholds: runner.Classifier().Thresholds(),
		Results:    results,
		Counts:     report.Counts(results),
		Summaries:  summaries,
	})
}

// prepare validates the symbol list and builds a runner for any threshold override.
// A non-empty message means a client error.
func (h *QuadrantHandler) prepare(raw []string, margin, multiple *float64) ([]string, *batch.Runner, string) {
	symbols := make([]string, 0, len(raw))
	for _, s := range batch.NormalizeSymbols(raw) {
		if s != "" {
			symbols = append(symbols, s)
		}
	}
	if len(symbols) == 0 {
		return nil, nil, "At least one symbol is required"
	}
	if len(symbols) > h.maxSymbols {
		return nil, nil, fmt.Sprintf("Too many symbols (max %d)", h.maxSymbols)
	}

	runner := h.runner
	if margin != nil || multiple != nil {
		t := runner.Classifier().Thresholds()
		if margin != nil {
			t.MarginPct = *margin
		}
		if multiple != nil {
			t.Multiple = *multiple
		}
		c, err := classifier.New(t)
		if err != nil {
			return nil, nil, err.Error()
		}
		runner = runner.WithClassifier(c)
	}

	return symbols, runner, ""
}

func queryFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("not a number: %q", s)
	}
	return &v, nil
}
