package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerlens/internal/common"
	"github.com/ternarybob/tickerlens/internal/models"
	"github.com/ternarybob/tickerlens/internal/sec"
	"github.com/ternarybob/tickerlens/internal/services/analysis"
)

// Analyzer runs one analysis
type Analyzer interface {
	Analyze(ctx context.Context, req models.AnalyzeRequest) (*analysis.Outcome, error)
}

// AnalysisHandler serves the analyze and self-test endpoints
type AnalysisHandler struct {
	analyzer       Analyzer
	selfTestTicker string
	logger         arbor.ILogger
}

// NewAnalysisHandler creates the handler; selfTestTicker is the fixed
// ticker exercised by the self-test
func NewAnalysisHandler(analyzer Analyzer, selfTestTicker string, logger arbor.ILogger) *AnalysisHandler {
	if selfTestTicker == "" {
		selfTestTicker = "AAPL"
	}
	return &AnalysisHandler{analyzer: analyzer, selfTestTicker: selfTestTicker, logger: logger}
}

// AnalyzeHandler handles POST /api/analyze
func (h *AnalysisHandler) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	var req models.AnalyzeRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	out, err := h.analyzer.Analyze(r.Context(), req)
	if err != nil {
		h.writeAnalyzeError(w, req, err)
		return
	}

	if out.Cached {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
	WriteRawJSON(w, http.StatusOK, out.Body)
}

// SelfTestHandler handles GET /api/selftest by analysing the fixed
// ticker as of today
func (h *AnalysisHandler) SelfTestHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	out, err := h.analyzer.Analyze(r.Context(), models.AnalyzeRequest{Ticker: h.selfTestTicker})
	if err != nil {
		h.logger.Error().Str("ticker", h.selfTestTicker).Err(err).Msg("Self-test failed")
		WriteJSON(w, http.StatusBadGateway, map[string]interface{}{
			"status": "error",
			"ticker": h.selfTestTicker,
			"error":  err.Error(),
		})
		return
	}

	md := out.Result.Data.MarketData
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"ticker":       out.Result.Input.Ticker,
		"date":         out.Result.Input.Date,
		"model":        out.Result.Model,
		"cached":       out.Cached,
		"filings":      len(out.Result.Data.Filings),
		"price":        md.Price,
		"price_source": md.PriceSource,
		"duration_ms":  time.Since(start).Milliseconds(),
		"version":      common.GetVersion(),
	})
}

func (h *AnalysisHandler) writeAnalyzeError(w http.ResponseWriter, req models.AnalyzeRequest, err error) {
	var verr *analysis.ValidationError
	switch {
	case errors.As(err, &verr):
		WriteError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, sec.ErrUnknownTicker):
		WriteError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error().Str("ticker", req.Ticker).Str("date", req.Date).Err(err).Msg("Analyze request failed")
		WriteError(w, http.StatusBadGateway, err.Error())
	}
}
