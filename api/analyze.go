package api

import (
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kpizzy812/futures-scenario-engine/collector"
	"github.com/kpizzy812/futures-scenario-engine/errs"
	"github.com/kpizzy812/futures-scenario-engine/metrics"
)

// symbolPattern accepts major USDT-perpetual pairs (spec §4.1's
// "Symbol whitelist"): 2-10 uppercase letters/digits followed by USDT.
var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{2,10}USDT$`)

type analyzeRequest struct {
	Symbol       string `json:"symbol" binding:"required"`
	Timeframe    string `json:"timeframe" binding:"required"`
	MaxScenarios int    `json:"max_scenarios"`
}

// handleAnalyze is the §6 RPC: POST /v1/analyze.
func (s *Server) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	if !symbolPattern.MatchString(req.Symbol) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol must be a USDT-perpetual pair, e.g. BTCUSDT"})
		return
	}
	if !collector.IsKnownTimeframe(req.Timeframe) {
		if _, err := collector.ParseTimeframe(req.Timeframe); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported timeframe: " + req.Timeframe})
			return
		}
	}

	start := time.Now()
	resp, err := s.Engine.AnalyzeSymbol(c.Request.Context(), req.Symbol, req.Timeframe, req.MaxScenarios)
	duration := time.Since(start).Seconds()

	if err != nil {
		result := "error"
		if ee, ok := errs.As(err); ok && ee.Kind == errs.Timeout {
			result = "timeout"
		} else if ok && ee.Kind == errs.InsufficientData {
			result = "insufficient_data"
		}
		metrics.RecordAnalyze(req.Symbol, req.Timeframe, result, duration, 0)
		c.JSON(statusForError(err), gin.H{"error": err.Error(), "success": false})
		return
	}

	metrics.RecordAnalyze(req.Symbol, req.Timeframe, "ok", duration, resp.DataQuality.Completeness)
	c.JSON(http.StatusOK, resp)
}

// statusForError maps an engine error Kind to the §7 HTTP status,
// defaulting to 500 for anything not carrying a recognized Kind.
func statusForError(err error) int {
	ee, ok := errs.As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch ee.Kind {
	case errs.InvalidInput:
		return http.StatusBadRequest
	case errs.InsufficientData:
		return http.StatusUnprocessableEntity
	case errs.RateLimited:
		return http.StatusTooManyRequests
	case errs.Timeout:
		return http.StatusGatewayTimeout
	case errs.ProviderTransient, errs.PartialData:
		return http.StatusBadGateway
	case errs.LLMValidationFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
