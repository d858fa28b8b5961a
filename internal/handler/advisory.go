package handler

import (
	"net/http"
	"strconv"

	"github.com/finmate-ai/voice-platform/internal/querylog"
	"github.com/finmate-ai/voice-platform/pkg/logger"
)

// AdvisoryHandler serves the fixed advisory data and the recent-queries
// display.
type AdvisoryHandler struct {
	qlog   *querylog.Log
	logger *logger.Logger
}

// NewAdvisoryHandler creates the advisory handler.
func NewAdvisoryHandler(qlog *querylog.Log, log *logger.Logger) *AdvisoryHandler {
	return &AdvisoryHandler{qlog: qlog, logger: log}
}

// rateEntry is one row of the indicative rate table.
type rateEntry struct {
	LoanType string `json:"loan_type"`
	MinRate  string `json:"min_rate"`
	MaxRate  string `json:"max_rate"`
	Tenure   string `json:"tenure"`
}

var interestRates = []rateEntry{
	{LoanType: "home", MinRate: "8.35%", MaxRate: "9.75%", Tenure: "up to 30 years"},
	{LoanType: "personal", MinRate: "10.50%", MaxRate: "24.00%", Tenure: "up to 5 years"},
	{LoanType: "car", MinRate: "8.75%", MaxRate: "12.50%", Tenure: "up to 7 years"},
	{LoanType: "education", MinRate: "8.15%", MaxRate: "13.00%", Tenure: "up to 15 years"},
	{LoanType: "gold", MinRate: "9.00%", MaxRate: "16.00%", Tenure: "up to 3 years"},
	{LoanType: "business", MinRate: "11.00%", MaxRate: "21.00%", Tenure: "up to 10 years"},
}

var financialTips = []string{
	"Keep total EMIs under 40% of your monthly income.",
	"Check your credit score before applying; 750+ gets the best rates.",
	"Compare processing fees and prepayment charges, not just interest rates.",
	"Prefer a shorter tenure when you can afford the EMI; total interest drops sharply.",
	"Build an emergency fund of 6 months of expenses before taking new debt.",
	"Prepay high-interest loans first when you have surplus cash.",
}

// InterestRates handles GET /advisory/interest-rates.
func (h *AdvisoryHandler) InterestRates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"rates": interestRates})
}

// FinancialTips handles GET /advisory/financial-tips.
func (h *AdvisoryHandler) FinancialTips(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tips": financialTips})
}

// RecentQueries handles GET /advisory/recent-queries.
func (h *AdvisoryHandler) RecentQueries(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	entries, err := h.qlog.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Warn("failed to read recent queries", "error", err)
		writeError(w, http.StatusServiceUnavailable, "recent queries unavailable")
		return
	}
	if entries == nil {
		entries = []querylog.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"queries": entries})
}

// saveChatRequest is the POST /advisory/save-chat body.
type saveChatRequest struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
	LoanType  string `json:"loan_type"`
}

// SaveChat handles POST /advisory/save-chat, recording a query from a
// front end that ran the exchange elsewhere.
func (h *AdvisoryHandler) SaveChat(w http.ResponseWriter, r *http.Request) {
	var req saveChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.SessionID == "" || req.Query == "" {
		writeError(w, http.StatusBadRequest, "session_id and query are required")
		return
	}

	h.qlog.Record(r.Context(), req.SessionID, req.Query, req.LoanType)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
