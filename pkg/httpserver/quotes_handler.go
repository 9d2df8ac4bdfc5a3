package httpserver

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/marketarb/agent/internal/quotes"
	"github.com/marketarb/agent/pkg/types"
)

// QuotesHandler serves the current venue quotes held for a fingerprinted
// market, read straight from the quote store.
type QuotesHandler struct {
	store  *quotes.Store
	logger *zap.Logger
}

// NewQuotesHandler creates a new quotes handler.
func NewQuotesHandler(store *quotes.Store, logger *zap.Logger) *QuotesHandler {
	return &QuotesHandler{store: store, logger: logger}
}

// QuoteView is the JSON shape of one venue's quote for a market.
type QuoteView struct {
	Venue        string `json:"venue"`
	YesPrice     string `json:"yesPrice"`
	NoPrice      string `json:"noPrice"`
	YesLiquidity string `json:"yesLiquidity"`
	NoLiquidity  string `json:"noLiquidity"`
	FeeBps       int    `json:"feeBps"`
	QuotedAtMs   int64  `json:"quotedAtMs"`
}

// QuotesResponse represents the HTTP response for a market's quotes.
type QuotesResponse struct {
	Fingerprint string      `json:"fingerprint"`
	Quotes      []QuoteView `json:"quotes"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleQuotes handles GET /api/quotes?fingerprint=<id> requests.
func (h *QuotesHandler) HandleQuotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	fingerprint := r.URL.Query().Get("fingerprint")
	if fingerprint == "" {
		h.writeError(w, "missing required query parameter: fingerprint", http.StatusBadRequest)
		return
	}

	h.logger.Debug("quotes-request-received", zap.String("fingerprint", fingerprint))

	quotes := h.store.Get(fingerprint)
	if len(quotes) == 0 {
		h.writeError(w, "no quotes for fingerprint", http.StatusNotFound)
		return
	}

	views := make([]QuoteView, 0, len(quotes))
	for _, q := range quotes {
		views = append(views, toQuoteView(q))
	}

	response := QuotesResponse{Fingerprint: fingerprint, Quotes: views}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

func toQuoteView(q types.MarketQuote) QuoteView {
	return QuoteView{
		Venue:        string(q.Protocol),
		YesPrice:     q.YesPrice.String(),
		NoPrice:      q.NoPrice.String(),
		YesLiquidity: q.YesLiquidity.String(),
		NoLiquidity:  q.NoLiquidity.String(),
		FeeBps:       q.FeeBps,
		QuotedAtMs:   q.QuotedAtMs,
	}
}

// writeError writes a JSON error response.
func (h *QuotesHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{Error: message}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed-to-encode-error-response", zap.Error(err))
	}
}
