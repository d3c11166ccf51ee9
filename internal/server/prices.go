package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"retroswap/internal/pricefeed"
)

// PriceSourceHeader tags every price response with the layer that
// produced it: cache, upstream, stale or fallback.
const PriceSourceHeader = "X-Price-Source"

func (s *Server) handleSimplePrice(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ids := pricefeed.SplitIDs(q.Get("ids"))
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "ids is required")
		return
	}
	currency := strings.TrimSpace(q.Get("vs_currencies"))
	if currency == "" {
		currency = "usd"
	}

	res, err := s.prices.FetchPrices(r.Context(), ids, currency)
	if errors.Is(err, pricefeed.ErrRateLimited) {
		writeError(w, http.StatusTooManyRequests, "Rate limited, please try again later")
		return
	}
	if err != nil {
		s.logger.Error("price lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch prices")
		return
	}

	w.Header().Set(PriceSourceHeader, string(res.Source))
	if res.Degraded() {
		w.Header().Set("Cache-Control", "no-store")
	}
	writeJSON(w, http.StatusOK, res.Prices)
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := pricefeed.MarketsQuery{
		VsCurrency: q.Get("vs_currency"),
		Order:      q.Get("order"),
		PerPage:    atoiOrZero(q.Get("per_page")),
		Page:       atoiOrZero(q.Get("page")),
	}

	raw, err := s.markets.Markets(r.Context(), query)
	if err != nil {
		s.logger.Error("markets lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch market data")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
