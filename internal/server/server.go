package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"retroswap/internal/metrics"
	"retroswap/internal/model"
	"retroswap/internal/pricefeed"
	"retroswap/internal/storage"
	"retroswap/internal/token"
)

// PriceService answers simple-price lookups.
type PriceService interface {
	FetchPrices(ctx context.Context, ids []string, currency string) (pricefeed.Result, error)
}

// MarketSource returns raw coins/markets pages.
type MarketSource interface {
	Markets(ctx context.Context, q pricefeed.MarketsQuery) (json.RawMessage, error)
}

// RouteFinder discovers swap routes.
type RouteFinder interface {
	FindRoute(ctx context.Context, tokenIn, tokenOut common.Address) (model.SwapRoute, error)
}

// Config wires the server's collaborators. Routes may be nil when no RPC
// endpoint is configured.
type Config struct {
	Prices      PriceService
	Markets     MarketSource
	History     storage.HistoryStore
	Registry    *token.Registry
	Routes      RouteFinder
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	CORSOrigins []string
	Logger      *zap.Logger
}

// Server is the RetroSwap HTTP API.
type Server struct {
	prices   PriceService
	markets  MarketSource
	history  storage.HistoryStore
	registry *token.Registry
	routes   RouteFinder
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	origins  []string
	logger   *zap.Logger
}

// New creates a server.
func New(cfg Config) (*Server, error) {
	if cfg.Prices == nil || cfg.Markets == nil || cfg.History == nil || cfg.Registry == nil {
		return nil, fmt.Errorf("server: prices, markets, history and registry are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		prices:   cfg.Prices,
		markets:  cfg.Markets,
		history:  cfg.History,
		registry: cfg.Registry,
		routes:   cfg.Routes,
		metrics:  cfg.Metrics,
		gatherer: gatherer,
		origins:  cfg.CORSOrigins,
		logger:   logger,
	}, nil
}

// Handler returns the full HTTP handler including CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.handle(mux, "GET /api/coingecko/simple/price", "simple_price", s.handleSimplePrice)
	s.handle(mux, "GET /api/coingecko/coins/markets", "markets", s.handleMarkets)
	s.handle(mux, "POST /api/swaps", "create_swap", s.handleCreateSwap)
	s.handle(mux, "GET /api/swaps/{userAddress}", "list_swaps", s.handleListSwaps)
	s.handle(mux, "POST /api/positions", "create_position", s.handleCreatePosition)
	s.handle(mux, "GET /api/positions/{userAddress}", "list_positions", s.handleListPositions)
	s.handle(mux, "GET /api/tokens", "tokens", s.handleTokens)
	s.handle(mux, "GET /api/route", "route", s.handleRoute)
	s.handle(mux, "GET /healthz", "healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	origins := s.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{PriceSourceHeader},
	})
	return c.Handler(mux)
}

// ListenAndServe serves on addr until ctx is done, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) handle(mux *http.ServeMux, pattern, name string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		h(rec, r)
		s.metrics.HTTPRequest(name, rec.status)
		s.logger.Debug("http request",
			zap.String("route", name),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
