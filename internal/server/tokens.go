package server

import (
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"retroswap/internal/route"
)

type routeResponse struct {
	Path       []common.Address `json:"path"`
	Symbols    []string         `json:"symbols"`
	Fees       []uint32         `json:"fees"`
	IsMultiHop bool             `json:"isMultiHop"`
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.All())
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	if s.routes == nil {
		writeError(w, http.StatusServiceUnavailable, "Route discovery requires an RPC endpoint")
		return
	}
	q := r.URL.Query()
	in, ok := s.registry.Resolve(q.Get("tokenIn"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown tokenIn")
		return
	}
	out, ok := s.registry.Resolve(q.Get("tokenOut"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown tokenOut")
		return
	}

	rt, err := s.routes.FindRoute(r.Context(), in.Address, out.Address)
	switch {
	case errors.Is(err, route.ErrInvalidRoute):
		s.metrics.RouteLookup("invalid")
		writeError(w, http.StatusBadRequest, "Input and output token must differ")
		return
	case errors.Is(err, route.ErrNoRouteFound):
		s.metrics.RouteLookup("none")
		writeError(w, http.StatusNotFound, "No route found")
		return
	case err != nil:
		s.logger.Error("route lookup failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "Failed to find route")
		return
	}

	result := "direct"
	if rt.IsMultiHop {
		result = "multihop"
	}
	s.metrics.RouteLookup(result)

	symbols := make([]string, len(rt.Path))
	for i, addr := range rt.Path {
		if info, ok := s.registry.ByAddress(addr); ok {
			symbols[i] = info.Symbol
		} else {
			symbols[i] = addr.Hex()
		}
	}
	writeJSON(w, http.StatusOK, routeResponse{
		Path:       rt.Path,
		Symbols:    symbols,
		Fees:       rt.Fees,
		IsMultiHop: rt.IsMultiHop,
	})
}
