package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"retroswap/internal/model"
	"retroswap/internal/storage"
)

const maxBodyBytes = 1 << 20

func decodeBody(r *http.Request, v interface{}) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}

func (s *Server) handleCreateSwap(w http.ResponseWriter, r *http.Request) {
	var rec model.SwapRecord
	if err := decodeBody(r, &rec); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	created, err := s.history.CreateSwap(r.Context(), rec)
	if errors.Is(err, storage.ErrInvalidRecord) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("create swap failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create swap transaction")
		return
	}
	s.metrics.HistoryRecord("swap")
	writeJSON(w, http.StatusOK, created)
}

func (s *Server) handleListSwaps(w http.ResponseWriter, r *http.Request) {
	swaps, err := s.history.SwapsByUser(r.Context(), r.PathValue("userAddress"))
	if err != nil {
		s.logger.Error("list swaps failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch swap transactions")
		return
	}
	writeJSON(w, http.StatusOK, swaps)
}

func (s *Server) handleCreatePosition(w http.ResponseWriter, r *http.Request) {
	var rec model.PositionRecord
	if err := decodeBody(r, &rec); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	created, err := s.history.CreatePosition(r.Context(), rec)
	if errors.Is(err, storage.ErrInvalidRecord) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("create position failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create liquidity position")
		return
	}
	s.metrics.HistoryRecord("position")
	writeJSON(w, http.StatusOK, created)
}

func (s *Server) handleListPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.history.PositionsByUser(r.Context(), r.PathValue("userAddress"))
	if err != nil {
		s.logger.Error("list positions failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch liquidity positions")
		return
	}
	writeJSON(w, http.StatusOK, positions)
}
