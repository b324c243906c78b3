package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/baljotchohan/Trade-Track-App/internal/export"
	"github.com/baljotchohan/Trade-Track-App/internal/storage"
	"go.uber.org/zap"
)

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.repo.GetUser(r.Context(), userID(r))
	if err != nil {
		s.logger.Error("Failed to get user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.repo.GetTradingStats(r.Context(), userID(r))
	if err != nil {
		s.logger.Error("Failed to compute trading stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch trading stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, storage.DefaultListLimit)

	trades, err := s.repo.ListTrades(r.Context(), userID(r), limit)
	if err != nil {
		s.logger.Error("Failed to list trades", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch trades")
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleTradesInRange(w http.ResponseWriter, r *http.Request) {
	start, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("start"), time.Local)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start date, expected YYYY-MM-DD")
		return
	}
	end, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("end"), time.Local)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end date, expected YYYY-MM-DD")
		return
	}
	// The end date names a whole day, so extend it to the following midnight.
	end = end.AddDate(0, 0, 1)

	trades, err := s.repo.ListTradesInRange(r.Context(), userID(r), start, end)
	if err != nil {
		s.logger.Error("Failed to list trades in range", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch trades")
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleExportTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := s.repo.ListTradesInRange(r.Context(), userID(r), time.Unix(0, 0), time.Now())
	if err != nil {
		s.logger.Error("Failed to fetch trades for export", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to export trades")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="trades.csv"`)
	if err := export.WriteTrades(w, trades); err != nil {
		// Headers are already out; all we can do is log.
		s.logger.Error("Failed to write CSV export", zap.Error(err))
	}
}

func (s *Server) handleCreateTrade(w http.ResponseWriter, r *http.Request) {
	var req createTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeValidationError(w, err)
		return
	}

	trade, err := s.repo.CreateTrade(r.Context(), userID(r), req.toInput())
	if err != nil {
		s.logger.Error("Failed to create trade", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create trade")
		return
	}
	writeJSON(w, http.StatusCreated, trade)
}

func (s *Server) handleUpdateTrade(w http.ResponseWriter, r *http.Request) {
	var req updateTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeValidationError(w, err)
		return
	}

	trade, err := s.repo.UpdateTrade(r.Context(), r.PathValue("id"), userID(r), req.toPatch())
	if err != nil {
		s.logger.Error("Failed to update trade", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update trade")
		return
	}
	if trade == nil {
		writeError(w, http.StatusNotFound, "trade not found")
		return
	}
	writeJSON(w, http.StatusOK, trade)
}

func (s *Server) handleDeleteTrade(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteTrade(r.Context(), r.PathValue("id"), userID(r)); err != nil {
		s.logger.Error("Failed to delete trade", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete trade")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseLimit(r *http.Request, defaultLimit int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultLimit
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultLimit
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}
