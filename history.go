package main

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Tutortoise/face-mask-service/history"
	"github.com/Tutortoise/face-mask-service/models"
)

type HistoryResponse struct {
	Entries []history.Entry `json:"entries"`
	Count   int             `json:"count"`
}

func (s *AppState) addHistoryRoutes(r *mux.Router) {
	r.HandleFunc("/history", s.handleHistory).Methods("GET")
	r.HandleFunc("/history/stats", s.handleHistoryStats).Methods("GET")
}

// record stores a finished request. Failures are logged and never reach the client.
func (s *AppState) record(ctx context.Context, log logrus.FieldLogger, endpoint string, stats models.Stats, total int, took time.Duration) {
	if s.History == nil {
		return
	}
	_, err := s.History.Record(ctx, history.Entry{
		Endpoint:   endpoint,
		Total:      total,
		Stats:      stats,
		DurationMs: took.Milliseconds(),
	})
	if err != nil {
		log.Warnf("Failed to record detection history: %v", err)
	}
}

func (s *AppState) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := history.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			sendErrorResponse(w, MsgInvalidLimit, http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := s.History.List(r.Context(), limit)
	if err != nil {
		s.Log.Errorf("Failed to list detection history: %v", err)
		sendErrorResponse(w, MsgInternalError, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Entries: entries, Count: len(entries)})
}

func (s *AppState) handleHistoryStats(w http.ResponseWriter, r *http.Request) {
	totals, err := s.History.Stats(r.Context())
	if err != nil {
		s.Log.Errorf("Failed to aggregate detection history: %v", err)
		sendErrorResponse(w, MsgInternalError, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}
