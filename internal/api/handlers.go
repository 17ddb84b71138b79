package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/verte-zerg/attendr/internal/model"
	"github.com/verte-zerg/attendr/internal/stats"
)

type errorResponse struct {
	Error string `json:"error"`
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func getSlotTimes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, model.SlotTimes)
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	today, data, ok := s.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, stats.Calculate(data, today))
}

func (s *Server) getDay(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["date"]
	date, err := stats.ParseDate(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid date %q (expected YYYY-MM-DD)", raw)})
		return
	}
	today, data, ok := s.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, stats.ResolveDay(data, date, today))
}

func (s *Server) getTrend(w http.ResponseWriter, r *http.Request) {
	today, data, ok := s.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, stats.Trend(data, today))
}

// load resolves the reference day and reads the data, writing an error
// response on failure.
func (s *Server) load(w http.ResponseWriter, r *http.Request) (time.Time, model.Data, bool) {
	today := stats.CivilDay(s.now())
	if raw := r.URL.Query().Get("today"); raw != "" {
		parsed, err := stats.ParseDate(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid today %q (expected YYYY-MM-DD)", raw)})
			return time.Time{}, model.Data{}, false
		}
		today = parsed
	}
	data, err := s.source.Load(r.Context())
	if err != nil {
		s.logger.Error("failed to load data", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load data"})
		return time.Time{}, model.Data{}, false
	}
	return today, data, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Client went away; nothing else to do.
		_ = err
	}
}
