// Package api serves attendance statistics as read-only JSON.
package api

import (
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/verte-zerg/attendr/internal/stats"
)

// Server answers stats requests from a data source.
type Server struct {
	source stats.Source
	logger *zap.Logger
	now    func() time.Time
}

// NewServer creates a Server. A nil now uses time.Now.
func NewServer(source stats.Source, logger *zap.Logger, now func() time.Time) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Server{source: source, logger: logger, now: now}
}

// NewRouter registers the API routes.
func (s *Server) NewRouter() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", healthHandler).Methods("GET")
	r.HandleFunc("/api/stats", s.getStats).Methods("GET")
	r.HandleFunc("/api/days/{date}", s.getDay).Methods("GET")
	r.HandleFunc("/api/trend", s.getTrend).Methods("GET")
	r.HandleFunc("/api/slot-times", getSlotTimes).Methods("GET")

	return r
}

// Handler returns the router wrapped with an access log written to w.
func (s *Server) Handler(w io.Writer) http.Handler {
	return handlers.LoggingHandler(w, s.NewRouter())
}
