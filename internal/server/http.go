package server

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/intrepidcs/libicsneo-sub002/internal/version"
)

// Status is the JSON document served at /status
type Status struct {
	Serial   string       `json:"serial"`
	Path     string       `json:"path"`
	Build    version.Info `json:"build"`
	Busy     bool         `json:"busy"`
	Client   string       `json:"client,omitempty"`
	Sessions int64        `json:"sessions"`
	RxBytes  int64        `json:"rx_bytes"`
	TxBytes  int64        `json:"tx_bytes"`
	Uptime   string       `json:"uptime"`
}

// Handler returns the bridge's HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.config.Path, s.handleDevice)
	mux.HandleFunc("/status", s.handleStatus)
	if s.config.Metrics != nil {
		mux.Handle("/metrics", s.config.Metrics)
	}
	return mux
}

// Status reports the bridge state
func (s *Server) Status() Status {
	st := Status{
		Serial:   s.config.Serial,
		Path:     s.config.Path,
		Build:    version.Get(),
		Sessions: s.sessions.Load(),
		RxBytes:  s.rxBytes.Load(),
		TxBytes:  s.txBytes.Load(),
		Uptime:   time.Since(s.started).Truncate(time.Second).String(),
	}
	s.mu.Lock()
	if s.session != nil {
		st.Busy = true
		st.Client = s.session.remote
	}
	s.mu.Unlock()
	return st
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Status()); err != nil {
		s.logger.Warn("Failed to write status", zap.Error(err))
	}
}
