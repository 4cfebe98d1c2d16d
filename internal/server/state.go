package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/zeusync/zeusengine/internal/core/events/bus"
	"github.com/zeusync/zeusengine/internal/core/observability/log"
)

// StateView is the /state response.
type StateView struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Entities int            `json:"entities"`
	Families map[string]int `json:"families"`
	Systems  []SystemView   `json:"systems"`
	Failures int            `json:"load_failures"`
}

type SystemView struct {
	Name      string        `json:"name"`
	Family    string        `json:"family"`
	State     string        `json:"state"`
	Reason    string        `json:"reason,omitempty"`
	Period    time.Duration `json:"period_ns"`
	Ticks     uint64        `json:"ticks"`
	Processed uint64        `json:"processed"`
	LastDelta time.Duration `json:"last_delta_ns"`
	LastError string        `json:"last_error,omitempty"`
}

// BusView is the /bus response.
type BusView struct {
	bus.EventBusMetrics
	Clients int    `json:"clients"`
	Dropped uint64 `json:"dropped"`
}

func (s *Server) handleBus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	view := BusView{Clients: s.Clients(), Dropped: s.Dropped()}
	if s.bus != nil {
		view.EventBusMetrics = s.bus.GetMetrics()
	}
	s.writeJSON(w, view)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response encode failed", log.Error(err))
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var st *StateView
	if s.states != nil {
		if cur := s.states.Current(); cur != nil {
			view := StateView{
				ID:       cur.ID(),
				Name:     cur.Name(),
				Entities: cur.Store().EntityCount(),
				Families: make(map[string]int),
			}
			for _, f := range cur.Store().Families() {
				view.Families[f.Name()] = cur.Store().Len(f)
			}
			for _, rs := range cur.Stats() {
				sv := SystemView{
					Name:      rs.Name,
					Family:    rs.Family.Name(),
					State:     rs.State.String(),
					Reason:    string(rs.Reason),
					Period:    rs.Period,
					Ticks:     rs.Ticks,
					Processed: rs.Processed,
					LastDelta: rs.LastDelta,
				}
				if rs.LastError != nil {
					sv.LastError = rs.LastError.Error()
				}
				view.Systems = append(view.Systems, sv)
			}
			if rep := cur.Report(); rep != nil {
				view.Failures = len(rep.Failures)
			}
			st = &view
		}
	}
	if st == nil {
		http.Error(w, "no current state", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, st)
}
