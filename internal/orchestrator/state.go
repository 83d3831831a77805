package orchestrator

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// RouteStats — счётчики пересылки для одного узла-источника.
type RouteStats struct {
	// Routed — созданные dispatch.
	Routed int `json:"routed"`

	// Duplicates — повторные доставки, отброшенные по idempotency key.
	Duplicates int `json:"duplicates"`

	// Dropped — сообщения без wires.
	Dropped int `json:"dropped"`

	// LastRoutedAt — время последней пересылки.
	LastRoutedAt *time.Time `json:"last_routed_at,omitempty"`
}

// routeState — счётчики в памяти процесса (sourceNodeID → RouteStats).
type routeState struct {
	mu    sync.RWMutex
	nodes map[uuid.UUID]*RouteStats
}

func newRouteState() *routeState {
	return &routeState{nodes: make(map[uuid.UUID]*RouteStats)}
}

func (s *routeState) entry(nodeID uuid.UUID) *RouteStats {
	st, ok := s.nodes[nodeID]
	if !ok {
		st = &RouteStats{}
		s.nodes[nodeID] = st
	}
	return st
}

func (s *routeState) routed(nodeID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	st := s.entry(nodeID)
	st.Routed++
	st.LastRoutedAt = &now
}

func (s *routeState) duplicate(nodeID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry(nodeID).Duplicates++
}

func (s *routeState) dropped(nodeID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry(nodeID).Dropped++
}

func (s *routeState) get(nodeID uuid.UUID) (RouteStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.nodes[nodeID]
	if !ok {
		return RouteStats{}, false
	}
	return *st, true
}

func (s *routeState) totals() RouteStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out RouteStats
	for _, st := range s.nodes {
		out.Routed += st.Routed
		out.Duplicates += st.Duplicates
		out.Dropped += st.Dropped
		if st.LastRoutedAt != nil && (out.LastRoutedAt == nil || st.LastRoutedAt.After(*out.LastRoutedAt)) {
			t := *st.LastRoutedAt
			out.LastRoutedAt = &t
		}
	}
	return out
}
