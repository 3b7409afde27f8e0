package engine

import "time"

// SearchStats counts the work done by one top-level search invocation.
type SearchStats struct {
	Nodes    uint64 // Main-search nodes
	QNodes   uint64 // Quiescence nodes
	TTHits   uint64 // Nodes decided by a cached entry
	Duration time.Duration
}

// Total returns main-search plus quiescence nodes.
func (s SearchStats) Total() uint64 {
	return s.Nodes + s.QNodes
}

// NPS returns nodes (main and quiescence) per second.
func (s SearchStats) NPS() uint64 {
	if s.Duration <= 0 {
		return 0
	}
	return uint64(float64(s.Total()) / s.Duration.Seconds())
}

// Add accumulates o into s.
func (s *SearchStats) Add(o SearchStats) {
	s.Nodes += o.Nodes
	s.QNodes += o.QNodes
	s.TTHits += o.TTHits
	s.Duration += o.Duration
}
