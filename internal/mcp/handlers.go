package mcp

import "fmt"

func (s *Server) handleSyncTracker() (interface{}, error) {
	if err := s.syncer.Run(); err != nil {
		return nil, err
	}
	if err := s.aggregator.Run(); err != nil {
		return nil, fmt.Errorf("sync succeeded but aggregation failed: %w", err)
	}

	cycles, err := s.db.CycleMetricsAll()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"status":        "ok",
		"cycles_synced": len(cycles),
	}, nil
}

func (s *Server) handleCycleMetrics() (interface{}, error) {
	return s.db.CycleMetricsAll()
}

func (s *Server) handleUserMetrics() (interface{}, error) {
	return s.db.UserMetricsAll()
}

func (s *Server) handleDailyMetrics(cycleID string) (interface{}, error) {
	if cycleID == "" {
		return nil, fmt.Errorf("cycle_id is required")
	}
	return s.db.DailyMetricsByCycle(cycleID)
}
