package mcp

func (s *Server) listTools() interface{} {
	return map[string]interface{}{
		"tools": []interface{}{
			map[string]interface{}{
				"name":        "sync_tracker",
				"description": "Synchronize users, cycles, issues, and state history from the issue tracker, then recompute all derived metrics. Run this before reading metrics for the first time or after tracker changes.",
				"inputSchema": map[string]interface{}{
					"type":       "object",
					"properties": map[string]interface{}{},
				},
			},
			map[string]interface{}{
				"name":        "cycle_metrics",
				"description": "Tabular per-cycle metrics: total/completed story points, throughput, velocity, average cycle/lead/blocked time, and the dominant team/project/initiative.",
				"inputSchema": map[string]interface{}{
					"type":       "object",
					"properties": map[string]interface{}{},
				},
			},
			map[string]interface{}{
				"name":        "user_metrics",
				"description": "Tabular per-user, per-cycle metrics: points completed, average cycle time, velocity, capacity utilization, and efficiency ratio.",
				"inputSchema": map[string]interface{}{
					"type":       "object",
					"properties": map[string]interface{}{},
				},
			},
			map[string]interface{}{
				"name":        "daily_metrics",
				"description": "Per-day snapshots for one cycle: WIP count, blocked-item count, cumulative completed points, and remaining ideal hours.",
				"inputSchema": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"cycle_id": map[string]interface{}{"type": "string", "description": "The cycle id"},
					},
					"required": []string{"cycle_id"},
				},
			},
			map[string]interface{}{
				"name":        "run_forecast",
				"description": "Run a Monte Carlo simulation to forecast how many days a given amount of story points will take to complete, based on historical cycle velocity. Returns expected days/date and confidence intervals, and stores the run for later accuracy analysis.",
				"inputSchema": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"story_points":      map[string]interface{}{"type": "number", "description": "Story points of work to forecast"},
						"simulations":       map[string]interface{}{"type": "integer", "description": "Number of simulation draws (default 10000)"},
						"confidence_levels": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "number"}, "description": "Confidence levels in (0,1); default [0.5, 0.8, 0.95]"},
					},
					"required": []string{"story_points"},
				},
			},
			map[string]interface{}{
				"name":        "forecast_accuracy",
				"description": "Compare stored forecasts against realized cycle outcomes: forecast bias, mean absolute error, and 50/80/95 confidence coverage. Needs at least 2 stored forecasts.",
				"inputSchema": map[string]interface{}{
					"type":       "object",
					"properties": map[string]interface{}{},
				},
			},
			map[string]interface{}{
				"name":        "velocity_trend",
				"description": "Rolling velocity and local trend slope per cycle, ordered by cycle start date.",
				"inputSchema": map[string]interface{}{
					"type":       "object",
					"properties": map[string]interface{}{},
				},
			},
		},
	}
}
