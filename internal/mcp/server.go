package mcp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"cyclecast/internal/forecast"
	"cyclecast/internal/linear"
	"cyclecast/internal/metrics"
	"cyclecast/internal/store"
)

// JSONRPCRequest represents a standard MCP/JSON-RPC request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a standard MCP/JSON-RPC response.
type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

// Server exposes the metrics tables, the simulator, the accuracy tracker, and
// the velocity trend to a presentation collaborator over stdio.
type Server struct {
	db         *store.DB
	syncer     *linear.Syncer
	aggregator *metrics.Aggregator
	simulator  *forecast.Simulator
}

// NewServer creates a new MCP server.
func NewServer(db *store.DB, syncer *linear.Syncer, aggregator *metrics.Aggregator, simulator *forecast.Simulator) *Server {
	return &Server{db: db, syncer: syncer, aggregator: aggregator, simulator: simulator}
}

// Serve starts the JSON-RPC loop over Stdio.
func (s *Server) Serve() error {
	reader := bufio.NewReader(os.Stdin)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		var req JSONRPCRequest
		if err := json.Unmarshal(line, &req); err != nil {
			log.Error().Err(err).Msg("Failed to unmarshal request")
			continue
		}

		s.handleRequest(req)
	}
}

func (s *Server) handleRequest(req JSONRPCRequest) {
	var result interface{}
	var errRes interface{}

	switch req.Method {
	case "initialize":
		result = map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities":    map[string]interface{}{},
			"serverInfo": map[string]interface{}{
				"name":    "cyclecast",
				"version": "0.1.0",
			},
		}
	case "tools/list":
		result = s.listTools()
	case "tools/call":
		result, errRes = s.callTool(req.Params)
	default:
		errRes = map[string]interface{}{
			"code":    -32601,
			"message": fmt.Sprintf("Method %s not found", req.Method),
		}
	}

	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
		Error:   errRes,
	}

	out, _ := json.Marshal(resp)
	fmt.Fprintf(os.Stdout, "%s\n", out)
}

func (s *Server) callTool(params json.RawMessage) (interface{}, interface{}) {
	var call struct {
		Name      string                 `json:"name"`
		Arguments map[string]interface{} `json:"arguments"`
	}
	if err := json.Unmarshal(params, &call); err != nil {
		return nil, map[string]interface{}{"code": -32602, "message": "Invalid params"}
	}

	var data interface{}
	var err error

	switch call.Name {
	case "sync_tracker":
		data, err = s.handleSyncTracker()
	case "cycle_metrics":
		data, err = s.handleCycleMetrics()
	case "user_metrics":
		data, err = s.handleUserMetrics()
	case "daily_metrics":
		cycleID, _ := call.Arguments["cycle_id"].(string)
		data, err = s.handleDailyMetrics(cycleID)
	case "run_forecast":
		points, ok := call.Arguments["story_points"].(float64)
		if !ok {
			return nil, map[string]interface{}{"code": -32602, "message": "story_points is required"}
		}
		sims := 0
		if v, ok := call.Arguments["simulations"].(float64); ok {
			sims = int(v)
		}
		levels := floatList(call.Arguments["confidence_levels"])
		data = s.simulator.Simulate(points, sims, levels)
	case "forecast_accuracy":
		data, err = s.simulator.AnalyzeAccuracy()
	case "velocity_trend":
		data, err = s.simulator.VelocityTrend()
	default:
		return nil, map[string]interface{}{"code": -32601, "message": "Tool not found"}
	}

	if err != nil {
		return nil, map[string]interface{}{"code": -32000, "message": err.Error()}
	}

	return map[string]interface{}{
		"content": []interface{}{
			map[string]interface{}{
				"type": "text",
				"text": s.formatResult(data),
			},
		},
	}, nil
}

func (s *Server) formatResult(data interface{}) string {
	out, _ := json.MarshalIndent(data, "", "  ")
	return string(out)
}

func floatList(v interface{}) []float64 {
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var list []float64
	for _, item := range raw {
		if f, ok := item.(float64); ok {
			list = append(list, f)
		}
	}
	return list
}
