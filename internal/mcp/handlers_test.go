package mcp

import (
	"encoding/json"
	"testing"
)

func TestFloatList(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected []float64
	}{
		{"Nil", nil, nil},
		{"NotAList", "0.8", nil},
		{"Levels", []interface{}{0.5, 0.8, 0.95}, []float64{0.5, 0.8, 0.95}},
		{"MixedTypesFiltered", []interface{}{0.5, "0.8", true, 0.9}, []float64{0.5, 0.9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := floatList(tt.input)
			if len(got) != len(tt.expected) {
				t.Fatalf("floatList() = %v, want %v", got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("floatList() = %v, want %v", got, tt.expected)
				}
			}
		})
	}
}

func callParams(t *testing.T, name string, args map[string]interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	return raw
}

func TestCallTool_Errors(t *testing.T) {
	s := NewServer(nil, nil, nil, nil)

	tests := []struct {
		name   string
		params json.RawMessage
	}{
		{"InvalidParams", json.RawMessage(`not json`)},
		{"UnknownTool", callParams(t, "divine_the_roadmap", nil)},
		{"ForecastWithoutPoints", callParams(t, "run_forecast", map[string]interface{}{"simulations": 100})},
		{"DailyMetricsWithoutCycle", callParams(t, "daily_metrics", nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, errRes := s.callTool(tt.params)
			if errRes == nil {
				t.Errorf("Expected a JSON-RPC error, got result %v", result)
			}
		})
	}
}
