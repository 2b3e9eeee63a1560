package event

import "encoding/json"

// Payload is the inbound webhook envelope from the voice platform.
// Only the event kind and the call record are read; everything else is
// passed through untouched.
type Payload struct {
	Event string `json:"event"`
	Call  Call   `json:"call"`
}

// Call is the raw call record. The platform nests data in several
// places depending on agent configuration, so the record stays an
// opaque map with typed accessors instead of a fixed struct.
type Call map[string]any

// ToolEntry is one entry of the tool-call transcript. Invocation and
// result entries share a ToolCallID; result content is a JSON-encoded
// string produced by the agent's tool.
type ToolEntry struct {
	Role       string `json:"role"`
	Name       string `json:"name"`
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
}

// ID returns the call identifier, or "unknown" when absent.
func (c Call) ID() string {
	if id := c.str("call_id"); id != "" {
		return id
	}
	return "unknown"
}

func (c Call) AgentName() string    { return c.str("agent_name") }
func (c Call) Transcript() string   { return c.str("transcript") }
func (c Call) RecordingURL() string { return c.str("recording_url") }
func (c Call) FromNumber() string   { return c.str("from_number") }

// DurationMs returns the call duration in milliseconds.
func (c Call) DurationMs() int64 { return c.num("duration_ms") }

// StartTimestamp returns the epoch-millisecond call start time.
func (c Call) StartTimestamp() int64 { return c.num("start_timestamp") }

// CombinedCost returns call_cost.combined_cost, or 0 when absent.
func (c Call) CombinedCost() float64 {
	cost, _ := c["call_cost"].(map[string]any)
	if v, ok := cost["combined_cost"].(float64); ok {
		return v
	}
	return 0
}

// Analysis returns the call_analysis sub-record, never nil.
func (c Call) Analysis() map[string]any {
	if m, ok := c["call_analysis"].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// CustomAnalysisData returns call_analysis.custom_analysis_data, never nil.
func (c Call) CustomAnalysisData() map[string]any {
	if m, ok := c.Analysis()["custom_analysis_data"].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// CollectedVariables returns collected_dynamic_variables, never nil.
func (c Call) CollectedVariables() map[string]any {
	if m, ok := c["collected_dynamic_variables"].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// Summary returns call_analysis.call_summary.
func (c Call) Summary() string {
	s, _ := c.Analysis()["call_summary"].(string)
	return s
}

// Sentiment returns call_analysis.user_sentiment.
func (c Call) Sentiment() string {
	s, _ := c.Analysis()["user_sentiment"].(string)
	return s
}

// Successful returns call_analysis.call_successful.
func (c Call) Successful() bool {
	b, _ := c.Analysis()["call_successful"].(bool)
	return b
}

// ToolTranscript decodes transcript_with_tool_calls into typed entries.
// Entries that do not re-marshal cleanly are dropped.
func (c Call) ToolTranscript() []ToolEntry {
	raw, ok := c["transcript_with_tool_calls"].([]any)
	if !ok {
		return nil
	}
	entries := make([]ToolEntry, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		b, err := json.Marshal(m)
		if err != nil {
			continue
		}
		var e ToolEntry
		if err := json.Unmarshal(b, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

func (c Call) str(key string) string {
	s, _ := c[key].(string)
	return s
}

// num tolerates both JSON numbers (float64) and pre-typed ints.
func (c Call) num(key string) int64 {
	switch v := c[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}
