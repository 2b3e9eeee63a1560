// Package extract pulls the declared business fields out of a raw call
// record. The platform delivers the same variables in different places
// depending on agent configuration, so extraction walks a fixed chain of
// locations and never fails: a record with no recognizable data yields a
// fully populated, all-empty set.
package extract

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/claraops/callsheet/internal/event"
)

// DefaultToolName is the agent tool whose result carries extracted
// variables in the tool-call transcript.
const DefaultToolName = "extract_variables"

// Source identifies which strategy produced a Result, so callers and
// tests can tell "nothing found" apart from "found but empty".
type Source string

const (
	SourceNone      Source = "none"
	SourceCollected Source = "collected_dynamic_variables"
	SourceAnalysis  Source = "custom_analysis_data"
	SourceToolCall  Source = "tool_call_result"
	SourceToolScan  Source = "tool_result_scan"
	SourceRoot      Source = "root"
	SourceMerged    Source = "merged"
)

// Policy selects how strategies combine.
type Policy int

const (
	// PolicyFirstHit takes the whole result from the first strategy that
	// yields anything, ignoring later locations entirely.
	PolicyFirstHit Policy = iota
	// PolicyFieldMerge fills each field from the first location that has
	// it, walking collected variables then custom analysis data (with
	// per-field aliases). Used by the multi-client dispatcher.
	PolicyFieldMerge
)

// Extractor is a declared field set plus a merge policy. One instance is
// configured per webhook variant.
type Extractor struct {
	Fields   []string
	Policy   Policy
	ToolName string
	// Aliases lists alternate custom_analysis_data keys per field,
	// consulted only under PolicyFieldMerge.
	Aliases map[string][]string
}

// Result is a fully populated variable set: every declared field is
// present, defaulting to the empty string.
type Result struct {
	Values map[string]string
	Source Source
}

// Extract runs the configured strategy chain over the call record.
// Deterministic, and never returns an error: malformed content anywhere
// is treated as "no match".
func (e *Extractor) Extract(call event.Call) Result {
	if e.Policy == PolicyFieldMerge {
		return e.merge(call)
	}
	return e.firstHit(call)
}

func (e *Extractor) firstHit(call event.Call) Result {
	vars := e.emptySet()

	// 1. collected_dynamic_variables. Short-circuits even when some
	// declared fields stayed empty.
	if collected := call.CollectedVariables(); anyPresent(collected) {
		copyDeclared(vars, collected, e.Fields)
		return Result{Values: vars, Source: SourceCollected}
	}

	// 2. call_analysis.custom_analysis_data, same lookup.
	if custom := call.CustomAnalysisData(); anyPresent(custom) {
		copyDeclared(vars, custom, e.Fields)
		return Result{Values: vars, Source: SourceAnalysis}
	}

	transcript := call.ToolTranscript()

	// 3. Correlate the extraction tool's invocation with its result.
	if src, ok := e.toolResult(transcript); ok {
		copyDeclared(vars, src, e.Fields)
		return Result{Values: vars, Source: SourceToolCall}
	}

	// 4. Broad scan: any tool result whose content carries declared fields.
	for _, entry := range transcript {
		if entry.Role != "tool_call_result" || entry.Content == "" {
			continue
		}
		decoded, ok := decodeMap(entry.Content)
		if !ok {
			continue
		}
		if copyDeclared(vars, decoded, e.Fields) > 0 {
			return Result{Values: vars, Source: SourceToolScan}
		}
	}

	// 5. Root-level fields on the call record itself.
	if copyDeclared(vars, call, e.Fields) > 0 {
		return Result{Values: vars, Source: SourceRoot}
	}
	return Result{Values: vars, Source: SourceNone}
}

// toolResult finds the result entry correlated with the extraction tool
// invocation and decodes it. When the decoded mapping nests the payload
// under "variables", the nested mapping wins.
func (e *Extractor) toolResult(transcript []event.ToolEntry) (map[string]any, bool) {
	toolName := e.ToolName
	if toolName == "" {
		toolName = DefaultToolName
	}

	var callID string
	for _, entry := range transcript {
		if entry.Role == "tool_call_invocation" && entry.Name == toolName {
			callID = entry.ToolCallID
			break
		}
	}
	if callID == "" {
		return nil, false
	}

	for _, entry := range transcript {
		if entry.Role != "tool_call_result" || entry.ToolCallID != callID || entry.Content == "" {
			continue
		}
		decoded, ok := decodeMap(entry.Content)
		if !ok {
			continue
		}
		if nested, ok := decoded["variables"].(map[string]any); ok {
			return nested, true
		}
		return decoded, true
	}
	return nil, false
}

func (e *Extractor) merge(call event.Call) Result {
	vars := e.emptySet()

	collected := call.CollectedVariables()
	for _, field := range e.Fields {
		if v, ok := collected[field]; ok && present(v) {
			vars[field] = Stringify(v)
		}
	}

	custom := call.CustomAnalysisData()
	for _, field := range e.Fields {
		if vars[field] != "" {
			continue
		}
		if v, ok := custom[field]; ok && present(v) {
			vars[field] = Stringify(v)
			continue
		}
		for _, alias := range e.Aliases[field] {
			if v, ok := custom[alias]; ok && present(v) {
				vars[field] = Stringify(v)
				break
			}
		}
	}

	source := SourceNone
	for _, v := range vars {
		if v != "" {
			source = SourceMerged
			break
		}
	}
	return Result{Values: vars, Source: source}
}

func (e *Extractor) emptySet() map[string]string {
	vars := make(map[string]string, len(e.Fields))
	for _, field := range e.Fields {
		vars[field] = ""
	}
	return vars
}

// copyDeclared copies declared fields that are present and non-empty in
// src, returning how many were copied.
func copyDeclared(dst map[string]string, src map[string]any, fields []string) int {
	n := 0
	for _, field := range fields {
		if v, ok := src[field]; ok && present(v) {
			dst[field] = Stringify(v)
			n++
		}
	}
	return n
}

func decodeMap(content string) (map[string]any, bool) {
	var decoded map[string]any
	if err := json.Unmarshal([]byte(content), &decoded); err != nil {
		return nil, false
	}
	return decoded, true
}

// anyPresent reports whether the mapping has at least one non-empty value.
func anyPresent(m map[string]any) bool {
	for _, v := range m {
		if present(v) {
			return true
		}
	}
	return false
}

func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	case map[string]any:
		return len(t) > 0
	case []any:
		return len(t) > 0
	}
	return true
}

// Stringify renders an extracted value the way the sheet expects:
// numbers without a spurious decimal point, everything else via JSON.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// NormalizeFlag canonicalizes an emergency flag: booleans and common
// truthy/falsy tokens map to TRUE/FALSE, anything else passes through as
// its string form.
func NormalizeFlag(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	}
	raw := strings.ToLower(strings.TrimSpace(Stringify(v)))
	switch raw {
	case "true", "yes", "1", "y":
		return "TRUE"
	case "false", "no", "0", "n":
		return "FALSE"
	case "":
		return ""
	}
	return Stringify(v)
}
