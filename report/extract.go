package report

import (
	"encoding/json"
	"strings"
)

// Extraction is the tagged result of best-effort JSON recovery from a model
// reply. Structured=false means every parse stage failed and callers should
// fall back to treating Raw as plain markdown.
type Extraction struct {
	Fields     map[string]any
	Structured bool
	Raw        string
}

// ExtractJSON recovers a JSON object from a reply that may include prose,
// code fences, or truncation. Stages, in order: direct parse, fence strip,
// first-{/last-} brace scan. It never fails; an unparseable reply degrades to
// an unstructured extraction.
func ExtractJSON(raw string) Extraction {
	trimmed := strings.TrimSpace(raw)

	if fields, ok := tryParse(trimmed); ok {
		return Extraction{Fields: fields, Structured: true, Raw: raw}
	}

	if fields, ok := tryParse(stripFences(trimmed)); ok {
		return Extraction{Fields: fields, Structured: true, Raw: raw}
	}

	if start, end := strings.Index(trimmed, "{"), strings.LastIndex(trimmed, "}"); start >= 0 && end > start {
		if fields, ok := tryParse(trimmed[start : end+1]); ok {
			return Extraction{Fields: fields, Structured: true, Raw: raw}
		}
	}

	return Extraction{Structured: false, Raw: raw}
}

func tryParse(s string) (map[string]any, bool) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(s), &fields); err != nil {
		return nil, false
	}
	return fields, true
}

// stripFences removes a leading ``` or ```json line and a trailing ``` line.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.Index(s, "\n"); nl >= 0 && !strings.HasPrefix(s, "{") {
		// drop the language tag line, e.g. "json"
		s = s[nl+1:]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func asString(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func asInt(fields map[string]any, key string) int {
	switch v := fields[key].(type) {
	case float64:
		return int(v)
	case string:
		var n int
		for _, r := range v {
			if r < '0' || r > '9' {
				return 0
			}
			n = n*10 + int(r-'0')
		}
		return n
	}
	return 0
}

func asStringSlice(fields map[string]any, key string, max int) []string {
	items, ok := fields[key].([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		if len(out) == max {
			break
		}
	}
	return out
}

// asObjectSlice returns every object element; callers filter out invalid
// entries first and apply their cardinality cap after, so a malformed item
// never consumes the cap.
func asObjectSlice(fields map[string]any, key string) []map[string]any {
	items, ok := fields[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}
