// Package chart extracts an embedded chart specification from agent response
// text. Data-analysis responses carry a Highcharts-style configuration inside
// a fenced ```json block; everything around the block is ordinary markdown.
package chart

import (
	"encoding/json"
	"regexp"
)

// fencedJSON matches the first ```json fenced block in a response.
// The tag is case-sensitive. Only the first block is considered; responses
// with multiple embedded blocks are not supported.
var fencedJSON = regexp.MustCompile("```json\n([\\s\\S]*?)\n```")

// Spec is a decoded chart configuration. The interior of the fenced block is
// arbitrary JSON produced by the agent's charting tool, so the spec stays
// schemaless with typed accessors for the fields renderers care about.
type Spec map[string]any

// Extract returns the chart specification embedded in text, if any.
// It is total: for any input, including text with no fenced block or an
// invalid interior, it returns (nil, false) rather than failing. Extraction
// failure never discards the surrounding response text; callers render the
// text either way.
func Extract(text string) (Spec, bool) {
	m := fencedJSON.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}

	var spec Spec
	if err := json.Unmarshal([]byte(m[1]), &spec); err != nil {
		return nil, false
	}
	if spec == nil {
		return nil, false
	}

	return spec, true
}

// Title returns the chart title, if the spec carries one in the
// Highcharts "title": {"text": ...} shape.
func (s Spec) Title() string {
	title, ok := s["title"].(map[string]any)
	if !ok {
		return ""
	}
	text, _ := title["text"].(string)
	return text
}

// Type returns the chart type from "chart": {"type": ...}, or "" when unset.
func (s Spec) Type() string {
	c, ok := s["chart"].(map[string]any)
	if !ok {
		return ""
	}
	t, _ := c["type"].(string)
	return t
}

// SeriesCount returns the number of entries in the "series" array.
func (s Spec) SeriesCount() int {
	series, ok := s["series"].([]any)
	if !ok {
		return 0
	}
	return len(series)
}
