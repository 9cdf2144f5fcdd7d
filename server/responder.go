package server

import (
	"fmt"
	"strings"

	"github.com/genie-cli/genie/pkg/envelope"
)

// chartAnswer is the canned analysis answer for chart-like queries. The
// fenced json block is a complete Highcharts configuration the client
// extracts and renders.
const chartAnswer = "Here is the quarterly revenue breakdown you asked for.\n" +
	"```json\n" +
	`{"title": {"text": "Quarterly Revenue"}, "chart": {"type": "column"}, "xAxis": {"categories": ["Q1", "Q2", "Q3", "Q4"]}, "series": [{"name": "Revenue", "data": [412, 489, 530, 602]}]}` +
	"\n```\n" +
	"Revenue grew every quarter, with the strongest jump between Q3 and Q4."

const plainAnswer = "I looked into that for you. The short version: everything checks out, " +
	"and no further action is needed on your side."

const agentAnswer = "Task complete. I broke the request into steps, executed each one, " +
	"and verified the results before wrapping up."

// chartHints are query substrings that make the responder embed a chart.
var chartHints = []string{"chart", "plot", "trend", "graph", "compare", "breakdown"}

// Responder produces a scripted envelope sequence for a chat query.
// Response envelopes carry the full text produced so far, not deltas,
// matching what the real agent backend emits.
type Responder struct {
	models []string
}

func NewResponder() *Responder {
	return &Responder{
		models: []string{"qwen-plus", "qwen-max", "qwen-turbo"},
	}
}

// Models returns the model names the dev server advertises.
func (r *Responder) Models() []string {
	return append([]string(nil), r.models...)
}

// Respond builds the envelope sequence for a single query. The sequence
// always opens with a start envelope and ends with a terminal envelope
// (finished response or error).
func (r *Responder) Respond(query, product string, deepThink bool, requestID, sessionID string) []envelope.Envelope {
	if strings.Contains(strings.ToLower(query), "fail") {
		return []envelope.Envelope{
			r.env(envelope.KindStart, strptr("Looking into it..."), false, requestID, sessionID),
			r.env(envelope.KindError, strptr("The agent could not process this request."), true, requestID, sessionID),
		}
	}

	dataMode := product == "dataAgent" && !deepThink

	var startMsg string
	var answer string
	switch {
	case dataMode && wantsChart(query):
		startMsg = "Analyzing the data..."
		answer = chartAnswer
	case dataMode:
		startMsg = "Analyzing the data..."
		answer = plainAnswer
	default:
		startMsg = fmt.Sprintf("Working on: %s", query)
		answer = agentAnswer
	}

	out := []envelope.Envelope{
		r.env(envelope.KindStart, strptr(startMsg), false, requestID, sessionID),
	}

	for _, prefix := range cumulative(answer, 3) {
		out = append(out, r.env(envelope.KindResponse, strptr(prefix), false, requestID, sessionID))
	}
	out = append(out, r.env(envelope.KindResponse, strptr(answer), true, requestID, sessionID))

	return out
}

func (r *Responder) env(kind envelope.Kind, msg *string, finished bool, requestID, sessionID string) envelope.Envelope {
	return envelope.Envelope{
		Kind:      kind,
		RequestID: requestID,
		SessionID: sessionID,
		Message:   msg,
		Finished:  finished,
	}
}

func wantsChart(query string) bool {
	lower := strings.ToLower(query)
	for _, hint := range chartHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// cumulative splits text into n word-boundary prefixes of increasing
// length, excluding the full text itself. Short texts yield fewer prefixes.
func cumulative(text string, n int) []string {
	words := strings.Fields(text)
	if len(words) < 2 || n < 1 {
		return nil
	}

	var prefixes []string
	for i := 1; i <= n; i++ {
		cut := len(words) * i / (n + 1)
		if cut < 1 || cut >= len(words) {
			continue
		}
		prefix := strings.Join(words[:cut], " ")
		if len(prefixes) > 0 && prefixes[len(prefixes)-1] == prefix {
			continue
		}
		prefixes = append(prefixes, prefix)
	}
	return prefixes
}

func strptr(s string) *string {
	return &s
}
