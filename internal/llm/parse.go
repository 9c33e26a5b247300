package llm

import (
	"encoding/json"
	"strings"

	"cardiobrief/internal/core"
)

// failedParseReasoning is recorded when no usable signal is found at all.
const failedParseReasoning = "Failed to parse AI response"

// rawTriage mirrors the JSON object the triage prompt asks the model for.
// Confidence is decoded as a float so "7.0" style values still parse.
type rawTriage struct {
	Classification string   `json:"classification"`
	Confidence     *float64 `json:"confidence"`
	Reasoning      string   `json:"reasoning"`
	Angle          string   `json:"angle"`
}

// ParseTriage extracts a triage result from free-form model output. It is a
// pure function and never fails: the fallback ladder runs JSON extraction,
// then a case-insensitive keyword scan ("B2C" before "B2B" -- kept from the
// original check ordering), then a default SKIP result with confidence 1.
func ParseTriage(raw string) core.TriageResult {
	if obj := firstJSONObject(raw); obj != "" {
		var parsed rawTriage
		if err := json.Unmarshal([]byte(obj), &parsed); err == nil {
			return normalizeTriage(parsed)
		}
	}

	upper := strings.ToUpper(raw)
	if strings.Contains(upper, core.ClassB2C) {
		return core.TriageResult{Classification: core.ClassB2C, Confidence: 5, Reasoning: "Parsed from keyword fallback"}
	}
	if strings.Contains(upper, core.ClassB2B) {
		return core.TriageResult{Classification: core.ClassB2B, Confidence: 5, Reasoning: "Parsed from keyword fallback"}
	}

	return core.TriageResult{Classification: core.ClassSkip, Confidence: 1, Reasoning: failedParseReasoning}
}

// firstJSONObject returns the first balanced {...} span in s, or "" when
// none exists. Triage responses carry a flat object, so brace counting is
// sufficient; string escapes are not tracked.
func firstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// normalizeTriage coerces a decoded object into a well-formed result:
// classification is uppercased and anything outside the known set becomes
// SKIP; confidence is clamped to [1, 10] and defaults to 5 when absent.
func normalizeTriage(parsed rawTriage) core.TriageResult {
	classification := strings.ToUpper(strings.TrimSpace(parsed.Classification))
	switch classification {
	case core.ClassB2C, core.ClassB2B, core.ClassSkip:
	default:
		classification = core.ClassSkip
	}

	confidence := 5
	if parsed.Confidence != nil {
		confidence = int(*parsed.Confidence)
	}
	if confidence < 1 {
		confidence = 1
	}
	if confidence > 10 {
		confidence = 10
	}

	return core.TriageResult{
		Classification: classification,
		Confidence:     confidence,
		Reasoning:      strings.TrimSpace(parsed.Reasoning),
		Angle:          strings.TrimSpace(parsed.Angle),
	}
}
