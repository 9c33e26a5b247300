package llm

import (
	"testing"

	"cardiobrief/internal/core"
)

func TestParseTriageValidJSON(t *testing.T) {
	raw := `Here is my assessment:
{"classification": "B2C", "confidence": 8, "reasoning": "strong lifestyle hook", "angle": "statins and daily life"}`

	result := ParseTriage(raw)

	if result.Classification != core.ClassB2C {
		t.Errorf("Expected classification B2C, got %s", result.Classification)
	}
	if result.Confidence != 8 {
		t.Errorf("Expected confidence 8, got %d", result.Confidence)
	}
	if result.Reasoning != "strong lifestyle hook" {
		t.Errorf("Expected reasoning to be preserved, got %q", result.Reasoning)
	}
	if result.Angle != "statins and daily life" {
		t.Errorf("Expected angle to be preserved, got %q", result.Angle)
	}
}

func TestParseTriageLowercaseClassification(t *testing.T) {
	result := ParseTriage(`{"classification": "b2b", "confidence": 6}`)

	if result.Classification != core.ClassB2B {
		t.Errorf("Expected classification normalized to B2B, got %s", result.Classification)
	}
}

func TestParseTriageUnknownClassificationCoercedToSkip(t *testing.T) {
	result := ParseTriage(`{"classification": "VIRAL", "confidence": 9}`)

	if result.Classification != core.ClassSkip {
		t.Errorf("Expected unknown classification coerced to SKIP, got %s", result.Classification)
	}
}

func TestParseTriageConfidenceClamping(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected int
	}{
		{"above range", `{"classification": "B2C", "confidence": 42}`, 10},
		{"below range", `{"classification": "B2C", "confidence": 0}`, 1},
		{"negative", `{"classification": "B2C", "confidence": -3}`, 1},
		{"missing defaults to 5", `{"classification": "B2C"}`, 5},
		{"float value", `{"classification": "B2C", "confidence": 7.0}`, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseTriage(tt.raw)
			if result.Confidence != tt.expected {
				t.Errorf("Expected confidence %d, got %d", tt.expected, result.Confidence)
			}
		})
	}
}

func TestParseTriageNestedBraces(t *testing.T) {
	raw := `{"classification": "B2B", "confidence": 7, "reasoning": "see {bracketed} detail"}`

	result := ParseTriage(raw)

	if result.Classification != core.ClassB2B {
		t.Errorf("Expected classification B2B, got %s", result.Classification)
	}
}

func TestParseTriageKeywordFallback(t *testing.T) {
	result := ParseTriage("This looks like a b2c opportunity to me, no JSON though")

	if result.Classification != core.ClassB2C {
		t.Errorf("Expected keyword fallback to B2C, got %s", result.Classification)
	}
	if result.Confidence != 5 {
		t.Errorf("Expected fallback confidence 5, got %d", result.Confidence)
	}
}

func TestParseTriageKeywordPriority(t *testing.T) {
	// B2C is checked before B2B when both appear, matching the original
	// check ordering.
	result := ParseTriage("could be B2B or B2C honestly")

	if result.Classification != core.ClassB2C {
		t.Errorf("Expected B2C to win when both keywords appear, got %s", result.Classification)
	}
}

func TestParseTriageTotalFailure(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty string", ""},
		{"no signal at all", "I am not sure what to say about this article."},
		{"broken JSON no keywords", `{"classification": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseTriage(tt.raw)
			if result.Classification != core.ClassSkip {
				t.Errorf("Expected classification SKIP, got %s", result.Classification)
			}
			if result.Confidence != 1 {
				t.Errorf("Expected confidence 1, got %d", result.Confidence)
			}
			if result.Reasoning != "Failed to parse AI response" {
				t.Errorf("Expected failure reasoning, got %q", result.Reasoning)
			}
		})
	}
}

func TestParseTriageInvalidJSONFallsThroughToKeywords(t *testing.T) {
	// The brace span is not valid JSON, so the keyword scan still runs.
	result := ParseTriage(`{not json} but B2B is mentioned`)

	if result.Classification != core.ClassB2B {
		t.Errorf("Expected keyword fallback to B2B, got %s", result.Classification)
	}
}

func TestParseTriageIdempotent(t *testing.T) {
	raw := `{"classification": "B2C", "confidence": 8, "reasoning": "x", "angle": "y"}`

	first := ParseTriage(raw)
	second := ParseTriage(raw)

	if first != second {
		t.Errorf("Expected identical results on identical input, got %+v and %+v", first, second)
	}
}

func TestFirstJSONObject(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain object", `{"a": 1}`, `{"a": 1}`},
		{"prose around object", `text {"a": 1} more`, `{"a": 1}`},
		{"nested object", `{"a": {"b": 2}}`, `{"a": {"b": 2}}`},
		{"no object", "nothing here", ""},
		{"unbalanced", `{"a": 1`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := firstJSONObject(tt.input); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}
