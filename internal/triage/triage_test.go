package triage

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"cardiobrief/internal/core"
)

// scriptedGateway returns canned responses keyed by article title substring.
type scriptedGateway struct {
	responses map[string]string
	calls     int
	prompts   []string
}

func (g *scriptedGateway) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	g.calls++
	g.prompts = append(g.prompts, userPrompt)
	for key, response := range g.responses {
		if strings.Contains(userPrompt, key) {
			return response, nil
		}
	}
	return "", fmt.Errorf("no scripted response")
}

func triageResponse(classification string, confidence int) string {
	return fmt.Sprintf(`{"classification": %q, "confidence": %d, "reasoning": "r", "angle": "a"}`, classification, confidence)
}

func TestTriageWritesResultFields(t *testing.T) {
	gateway := &scriptedGateway{responses: map[string]string{
		"Statin adherence": triageResponse("B2C", 8),
	}}
	triager := New(gateway, 500, 2000)

	article := &core.Article{Title: "Statin adherence study", Journal: "Circulation"}
	result := triager.Triage(context.Background(), article)

	if result.Classification != core.ClassB2C {
		t.Errorf("Expected classification B2C, got %s", result.Classification)
	}
	if article.Classification != core.ClassB2C {
		t.Errorf("Expected article classification B2C, got %s", article.Classification)
	}
	if article.Confidence != 8 {
		t.Errorf("Expected article confidence 8, got %d", article.Confidence)
	}
	if article.Reasoning != "r" || article.Angle != "a" {
		t.Errorf("Expected reasoning and angle written, got %q and %q", article.Reasoning, article.Angle)
	}
}

func TestTriageGatewayFailureYieldsSkip(t *testing.T) {
	gateway := &scriptedGateway{responses: map[string]string{}}
	triager := New(gateway, 500, 2000)

	article := &core.Article{Title: "Anything", Journal: "JACC"}
	result := triager.Triage(context.Background(), article)

	if result.Classification != core.ClassSkip {
		t.Errorf("Expected SKIP on gateway failure, got %s", result.Classification)
	}
	if result.Confidence != 1 {
		t.Errorf("Expected confidence 1 on gateway failure, got %d", result.Confidence)
	}
}

func TestTriagePromptTruncatesAbstract(t *testing.T) {
	gateway := &scriptedGateway{responses: map[string]string{}}
	triager := New(gateway, 500, 100)

	article := &core.Article{
		Title:    "Long abstract",
		Journal:  "Heart",
		Abstract: strings.Repeat("x", 500),
	}
	triager.Triage(context.Background(), article)

	if len(gateway.prompts) != 1 {
		t.Fatalf("Expected one prompt, got %d", len(gateway.prompts))
	}
	if strings.Contains(gateway.prompts[0], strings.Repeat("x", 101)) {
		t.Error("Expected abstract truncated to the configured budget")
	}
	if !strings.Contains(gateway.prompts[0], strings.Repeat("x", 100)+"...") {
		t.Error("Expected truncated abstract with ellipsis in prompt")
	}
}

func TestTriageAllConfidenceGate(t *testing.T) {
	// Three articles with raw results (B2C,8), (B2B,3), (SKIP,1) and
	// min_confidence 5: only the first survives its bucket.
	gateway := &scriptedGateway{responses: map[string]string{
		"first":  triageResponse("B2C", 8),
		"second": triageResponse("B2B", 3),
		"third":  triageResponse("SKIP", 1),
	}}
	triager := New(gateway, 500, 2000)

	articles := []*core.Article{
		{Title: "first article", Journal: "Circulation"},
		{Title: "second article", Journal: "JACC"},
		{Title: "third article", Journal: "Heart"},
	}

	buckets := triager.TriageAll(context.Background(), articles, 5)

	if len(buckets.B2C) != 1 || buckets.B2C[0] != articles[0] {
		t.Errorf("Expected b2c=[first article], got %d entries", len(buckets.B2C))
	}
	if len(buckets.B2B) != 0 {
		t.Errorf("Expected empty b2b bucket, got %d entries", len(buckets.B2B))
	}
	if len(buckets.Skip) != 2 {
		t.Fatalf("Expected 2 skipped articles, got %d", len(buckets.Skip))
	}
	if buckets.Skip[0] != articles[1] || buckets.Skip[1] != articles[2] {
		t.Error("Expected second and third articles routed to skip")
	}
}

func TestTriageAllLowConfidenceKeepsRawClassificationOnArticle(t *testing.T) {
	// The gate only affects routing; the article keeps its raw result.
	gateway := &scriptedGateway{responses: map[string]string{
		"borderline": triageResponse("B2B", 3),
	}}
	triager := New(gateway, 500, 2000)

	articles := []*core.Article{{Title: "borderline call", Journal: "JACC"}}
	buckets := triager.TriageAll(context.Background(), articles, 5)

	if len(buckets.Skip) != 1 {
		t.Fatalf("Expected article demoted to skip, got %d skip entries", len(buckets.Skip))
	}
	if articles[0].Classification != core.ClassB2B {
		t.Errorf("Expected raw classification B2B preserved on article, got %s", articles[0].Classification)
	}
}

func TestTriageAllOneCallPerArticle(t *testing.T) {
	gateway := &scriptedGateway{responses: map[string]string{}}
	triager := New(gateway, 500, 2000)

	articles := []*core.Article{
		{Title: "a", Journal: "j"},
		{Title: "b", Journal: "j"},
		{Title: "c", Journal: "j"},
	}
	triager.TriageAll(context.Background(), articles, 5)

	if gateway.calls != 3 {
		t.Errorf("Expected exactly one gateway call per article, got %d calls", gateway.calls)
	}
}
