package analysis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"cardiobrief/internal/core"
)

// countingGateway serves canned chunk and synthesis responses while counting
// calls. It is safe for concurrent use by the map phase.
type countingGateway struct {
	mu             sync.Mutex
	mapCalls       int
	synthesisCalls int
	failChunks     map[int]bool // map-call ordinal (0-based) -> force failure
	failSynthesis  bool
	chunkResponse  string
}

func (g *countingGateway) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if strings.Contains(systemPrompt, "aggregated questions") || strings.Contains(systemPrompt, "narrative summary") {
		g.synthesisCalls++
		if g.failSynthesis {
			return "", fmt.Errorf("synthesis forced to fail")
		}
		return "The audience mostly worries about statin side effects.", nil
	}

	ordinal := g.mapCalls
	g.mapCalls++
	if g.failChunks[ordinal] {
		return "", fmt.Errorf("chunk %d forced to fail", ordinal)
	}
	if g.chunkResponse != "" {
		return g.chunkResponse, nil
	}
	return `{"questions": [{"text": "Is it safe?", "count": 2}], "pain_points": [{"text": "side effects", "count": 1}]}`, nil
}

func makeComments(n int) []core.Comment {
	comments := make([]core.Comment, n)
	for i := range comments {
		comments[i] = core.Comment{Author: "user", Text: fmt.Sprintf("comment %d", i)}
	}
	return comments
}

func TestAnalyzeCallBudget(t *testing.T) {
	// 120 comments at chunk size 50 is ceil(120/50) = 3 map calls, plus at
	// most one synthesis call.
	gateway := &countingGateway{}
	analyzer := New(gateway, 50, 4, 30, 1500)

	synthesis := analyzer.Analyze(context.Background(), makeComments(120))

	if gateway.mapCalls != 3 {
		t.Errorf("Expected 3 map calls, got %d", gateway.mapCalls)
	}
	if gateway.synthesisCalls > 1 {
		t.Errorf("Expected at most 1 synthesis call, got %d", gateway.synthesisCalls)
	}
	if synthesis.ChunkCount != 3 {
		t.Errorf("Expected chunk count 3, got %d", synthesis.ChunkCount)
	}
	if synthesis.CommentCount != 120 {
		t.Errorf("Expected comment count 120, got %d", synthesis.CommentCount)
	}
}

func TestAnalyzeAggregatesCounts(t *testing.T) {
	gateway := &countingGateway{}
	analyzer := New(gateway, 50, 4, 30, 1500)

	synthesis := analyzer.Analyze(context.Background(), makeComments(150))

	// Three chunks each report ("is it safe?", 2); counts sum regardless
	// of completion order.
	if got := synthesis.Questions["is it safe?"]; got != 6 {
		t.Errorf("Expected question count 6 across 3 chunks, got %d", got)
	}
	if got := synthesis.PainPoints["side effects"]; got != 3 {
		t.Errorf("Expected pain point count 3 across 3 chunks, got %d", got)
	}
	if synthesis.Narrative == "" {
		t.Error("Expected a narrative from the synthesis call")
	}
}

func TestAnalyzeQuickPath(t *testing.T) {
	gateway := &countingGateway{}
	analyzer := New(gateway, 50, 4, 30, 1500)

	synthesis := analyzer.Analyze(context.Background(), makeComments(10))

	if gateway.mapCalls != 1 {
		t.Errorf("Expected a single call on the quick path, got %d", gateway.mapCalls)
	}
	if gateway.synthesisCalls != 0 {
		t.Errorf("Expected no synthesis call on the quick path, got %d", gateway.synthesisCalls)
	}
	if got := synthesis.Questions["is it safe?"]; got != 2 {
		t.Errorf("Expected quick-path counts preserved, got %d", got)
	}
}

func TestAnalyzeFaultIsolation(t *testing.T) {
	// One failing chunk contributes an empty partial; the rest still reduce.
	gateway := &countingGateway{failChunks: map[int]bool{1: true}}
	analyzer := New(gateway, 50, 1, 30, 1500)

	synthesis := analyzer.Analyze(context.Background(), makeComments(150))

	if synthesis.FailedChunks != 1 {
		t.Errorf("Expected 1 failed chunk, got %d", synthesis.FailedChunks)
	}
	if got := synthesis.Questions["is it safe?"]; got != 4 {
		t.Errorf("Expected counts from the 2 surviving chunks, got %d", got)
	}
}

func TestAnalyzeSynthesisFailureDegradesToAggregate(t *testing.T) {
	gateway := &countingGateway{failSynthesis: true}
	analyzer := New(gateway, 50, 4, 30, 1500)

	synthesis := analyzer.Analyze(context.Background(), makeComments(100))

	if synthesis.Narrative != "" {
		t.Errorf("Expected empty narrative on synthesis failure, got %q", synthesis.Narrative)
	}
	if len(synthesis.Questions) == 0 {
		t.Error("Expected raw aggregate preserved when synthesis fails")
	}
}

func TestAnalyzeAllChunksFailing(t *testing.T) {
	gateway := &countingGateway{failChunks: map[int]bool{0: true, 1: true}}
	analyzer := New(gateway, 50, 4, 30, 1500)

	synthesis := analyzer.Analyze(context.Background(), makeComments(100))

	if synthesis.FailedChunks != 2 {
		t.Errorf("Expected 2 failed chunks, got %d", synthesis.FailedChunks)
	}
	if gateway.synthesisCalls != 0 {
		t.Errorf("Expected no synthesis call on an empty aggregate, got %d", gateway.synthesisCalls)
	}
	if len(synthesis.Questions) != 0 || len(synthesis.PainPoints) != 0 {
		t.Error("Expected empty aggregate when every chunk fails")
	}
}

func TestAnalyzeEmptyInput(t *testing.T) {
	gateway := &countingGateway{}
	analyzer := New(gateway, 50, 4, 30, 1500)

	synthesis := analyzer.Analyze(context.Background(), nil)

	if gateway.mapCalls != 0 || gateway.synthesisCalls != 0 {
		t.Errorf("Expected no gateway calls for empty input, got %d map and %d synthesis", gateway.mapCalls, gateway.synthesisCalls)
	}
	if synthesis.CommentCount != 0 || synthesis.ChunkCount != 0 {
		t.Errorf("Expected zero counts, got %+v", synthesis)
	}
}

func TestAnalyzeUnparseableChunkIsEmptyPartial(t *testing.T) {
	gateway := &countingGateway{chunkResponse: "no json in this response"}
	analyzer := New(gateway, 50, 4, 30, 1500)

	synthesis := analyzer.Analyze(context.Background(), makeComments(60))

	if synthesis.FailedChunks != 2 {
		t.Errorf("Expected both unparseable chunks counted as failed, got %d", synthesis.FailedChunks)
	}
}

func TestChunkComments(t *testing.T) {
	chunks := chunkComments(makeComments(105), 50)

	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 50 || len(chunks[1]) != 50 {
		t.Errorf("Expected full chunks of 50, got %d and %d", len(chunks[0]), len(chunks[1]))
	}
	if len(chunks[2]) != 5 {
		t.Errorf("Expected final chunk of 5, got %d", len(chunks[2]))
	}
}

func TestReducePartialsOrderIndependent(t *testing.T) {
	a := core.NewChunkAnalysis()
	a.Questions["q1"] = 2
	b := core.NewChunkAnalysis()
	b.Questions["q1"] = 3
	b.PainPoints["p1"] = 1

	forward := reducePartials([]core.ChunkAnalysis{a, b})
	reversed := reducePartials([]core.ChunkAnalysis{b, a})

	if forward.Questions["q1"] != 5 || reversed.Questions["q1"] != 5 {
		t.Errorf("Expected order-independent sum 5, got %d and %d", forward.Questions["q1"], reversed.Questions["q1"])
	}
	if forward.PainPoints["p1"] != reversed.PainPoints["p1"] {
		t.Error("Expected identical pain point counts regardless of order")
	}
}

func TestParseChunkResponseNormalizesEntries(t *testing.T) {
	analysis, err := parseChunkResponse(`{"questions": [{"text": "  Is It Safe? ", "count": 0}, {"text": "", "count": 5}]}`)
	if err != nil {
		t.Fatalf("Expected parse success, got %v", err)
	}

	if got := analysis.Questions["is it safe?"]; got != 1 {
		t.Errorf("Expected normalized entry with count floored to 1, got %d", got)
	}
	if len(analysis.Questions) != 1 {
		t.Errorf("Expected empty-text entry dropped, got %d entries", len(analysis.Questions))
	}
}
