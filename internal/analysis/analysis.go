// Package analysis extracts audience questions and pain points from large
// comment collections with a two-level map-reduce over the LLM gateway:
// comments are split into prompt-sized chunks analyzed concurrently, then a
// single synthesis call turns the aggregate into a narrative summary.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"cardiobrief/internal/core"
	"cardiobrief/internal/logger"
)

const chunkSystemPrompt = `You analyze audience comments for a cardiology content creator.
Extract the recurring questions and pain points from the comments you are given.
Normalize similar phrasings into one entry and count how many comments support it.

Respond with JSON only, no markdown:
{"questions": [{"text": "...", "count": 3}], "pain_points": [{"text": "...", "count": 2}]}`

const synthesisSystemPrompt = `You are a content strategist for a cardiology personal brand.
You are given aggregated questions and pain points extracted from audience comments.
Write a short narrative summary (3-5 sentences) of what this audience struggles with
and which content topics would serve them best. Respond with plain text only.`

// Gateway is the single LLM operation the analyzer needs.
type Gateway interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// Analyzer runs the chunked map-reduce analysis.
type Analyzer struct {
	gateway        Gateway
	chunkSize      int
	workers        int
	quickThreshold int
	maxTokens      int
}

// New creates an Analyzer. chunkSize bounds how many comments one map call
// sees, workers bounds concurrent in-flight gateway calls, and collections
// at or below quickThreshold skip chunking entirely.
func New(gateway Gateway, chunkSize, workers, quickThreshold, maxTokens int) *Analyzer {
	if chunkSize <= 0 {
		chunkSize = 50
	}
	if workers <= 0 {
		workers = 4
	}
	if quickThreshold <= 0 {
		quickThreshold = 30
	}
	if maxTokens <= 0 {
		maxTokens = 1500
	}
	return &Analyzer{
		gateway:        gateway,
		chunkSize:      chunkSize,
		workers:        workers,
		quickThreshold: quickThreshold,
		maxTokens:      maxTokens,
	}
}

// Analyze runs the full map-reduce over the comment collection. A failed
// chunk contributes an empty partial instead of aborting the run, and a
// failed synthesis call degrades to returning the raw aggregate.
func (a *Analyzer) Analyze(ctx context.Context, comments []core.Comment) core.Synthesis {
	if len(comments) < a.quickThreshold {
		return a.analyzeQuick(ctx, comments)
	}

	chunks := chunkComments(comments, a.chunkSize)
	partials := make([]core.ChunkAnalysis, len(chunks))

	logger.Info("Starting chunked comment analysis",
		"comments", len(comments),
		"chunks", len(chunks),
		"workers", a.workers,
	)

	// Map phase: one gateway call per chunk through a bounded pool. Each
	// worker writes only to its own chunk-index slot, so no lock is needed
	// and completion order cannot affect the aggregate.
	sem := make(chan struct{}, a.workers)
	var wg sync.WaitGroup

	for i, chunk := range chunks {
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int, items []core.Comment) {
			defer wg.Done()
			defer func() { <-sem }()

			partials[idx] = a.analyzeChunk(ctx, idx, items)
		}(i, chunk)
	}

	wg.Wait()

	synthesis := reducePartials(partials)
	synthesis.CommentCount = len(comments)
	synthesis.ChunkCount = len(chunks)

	// Reduce phase: at most one synthesis call on top of the map calls.
	if len(synthesis.Questions) > 0 || len(synthesis.PainPoints) > 0 {
		narrative, err := a.gateway.Complete(ctx, synthesisSystemPrompt, formatAggregate(synthesis), a.maxTokens)
		if err != nil {
			logger.Warn("Synthesis call failed, returning raw aggregate", "reason", err.Error())
		} else {
			synthesis.Narrative = strings.TrimSpace(narrative)
		}
	}

	synthesis.DateGenerated = time.Now().UTC()

	logger.Info("Comment analysis complete",
		"questions", len(synthesis.Questions),
		"pain_points", len(synthesis.PainPoints),
		"failed_chunks", synthesis.FailedChunks,
	)

	return synthesis
}

// analyzeQuick handles small collections with a single gateway call.
func (a *Analyzer) analyzeQuick(ctx context.Context, comments []core.Comment) core.Synthesis {
	synthesis := core.Synthesis{
		Questions:     make(map[string]int),
		PainPoints:    make(map[string]int),
		CommentCount:  len(comments),
		ChunkCount:    1,
		DateGenerated: time.Now().UTC(),
	}
	if len(comments) == 0 {
		synthesis.ChunkCount = 0
		return synthesis
	}

	partial := a.analyzeChunk(ctx, 0, comments)
	if partial.Empty() {
		synthesis.FailedChunks = 1
		return synthesis
	}

	synthesis.Questions = partial.Questions
	synthesis.PainPoints = partial.PainPoints
	return synthesis
}

// analyzeChunk issues one map call and parses its structured partial result.
// Any failure yields an empty partial.
func (a *Analyzer) analyzeChunk(ctx context.Context, idx int, comments []core.Comment) core.ChunkAnalysis {
	response, err := a.gateway.Complete(ctx, chunkSystemPrompt, formatComments(comments), a.maxTokens)
	if err != nil {
		logger.Warn("Chunk analysis call failed", "chunk", idx, "comments", len(comments), "reason", err.Error())
		return core.NewChunkAnalysis()
	}

	partial, err := parseChunkResponse(response)
	if err != nil {
		logger.Warn("Chunk response unparseable", "chunk", idx, "reason", err.Error())
		return core.NewChunkAnalysis()
	}
	return partial
}

// chunkComments partitions comments into fixed-size contiguous groups; the
// last group may be smaller.
func chunkComments(comments []core.Comment, size int) [][]core.Comment {
	var chunks [][]core.Comment
	for start := 0; start < len(comments); start += size {
		end := start + size
		if end > len(comments) {
			end = len(comments)
		}
		chunks = append(chunks, comments[start:end])
	}
	return chunks
}

// reducePartials merges all chunk partials into one synthesis. The merge is
// a keyed count sum, so chunk completion order never changes the result.
func reducePartials(partials []core.ChunkAnalysis) core.Synthesis {
	synthesis := core.Synthesis{
		Questions:  make(map[string]int),
		PainPoints: make(map[string]int),
	}

	for _, partial := range partials {
		if partial.Empty() {
			synthesis.FailedChunks++
			continue
		}
		for text, count := range partial.Questions {
			synthesis.Questions[text] += count
		}
		for text, count := range partial.PainPoints {
			synthesis.PainPoints[text] += count
		}
	}

	return synthesis
}

type chunkEntry struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

type chunkResponse struct {
	Questions  []chunkEntry `json:"questions"`
	PainPoints []chunkEntry `json:"pain_points"`
}

// parseChunkResponse decodes one map call's JSON payload, tolerating
// surrounding prose and markdown fences.
func parseChunkResponse(raw string) (core.ChunkAnalysis, error) {
	obj := firstJSONObject(raw)
	if obj == "" {
		return core.ChunkAnalysis{}, fmt.Errorf("no JSON object in chunk response")
	}

	var parsed chunkResponse
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
		return core.ChunkAnalysis{}, fmt.Errorf("decoding chunk response: %w", err)
	}

	analysis := core.NewChunkAnalysis()
	for _, entry := range parsed.Questions {
		addEntry(analysis.Questions, entry)
	}
	for _, entry := range parsed.PainPoints {
		addEntry(analysis.PainPoints, entry)
	}
	return analysis, nil
}

func addEntry(dest map[string]int, entry chunkEntry) {
	text := strings.TrimSpace(strings.ToLower(entry.Text))
	if text == "" {
		return
	}
	count := entry.Count
	if count < 1 {
		count = 1
	}
	dest[text] += count
}

// firstJSONObject returns the first balanced {...} span in s, or "".
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

// formatComments serializes one chunk's comments for the map prompt.
func formatComments(comments []core.Comment) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Comments (%d):\n\n", len(comments)))
	for i, comment := range comments {
		text := strings.TrimSpace(comment.Text)
		if text == "" {
			continue
		}
		if comment.Likes > 0 {
			b.WriteString(fmt.Sprintf("%d. [%d likes] %s\n", i+1, comment.Likes, text))
		} else {
			b.WriteString(fmt.Sprintf("%d. %s\n", i+1, text))
		}
	}
	return b.String()
}

// formatAggregate serializes the merged counts for the synthesis prompt,
// highest counts first so the model sees the dominant themes up top.
func formatAggregate(s core.Synthesis) string {
	var b strings.Builder
	b.WriteString("Aggregated questions:\n")
	writeSorted(&b, s.Questions)
	b.WriteString("\nAggregated pain points:\n")
	writeSorted(&b, s.PainPoints)
	return b.String()
}

func writeSorted(b *strings.Builder, entries map[string]int) {
	type kv struct {
		text  string
		count int
	}
	sorted := make([]kv, 0, len(entries))
	for text, count := range entries {
		sorted = append(sorted, kv{text, count})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].count != sorted[j].count {
			return sorted[i].count > sorted[j].count
		}
		return sorted[i].text < sorted[j].text
	})
	for _, entry := range sorted {
		b.WriteString(fmt.Sprintf("- (%dx) %s\n", entry.count, entry.text))
	}
}
