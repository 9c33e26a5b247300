// Package triage classifies journal articles into patient-facing (B2C),
// clinician-facing (B2B) or SKIP buckets using a single LLM call per article.
package triage

import (
	"context"
	"fmt"
	"strings"

	"cardiobrief/internal/core"
	"cardiobrief/internal/llm"
	"cardiobrief/internal/logger"
)

const triageSystemPrompt = `You are a content strategist for a cardiology personal brand.
You triage new journal articles into exactly one of three buckets:
- B2C: strong hook for a patient-facing piece (plain-language explainer, lifestyle relevance)
- B2B: relevant for a clinician-facing piece (practice-changing data, guideline implications)
- SKIP: too niche, too preliminary, or off-brand

Respond with JSON only, no markdown:
{"classification": "B2C", "confidence": 7, "reasoning": "one sentence", "angle": "one-line content angle"}

Confidence is an integer from 1 (guess) to 10 (certain).`

// Gateway is the single LLM operation the triage stage needs.
type Gateway interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// Buckets holds the routed output of a triage batch.
type Buckets struct {
	B2C  []*core.Article
	B2B  []*core.Article
	Skip []*core.Article
}

// Triager classifies articles one at a time.
type Triager struct {
	gateway        Gateway
	maxTokens      int
	abstractBudget int
}

// New creates a Triager. abstractBudget bounds how many abstract characters
// reach the prompt so prompt size cannot grow with feed verbosity.
func New(gateway Gateway, maxTokens, abstractBudget int) *Triager {
	if maxTokens <= 0 {
		maxTokens = 500
	}
	if abstractBudget <= 0 {
		abstractBudget = 2000
	}
	return &Triager{
		gateway:        gateway,
		maxTokens:      maxTokens,
		abstractBudget: abstractBudget,
	}
}

// Triage classifies one article and writes the four result fields onto it.
// A gateway or parse failure is not an error at this level: the parser's
// fallback ladder always yields a well-formed result.
func (t *Triager) Triage(ctx context.Context, article *core.Article) core.TriageResult {
	prompt := t.buildPrompt(article)

	response, err := t.gateway.Complete(ctx, triageSystemPrompt, prompt, t.maxTokens)
	if err != nil {
		logger.Warn("Triage completion failed, parsing empty response", "title", article.Title, "reason", err.Error())
		response = ""
	}

	result := llm.ParseTriage(response)
	article.Classification = result.Classification
	article.Confidence = result.Confidence
	article.Reasoning = result.Reasoning
	article.Angle = result.Angle
	return result
}

// TriageAll classifies each article sequentially and routes it into the
// bucket matching its classification, demoting any result below
// minConfidence to Skip regardless of the raw classification. Batches are
// small and the remote LLM is the bottleneck, so there is no concurrency.
func (t *Triager) TriageAll(ctx context.Context, articles []*core.Article, minConfidence int) Buckets {
	buckets := Buckets{}

	for i, article := range articles {
		result := t.Triage(ctx, article)

		routed := result.Classification
		if result.Confidence < minConfidence {
			routed = core.ClassSkip
		}

		switch routed {
		case core.ClassB2C:
			buckets.B2C = append(buckets.B2C, article)
		case core.ClassB2B:
			buckets.B2B = append(buckets.B2B, article)
		default:
			buckets.Skip = append(buckets.Skip, article)
		}

		fmt.Printf("[%d/%d] %s -> %s (confidence %d)\n", i+1, len(articles), truncateTitle(article.Title, 60), routed, result.Confidence)
	}

	logger.Info("Triage batch complete",
		"total", len(articles),
		"b2c", len(buckets.B2C),
		"b2b", len(buckets.B2B),
		"skip", len(buckets.Skip),
	)

	return buckets
}

// buildPrompt assembles the per-article user prompt from title, journal and
// the truncated abstract.
func (t *Triager) buildPrompt(article *core.Article) string {
	abstract := article.Abstract
	if len(abstract) > t.abstractBudget {
		abstract = abstract[:t.abstractBudget] + "..."
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Title: %s\n", article.Title))
	b.WriteString(fmt.Sprintf("Journal: %s\n", article.Journal))
	if len(article.Authors) > 0 {
		b.WriteString(fmt.Sprintf("Authors: %s\n", strings.Join(article.Authors, ", ")))
	}
	if abstract != "" {
		b.WriteString(fmt.Sprintf("Abstract: %s\n", abstract))
	} else {
		b.WriteString("Abstract: (not available)\n")
	}
	return b.String()
}

func truncateTitle(title string, max int) string {
	if len(title) <= max {
		return title
	}
	return title[:max] + "..."
}
