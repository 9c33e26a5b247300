// Package generation turns triaged articles into long-form prose, grounding
// each piece on context snippets retrieved from the vector store.
package generation

import (
	"context"
	"fmt"
	"strings"

	"cardiobrief/internal/core"
	"cardiobrief/internal/logger"
	"cardiobrief/internal/vectorstore"
)

const b2cSystemPrompt = `You write patient-facing health content for a cardiologist's personal brand.
Write warm, plain-language prose a worried patient can follow. Explain what the
research found, what it means for everyday life, and what questions to ask a
doctor. Avoid jargon; define any unavoidable term in one clause. 600-900 words.
Write only the piece itself, no meta-commentary.`

const b2bSystemPrompt = `You write clinician-facing content for a cardiologist's professional audience.
Be terse and clinical: study design, endpoints, effect sizes, limitations, and
practice implications. Assume a cardiology readership. 300-500 words.
Write only the piece itself, no meta-commentary.`

// Gateway is the single LLM operation the generation stage needs.
type Gateway interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// Generator produces article content one piece at a time.
type Generator struct {
	gateway         Gateway
	retriever       vectorstore.Retriever
	maxTokens       int
	contextSnippets int
	abstractBudget  int
}

// New creates a Generator. contextSnippets bounds how many retrieved
// snippets reach the prompt.
func New(gateway Gateway, retriever vectorstore.Retriever, maxTokens, contextSnippets, abstractBudget int) *Generator {
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	if contextSnippets <= 0 {
		contextSnippets = 3
	}
	if abstractBudget <= 0 {
		abstractBudget = 2000
	}
	if retriever == nil {
		retriever = vectorstore.Disabled()
	}
	return &Generator{
		gateway:         gateway,
		retriever:       retriever,
		maxTokens:       maxTokens,
		contextSnippets: contextSnippets,
		abstractBudget:  abstractBudget,
	}
}

// Generate produces content for one classified article and stores the
// stripped text on it. Failure leaves GeneratedContent empty and returns
// false; it never aborts a batch.
func (g *Generator) Generate(ctx context.Context, article *core.Article) bool {
	systemPrompt := ""
	switch article.Classification {
	case core.ClassB2C:
		systemPrompt = b2cSystemPrompt
	case core.ClassB2B:
		systemPrompt = b2bSystemPrompt
	default:
		logger.Warn("Skipping generation for unclassified article", "title", article.Title, "classification", article.Classification)
		article.GeneratedContent = ""
		return false
	}

	// Retrieval failures fall back to an empty context list.
	snippets, err := g.retriever.Retrieve(ctx, article.Title, g.contextSnippets)
	if err != nil {
		logger.Warn("Context retrieval failed, generating without context", "title", article.Title, "reason", err.Error())
		snippets = nil
	}

	response, err := g.gateway.Complete(ctx, systemPrompt, g.buildPrompt(article, snippets), g.maxTokens)
	if err != nil {
		logger.Warn("Content generation failed", "title", article.Title, "reason", err.Error())
		article.GeneratedContent = ""
		return false
	}

	article.GeneratedContent = strings.TrimSpace(response)
	return article.GeneratedContent != ""
}

// Tally summarizes a generation batch.
type Tally struct {
	Succeeded int
	Failed    int
}

// GenerateAll iterates all B2C articles then all B2B articles, printing a
// running tally. Individual failures never stop the batch.
func (g *Generator) GenerateAll(ctx context.Context, b2c, b2b []*core.Article) Tally {
	tally := Tally{}
	total := len(b2c) + len(b2b)
	processed := 0

	for _, batch := range [][]*core.Article{b2c, b2b} {
		for _, article := range batch {
			processed++
			ok := g.Generate(ctx, article)
			status := "ok"
			if ok {
				tally.Succeeded++
			} else {
				tally.Failed++
				status = "failed"
			}
			fmt.Printf("[%d/%d] %s %s (%s)\n", processed, total, status, truncateTitle(article.Title, 60), article.Classification)
		}
	}

	logger.Info("Generation batch complete", "total", total, "succeeded", tally.Succeeded, "failed", tally.Failed)
	return tally
}

// buildPrompt assembles the per-article user prompt from retrieved context,
// the truncated abstract and the triage angle.
func (g *Generator) buildPrompt(article *core.Article, snippets []vectorstore.Snippet) string {
	abstract := article.Abstract
	if len(abstract) > g.abstractBudget {
		abstract = abstract[:g.abstractBudget] + "..."
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Article: %s\n", article.Title))
	b.WriteString(fmt.Sprintf("Journal: %s\n", article.Journal))
	if abstract != "" {
		b.WriteString(fmt.Sprintf("Abstract: %s\n", abstract))
	}
	if article.Angle != "" {
		b.WriteString(fmt.Sprintf("Target angle: %s\n", article.Angle))
	}

	if len(snippets) > 0 {
		b.WriteString("\nBackground context from prior coverage:\n")
		for i, snippet := range snippets {
			if i >= g.contextSnippets {
				break
			}
			b.WriteString(fmt.Sprintf("- %s\n", snippet.Text))
		}
	}

	return b.String()
}

func truncateTitle(title string, max int) string {
	if len(title) <= max {
		return title
	}
	return title[:max] + "..."
}
