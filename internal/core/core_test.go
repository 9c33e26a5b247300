package core

import "testing"

func TestArticleTriaged(t *testing.T) {
	article := &Article{Title: "untouched"}
	if article.Triaged() {
		t.Error("Expected new article not to be triaged")
	}

	article.Classification = ClassSkip
	if !article.Triaged() {
		t.Error("Expected SKIP article to count as triaged")
	}
}

func TestChunkAnalysisEmpty(t *testing.T) {
	analysis := NewChunkAnalysis()
	if !analysis.Empty() {
		t.Error("Expected fresh analysis to be empty")
	}

	analysis.Questions["is this safe?"] = 2
	if analysis.Empty() {
		t.Error("Expected analysis with a question not to be empty")
	}

	painOnly := NewChunkAnalysis()
	painOnly.PainPoints["cost of medication"] = 1
	if painOnly.Empty() {
		t.Error("Expected analysis with a pain point not to be empty")
	}
}
