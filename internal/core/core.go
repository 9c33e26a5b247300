package core

import "time"

// Classification values assigned by the triage stage.
const (
	ClassB2C  = "B2C"  // patient-facing content
	ClassB2B  = "B2B"  // clinician-facing content
	ClassSkip = "SKIP" // not worth acting on
)

// Article represents a journal article flowing through the pipeline.
// It is enriched in place as it passes each stage; fields are added,
// never removed.
type Article struct {
	ID               string    `json:"id"`                // Unique identifier for the article
	Title            string    `json:"title"`             // Article title
	Abstract         string    `json:"abstract"`          // Abstract text (may be empty)
	Journal          string    `json:"journal"`           // Source journal name
	Authors          []string  `json:"authors"`           // Author list
	URL              string    `json:"url"`               // Canonical URL
	DOI              string    `json:"doi"`               // DOI if known
	Published        time.Time `json:"published"`         // Publication date
	Tier             int       `json:"tier"`              // Source-feed weight (1 = top tier)
	DateFetched      time.Time `json:"date_fetched"`      // When the article was fetched
	Classification   string    `json:"classification"`    // B2C, B2B or SKIP once triaged
	Confidence       int       `json:"confidence"`        // Triage confidence (1-10)
	Reasoning        string    `json:"reasoning"`         // Triage reasoning
	Angle            string    `json:"angle"`             // Suggested content angle
	GeneratedContent string    `json:"generated_content"` // Long-form text; empty means generation failed
}

// Triaged reports whether the article already carries a triage result.
func (a *Article) Triaged() bool {
	return a.Classification != ""
}

// TriageResult is the parsed outcome of one triage LLM call.
type TriageResult struct {
	Classification string `json:"classification"` // B2C, B2B or SKIP
	Confidence     int    `json:"confidence"`     // 1-10
	Reasoning      string `json:"reasoning"`      // Free text
	Angle          string `json:"angle"`          // Free text
}

// Comment is a single audience comment fed to the chunked analyzer.
type Comment struct {
	Author string `json:"author"`
	Text   string `json:"text"`
	Likes  int    `json:"likes"`
}

// ChunkAnalysis holds the partial result extracted from one comment chunk.
// It is owned by the analyzer until reduced into a Synthesis.
type ChunkAnalysis struct {
	Questions  map[string]int `json:"questions"`   // normalized question -> occurrence count
	PainPoints map[string]int `json:"pain_points"` // normalized pain point -> occurrence count
}

// NewChunkAnalysis returns an empty, ready-to-fill chunk analysis.
func NewChunkAnalysis() ChunkAnalysis {
	return ChunkAnalysis{
		Questions:  make(map[string]int),
		PainPoints: make(map[string]int),
	}
}

// Empty reports whether the chunk produced nothing usable.
func (c ChunkAnalysis) Empty() bool {
	return len(c.Questions) == 0 && len(c.PainPoints) == 0
}

// Synthesis is the reduced result of a full comment analysis run.
type Synthesis struct {
	Questions     map[string]int `json:"questions"`      // aggregated across all chunks
	PainPoints    map[string]int `json:"pain_points"`    // aggregated across all chunks
	Narrative     string         `json:"narrative"`      // LLM summary; empty when synthesis was skipped or failed
	CommentCount  int            `json:"comment_count"`  // total comments analyzed
	ChunkCount    int            `json:"chunk_count"`    // chunks dispatched in the map phase
	FailedChunks  int            `json:"failed_chunks"`  // chunks that contributed nothing
	DateGenerated time.Time      `json:"date_generated"` // when the analysis completed
}

// Digest represents one rendered HTML digest.
type Digest struct {
	ID            string    `json:"id"`
	Subject       string    `json:"subject"`
	HTML          string    `json:"html"`
	ArticleURLs   []string  `json:"article_urls"`
	DateGenerated time.Time `json:"date_generated"`
}
