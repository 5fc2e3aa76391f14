package domain

import "context"

// Provider represents any LLM vendor behind the uniform chat contract.
//
// Chat never returns an error for ordinary per-call failures (HTTP errors,
// empty completions, timeouts) — those come back as a response with Error
// populated and StatusCode 500. The returned error is non-nil only for the
// two retryable conditions, *RateLimitError and *APIError, which must
// propagate to the retry layer.
type Provider interface {
	// Chat sends a chat request and returns the unified response.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Name returns the provider identifier.
	Name() string

	// DefaultModel returns the model used when a request names none.
	DefaultModel() string
}

// EmbeddingGenerator creates vector embeddings from text.
type EmbeddingGenerator interface {
	Generate(ctx context.Context, text string) ([]float64, error)
}

// IntentSource reads prompts from the external intent taxonomy.
type IntentSource interface {
	ListIntents(ctx context.Context) ([]IntentPrompt, error)
}

// BrandStore reads and writes the brand bible document.
type BrandStore interface {
	GetBrandBible(ctx context.Context) (*BrandBible, error)
	SaveBrandBible(ctx context.Context, bible *BrandBible) error
}

// AuditStore persists audit runs and their results.
type AuditStore interface {
	CreateAuditRun(ctx context.Context, run *AuditRun) error
	FinishAuditRun(ctx context.Context, run *AuditRun) error
	SaveAuditResult(ctx context.Context, result *AuditResult) error
}

// ReinforcementStore persists reinforcement log rows.
type ReinforcementStore interface {
	SaveReinforcementLog(ctx context.Context, log *ReinforcementLog) error
}

// CostLedger records per-call cost entries. Zero-token calls are never
// recorded.
type CostLedger interface {
	RecordCost(ctx context.Context, record *CostRecord) error
}

// JobLedger tracks job-run records for audit, reinforcement and content
// build invocations.
type JobLedger interface {
	CreateJobRun(ctx context.Context, run *JobRun) error
	FinishJobRun(ctx context.Context, run *JobRun) error
}

// ArtifactStore persists generated content artifacts with their gate
// reports.
type ArtifactStore interface {
	SaveArtifact(ctx context.Context, artifact *ContentArtifact, gateReport []byte) error
}

// Notifier delivers fire-and-forget job-completed events. Implementations
// must never fail the job: delivery errors are logged and swallowed.
type Notifier interface {
	Notify(ctx context.Context, event JobEvent)
}
