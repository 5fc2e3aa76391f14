package domain

import (
	"math"
	"strings"
	"time"
)

// Message represents a single role-tagged chat message.
type Message struct {
	Role    string `json:"role"` // user, assistant, system
	Content string `json:"content"`
}

// ChatRequest represents a unified request to any LLM vendor.
// It is an immutable value: callers build one per call and never reuse it
// across providers with different defaults filled in.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []Message     `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	TopP        float64       `json:"top_p,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Timeout     time.Duration `json:"-"`
}

// ChatResponse represents a unified response from any LLM vendor.
// Either Text is populated and Error is empty, or the other way around.
type ChatResponse struct {
	Provider   string        `json:"provider"`
	Model      string        `json:"model"`
	Text       string        `json:"text"`
	TokensIn   int           `json:"tokens_in"`
	TokensOut  int           `json:"tokens_out"`
	StatusCode int           `json:"status_code"`
	Latency    time.Duration `json:"latency"`
	Error      string        `json:"error,omitempty"`
}

// Failed reports whether the response carries a call-level error.
func (r *ChatResponse) Failed() bool {
	return r.Error != ""
}

// IntentPrompt is one question from the external intent taxonomy.
// Read-only to this codebase.
type IntentPrompt struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	IntentClass string `json:"intent_class"`
}

// AuditRun tracks one provider audit invocation.
type AuditRun struct {
	ID          string
	Provider    string
	Successful  int
	Failed      int
	StartedAt   time.Time
	CompletedAt time.Time
}

// AuditResult is one row per (prompt, provider) execution. Created once per
// successful call and never mutated.
type AuditResult struct {
	ID          string
	RunID       string
	Provider    string
	Model       string
	PromptID    string
	PromptText  string
	IntentClass string
	Response    string
	Mentioned   bool
	// Rank is the 1-based list position of the first brand mention, valid
	// only when HasRank is true. A rank is never reported without a mention.
	Rank       int
	HasRank    bool
	Similarity float64
	TokensIn   int
	TokensOut  int
	LatencyMs  int64
	CreatedAt  time.Time
}

// ReinforcementLog is one row per synthetic-prompt execution. Append-only.
type ReinforcementLog struct {
	ID            string
	Provider      string
	Model         string
	Prompt        string
	Response      string
	Mentioned     bool
	Similarity    float64
	ForbiddenHits []string
	Drift         bool
	TokensIn      int
	TokensOut     int
	CreatedAt     time.Time
}

// CostRecord is one ledger entry per LLM call with nonzero token usage.
type CostRecord struct {
	ID        string
	Provider  string
	Model     string
	Operation string // audit, reinforcement, content
	TokensIn  int
	TokensOut int
	CostUSD   float64
	CreatedAt time.Time
}

// JobRun is one row in the job-run ledger.
type JobRun struct {
	ID              string
	JobType         string // audit, reinforcement, content
	Status          string // running, success, failed
	TriggeredBy     string
	StartedAt       time.Time
	CompletedAt     time.Time
	DurationSeconds float64
	ErrorMessage    string
}

// Job run statuses.
const (
	JobStatusRunning = "running"
	JobStatusSuccess = "success"
	JobStatusFailed  = "failed"
)

// Job types. Exactly three: each is a fixed pipeline, not a composable DAG.
const (
	JobTypeAudit         = "audit"
	JobTypeReinforcement = "reinforcement"
	JobTypeContent       = "content"
)

// ContentArtifact is one generated structured-content artifact together
// with its rendered text form.
type ContentArtifact struct {
	ID        string
	Kind      string // organization, software-application, faq-page, blog-posting, ...
	Data      map[string]any
	Text      string
	CreatedAt time.Time
}

// JobEvent is the fire-and-forget payload sent to the notification sink
// when a job completes.
type JobEvent struct {
	Name     string         `json:"name"`
	Success  bool           `json:"success"`
	Duration time.Duration  `json:"duration"`
	Summary  map[string]any `json:"summary,omitempty"`
}

const tokenEstimateFactor = 1.3

// EstimateTokens approximates a token count as round(words * 1.3).
// It is a documented fallback for vendors that do not report usage, not
// ground truth.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	return int(math.Round(float64(words) * tokenEstimateFactor))
}
