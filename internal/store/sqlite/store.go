package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/echorank/echorank/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS intent_prompts (
	id           TEXT PRIMARY KEY,
	text         TEXT NOT NULL,
	intent_class TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS brand_bible (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	document   TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_runs (
	id           TEXT PRIMARY KEY,
	provider     TEXT NOT NULL,
	successful   INTEGER NOT NULL DEFAULT 0,
	failed       INTEGER NOT NULL DEFAULT 0,
	started_at   TEXT NOT NULL,
	completed_at TEXT
);

CREATE TABLE IF NOT EXISTS audit_results (
	id           TEXT PRIMARY KEY,
	run_id       TEXT NOT NULL REFERENCES audit_runs(id),
	provider     TEXT NOT NULL,
	model        TEXT NOT NULL,
	prompt_id    TEXT NOT NULL,
	prompt_text  TEXT NOT NULL,
	intent_class TEXT NOT NULL,
	response     TEXT NOT NULL,
	mentioned    INTEGER NOT NULL,
	rank         INTEGER,
	similarity   REAL NOT NULL,
	tokens_in    INTEGER NOT NULL,
	tokens_out   INTEGER NOT NULL,
	latency_ms   INTEGER NOT NULL,
	created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS reinforcement_logs (
	id             TEXT PRIMARY KEY,
	provider       TEXT NOT NULL,
	model          TEXT NOT NULL,
	prompt         TEXT NOT NULL,
	response       TEXT NOT NULL,
	mentioned      INTEGER NOT NULL,
	similarity     REAL NOT NULL,
	forbidden_hits TEXT NOT NULL,
	drift          INTEGER NOT NULL,
	tokens_in      INTEGER NOT NULL,
	tokens_out     INTEGER NOT NULL,
	created_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cost_records (
	id         TEXT PRIMARY KEY,
	provider   TEXT NOT NULL,
	model      TEXT NOT NULL,
	operation  TEXT NOT NULL,
	tokens_in  INTEGER NOT NULL,
	tokens_out INTEGER NOT NULL,
	cost_usd   REAL NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS job_runs (
	id               TEXT PRIMARY KEY,
	job_type         TEXT NOT NULL,
	status           TEXT NOT NULL,
	triggered_by     TEXT NOT NULL,
	started_at       TEXT NOT NULL,
	completed_at     TEXT,
	duration_seconds REAL NOT NULL DEFAULT 0,
	error_message    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS content_artifacts (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	data        TEXT NOT NULL,
	text        TEXT NOT NULL,
	gate_report TEXT NOT NULL,
	created_at  TEXT NOT NULL
);
`

// Store implements the persistence interfaces over SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a store and applies the schema.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// ListIntents returns all prompts from the intent taxonomy.
func (s *Store) ListIntents(ctx context.Context) ([]domain.IntentPrompt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, intent_class FROM intent_prompts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list intents: %w", err)
	}
	defer rows.Close()

	var intents []domain.IntentPrompt
	for rows.Next() {
		var p domain.IntentPrompt
		if err := rows.Scan(&p.ID, &p.Text, &p.IntentClass); err != nil {
			return nil, fmt.Errorf("sqlite: scan intent: %w", err)
		}
		intents = append(intents, p)
	}

	return intents, rows.Err()
}

// SeedIntents inserts prompts that are not already present.
func (s *Store) SeedIntents(ctx context.Context, prompts []domain.IntentPrompt) error {
	for _, p := range prompts {
		_, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO intent_prompts (id, text, intent_class) VALUES (?, ?, ?)`,
			p.ID, p.Text, p.IntentClass)
		if err != nil {
			return fmt.Errorf("sqlite: seed intent %s: %w", p.ID, err)
		}
	}
	return nil
}

// GetBrandBible returns the stored brand bible document.
func (s *Store) GetBrandBible(ctx context.Context) (*domain.BrandBible, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM brand_bible WHERE id = 1`).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.New("brand bible not configured")
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get brand bible: %w", err)
	}

	var bible domain.BrandBible
	if err := json.Unmarshal([]byte(doc), &bible); err != nil {
		return nil, fmt.Errorf("sqlite: decode brand bible: %w", err)
	}

	return &bible, nil
}

// SaveBrandBible upserts the single brand bible row.
func (s *Store) SaveBrandBible(ctx context.Context, bible *domain.BrandBible) error {
	doc, err := json.Marshal(bible)
	if err != nil {
		return fmt.Errorf("sqlite: encode brand bible: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO brand_bible (id, document, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		string(doc), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("sqlite: save brand bible: %w", err)
	}

	return nil
}

// CreateAuditRun inserts a new audit run row.
func (s *Store) CreateAuditRun(ctx context.Context, run *domain.AuditRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_runs (id, provider, started_at) VALUES (?, ?, ?)`,
		run.ID, run.Provider, run.StartedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("sqlite: create audit run: %w", err)
	}
	return nil
}

// FinishAuditRun records completion time and tallies.
func (s *Store) FinishAuditRun(ctx context.Context, run *domain.AuditRun) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE audit_runs SET successful = ?, failed = ?, completed_at = ? WHERE id = ?`,
		run.Successful, run.Failed,
		run.CompletedAt.UTC().Format(time.RFC3339), run.ID)
	if err != nil {
		return fmt.Errorf("sqlite: finish audit run: %w", err)
	}
	return nil
}

// SaveAuditResult inserts one audit result row.
func (s *Store) SaveAuditResult(ctx context.Context, r *domain.AuditResult) error {
	var rank any
	if r.HasRank {
		rank = r.Rank
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_results
			(id, run_id, provider, model, prompt_id, prompt_text, intent_class,
			 response, mentioned, rank, similarity, tokens_in, tokens_out,
			 latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.RunID, r.Provider, r.Model, r.PromptID, r.PromptText,
		r.IntentClass, r.Response, r.Mentioned, rank, r.Similarity,
		r.TokensIn, r.TokensOut, r.LatencyMs,
		r.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("sqlite: save audit result: %w", err)
	}
	return nil
}

// SaveReinforcementLog appends one reinforcement log row.
func (s *Store) SaveReinforcementLog(ctx context.Context, l *domain.ReinforcementLog) error {
	hits, err := json.Marshal(l.ForbiddenHits)
	if err != nil {
		return fmt.Errorf("sqlite: encode forbidden hits: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reinforcement_logs
			(id, provider, model, prompt, response, mentioned, similarity,
			 forbidden_hits, drift, tokens_in, tokens_out, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Provider, l.Model, l.Prompt, l.Response, l.Mentioned,
		l.Similarity, string(hits), l.Drift, l.TokensIn, l.TokensOut,
		l.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("sqlite: save reinforcement log: %w", err)
	}
	return nil
}

// RecordCost appends one cost ledger entry.
func (s *Store) RecordCost(ctx context.Context, r *domain.CostRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cost_records
			(id, provider, model, operation, tokens_in, tokens_out, cost_usd, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Provider, r.Model, r.Operation, r.TokensIn, r.TokensOut,
		r.CostUSD, r.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("sqlite: record cost: %w", err)
	}
	return nil
}

// CreateJobRun inserts a new job-run ledger row.
func (s *Store) CreateJobRun(ctx context.Context, run *domain.JobRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_runs (id, job_type, status, triggered_by, started_at)
		VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.JobType, run.Status, run.TriggeredBy,
		run.StartedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("sqlite: create job run: %w", err)
	}
	return nil
}

// FinishJobRun updates status, timing and error text on a job-run row.
func (s *Store) FinishJobRun(ctx context.Context, run *domain.JobRun) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE job_runs
		SET status = ?, completed_at = ?, duration_seconds = ?, error_message = ?
		WHERE id = ?`,
		run.Status, run.CompletedAt.UTC().Format(time.RFC3339),
		run.DurationSeconds, run.ErrorMessage, run.ID)
	if err != nil {
		return fmt.Errorf("sqlite: finish job run: %w", err)
	}
	return nil
}

// SaveArtifact persists a generated content artifact with its gate report.
func (s *Store) SaveArtifact(ctx context.Context, a *domain.ContentArtifact, gateReport []byte) error {
	data, err := json.Marshal(a.Data)
	if err != nil {
		return fmt.Errorf("sqlite: encode artifact data: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO content_artifacts (id, kind, data, text, gate_report, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Kind, string(data), a.Text, string(gateReport),
		a.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("sqlite: save artifact: %w", err)
	}
	return nil
}
