// Package gates validates generated content artifacts before they are
// persisted: JSON-LD structure, forbidden phrases, readability, and
// semantic drift from the golden copy.
package gates

import (
	"context"
	"fmt"
	"strings"

	"github.com/echorank/echorank/internal/brand"
	"github.com/echorank/echorank/internal/domain"
	"github.com/echorank/echorank/internal/observability"
)

// Gate names as they appear in reports.
const (
	GateStructure       = "structure"
	GateForbiddenPhrase = "forbidden_phrase"
	GateReadability     = "readability"
	GateSemanticDrift   = "semantic_drift"
)

// Default thresholds.
const (
	DefaultMinReadability        = 55.0
	DefaultMinSimilarityToGolden = 0.8
)

// Config tunes gate thresholds. The forbidden-phrase gate can be switched
// off for brands whose bible intentionally lists marketing-sensitive terms
// the content is allowed to use.
type Config struct {
	MinReadability        float64
	MinSimilarityToGolden float64
	DisableForbiddenGate  bool
}

// DefaultConfig returns the standard gate thresholds.
func DefaultConfig() Config {
	return Config{
		MinReadability:        DefaultMinReadability,
		MinSimilarityToGolden: DefaultMinSimilarityToGolden,
	}
}

// Candidate is one artifact under evaluation. GoldenText is the approved
// reference copy; when empty the drift gate is skipped.
type Candidate struct {
	Kind       string
	Data       map[string]any
	Text       string
	GoldenText string
}

// Failure names the gate that rejected the candidate and why.
type Failure struct {
	Gate   string `json:"gate"`
	Reason string `json:"reason"`
}

// Report is the outcome of running every gate against one candidate.
type Report struct {
	Pass     bool      `json:"pass"`
	Failures []Failure `json:"failures,omitempty"`
}

func (r *Report) fail(gate, reason string) {
	r.Pass = false
	r.Failures = append(r.Failures, Failure{Gate: gate, Reason: reason})
}

// Runner evaluates candidates against all gates.
type Runner struct {
	sim    *brand.SimilarityEngine
	bibles domain.BrandStore
	cfg    Config
}

// NewRunner creates a gate runner.
func NewRunner(sim *brand.SimilarityEngine, bibles domain.BrandStore, cfg Config) *Runner {
	if cfg.MinReadability == 0 {
		cfg.MinReadability = DefaultMinReadability
	}
	if cfg.MinSimilarityToGolden == 0 {
		cfg.MinSimilarityToGolden = DefaultMinSimilarityToGolden
	}
	return &Runner{sim: sim, bibles: bibles, cfg: cfg}
}

// Evaluate runs every enabled gate. All gates run even after a failure so
// the report names everything wrong with the candidate at once.
func (r *Runner) Evaluate(ctx context.Context, c *Candidate) (*Report, error) {
	report := &Report{Pass: true}

	if missing := CheckStructure(c.Kind, c.Data); len(missing) > 0 {
		report.fail(GateStructure,
			fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")))
	}

	if !r.cfg.DisableForbiddenGate {
		bible, err := r.bibles.GetBrandBible(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load brand bible: %w", err)
		}
		if hits := scanForbidden(c.Text, bible.ForbiddenTerms); len(hits) > 0 {
			report.fail(GateForbiddenPhrase,
				fmt.Sprintf("forbidden phrases present: %s", strings.Join(hits, ", ")))
		}
	}

	score := FleschScore(c.Text)
	if score < r.cfg.MinReadability {
		report.fail(GateReadability,
			fmt.Sprintf("readability %.1f below minimum %.1f", score, r.cfg.MinReadability))
	}

	if c.GoldenText != "" {
		drifted, delta, err := r.checkDrift(ctx, c)
		if err != nil {
			return nil, err
		}
		if drifted {
			report.fail(GateSemanticDrift,
				fmt.Sprintf("drift %.3f exceeds allowed %.3f", delta, 1-r.cfg.MinSimilarityToGolden))
		}
	}

	observability.FromContext(ctx).Info("gate evaluation finished",
		observability.String("kind", c.Kind),
		observability.Bool("pass", report.Pass),
		observability.Int("failures", len(report.Failures)))

	return report, nil
}

// checkDrift compares the candidate and golden copy indirectly, through
// each one's similarity to the brand vector. Both texts share the same
// reference point, so the delta isolates how far the candidate moved.
func (r *Runner) checkDrift(ctx context.Context, c *Candidate) (bool, float64, error) {
	candidateSim, err := r.sim.Score(ctx, c.Text)
	if err != nil {
		return false, 0, fmt.Errorf("failed to score candidate: %w", err)
	}
	goldenSim, err := r.sim.Score(ctx, c.GoldenText)
	if err != nil {
		return false, 0, fmt.Errorf("failed to score golden copy: %w", err)
	}

	delta := candidateSim - goldenSim
	if delta < 0 {
		delta = -delta
	}
	return delta > 1-r.cfg.MinSimilarityToGolden, delta, nil
}

func scanForbidden(text string, terms []string) []string {
	lowered := strings.ToLower(text)
	var hits []string
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(term)) {
			hits = append(hits, term)
		}
	}
	return hits
}
