package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/echorank/echorank/internal/audit"
	"github.com/echorank/echorank/internal/brand"
	"github.com/echorank/echorank/internal/domain"
	"github.com/echorank/echorank/internal/gates"
	"github.com/echorank/echorank/internal/jobs"
	"github.com/echorank/echorank/internal/observability"
	"github.com/echorank/echorank/internal/reinforce"
)

// Handler handles HTTP requests.
type Handler struct {
	auditor    *audit.Auditor
	reinforcer *reinforce.Engine
	builder    *jobs.ContentBuilder
	gateRunner *gates.Runner
	jobRunner  *jobs.Runner
	bibles     domain.BrandStore
	sim        *brand.SimilarityEngine
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(
	auditor *audit.Auditor,
	reinforcer *reinforce.Engine,
	builder *jobs.ContentBuilder,
	gateRunner *gates.Runner,
	jobRunner *jobs.Runner,
	bibles domain.BrandStore,
	sim *brand.SimilarityEngine,
) *Handler {
	return &Handler{
		auditor:    auditor,
		reinforcer: reinforcer,
		builder:    builder,
		gateRunner: gateRunner,
		jobRunner:  jobRunner,
		bibles:     bibles,
		sim:        sim,
	}
}

type auditRequest struct {
	Model          string  `json:"model,omitempty"`
	MaxConcurrent  int     `json:"max_concurrent,omitempty"`
	Query          string  `json:"query,omitempty"`
	SampleFraction float64 `json:"sample_fraction,omitempty"`
	Seed           int64   `json:"seed,omitempty"`
	Limit          int     `json:"limit,omitempty"`
}

// HandleAudit runs an audit job for the provider in the path, or for every
// available provider when the path names "all".
func (h *Handler) HandleAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	providerName := r.PathValue("provider")
	if providerName == "" {
		http.Error(w, "provider not specified", http.StatusBadRequest)
		return
	}
	ctx = observability.WithProvider(ctx, providerName)

	var req auditRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	opts := audit.Options{
		Model:         req.Model,
		MaxConcurrent: req.MaxConcurrent,
		Intents: audit.IntentFilter{
			Query:          req.Query,
			SampleFraction: req.SampleFraction,
			Seed:           req.Seed,
			Limit:          req.Limit,
		},
	}

	var result any
	err := h.jobRunner.Run(ctx, domain.JobTypeAudit, "api", func(ctx context.Context) (map[string]any, error) {
		if providerName == "all" {
			summaries, runErr := h.auditor.RunAll(ctx, opts)
			if runErr != nil {
				return nil, runErr
			}
			result = summaries
			return map[string]any{"providers": len(summaries)}, nil
		}

		summary, runErr := h.auditor.RunForProvider(ctx, providerName, opts)
		if runErr != nil {
			return nil, runErr
		}
		result = summary
		return map[string]any{"run_id": summary.RunID}, nil
	})
	if err != nil {
		writeJobError(w, ctx, "audit", err)
		return
	}

	writeJSON(w, ctx, http.StatusOK, result)
}

type reinforceRequest struct {
	Providers   []string `json:"providers,omitempty"`
	Model       string   `json:"model,omitempty"`
	PromptCount int      `json:"prompt_count,omitempty"`
	Seed        int64    `json:"seed,omitempty"`
}

// HandleReinforce runs a reinforcement job against the requested providers,
// or across all available providers when none are named.
func (h *Handler) HandleReinforce(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req reinforceRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	var result map[string]*reinforce.Summary
	err := h.jobRunner.Run(ctx, domain.JobTypeReinforcement, "api", func(ctx context.Context) (map[string]any, error) {
		summaries, runErr := h.reinforcer.Run(ctx, req.Providers, reinforce.Options{
			Model:       req.Model,
			PromptCount: req.PromptCount,
			Seed:        req.Seed,
		})
		if runErr != nil {
			return nil, runErr
		}
		result = summaries
		return map[string]any{"providers": len(summaries)}, nil
	})
	if err != nil {
		writeJobError(w, ctx, "reinforcement", err)
		return
	}

	writeJSON(w, ctx, http.StatusOK, result)
}

type contentBuildRequest struct {
	Provider string `json:"provider"`
	Kind     string `json:"kind"`
}

// HandleContentBuild runs a content build job for one artifact kind.
func (h *Handler) HandleContentBuild(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req contentBuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.Provider == "" {
		http.Error(w, "provider is required", http.StatusBadRequest)
		return
	}
	if req.Kind == "" {
		http.Error(w, "kind is required", http.StatusBadRequest)
		return
	}

	var (
		artifact *domain.ContentArtifact
		report   *gates.Report
	)
	err := h.jobRunner.Run(ctx, domain.JobTypeContent, "api", func(ctx context.Context) (map[string]any, error) {
		var buildErr error
		artifact, report, buildErr = h.builder.BuildArtifact(ctx, req.Provider, req.Kind)
		if buildErr != nil {
			return nil, buildErr
		}
		return map[string]any{"artifact_id": artifact.ID, "gates_pass": report.Pass}, nil
	})
	if err != nil {
		writeJobError(w, ctx, "content build", err)
		return
	}

	writeJSON(w, ctx, http.StatusOK, map[string]any{
		"artifact_id": artifact.ID,
		"kind":        artifact.Kind,
		"data":        artifact.Data,
		"text":        artifact.Text,
		"report":      report,
	})
}

type gateRequest struct {
	Kind       string         `json:"kind"`
	Data       map[string]any `json:"data"`
	Text       string         `json:"text"`
	GoldenText string         `json:"golden_text,omitempty"`
}

// HandleContentGate evaluates externally produced content against the
// gates without persisting anything.
func (h *Handler) HandleContentGate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req gateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	report, err := h.gateRunner.Evaluate(ctx, &gates.Candidate{
		Kind:       req.Kind,
		Data:       req.Data,
		Text:       req.Text,
		GoldenText: req.GoldenText,
	})
	if err != nil {
		observability.FromContext(ctx).Error("gate evaluation failed", observability.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, ctx, http.StatusOK, report)
}

type ingestRequest struct {
	Source string `json:"source,omitempty"`
	Text   string `json:"text"`
}

// HandleIngest accepts webhook-style content ingestion. Payloads are
// validated here at the boundary; accepted documents are handed to the
// ingestion collaborator out of band.
func (h *Handler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	observability.FromContext(ctx).Info("document accepted for ingestion",
		observability.String("source", req.Source),
		observability.Int("length", len(req.Text)))

	writeJSON(w, ctx, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// HandleBibleUpdate replaces the brand bible and invalidates the cached
// brand vector so the next similarity score reflects the new description.
func (h *Handler) HandleBibleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var bible domain.BrandBible
	if err := json.NewDecoder(r.Body).Decode(&bible); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if bible.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	if err := h.bibles.SaveBrandBible(ctx, &bible); err != nil {
		observability.FromContext(ctx).Error("failed to save brand bible", observability.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.sim.Invalidate()

	writeJSON(w, ctx, http.StatusOK, map[string]string{"status": "updated"})
}

// HandleHealth reports process liveness.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r.Context(), http.StatusOK, map[string]string{"status": "ok"})
}

func writeJobError(w http.ResponseWriter, ctx context.Context, job string, err error) {
	observability.FromContext(ctx).Error(job+" job failed", observability.Error(err))

	status := http.StatusInternalServerError
	if errors.Is(err, domain.ErrProviderNotConfigured) {
		status = http.StatusNotFound
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, ctx context.Context, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		observability.FromContext(ctx).Error("failed to encode response", observability.Error(err))
	}
}

func decodeOptionalBody(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(dst)
}
