package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	"github.com/echorank/echorank/internal/audit"
	"github.com/echorank/echorank/internal/brand"
	rediscache "github.com/echorank/echorank/internal/cache/redis"
	"github.com/echorank/echorank/internal/config"
	"github.com/echorank/echorank/internal/domain"
	embeddingopenai "github.com/echorank/echorank/internal/embedding/openai"
	"github.com/echorank/echorank/internal/gates"
	"github.com/echorank/echorank/internal/http"
	"github.com/echorank/echorank/internal/http/middleware"
	"github.com/echorank/echorank/internal/jobs"
	"github.com/echorank/echorank/internal/observability"
	"github.com/echorank/echorank/internal/provider/anthropic"
	"github.com/echorank/echorank/internal/provider/echo"
	"github.com/echorank/echorank/internal/provider/gemini"
	"github.com/echorank/echorank/internal/provider/mistral"
	"github.com/echorank/echorank/internal/provider/openai"
	"github.com/echorank/echorank/internal/provider/perplexity"
	"github.com/echorank/echorank/internal/provider/registry"
	"github.com/echorank/echorank/internal/ratelimit"
	"github.com/echorank/echorank/internal/reinforce"
	"github.com/echorank/echorank/internal/store/sqlite"
)

func main() {
	container := buildContainer()

	err := container.Invoke(func(server *http.Server) {
		if err := server.Start(); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
}

func buildContainer() *dig.Container {
	container := dig.New()

	provide := func(constructor any) {
		if err := container.Provide(constructor); err != nil {
			log.Fatalf("Failed to provide dependency: %v", err)
		}
	}

	// Configuration
	provide(config.Load)
	provide(config.ParseDependenciesConfig)

	// Observability
	provide(observability.InitLogger)

	// Storage
	provide(func(cfg *config.DBConfig) (*sql.DB, error) {
		return sqlite.NewDB(cfg.Path)
	})
	provide(sqlite.NewStore)

	// Providers
	provide(buildRegistry)

	// Rate limiting and retry
	provide(func() *ratelimit.Limiter {
		return ratelimit.NewLimiter(ratelimit.DefaultCaps())
	})
	provide(ratelimit.NewExecutor)

	// Embeddings and brand similarity
	provide(buildEmbedder)
	provide(brand.NewVectorCache)
	provide(func(embedder domain.EmbeddingGenerator, store *sqlite.Store, cache *brand.VectorCache) *brand.SimilarityEngine {
		return brand.NewSimilarityEngine(embedder, store, cache)
	})

	// Pipelines
	provide(func(reg *registryHolder, exec *ratelimit.Executor, sim *brand.SimilarityEngine, store *sqlite.Store) *audit.Auditor {
		return audit.NewAuditor(reg.registry, exec, sim, store, store, store, store)
	})
	provide(func(cfg *config.ReinforceConfig) *reinforce.CooldownRegistry {
		return reinforce.NewCooldownRegistry(time.Duration(cfg.CooldownHours) * time.Hour)
	})
	provide(func(reg *registryHolder, exec *ratelimit.Executor, sim *brand.SimilarityEngine, store *sqlite.Store, cooldown *reinforce.CooldownRegistry) *reinforce.Engine {
		return reinforce.NewEngine(reg.registry, exec, sim, store, store, store, cooldown)
	})
	provide(func(sim *brand.SimilarityEngine, store *sqlite.Store, cfg *config.GatesConfig) *gates.Runner {
		return gates.NewRunner(sim, store, gates.Config{
			MinReadability:        cfg.MinReadability,
			MinSimilarityToGolden: cfg.MinSimilarityToGolden,
			DisableForbiddenGate:  cfg.DisableForbiddenGate,
		})
	})
	provide(func(reg *registryHolder, exec *ratelimit.Executor, store *sqlite.Store, gateRunner *gates.Runner) *jobs.ContentBuilder {
		return jobs.NewContentBuilder(reg.registry, exec, store, gateRunner, store, store)
	})
	provide(func(cfg *config.JobsConfig) domain.Notifier {
		if cfg.WebhookURL != "" {
			return jobs.NewWebhookNotifier(cfg.WebhookURL)
		}
		return jobs.LogNotifier{}
	})
	provide(func(store *sqlite.Store, notifier domain.Notifier) *jobs.Runner {
		return jobs.NewRunner(store, notifier)
	})

	// HTTP layer
	provide(func(auditor *audit.Auditor, reinforcer *reinforce.Engine, builder *jobs.ContentBuilder, gateRunner *gates.Runner, jobRunner *jobs.Runner, store *sqlite.Store, sim *brand.SimilarityEngine) *http.Handler {
		return http.NewHandler(auditor, reinforcer, builder, gateRunner, jobRunner, store, sim)
	})
	provide(func(corsCfg *config.CORSConfig) middleware.Middleware {
		return middleware.BuildMiddlewareChain(corsCfg)
	})
	provide(http.NewServer)

	// Seed the intent taxonomy on first boot so audits can run immediately.
	if err := container.Invoke(func(store *sqlite.Store) error {
		ctx := context.Background()
		intents, err := store.ListIntents(ctx)
		if err != nil {
			return err
		}
		if len(intents) == 0 {
			return store.SeedIntents(ctx, audit.DefaultIntents())
		}
		return nil
	}); err != nil {
		log.Fatalf("Failed to seed intents: %v", err)
	}

	return container
}

// registryHolder wraps the provider registry so dig sees one constructor
// that performs all credential-gated registrations.
type registryHolder struct {
	registry *registry.Registry
}

// buildRegistry registers every provider whose credentials are configured.
// With no credentials at all, the offline echo provider keeps the pipelines
// runnable in development.
func buildRegistry(cfg *config.Config) (*registryHolder, error) {
	ctx := context.Background()
	logger := observability.FromContext(ctx)
	reg := registry.NewRegistry()

	type candidate struct {
		name  string
		build func() (domain.Provider, error)
	}

	candidates := []candidate{
		{"openai", func() (domain.Provider, error) { return openai.NewProvider(cfg.OpenAI) }},
		{"anthropic", func() (domain.Provider, error) { return anthropic.NewProvider(cfg.Anthropic) }},
		{"gemini", func() (domain.Provider, error) { return gemini.NewProvider(ctx, cfg.Gemini) }},
		{"perplexity", func() (domain.Provider, error) { return perplexity.NewProvider(cfg.Perplexity) }},
		{"mistral", func() (domain.Provider, error) { return mistral.NewProvider(cfg.Mistral) }},
	}

	for _, c := range candidates {
		provider, err := c.build()
		if errors.Is(err, domain.ErrProviderNotConfigured) {
			logger.Info("provider not configured, skipping",
				observability.String("provider", c.name))
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := reg.Register(ctx, provider); err != nil {
			return nil, err
		}
	}

	names, err := reg.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		logger.Warn("no providers configured, registering offline echo provider")
		if err := reg.Register(ctx, echo.NewProvider(nil)); err != nil {
			return nil, err
		}
	}

	return &registryHolder{registry: reg}, nil
}

// buildEmbedder wires the OpenAI embedding generator, wrapped in the redis
// read-through cache when an address is configured. Without an API key a
// failing stand-in keeps the process bootable; similarity scoring then
// fails per call instead of at startup.
func buildEmbedder(cfg *config.Config) domain.EmbeddingGenerator {
	ctx := context.Background()
	logger := observability.FromContext(ctx)

	if cfg.Embedding.APIKey == "" {
		logger.Warn("no embedding API key configured, similarity scoring disabled")
		return unconfiguredEmbedder{}
	}

	generator, err := embeddingopenai.NewGenerator(cfg.Embedding)
	if err != nil {
		logger.Warn("failed to build embedding generator, similarity scoring disabled",
			observability.Error(err))
		return unconfiguredEmbedder{}
	}

	if cfg.Redis.Addr == "" {
		return generator
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return rediscache.NewEmbeddingCache(client, generator, generator.Model())
}

type unconfiguredEmbedder struct{}

func (unconfiguredEmbedder) Generate(context.Context, string) ([]float64, error) {
	return nil, errors.New("embedding generator not configured")
}
