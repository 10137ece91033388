package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/crosslinehq/bastion/pkg/audit"
	"github.com/crosslinehq/bastion/pkg/bot"
	"github.com/crosslinehq/bastion/pkg/config"
	"github.com/crosslinehq/bastion/pkg/guard"
	"github.com/crosslinehq/bastion/pkg/kb"
	"github.com/crosslinehq/bastion/pkg/llm"
	"github.com/crosslinehq/bastion/pkg/ratelimit"
	"github.com/crosslinehq/bastion/pkg/respond"
	"github.com/crosslinehq/bastion/pkg/router"
	"github.com/crosslinehq/bastion/pkg/store"
	"github.com/crosslinehq/bastion/pkg/telemetry"
	"github.com/crosslinehq/bastion/pkg/transport"
)

const Version = "0.1.0"

// botCommands are the slash commands the pipeline intercepts. The
// pattern guard whitelists exactly these so its structural checks do
// not fire on them.
var botCommands = []string{"/start", "/help", "/clear"}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := godotenv.Load(); err != nil {
		log.Println("○ No .env file found, using process environment")
	}

	cfg := config.New()
	cfg.MustValidate()

	ctx := context.Background()

	// Storage.
	st, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[STARTUP] FATAL: connect to Postgres: %v", err)
	}
	defer st.Close()
	if err := st.InitSchema(ctx); err != nil {
		log.Fatalf("[STARTUP] FATAL: init schema: %v", err)
	}
	log.Println("✓ Postgres connected, schema ready")

	// Rate limiting: Redis when configured, Postgres counters otherwise.
	var limiter bot.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("[STARTUP] FATAL: connect to Redis at %s: %v", cfg.RedisAddr, err)
		}
		limiter = ratelimit.NewRedisLimiter(rdb, cfg.RateLimit, cfg.RateWindow)
		log.Printf("✓ Rate limiting via Redis (%s, %d/%s)", cfg.RedisAddr, cfg.RateLimit, cfg.RateWindow)
	} else {
		limiter = ratelimit.NewStoreLimiter(st, cfg.RateLimit, cfg.RateWindow)
		log.Printf("○ Redis not configured, rate limiting via Postgres (%d/%s)", cfg.RateLimit, cfg.RateWindow)
	}

	// Audit log.
	auditLog, err := audit.Open(cfg.AuditLogPath)
	if err != nil {
		log.Fatalf("[STARTUP] FATAL: open audit log: %v", err)
	}
	defer auditLog.Close()
	log.Printf("✓ Audit log at %s", cfg.AuditLogPath)

	// LLM client shared by the analyzer, classifier and responders.
	client := llm.NewClient(llm.Config{
		Provider: llm.Provider(cfg.LLMProvider),
		APIKey:   cfg.LLMAPIKey,
		Model:    cfg.LLMModel,
		BaseURL:  cfg.LLMBaseURL,
	})
	log.Printf("✓ LLM client ready (provider: %s, model: %s)", cfg.LLMProvider, cfg.LLMModel)

	// Message guard: structural checks + entropy + optional local model
	// + remote second opinion.
	guardOpts := []guard.MessageGuardOption{
		guard.WithAnalysisTimeout(cfg.AnalysisTimeout),
	}
	if detector := guard.NewLocalDetectorFromEnv(); detector != nil {
		guardOpts = append(guardOpts, guard.WithLocalDetector(detector))
		defer detector.Close()
		log.Println("✓ Local injection classifier enabled (ONNX)")
	} else {
		log.Println("○ Local injection classifier disabled")
	}
	messageGuard := guard.NewMessageGuard(
		guard.NewPatternGuard(botCommands),
		guard.NewEntropyAnalyzer(),
		llm.NewPromptAnalyzer(client),
		auditLog,
		guardOpts...,
	)
	log.Println("✓ Message guard assembled (fail-closed)")

	// Intent router.
	vocab, err := router.LoadVocabulary(cfg.VocabPath)
	if err != nil {
		log.Fatalf("[STARTUP] FATAL: load vocabulary: %v", err)
	}
	intentRouter := router.NewIntentRouter(
		router.NewContextScorer(vocab, cfg.ContextTurns),
		llm.NewIntentClassifier(client, cfg.ContextTurns),
	)
	log.Printf("✓ Intent router ready (%d context turns)", cfg.ContextTurns)

	// Knowledge base: vector search over the FAQ when an embedding
	// endpoint is configured, Postgres FTS alone otherwise.
	knowledge := buildKnowledgeBase(ctx, cfg, st)

	// Responders. A disabled knowledge base stays a nil interface so
	// the responder skips vector retrieval entirely.
	sales := respond.NewSalesResponder(st, client)
	var articleSearch respond.ArticleSearcher
	if knowledge != nil {
		articleSearch = knowledge
	}
	support := respond.NewSupportResponder(llm.NewRelevanceChecker(client), articleSearch, st, client)

	metrics := telemetry.New()

	// Delivery.
	pipelineOpts := []bot.PipelineOption{
		bot.WithHistory(st),
		bot.WithHistoryLimit(cfg.HistoryLimit),
		bot.WithLimiter(limiter),
		bot.WithRouteRecorder(auditLog),
		bot.WithMetrics(metrics),
	}
	if cfg.TransportEndpoint != "" {
		sender := transport.NewHTTPSender(cfg.TransportEndpoint,
			transport.WithRetryHook(metrics.TransportRetry))
		pipelineOpts = append(pipelineOpts,
			bot.WithSender(sender),
			bot.WithAlerter(transport.NewOperatorNotifier(sender, cfg.OperatorChatID)))
		log.Printf("✓ Push delivery to %s", cfg.TransportEndpoint)
	} else {
		log.Println("○ Push delivery disabled, replies returned in webhook responses only")
	}

	pipeline := bot.NewPipeline(messageGuard, intentRouter, sales, support, pipelineOpts...)

	runHTTPServer(cfg, pipeline, metrics)
}

// buildKnowledgeBase seeds the in-memory vector index from Postgres.
// Any failure degrades to nil: support answers then rely on full-text
// search only.
func buildKnowledgeBase(ctx context.Context, cfg *config.Config, st *store.Store) *kb.KnowledgeBase {
	if cfg.EmbeddingBaseURL == "" {
		log.Println("○ Vector search disabled (no embedding endpoint)")
		return nil
	}

	embedder, err := llm.NewEmbedder(llm.EmbedderConfig{
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.EmbeddingModel,
		BaseURL: cfg.EmbeddingBaseURL,
	})
	if err != nil {
		log.Printf("○ Vector search disabled (embedder init failed: %v)", err)
		return nil
	}

	knowledge, err := kb.New(embedder)
	if err != nil {
		log.Printf("○ Vector search disabled (index init failed: %v)", err)
		return nil
	}

	articles, err := st.AllSupportArticles(ctx)
	if err != nil {
		log.Printf("○ Vector search disabled (article load failed: %v)", err)
		return nil
	}

	seedCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	for _, a := range articles {
		if err := knowledge.Add(seedCtx, fmt.Sprintf("article-%d", a.ID), a.Title, a.Body); err != nil {
			log.Printf("○ Vector search disabled (seeding failed: %v)", err)
			return nil
		}
	}
	log.Printf("✓ Vector search enabled (%d articles indexed)", knowledge.Count())
	return knowledge
}

func runHTTPServer(cfg *config.Config, pipeline *bot.Pipeline, metrics *telemetry.Metrics) {
	app := fiber.New(fiber.Config{
		AppName: "Bastion Gateway",
	})

	app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "version": Version})
	})

	app.Get("/stats", func(c fiber.Ctx) error {
		return c.JSON(metrics.Snapshot())
	})

	app.Post("/webhook", func(c fiber.Ctx) error {
		var req struct {
			UserID int64  `json:"user_id"`
			Text   string `json:"text"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
		if req.UserID == 0 || req.Text == "" {
			return c.Status(400).JSON(fiber.Map{"error": "user_id and text are required"})
		}

		reply := pipeline.Handle(c.Context(), req.UserID, req.Text)
		return c.JSON(fiber.Map{"reply": reply})
	})

	log.Printf("Bastion gateway v%s listening on %s", Version, cfg.ListenAddr)
	log.Printf("  GET  /healthz  - health check")
	log.Printf("  GET  /stats    - pipeline counters")
	log.Printf("  POST /webhook  - inbound messages")

	if err := app.Listen(cfg.ListenAddr); err != nil {
		log.Fatal(err)
	}
}
