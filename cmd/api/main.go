// Package main implements the Aurora concierge API server: it indexes the
// member message feed into Qdrant on startup and answers questions over
// HTTP via retrieval-augmented generation.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/AuroraClub/concierge-mvp/engine/domain"
	"github.com/AuroraClub/concierge-mvp/engine/index"
	"github.com/AuroraClub/concierge-mvp/engine/rag"
	"github.com/AuroraClub/concierge-mvp/engine/semantic"
	"github.com/AuroraClub/concierge-mvp/engine/source"
	"github.com/AuroraClub/concierge-mvp/pkg/ai"
	"github.com/AuroraClub/concierge-mvp/pkg/mid"
	"github.com/AuroraClub/concierge-mvp/pkg/natsutil"
)

// NATS subjects for the optional reindex control plane.
const (
	reindexSubject     = "concierge.reindex"
	reindexDoneSubject = "concierge.reindex.done"
)

// Config holds all environment-based configuration.
type Config struct {
	Port           string
	MetricsPort    int
	OpenAIKey      string
	EmbedModel     string
	ChatModel      string
	QdrantURL      string
	Collection     string
	FeedURL        string
	TopK           int
	ScoreThreshold float64
	CORSOrigin     string
	NATSURL        string
}

func loadConfig() Config {
	return Config{
		Port:           envOr("PORT", "8080"),
		MetricsPort:    envInt("METRICS_PORT", 9090),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		EmbedModel:     envOr("OPENAI_EMBED_MODEL", ai.DefaultEmbedModel),
		ChatModel:      envOr("OPENAI_CHAT_MODEL", ai.DefaultChatModel),
		QdrantURL:      envOr("QDRANT_URL", "localhost:6334"),
		Collection:     envOr("QDRANT_COLLECTION", "aurora-messages"),
		FeedURL:        envOr("FEED_URL", "https://november7-730026606190.europe-west1.run.app/messages/"),
		TopK:           envInt("TOP_K", 5),
		ScoreThreshold: envFloat("SCORE_THRESHOLD", 0.65),
		CORSOrigin:     envOr("CORS_ORIGIN", "*"),
		NATSURL:        os.Getenv("NATS_URL"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()
	if cfg.OpenAIKey == "" {
		logger.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- OpenAI client (shared by indexing and querying) ---
	aiOpts := ai.DefaultOptions()
	aiOpts.EmbedModel = cfg.EmbedModel
	aiOpts.ChatModel = cfg.ChatModel
	aiClient := ai.NewClient(cfg.OpenAIKey, aiOpts)

	// --- Qdrant ---
	store, err := semantic.New(cfg.QdrantURL, cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer store.Close()

	ensureCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	err = store.EnsureCollection(ensureCtx, domain.EmbeddingDims)
	cancel()
	if err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	// --- Indexer and query engine ---
	feed := source.NewFeed(cfg.FeedURL)
	builder := index.New(feed, aiClient, store, logger)

	ragOpts := rag.DefaultOptions()
	ragOpts.TopK = cfg.TopK
	ragOpts.ScoreThreshold = float32(cfg.ScoreThreshold)
	ragSvc := rag.New(aiClient, aiClient, store, ragOpts, logger)

	// --- Metrics ---
	met := newAppMetrics()
	met.reg.ServeAsync(cfg.MetricsPort)

	// --- Optional NATS control plane ---
	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Close()

		sub, err := natsutil.Subscribe(nc, reindexSubject, func(ctx context.Context, _ struct{}) {
			runBuild(ctx, builder, store, met, logger, nc)
		})
		if err != nil {
			return fmt.Errorf("nats subscribe: %w", err)
		}
		defer sub.Unsubscribe()
		logger.Info("reindex control plane attached", "subject", reindexSubject)
	}

	// --- Initial index build; failure degrades, never aborts startup ---
	go func() {
		buildCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()
		runBuild(buildCtx, builder, store, met, logger, nc)
	}()

	// --- HTTP server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", handleRoot)
	mux.HandleFunc("GET /docs", handleDocs)
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /ask", handleAsk(ragSvc, met, logger))
	mux.HandleFunc("POST /reindex", handleReindex(builder, store, met, logger, nc))

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("concierge-api"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// pointCounter reports the current index size; satisfied by the Qdrant
// store and by fakes in tests.
type pointCounter interface {
	Count(ctx context.Context) (uint64, error)
}

// runBuild runs one index build, records metrics, and (when NATS is
// attached) publishes the report for operators.
func runBuild(ctx context.Context, builder *index.Builder, counter pointCounter, met *appMetrics, logger *slog.Logger, nc *nats.Conn) (index.Report, error) {
	start := time.Now()
	report, err := builder.Build(ctx)
	met.buildDuration.Since(start)

	if err != nil {
		met.buildErrors.Inc()
		logger.Error("index build failed", "err", err)
	} else {
		met.builds.Inc()
		met.upserted.Add(int64(report.Upserted))
		logger.Info("index build finished", "upserted", report.Upserted, "failed", len(report.Failed))
	}

	if n, cerr := counter.Count(ctx); cerr == nil {
		met.indexSize.Set(int64(n))
	}

	if nc != nil {
		done := struct {
			Upserted int      `json:"upserted"`
			Failed   []string `json:"failed,omitempty"`
			Error    string   `json:"error,omitempty"`
		}{Upserted: report.Upserted, Failed: report.Failed}
		if err != nil {
			done.Error = err.Error()
		}
		if perr := natsutil.Publish(ctx, nc, reindexDoneSubject, done); perr != nil {
			logger.Warn("reindex report publish failed", "err", perr)
		}
	}

	return report, err
}
