package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/happymalyo/elloms-crew-api/internal/config"
	"github.com/happymalyo/elloms-crew-api/internal/domain/ports/adapter"
	"github.com/happymalyo/elloms-crew-api/internal/domain/ports/repository"
	crewAdapters "github.com/happymalyo/elloms-crew-api/internal/infra/adapters/crew"
	pg "github.com/happymalyo/elloms-crew-api/internal/infra/db/postgres"
	"github.com/happymalyo/elloms-crew-api/internal/infra/logging"
	"github.com/happymalyo/elloms-crew-api/internal/infra/memstore"
	"github.com/happymalyo/elloms-crew-api/internal/infra/metrics"
	red "github.com/happymalyo/elloms-crew-api/internal/infra/redis"
	"github.com/happymalyo/elloms-crew-api/internal/infra/web"
	"github.com/happymalyo/elloms-crew-api/internal/infra/worker"
	"github.com/happymalyo/elloms-crew-api/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "development mode (in-memory store, static crew)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}
	metrics.MustRegister()

	// ---- Repositories ----
	var (
		jobRepo  repository.JobRepository
		convRepo repository.ConversationRepository
		msgRepo  repository.MessageRepository
		userRepo repository.UserRepository
		txm      repository.TransactionManager
	)
	if cfg.Runtime.Dev {
		memConvs := memstore.NewConversationRepo()
		jobRepo = memstore.NewJobRepo()
		convRepo = memConvs
		msgRepo = memConvs
		userRepo = memstore.NewUserRepo()
	} else {
		pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer pool.Close()
		pgConvs := pg.NewConversationRepo(pool)
		jobRepo = pg.NewJobRepo(pool)
		convRepo = pgConvs
		msgRepo = pgConvs
		userRepo = pg.NewUserRepo(pool)
		txm = pg.NewTxManager(pool)
	}

	// ---- Crew adapter (OpenAI -> Gemini -> static in dev) ----
	var crew adapter.CrewAdapter
	switch {
	case cfg.AI.OpenAIKey != "":
		crew, err = crewAdapters.NewOpenAICrew(cfg.AI.OpenAIKey, cfg.AI.DefaultModel, cfg.AI.MaxTokens)
		if err != nil {
			log.Fatalf("openai crew: %v", err)
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("crew adapter: openai")
	case cfg.AI.GeminiKey != "":
		crew, err = crewAdapters.NewGeminiCrew(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.DefaultModel, cfg.AI.MaxTokens)
		if err != nil {
			log.Fatalf("gemini crew: %v", err)
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("crew adapter: gemini")
	case cfg.Runtime.Dev:
		crew = crewAdapters.NewStaticCrew()
		logger.Info().Msg("crew adapter: static")
	default:
		log.Fatalf("no AI provider configured: set ai.openai_key or ai.gemini_key in %s", *cfgPath)
	}

	// ---- Use cases ----
	jobUC := usecase.NewJobUseCase(jobRepo, logger)
	convUC := usecase.NewConversationUseCase(convRepo, msgRepo, txm)
	userUC := usecase.NewUserUseCase(userRepo)
	contexts := usecase.NewContextBuilder(convRepo, msgRepo, cfg.Jobs.ContextWindow, cfg.Jobs.ContextCharBudget, logger)

	// ---- Worker pool + dispatcher ----
	pool := worker.NewPool(cfg.Jobs.Workers, cfg.Jobs.QueueSize)
	pool.OnError(func(err error) {
		logger.Error().Err(err).Msg("worker task error")
	})
	pool.Start(ctx)
	defer pool.Stop()

	dispatcher := worker.NewDispatcher(pool, jobUC, contexts, convUC, crew, cfg.Jobs.GenerationTimeout, logger)
	jobUC.AttachDispatcher(dispatcher)

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	srv := web.NewServer(jobUC, convUC, userUC, crew, auth, logger)

	if cfg.Redis.URL != "" && cfg.Jobs.SubmitRateLimit > 0 {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer redisClient.Close()
		srv.EnableRateLimit(red.NewRateLimiter(redisClient), cfg.Jobs.SubmitRateLimit, cfg.Jobs.SubmitRateWindow)
		logger.Info().Int("limit", cfg.Jobs.SubmitRateLimit).Msg("submit rate limiting enabled")
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Routes(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	cancel()
}
