package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"microlearn/internal/cache"
	"microlearn/internal/config"
	"microlearn/internal/llm"
	"microlearn/internal/logger"
	"microlearn/internal/repository"
	"microlearn/internal/service"
	"microlearn/internal/transport/rest"
	"microlearn/internal/transport/ws"
)

func main() {
	configPath := flag.String("config", "", "optional config file path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Infow("starting microlearn server",
		"generationModel", cfg.AI.Models.Generation,
		"factualJudge", cfg.AI.Models.FactualJudge,
		"educationalJudge", cfg.AI.Models.EducationalJudge,
		"clarityJudge", cfg.AI.Models.ClarityJudge,
		"aiEnabled", cfg.AI.IsEnabled(),
	)

	ctx := context.Background()

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalw("failed to connect to MongoDB", "error", err)
	}
	defer mongoClient.Disconnect(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatalw("failed to ping MongoDB", "error", err)
	}
	log.Info("connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDatabase)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalw("failed to ping Redis", "error", err)
	}
	log.Info("connected to Redis")

	// WebSocket hub
	wsHub := ws.NewHub()

	// Repositories and caches
	topicRepo := repository.NewTopicRepo(db)
	verificationRepo := repository.NewVerificationRepo(db)
	topicCache := cache.NewTopicCache(rdb)

	// LLM plumbing: a retrying caller shared by generation and judging
	var caller llm.Caller
	if cfg.AI.IsEnabled() {
		caller = llm.NewOpenAICaller(cfg.AI, log)
	} else {
		log.Warn("AI API key not set, generation will use fallback content")
		caller = llm.DisabledCaller{}
	}
	caller = llm.WithRetry(caller, cfg.AI.MaxRetries, cfg.AI.RetryBaseDelay, log)
	parser := llm.NewParser(log)

	// Services
	authSvc := service.NewAuthService(cfg)
	verifier := service.NewContentVerifier(caller, parser, cfg.AI, log)
	decider := service.NewPublicationDecider(cfg.AI)
	topicSvc := service.NewTopicService(
		topicRepo, verificationRepo, topicCache,
		caller, parser, verifier, decider, cfg.AI, log,
	)
	topicSvc.SetBroadcaster(wsHub)

	router := rest.NewRouter(&rest.Container{
		AuthService:  authSvc,
		TopicService: topicSvc,
		WSHub:        wsHub,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		log.Infow("server listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("listen and serve", "error", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}
