package main

import (
	"context"
	"flag"
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
)

// Re-runs verification for topics whose earlier verification produced no
// overall score (all judges were unavailable at generation time).
func main() {
	configPath := flag.String("config", "", "optional config file path")
	limit := flag.Int64("limit", 50, "max verifications to recompute in one run")
	delay := flag.Duration("delay", 2*time.Second, "pause between topics")
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

	if !cfg.AI.IsEnabled() {
		log.Fatal("AI API key not set, nothing to backfill with")
	}

	ctx := context.Background()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalw("failed to connect to MongoDB", "error", err)
	}
	defer mongoClient.Disconnect(ctx)
	db := mongoClient.Database(cfg.MongoDatabase)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	topicRepo := repository.NewTopicRepo(db)
	verificationRepo := repository.NewVerificationRepo(db)
	topicCache := cache.NewTopicCache(rdb)

	var caller llm.Caller = llm.NewOpenAICaller(cfg.AI, log)
	caller = llm.WithRetry(caller, cfg.AI.MaxRetries, cfg.AI.RetryBaseDelay, log)
	parser := llm.NewParser(log)

	verifier := service.NewContentVerifier(caller, parser, cfg.AI, log)
	decider := service.NewPublicationDecider(cfg.AI)
	topicSvc := service.NewTopicService(
		topicRepo, verificationRepo, topicCache,
		caller, parser, verifier, decider, cfg.AI, log,
	)

	processed, err := topicSvc.Backfill(ctx, *limit, *delay)
	if err != nil {
		log.Fatalw("backfill failed", "processed", processed, "error", err)
	}
	log.Infow("backfill complete", "processed", processed)
}
