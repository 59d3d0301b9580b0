package server

import (
	"context"
	"log"

	"finance-service/internal/config"
	"finance-service/internal/domain"
	hrest "finance-service/internal/handler/rest"
	"finance-service/internal/pub"
	"finance-service/internal/repository"
	"finance-service/internal/service"
	"finance-service/internal/usecase"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

func NewFinanceServer(cfg config.AppConfig) {
	// --- Logger ---
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	// --- DB connection ---
	dbpool, err := config.ConnectDB()
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := repository.EnsureSchema(context.Background(), dbpool); err != nil {
		logger.Fatal("failed to ensure schema", zap.Error(err))
	}

	// --- Redis client ---
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       0,
	})

	// --- Kafka writer ---
	kafkaWriter := &kafka.Writer{
		Addr:     kafka.TCP(cfg.KafkaBrokers...),
		Topic:    cfg.KafkaTopic,
		Balancer: &kafka.LeastBytes{},
	}

	// --- Status vocabularies ---
	expenseVocab := domain.DefaultExpenseVocabulary(cfg.ExpensePaidStatuses...)
	incomeVocab := domain.DefaultIncomeVocabulary()

	// --- Repositories ---
	accountRepo := repository.NewAccountRepo(dbpool)
	expenseRepo := repository.NewExpenseRepo(dbpool)
	incomeRepo := repository.NewIncomeRepo(dbpool)
	summaryRepo := repository.NewSummaryRepo(dbpool, expenseVocab, incomeVocab)

	// --- Resolver and publisher ---
	resolver := usecase.NewTransitionResolver(expenseVocab, incomeVocab, accountRepo)
	publisher := pub.NewRecordEventPublisher(rdb, kafkaWriter, logger)

	// --- Usecases ---
	recordUC := usecase.NewRecordUsecase(expenseRepo, incomeRepo, accountRepo, resolver, publisher, logger)
	accountUC := usecase.NewAccountUsecase(accountRepo, rdb, logger)
	summaryUC := usecase.NewSummaryUsecase(summaryRepo)

	// --- Seed system in a goroutine (non-blocking) ---
	systemSeeder := service.NewSystemSeeder(accountRepo, logger)
	go func() {
		if err := systemSeeder.SeedSystem(context.Background()); err != nil {
			logger.Warn("system seeding failed", zap.Error(err))
		} else {
			logger.Info("system seeding completed")
		}
	}()

	// --- REST handler ---
	handler := hrest.NewFinanceRestHandler(recordUC, accountUC, summaryUC, logger)

	logger.Info("finance service starting", zap.String("http_addr", cfg.HTTPAddr))
	handler.Start(cfg.HTTPAddr)
}
