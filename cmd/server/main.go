package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chainsight/config"
	"chainsight/internal/api"
	"chainsight/internal/broker"
	"chainsight/internal/graphstore"
	"chainsight/internal/redisclient"
	"chainsight/internal/service"
	"chainsight/internal/store"
	"chainsight/internal/util"
	"chainsight/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting analytics service")

	tp, err := util.InitTracer("chainsight", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	var graph service.GraphAccessor
	if cfg.Graph.URI != "" {
		graphClient, err := graphstore.NewClient(cfg.Graph.URI, cfg.Graph.User, cfg.Graph.Password, cfg.Graph.Database, logger)
		if err != nil {
			log.Fatalf("Failed to connect to Neo4j: %v", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = graphClient.Close(ctx)
		}()
		graph = graphClient
		log.Println("Graph database connected")
	} else {
		log.Println("No graph database configured, serving graph queries from the tabular mirror")
	}

	var cache service.ResultCache
	if cfg.Redis.Enabled {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		cache = redisClient
		log.Println("Redis connected")
	}

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicAlerts)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	alertPublisher := broker.NewAlertPublisher(producer)

	engine := service.NewEngine(db, graph, cache, engineOptions(cfg.Analytics), logger)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	scanConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicAlerts, cfg.Kafka.ConsumerGroup)
	alertWorker := worker.NewAlertWorker(engine, alertPublisher, scanConsumer,
		cfg.Analytics.ScanInterval, cfg.Analytics.SupplierRiskAlertMin)
	go func() {
		if err := alertWorker.Start(workerCtx); err != nil && workerCtx.Err() == nil {
			log.Printf("Alert worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(engine, alertPublisher)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	if err := alertWorker.Stop(); err != nil {
		log.Printf("Error stopping alert worker: %v", err)
	}

	log.Println("Server exited")
}

func engineOptions(a config.AnalyticsConfig) service.Options {
	opts := service.DefaultOptions()
	opts.WindowDays = a.WindowDays
	opts.ForecastWindowDays = a.ForecastWindowDays
	opts.ForecastHorizonDays = a.ForecastHorizonDays
	opts.AnomalyZThreshold = a.AnomalyZThreshold
	opts.DeadStockDays = a.DeadStockDays
	opts.OverstockMultiplier = a.OverstockMultiplier
	opts.SafetyMarginDays = a.SafetyMarginDays
	opts.ServiceLevel = a.ServiceLevel
	opts.OrderCost = a.OrderCost
	opts.HoldingRate = a.HoldingRate
	opts.SimulationFloor = a.SimulationFloor
	opts.CacheTTL = a.CacheTTL
	return opts
}
