package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gartstein/jobscraper/internal/ingest/config"
	"github.com/gartstein/jobscraper/internal/ingest/controller"
	"github.com/gartstein/jobscraper/internal/ingest/db"
	"github.com/gartstein/jobscraper/internal/ingest/dispatcher"
	"github.com/gartstein/jobscraper/internal/ingest/events"
	"github.com/gartstein/jobscraper/internal/ingest/geocode"
	"github.com/gartstein/jobscraper/internal/ingest/handlers"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config (default $JOBSCRAPER_CONFIG or internal/ingest/config/config.yaml)")
	flag.Parse()

	logger := initLogger()
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	cfg, err := config.Load(config.Path(*configPath))
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	policy, err := cfg.Policy()
	if err != nil {
		logger.Fatal("invalid geocode policy", zap.Error(err))
	}

	repo, err := db.NewRepository(cfg.Database())
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer repo.Close()

	producer, err := events.NewProducer(cfg.KafkaBrokers, logger, cfg.EventsTopic)
	if err != nil {
		logger.Fatal("failed to initialize Kafka producer", zap.Error(err))
	}
	defer producer.Close()

	var geocoder controller.Geocoder
	if cfg.Geocoding() {
		geocoder = geocode.NewClient(cfg.Geocoder(), logger)
	} else {
		logger.Warn("No Kakao API key configured, geocoding disabled")
	}

	ingestSvc := controller.NewIngestService(repo, producer, geocoder, policy, logger)

	d, err := dispatcher.New(ingestSvc, cfg.Workers, logger)
	if err != nil {
		logger.Fatal("failed to initialize dispatcher", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.GroupID, cfg.ResultsTopic, d, producer, logger)
	consumer.Start(ctx)

	server := handlers.NewServer(cfg.GRPCPort, cfg.HTTPPort, logger)
	httpHandler := handlers.NewHTTPHandler(ingestSvc, d, logger)
	if err := server.RegisterHTTPGateway(
		ctx,
		[]grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		},
		httpHandler); err != nil {
		logger.Fatal("Failed to register HTTP gateway", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	waitForShutdown(errCh, server, logger)

	cancel()
	consumer.Close()
	<-consumer.Done()
	logger.Info("Ingestion service stopped")
}

// initLogger initializes a Zap production logger.
func initLogger() *zap.Logger {
	logger, _ := zap.NewProduction()
	return logger
}

// waitForShutdown blocks until an interrupt, SIGTERM or server failure, then
// shuts down the servers.
func waitForShutdown(errCh <-chan error, server *handlers.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case <-stop:
	case err := <-errCh:
		if err != nil {
			logger.Error("Server failed", zap.Error(err))
		}
	}

	server.Stop()
	logger.Info("Servers stopped properly")
}
