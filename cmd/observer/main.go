package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ingest-service/config"
	"ingest-service/internal/broker"
	"ingest-service/internal/buffer"
	"ingest-service/internal/dimension"
	"ingest-service/internal/extract"
	"ingest-service/internal/load"
	"ingest-service/internal/pipeline"
	"ingest-service/internal/transform"
	"ingest-service/internal/trigger"
	"ingest-service/internal/util"
	"ingest-service/internal/warehouse"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting ingestion observer")

	tp, err := util.InitTracer("ingest-observer", cfg.Observ.JaegerEndpoint)
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

	wh, err := warehouse.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer wh.Close()
	log.Println("Database connected")

	ctx := context.Background()
	if err := wh.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure warehouse schema: %v", err)
	}

	buf, err := buffer.NewClient(cfg.Minio)
	if err != nil {
		log.Fatalf("Failed to connect to object buffer: %v", err)
	}
	if err := buf.EnsureBuckets(ctx); err != nil {
		log.Fatalf("Failed to ensure buckets: %v", err)
	}
	log.Println("Object buffer connected")

	costing, err := dimension.LoadCostingTable(cfg.Costing.Dir, cfg.Costing.SheetRow)
	if err != nil {
		log.Fatalf("Failed to load costing table: %v", err)
	}

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicRuns)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	events := broker.NewRunEventPublisher(producer)

	runner := pipeline.NewRunner(buf, events,
		pipeline.Extract(extract.New(buf, cfg.Minio.SalesPrefix, cfg.Minio.ProductPrefix)),
		pipeline.Transform(transform.New()),
		pipeline.Dimensions(dimension.NewBuilder(wh, costing)),
		pipeline.Load(load.New(wh), buf),
	)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		log.Printf("Serving metrics on port %s", cfg.Observ.PrometheusPort)
		if err := http.ListenAndServe(":"+cfg.Observ.PrometheusPort, mux); err != nil {
			log.Printf("Metrics server error: %v", err)
		}
	}()

	guard := trigger.NewGuard(cfg.Trigger, runner)

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()

	watchErr := make(chan error, 1)
	go func() { watchErr <- guard.Watch(watchCtx) }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Println("Shutting down observer...")
		watchCancel()
		<-watchErr
	case err := <-watchErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Fatalf("Watcher failed: %v", err)
		}
	}

	log.Println("Observer exited")
}
