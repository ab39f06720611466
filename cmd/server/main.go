package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/lavega/order-pipeline/app/categories"
	"github.com/lavega/order-pipeline/app/database"
	"github.com/lavega/order-pipeline/app/events"
	"github.com/lavega/order-pipeline/app/export"
	"github.com/lavega/order-pipeline/app/importer"
	"github.com/lavega/order-pipeline/app/orders"
	"github.com/lavega/order-pipeline/app/reports"
	"github.com/lavega/order-pipeline/config"
	"github.com/lavega/order-pipeline/models"
	"github.com/lavega/order-pipeline/models/memstore"
)

type orderStore interface {
	importer.OrderStore
	orders.OrderStore
	reports.OrderReader
	categories.ProductLister
}

type categoryStore interface {
	categories.CategoryStore
	SeedCategories(ctx context.Context, categories []models.Category) error
}

type stores struct {
	orders     orderStore
	categories categoryStore
	batches    importer.BatchStore
	close      func() error
}

type publisher interface {
	events.Publisher
	io.Closer
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open order store: %v", err)
	}
	defer st.close()

	pub, err := openPublisher(ctx, cfg.Events)
	if err != nil {
		log.Fatalf("Failed to start event publisher: %v", err)
	}
	defer pub.Close()

	sortKey, err := reports.ParseSortKey(cfg.Reports.AssemblySort)
	if err != nil {
		log.Fatalf("Invalid reports.assembly_sort: %v", err)
	}

	rate, err := limiter.NewRateFromFormatted(cfg.HTTP.UploadRate)
	if err != nil {
		log.Fatalf("Invalid http.upload_rate %q: %v", cfg.HTTP.UploadRate, err)
	}
	uploadLimit := stdlib.NewMiddleware(limiter.New(memory.NewStore(), rate))

	imp := importer.NewImporter(importer.NewParser(cfg.Import), st.orders, st.batches, pub)
	resolver := categories.NewResolver(st.categories, st.orders)
	aggregator := reports.NewAggregator(st.orders, st.categories)
	tracker := orders.NewTracker(st.orders, pub)

	importHandler := importer.NewImportHandler(imp, cfg.HTTP.UploadMaxBytes)
	catHandler := categories.NewCategoryHandler(resolver)
	reportHandler := reports.NewReportHandler(aggregator, export.NewXLSXSink(), sortKey)
	orderHandler := orders.NewOrderHandler(tracker)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	})

	mux.Handle("POST /imports", uploadLimit.Handler(http.HandlerFunc(importHandler.HandleUpload)))
	mux.HandleFunc("GET /imports", importHandler.HandleListBatches)

	mux.HandleFunc("GET /categories", catHandler.HandleGetAll)
	mux.HandleFunc("POST /categories", catHandler.HandleCreate)
	mux.HandleFunc("GET /products/unassigned", catHandler.HandleUnassigned)
	mux.HandleFunc("PUT /products/category", catHandler.HandleAssign)

	mux.HandleFunc("GET /orders", orderHandler.HandleList)
	mux.HandleFunc("GET /orders/missing-date", orderHandler.HandleMissingDate)
	mux.HandleFunc("GET /orders/pending-dates", orderHandler.HandlePendingDates)
	mux.HandleFunc("GET /orders/{number}", orderHandler.HandleGetOrder)
	mux.HandleFunc("POST /orders/{number}/complete", orderHandler.HandleComplete)
	mux.HandleFunc("POST /orders/{number}/reopen", orderHandler.HandleReopen)
	mux.HandleFunc("PUT /orders/{number}/delivery-date", orderHandler.HandleSetDeliveryDate)

	mux.HandleFunc("GET /reports/purchasing/{date}", reportHandler.HandlePurchasing)
	mux.HandleFunc("GET /reports/assembly/{date}", reportHandler.HandleAssembly)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.HTTP.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(mux)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           loggingMiddleware(corsHandler),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on http://%s", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
	log.Println("Server stopped")
}

func openStores(ctx context.Context, cfg config.DatabaseConfig) (*stores, error) {
	if cfg.Driver == config.DriverMemory {
		s := memstore.New()
		if err := s.SeedCategories(ctx, models.DefaultCategories); err != nil {
			return nil, err
		}
		log.Println("Using in-memory order store, data is lost on restart")
		return &stores{orders: s, categories: s, batches: s, close: func() error { return nil }}, nil
	}

	db, err := database.Open(cfg.DSN(), cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	return &stores{
		orders:     models.NewOrdersRepository(db),
		categories: models.NewCategoriesRepository(db),
		batches:    models.NewImportBatchesRepository(db),
		close:      sqlDB.Close,
	}, nil
}

func openPublisher(ctx context.Context, cfg config.EventsConfig) (publisher, error) {
	switch cfg.Driver {
	case config.EventsKafka:
		return events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	case config.EventsRedis:
		client, err := events.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		return events.NewRedisPublisher(client, cfg.Redis.Channel), nil
	}
	return events.NopPublisher{}, nil
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s from %s - %v", r.Method, r.RequestURI, r.RemoteAddr, time.Since(start))
	})
}
