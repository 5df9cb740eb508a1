package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/supplyhub/supplyhub/internal/app"
	"github.com/supplyhub/supplyhub/internal/catalog"
	"github.com/supplyhub/supplyhub/internal/catalog/categories"
	"github.com/supplyhub/supplyhub/internal/catalog/items"
	"github.com/supplyhub/supplyhub/internal/catalog/suppliers"
	"github.com/supplyhub/supplyhub/internal/dispatch"
	"github.com/supplyhub/supplyhub/internal/docnum"
	"github.com/supplyhub/supplyhub/internal/issuance"
	"github.com/supplyhub/supplyhub/internal/observability"
	"github.com/supplyhub/supplyhub/internal/orders"
	"github.com/supplyhub/supplyhub/internal/platform/cache"
	"github.com/supplyhub/supplyhub/internal/platform/db"
	"github.com/supplyhub/supplyhub/internal/receiving"
	"github.com/supplyhub/supplyhub/internal/shared"
	"github.com/supplyhub/supplyhub/jobs"
)

// catalogResolver adapts the item and supplier services to the reference
// lookups issuance and receiving need.
type catalogResolver struct {
	items     *items.Service
	suppliers *suppliers.Service
}

func (c catalogResolver) GetItemName(ctx context.Context, itemID int64) (string, error) {
	item, err := c.items.Get(ctx, itemID)
	if err != nil {
		return "", err
	}
	return item.Name, nil
}

func (c catalogResolver) GetSupplierName(ctx context.Context, supplierID int64) (string, error) {
	supplier, err := c.suppliers.Get(ctx, supplierID)
	if err != nil {
		return "", err
	}
	return supplier.Name, nil
}

// stockSource adapts the item service to the cache loader.
type stockSource struct {
	items *items.Service
}

func (s stockSource) StockSnapshot(ctx context.Context, itemID int64) (catalog.StockSnapshot, error) {
	item, err := s.items.Get(ctx, itemID)
	if err != nil {
		return catalog.StockSnapshot{}, err
	}
	return catalog.StockSnapshot{
		ItemID:      item.ID,
		StockNumber: item.StockNumber,
		Name:        item.Name,
		Unit:        item.Unit,
		StockLevel:  item.StockLevel,
	}, nil
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	itemsRepo := items.NewRepository(dbpool)
	suppliersRepo := suppliers.NewRepository(dbpool)
	categoriesRepo := categories.NewRepository(dbpool)

	suppliersService := suppliers.NewService(suppliersRepo)
	categoriesService := categories.NewService(categoriesRepo)

	// Items service and cache reference each other through interfaces;
	// wire the cache after the service exists.
	itemsService := items.NewService(itemsRepo, nil)
	stockCache := catalog.NewStockCache(redisClient, stockSource{items: itemsService}, cfg.StockCacheTTL)
	itemsService = items.NewService(itemsRepo, stockCache)

	resolver := catalogResolver{items: itemsService, suppliers: suppliersService}

	classifier := dispatch.NewClassifier(logger)

	numberAllocator := docnum.NewAllocator(docnum.NewRepository(dbpool))

	ordersRepo := orders.NewRepository(dbpool)
	ordersService := orders.NewService(ordersRepo, classifier, auditLogger, idempotencyStore, orders.ServiceConfig{
		EntityName: cfg.EntityName,
	})

	issuanceRepo := issuance.NewRepository(dbpool)
	issuanceService := issuance.NewService(issuanceRepo, resolver, auditLogger)

	receivingRepo := receiving.NewRepository(dbpool)
	receivingService := receiving.NewService(receivingRepo, resolver, auditLogger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Pool:              dbpool,
		OrdersHandler:     orders.NewHandler(logger, ordersService),
		DocnumHandler:     docnum.NewHandler(logger, numberAllocator),
		IssuanceHandler:   issuance.NewHandler(logger, issuanceService),
		ReceivingHandler:  receiving.NewHandler(logger, receivingService),
		ItemsHandler:      items.NewHandler(logger, itemsService),
		SuppliersHandler:  suppliers.NewHandler(logger, suppliersService),
		CategoriesHandler: categories.NewHandler(logger, categoriesService),
		JobsHandler:       jobs.NewHandler(inspector, logger),
		Metrics:           observability.NewMetrics(),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}
