package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jhoicas/perecederos-pos/internal/application/audit"
	"github.com/jhoicas/perecederos-pos/internal/application/cart"
	"github.com/jhoicas/perecederos-pos/internal/application/checkout"
	"github.com/jhoicas/perecederos-pos/internal/application/inventory"
	"github.com/jhoicas/perecederos-pos/internal/application/ports"
	"github.com/jhoicas/perecederos-pos/internal/application/purchasing"
	"github.com/jhoicas/perecederos-pos/internal/domain/repository"
	"github.com/jhoicas/perecederos-pos/internal/infrastructure/kafka"
	"github.com/jhoicas/perecederos-pos/internal/infrastructure/memory"
	"github.com/jhoicas/perecederos-pos/internal/infrastructure/metrics"
	"github.com/jhoicas/perecederos-pos/internal/infrastructure/postgres"
	"github.com/jhoicas/perecederos-pos/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/perecederos-pos/internal/interfaces/http"
	"github.com/jhoicas/perecederos-pos/pkg/config"
	"github.com/jhoicas/perecederos-pos/pkg/logger"
	"github.com/jhoicas/perecederos-pos/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, cfg.App.Env)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar trazas")
	}

	// Persistencia: postgres en producción, memoria para demos y desarrollo local.
	var (
		txRunner ports.TxRunner
		repos    ports.TxRepos
		products repository.ProductRepository
		sinks    = audit.Multi{audit.NewLogSink(log)}
		ping     func(ctx context.Context) error
	)
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		store := memory.NewStore()
		txRunner, repos, products = store, store.Repos(), store.Products()
		if cfg.Audit.PersistDB {
			sinks = append(sinks, audit.NewRepositorySink(store.Audit()))
		}
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if cfg.Storage.AutoMigrate {
			if err := postgres.EnsureSchema(ctx, pool); err != nil {
				log.Fatal().Err(err).Msg("aplicar esquema")
			}
		}
		txRunner, repos, products = postgres.NewTxRunner(pool), postgres.NewRepos(pool), postgres.NewProductRepository(pool)
		if cfg.Audit.PersistDB {
			sinks = append(sinks, audit.NewRepositorySink(postgres.NewAuditRepository(pool)))
		}
		ping = pool.Ping
	}

	// Caché de productos en Redis; sin REDIS_ADDR se consulta directo al repositorio.
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn().Err(err).Msg("redis no disponible, se continúa sin caché de productos")
		} else {
			defer rdb.Close()
			products = redis.NewProductCache(rdb, products, cfg.Redis.ProductTTL, log)
		}
	}

	// Auditoría: log siempre; Kafka si hay brokers.
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers)
		if err != nil {
			log.Fatal().Err(err).Strs("brokers", cfg.Kafka.Brokers).Msg("productor kafka")
		}
		publisher := kafka.NewAuditPublisher(producer, cfg.Kafka.AuditTopic, log)
		defer publisher.Close()
		sinks = append(sinks, publisher)
	}

	clock := ports.SystemClock{}
	ids := ports.UUIDGenerator{}
	dispatcher := audit.NewDispatcher(sinks, cfg.Audit.Timeout, ids, clock, log)
	collector := metrics.NewCollector()

	ledger := inventory.NewLedger(txRunner, clock, ids, cfg.Inventory.DefaultLowStockThreshold, collector)
	inventoryUC := inventory.NewUseCase(txRunner, repos.Records, repos.Transactions, ledger, dispatcher, clock, log)
	cartUC := cart.NewUseCase(txRunner, products, clock, ids, log)
	checkoutUC := checkout.NewUseCase(checkout.Deps{
		TxRunner:  txRunner,
		Carts:     repos.Carts,
		Records:   repos.Records,
		Orders:    repos.Orders,
		Ledger:    ledger,
		Clock:     clock,
		IDs:       ids,
		TxnIDs:    ports.TxnIDGenerator{},
		Auditor:   dispatcher,
		Metrics:   collector,
		Logger:    log,
		Tolerance: cfg.Inventory.IntegrityTolerance,
	})
	purchasingUC := purchasing.NewUseCase(txRunner, repos.PurchaseOrders, ledger, dispatcher, clock, ids, log)

	app := httpRouter.NewApp(cfg.App.Name)
	httpRouter.Router(app, httpRouter.RouterDeps{
		InventoryUC:       inventoryUC,
		CartUC:            cartUC,
		CheckoutUC:        checkoutUC,
		PurchasingUC:      purchasingUC,
		Auditor:           dispatcher,
		Metrics:           collector,
		Logger:            log,
		ExpiryWarningDays: cfg.Inventory.ExpiryWarningDays,
		Ping:              ping,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	// Eventos de auditoría en vuelo antes de cerrar Kafka y la base.
	dispatcher.Wait()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado de trazas")
	}

	log.Info().Msg("aplicación detenida")
}
