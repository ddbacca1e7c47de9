package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/Pescaderia-api/internal/application/inventory"
	"github.com/jhoicas/Pescaderia-api/internal/domain/repository"
	"github.com/jhoicas/Pescaderia-api/internal/infrastructure/memory"
	"github.com/jhoicas/Pescaderia-api/internal/infrastructure/messaging"
	"github.com/jhoicas/Pescaderia-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/Pescaderia-api/internal/interfaces/http"
	"github.com/jhoicas/Pescaderia-api/pkg/config"
	"github.com/jhoicas/Pescaderia-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Lots.Storage).
		Msg("iniciando aplicación")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var (
		txRunner inventory.TxRunner
		lotRepo  repository.LotRepository
		movRepo  repository.StockMovementRepository
	)
	switch cfg.Lots.Storage {
	case config.StorageMemory:
		store := memory.NewStore()
		txRunner = memory.NewTxRunner(store)
		lotRepo = store.Lots()
		movRepo = store.Movements()
		log.Warn().Msg("almacén en memoria: los lotes se pierden al reiniciar")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if cfg.Lots.AutoMigrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				log.Fatal().Err(err).Msg("migración del esquema de lotes")
			}
		}
		txRunner = postgres.NewTxRunner(pool)
		lotRepo = postgres.NewLotRepository(pool)
		movRepo = postgres.NewStockMovementRepository(pool)
	}

	// Eventos: solo si RabbitMQ está habilitado; sin broker el motor no publica.
	var (
		rmq       *messaging.RabbitMQ
		publisher inventory.EventPublisher
	)
	if cfg.RabbitMQ.Enabled {
		rmq, err = messaging.New(cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a RabbitMQ")
		}
		defer rmq.Close()
		pub, err := messaging.NewPublisher(rmq, messaging.ExchangeLotEvents, cfg.App.Name, log)
		if err != nil {
			log.Fatal().Err(err).Msg("publicador de eventos de lotes")
		}
		publisher = pub
	}

	engine := inventory.NewFIFOEngine(txRunner, publisher, log)
	transformUC := inventory.NewTransformUseCase(txRunner, engine, publisher, log)
	reconcileUC := inventory.NewReconcileUseCase(txRunner, engine, publisher, log)
	lotSyncUC := inventory.NewLotSyncUseCase(txRunner, publisher, log)
	costUC := inventory.NewCostUseCase(lotRepo)
	auditUC := inventory.NewAuditUseCase(lotRepo, movRepo)

	if rmq != nil {
		handlers := messaging.NewPurchaseLineHandlers(lotSyncUC, cfg.Lots.ConflictRetries, log)
		consumer, err := messaging.NewPurchaseLineConsumer(rmq, cfg.RabbitMQ.Queue, handlers, log)
		if err != nil {
			log.Fatal().Err(err).Msg("consumidor de líneas de compra")
		}
		if err := consumer.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("iniciar consumidor de líneas de compra")
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		status := fiber.Map{"status": "ok", "service": cfg.App.Name, "storage": cfg.Lots.Storage}
		if rmq != nil {
			status["rabbitmq"] = rmq.Healthy()
		}
		return c.JSON(status)
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Engine:          engine,
		Transform:       transformUC,
		Reconcile:       reconcileUC,
		LotSync:         lotSyncUC,
		Cost:            costUC,
		Audit:           auditUC,
		ConflictRetries: cfg.Lots.ConflictRetries,
		JWTSecret:       cfg.JWT.Secret,
		Log:             log,
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
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
