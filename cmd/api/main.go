package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	appkardex "github.com/jfloresavalos/Nelaglow-sub001/internal/application/kardex"
	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain/repository"
	"github.com/jfloresavalos/Nelaglow-sub001/internal/infrastructure/memory"
	"github.com/jfloresavalos/Nelaglow-sub001/internal/infrastructure/postgres"
	httpRouter "github.com/jfloresavalos/Nelaglow-sub001/internal/interfaces/http"
	"github.com/jfloresavalos/Nelaglow-sub001/pkg/config"
	"github.com/jfloresavalos/Nelaglow-sub001/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.App.Storage).
		Msg("iniciando aplicación")

	ctx := context.Background()

	var (
		txRunner    appkardex.TxRunner
		movRepo     repository.StockMovementRepository
		productRepo repository.ProductRepository
		batchRepo   repository.BulkEntryRepository
	)
	switch cfg.App.Storage {
	case "memory":
		// Solo development: mismo contrato que PostgreSQL, sin durabilidad
		store := memory.NewStore()
		txRunner = memory.NewTxRunner(store)
		movRepo = memory.NewStockMovementRepository(store)
		productRepo = memory.NewProductRepository(store)
		batchRepo = memory.NewBulkEntryRepository(store)
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		txRunner = postgres.NewTxRunner(pool)
		movRepo = postgres.NewStockMovementRepository(pool)
		productRepo = postgres.NewProductRepository(pool)
		batchRepo = postgres.NewBulkEntryRepository(pool)
	}

	ledgerUC := appkardex.NewLedgerUseCase(txRunner, movRepo, batchRepo)
	balanceUC := appkardex.NewBalanceQueryUseCase(productRepo, movRepo)
	kardexUC := appkardex.NewKardexViewUseCase(movRepo)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestLogger(log))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Nelaglow Kardex API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Ledger:    ledgerUC,
		Balance:   balanceUC,
		Kardex:    kardexUC,
		JWTSecret: cfg.JWT.Secret,
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

	log.Info().Msg("aplicación detenida")
}
