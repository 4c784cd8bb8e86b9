package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"deltarb/internal/api"
	"deltarb/internal/bot"
	"deltarb/internal/config"
	"deltarb/internal/exchange"
	"deltarb/internal/models"
	"deltarb/internal/monitor"
	"deltarb/internal/repository"
	"deltarb/internal/service"
	"deltarb/pkg/utils"
)

func main() {
	// .env удобен локально, в проде переменные приходят из окружения
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := utils.InitGlobalLogger(utils.LogConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	defer logger.Sync()

	utils.Info("starting delta-neutral arbitrage bot",
		utils.Exchange(cfg.Venues.ExchangeA),
		utils.Symbol(cfg.Venues.SymbolA),
		utils.String("exchange_b", cfg.Venues.ExchangeB),
		utils.String("symbol_b", cfg.Venues.SymbolB))

	db, err := initDatabase(cfg)
	if err != nil {
		utils.Error("failed to connect to database", utils.Err(err))
		os.Exit(1)
	}
	defer db.Close()

	// Репозитории
	positionRepo := repository.NewPositionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	accountRepo := repository.NewAccountRepository(db, []byte(cfg.Security.EncryptionKey))

	notificationService := service.NewNotificationService(notificationRepo)
	notify := notificationService.Record

	// Площадки
	venues, err := connectVenues(cfg, accountRepo)
	if err != nil {
		utils.Error("failed to connect venues", utils.Err(err))
		os.Exit(1)
	}
	defer func() {
		for name, venue := range venues {
			if err := venue.Close(); err != nil {
				utils.Warn("error closing venue", utils.Exchange(name), utils.Err(err))
			}
		}
	}()

	// Реестр, исполнитель, движок
	ledger := bot.NewPositionLedger(positionRepo)
	retrier := bot.NewOrderRetrier(cfg.Trading.MaxRetries, cfg.Trading.RetryDelay, cfg.Trading.OrderTimeout)
	executor := bot.NewDualLegExecutor(venues, retrier, ledger, notify)
	engine := bot.NewEngine(executor, cfg.Trading.QueueSize, cfg.Trading.StaleAfter)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Восстановление после рестарта: поднять позиции и сверить с площадками
	recovery := bot.NewRecoveryManager(positionRepo, ledger, venues, notify)
	if report, err := recovery.Recover(ctx); err != nil {
		utils.Warn("recovery incomplete, continuing with empty ledger", utils.Err(err))
	} else {
		utils.Info("recovery complete",
			utils.Int("restored", report.Restored),
			utils.Int("matched", report.Matched),
			utils.Int("missing_legs", report.MissingLegs),
			utils.Int("orphaned_legs", report.OrphanedLegs))
	}

	go engine.Run(ctx)

	// Монитор спреда кормит движок
	spreadMonitor := monitor.NewSpreadMonitor(monitor.Config{
		ExchangeA:      cfg.Venues.ExchangeA,
		ExchangeB:      cfg.Venues.ExchangeB,
		SymbolA:        cfg.Venues.SymbolA,
		SymbolB:        cfg.Venues.SymbolB,
		EntrySpreadPct: cfg.Trading.EntrySpreadPct,
		OrderSize:      cfg.Trading.OrderSize,
		QuoteTTL:       cfg.Trading.StaleAfter,
	}, func(opp *models.SpreadOpportunity) {
		engine.Submit(opp)
	})
	if err := spreadMonitor.Start(venues); err != nil {
		utils.Error("failed to start spread monitor", utils.Err(err))
		os.Exit(1)
	}

	// Ops API
	deps := &api.Dependencies{
		PositionService:     service.NewPositionService(ledger),
		NotificationService: notificationService,
		StatusService:       service.NewStatusService(ledger, engine, venues),
		OpsTokenHash:        cfg.Security.OpsTokenHash,
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.SetupRoutes(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		utils.Info("ops API listening", utils.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.Error("server failed", utils.Err(err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	utils.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		utils.Error("server forced to shutdown", utils.Err(err))
	}

	utils.Info("bot stopped")
}

// initDatabase открывает соединение с PostgreSQL и настраивает пул
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	utils.Info("connected to database", utils.String("dsn", cfg.Database.DSNWithoutPassword()))
	return db, nil
}

// connectVenues подключает обе площадки. Ключи берутся из БД
// (зашифрованы AES-256-GCM); если аккаунта там нет, он создаётся
// из переменных окружения <NAME>_API_KEY / <NAME>_SECRET_KEY.
func connectVenues(cfg *config.Config, accounts *repository.AccountRepository) (map[string]exchange.Exchange, error) {
	venues := make(map[string]exchange.Exchange, 2)

	for _, name := range []string{cfg.Venues.ExchangeA, cfg.Venues.ExchangeB} {
		venue, err := exchange.NewExchange(name)
		if err != nil {
			return nil, err
		}

		acc, err := accounts.GetByName(name)
		if err != nil {
			acc, err = accountFromEnv(name, accounts, err)
			if err != nil {
				return nil, err
			}
		}

		if err := venue.Connect(acc.APIKey, acc.SecretKey); err != nil {
			return nil, fmt.Errorf("connect %s: %w", name, err)
		}

		symbol := cfg.Venues.SymbolA
		if name == cfg.Venues.ExchangeB {
			symbol = cfg.Venues.SymbolB
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := venue.SetLeverage(ctx, symbol, cfg.Trading.Leverage); err != nil {
			utils.Warn("failed to set leverage",
				utils.Exchange(name),
				utils.Symbol(symbol),
				utils.Err(err))
		}
		cancel()

		bot.UpdateExchangeStatus(name, true, 0)
		venues[name] = venue
		utils.Info("venue connected", utils.Exchange(name))
	}

	return venues, nil
}

// accountFromEnv создаёт аккаунт площадки из окружения при первом запуске
func accountFromEnv(name string, accounts *repository.AccountRepository, lookupErr error) (*models.VenueAccount, error) {
	prefix := strings.ToUpper(name)
	apiKey := os.Getenv(prefix + "_API_KEY")
	secret := os.Getenv(prefix + "_SECRET_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("no account for %s: %w (set %s_API_KEY)", name, lookupErr, prefix)
	}

	acc := &models.VenueAccount{Name: name, APIKey: apiKey, SecretKey: secret}
	if err := accounts.Create(acc); err != nil {
		// Площадка работает и без записи в БД, ключи уже в руках
		utils.Warn("failed to persist venue account", utils.Exchange(name), utils.Err(err))
	}
	return acc, nil
}
