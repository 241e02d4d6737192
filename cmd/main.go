package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Rosdorosh/Crypto-Liga/bybit"
	"github.com/Rosdorosh/Crypto-Liga/config"
	"github.com/Rosdorosh/Crypto-Liga/db"
	"github.com/Rosdorosh/Crypto-Liga/handlers"
	"github.com/Rosdorosh/Crypto-Liga/repositories"
	api "github.com/Rosdorosh/Crypto-Liga/routes"
	"github.com/Rosdorosh/Crypto-Liga/scheduler"
	"github.com/Rosdorosh/Crypto-Liga/services"
	"github.com/Rosdorosh/Crypto-Liga/ton"
	_ "github.com/lib/pq"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Применение схемы
	if err := db.Migrate(ctx, dbConn); err != nil {
		logger.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	}

	// Биржевой фид цен
	feed := bybit.NewService(bybit.Config{
		WSURL:   cfg.BybitWSURL,
		RESTURL: cfg.BybitRESTURL,
	}, logger)
	if err := feed.Start(ctx); err != nil {
		logger.Error("failed to start price feed", slog.Any("error", err))
		os.Exit(1)
	}
	defer feed.Close()
	logger.Info("price feed started")

	// Платёжный шлюз
	gateway := ton.NewClient(cfg.TonGatewayURL, cfg.TonAPIKey)

	// Инициализация репозиториев
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	settingsRepo := repositories.NewPostgresSettingsRepository(dbConn)
	financeRepo := repositories.NewPostgresFinanceRepository(dbConn)
	resultsRepo := repositories.NewPostgresResultsRepository(dbConn)
	logger.Info("repositories initialized")

	// Инициализация сервисов
	registry := scheduler.NewRegistry(scheduler.NewRealClock())
	ledgerService := services.NewLedgerService(financeRepo, teamRepo, settingsRepo, gateway, logger)
	referralService := services.NewReferralService(financeRepo)
	bracketService := services.NewBracketService(matchRepo, teamRepo, nil, logger)
	tournamentScheduler := services.NewTournamentScheduler(registry, matchRepo, teamRepo, settingsRepo, feed, logger)
	resolutionService := services.NewResolutionService(
		matchRepo, teamRepo, settingsRepo, resultsRepo, feed, ledgerService, registry.Clock(), logger)
	tournamentService := services.NewTournamentService(
		registry, settingsRepo, teamRepo, resultsRepo, bracketService, tournamentScheduler, feed, logger)

	bracketService.BindStarter(tournamentScheduler)
	tournamentScheduler.BindResolver(resolutionService)
	resolutionService.BindAdvancer(bracketService)
	resolutionService.BindRestarter(tournamentService)
	tournamentService.BindResolver(resolutionService)
	logger.Info("services initialized")

	// Первичное заполнение настроек и команд
	if err := tournamentService.EnsureSettings(ctx); err != nil {
		logger.Error("failed to seed settings", slog.Any("error", err))
		os.Exit(1)
	}
	if err := tournamentService.EnsureTeams(ctx); err != nil {
		logger.Error("failed to seed teams", slog.Any("error", err))
		os.Exit(1)
	}

	// Инициализация обработчиков HTTP
	router := api.InitRoutes(api.Handlers{
		User:       handlers.NewUserHandler(ledgerService, referralService),
		Tournament: handlers.NewTournamentHandler(tournamentService),
		Admin:      handlers.NewAdminHandler(tournamentService, ledgerService),
	}, cfg.AdminToken)
	logger.Info("routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if err := server.Close(); err != nil {
				logger.Error("forced server close failed", slog.Any("error", err))
			}
		}

		// Остановить таймеры до закрытия соединений
		registry.CancelAll()
		cancel()
	}

	logger.Info("server stopped")
}
