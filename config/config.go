package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL string
	ServerPort  int
	AdminToken  string

	BybitWSURL   string
	BybitRESTURL string

	TonGatewayURL string
	TonAPIKey     string
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Загружаем .env файл, если он есть. Ошибку не считаем фатальной.
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	adminToken := os.Getenv("ADMIN_TOKEN")
	if adminToken == "" {
		return nil, fmt.Errorf("ADMIN_TOKEN environment variable is not set")
	}

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080" // Порт по умолчанию
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	wsURL := os.Getenv("BYBIT_WS_URL")
	if wsURL == "" {
		wsURL = "wss://stream.bybit.com/v5/public/spot"
	}

	restURL := os.Getenv("BYBIT_REST_URL")
	if restURL == "" {
		restURL = "https://api.bybit.com"
	}

	cfg := &Config{
		DatabaseURL:   dbURL,
		ServerPort:    port,
		AdminToken:    adminToken,
		BybitWSURL:    wsURL,
		BybitRESTURL:  restURL,
		TonGatewayURL: os.Getenv("TON_GATEWAY_URL"),
		TonAPIKey:     os.Getenv("TON_API_KEY"),
	}

	return cfg, nil
}
