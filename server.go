package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"compassdev/database/postgres"
	"compassdev/httpserver"
	"compassdev/interview"
	"compassdev/logger"
	"compassdev/modelapi/geminiapi"
	"compassdev/report"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperdxio/opentelemetry-logs-go/exporters/otlp/otlplogs"
	sdk "github.com/hyperdxio/opentelemetry-logs-go/sdk/logs"
	"github.com/hyperdxio/otel-config-go/otelconfig"
)

const defaultPort = "80"

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}
	godotenv.Load()
	production := os.Getenv("PRODUCTION") != ""

	otelShutdown, err := otelconfig.ConfigureOpenTelemetry()
	if err != nil {
		log.Fatalf("Error setting up OTel SDK - %e", err)
	}
	defer otelShutdown()
	ctx := context.Background()

	logExporter, _ := otlplogs.NewExporter(ctx)
	loggerProvider := sdk.NewLoggerProvider(sdk.WithBatcher(logExporter))
	defer loggerProvider.Shutdown(ctx)

	LogMiddleware := logger.Connect(logger.LoggerConnectProps{Production: production, LoggerProvider: loggerProvider})
	defer LogMiddleware.Sync()

	db := postgres.Connect(ctx, postgres.DatabaseConnectProps{Logger: LogMiddleware})
	gemini := geminiapi.Connect(ctx, geminiapi.GeminiConnectProps{Logger: LogMiddleware})

	stateMachine := interview.Connect(interview.InterviewConnectProps{
		Logger: LogMiddleware,
		Store:  db,
		LLM:    gemini,
	})

	orchestrator := report.Connect(report.OrchestratorConnectProps{
		Logger:    LogMiddleware,
		Store:     db,
		LLM:       gemini,
		Attempts:  envInt("REPORT_RETRY_ATTEMPTS", 0),
		BaseDelay: time.Duration(envInt("REPORT_RETRY_BASE_MS", 0)) * time.Millisecond,
		CacheSize: envInt("REPORT_CACHE_SIZE", 0),
	})

	server := httpserver.Connect(httpserver.HTTPConnectProps{
		Logger:    LogMiddleware,
		DB:        db,
		Interview: stateMachine,
		Reports:   orchestrator,
	})

	Logger := LogMiddleware.Logger(ctx)

	if production == false {
		Logger.Info("[Server] Starting in development mode", zap.String("port", port))
	} else {
		Logger.Info("[Server] Starting in production mode", zap.String("port", port))
	}

	if err := http.ListenAndServe(":"+port, server.Router()); err != nil {
		Logger.Fatal("[Server] HTTP server stopped", zap.Error(err))
	}
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
