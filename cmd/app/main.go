package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"orderflow/cmd"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configs := getConfigs()
	if err := configs.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	pipelineCfg, err := cmd.LoadPipelineConfig(configs.PipelineConfigPath)
	if err != nil {
		log.Fatalf("Failed to load pipeline config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cmd.NewCompositionRoot(ctx, configs, pipelineCfg, logger)
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}
	if err = app.Start(ctx); err != nil {
		log.Fatalf("Failed to start task pool: %v", err)
	}

	jobManager := app.CreateJobManager()
	if err = jobManager.StartAll(); err != nil {
		log.Fatalf("Failed to start jobs: %v", err)
	}

	if err = run(ctx, app, jobManager.StopAll, configs.HTTPPort); err != nil {
		log.Fatalf("Service stopped with error: %v", err)
	}
}

// run serves the health endpoints until ctx is cancelled, then stops the jobs before
// draining the engine so no run starts during shutdown.
func run(ctx context.Context, app *cmd.CompositionRoot, stopJobs func(), port string) error {
	e := echo.New()
	e.HideBanner = true
	app.CreateHTTPServer().Register(e)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := e.Start(fmt.Sprintf("0.0.0.0:%s", port)); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		stopJobs()
		return errors.Join(e.Shutdown(shutdownCtx), app.Close(shutdownCtx))
	})
	return g.Wait()
}

func getConfigs() cmd.Config {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	redisDB, err := strconv.Atoi(envOrDefault("REDIS_DB", "0"))
	if err != nil {
		log.Fatalf("REDIS_DB must be a number: %v", err)
	}

	config := cmd.Config{
		HTTPPort:           envOrDefault("HTTP_PORT", "8080"),
		StoreDriver:        envOrDefault("STORE_DRIVER", cmd.StoreDriverPostgres),
		RegistryDriver:     envOrDefault("REGISTRY_DRIVER", cmd.RegistryDriverLocal),
		DBHost:             os.Getenv("DB_HOST"),
		DBPort:             os.Getenv("DB_PORT"),
		DBUser:             os.Getenv("DB_USER"),
		DBPassword:         os.Getenv("DB_PASSWORD"),
		DBName:             os.Getenv("DB_NAME"),
		DBSslMode:          os.Getenv("DB_SSLMODE"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            redisDB,
		RedisChannel:       os.Getenv("REDIS_CHANNEL"),
		PipelineConfigPath: os.Getenv("PIPELINE_CONFIG"),
	}
	return config
}

func envOrDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
