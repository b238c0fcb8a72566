package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"

	ophttp "orderflow/internal/adapters/in/http"
	"orderflow/internal/adapters/out/memory"
	"orderflow/internal/adapters/out/notify"
	"orderflow/internal/adapters/out/postgres"
	redisout "orderflow/internal/adapters/out/redis"
	"orderflow/internal/adapters/out/stages"
	"orderflow/internal/adapters/out/taskqueue"
	"orderflow/internal/core/application/engine"
	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/application/usecases/queries"
	"orderflow/internal/core/ports"
	"orderflow/internal/jobs"
)

type CompositionRoot struct {
	cfg         Config
	pipelineCfg PipelineConfig
	logger      *slog.Logger

	gormDB      *gorm.DB
	redisClient *redis.Client

	uowFactory ports.UnitOfWorkFactory
	registry   ports.RunRegistry
	pool       *taskqueue.Pool
	sink       ports.NotificationSink
	engine     *engine.Engine
}

// NewCompositionRoot connects the configured stores and builds the engine.
// Close releases everything it opened.
func NewCompositionRoot(ctx context.Context, cfg Config, pipelineCfg PipelineConfig, logger *slog.Logger) (*CompositionRoot, error) {
	c := &CompositionRoot{cfg: cfg, pipelineCfg: pipelineCfg, logger: logger}

	if err := c.openStore(ctx); err != nil {
		return nil, err
	}
	if err := c.openRegistry(ctx); err != nil {
		_ = c.closeConnections()
		return nil, err
	}

	sinks := notify.FanOut{notify.NewLogSink(logger), notify.NewStoreSink(c.uowFactory)}
	if c.redisClient != nil {
		sinks = append(sinks, redisout.NewPublisher(c.redisClient, cfg.RedisChannel))
	}
	c.sink = sinks

	simulator := stages.NewSimulator(logger,
		stages.WithLatency(pipelineCfg.Simulator.Latency),
		stages.WithFailureRate(pipelineCfg.Simulator.FailureRate),
	)
	pipeline, err := pipelineCfg.Pipeline(simulator.Operations())
	if err != nil {
		_ = c.closeConnections()
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	c.pool = taskqueue.NewPool(logger, pipelineCfg.PoolOptions()...)
	c.engine, err = engine.New(c.uowFactory, c.registry, c.pool, c.sink, pipeline, pipelineCfg.EngineConfig(), logger)
	if err != nil {
		_ = c.closeConnections()
		return nil, fmt.Errorf("build engine: %w", err)
	}
	return c, nil
}

func (c *CompositionRoot) openStore(ctx context.Context) error {
	if c.cfg.StoreDriver != StoreDriverPostgres {
		c.uowFactory = memory.NewUnitOfWorkFactory(memory.NewStore())
		c.logger.WarnContext(ctx, "using in-memory store, state is lost on restart")
		return nil
	}

	db, err := gorm.Open(gormpg.Open(c.cfg.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	c.gormDB = db
	if err = db.WithContext(ctx).AutoMigrate(postgres.Models()...); err != nil {
		_ = c.closeConnections()
		return fmt.Errorf("migrate postgres: %w", err)
	}
	c.uowFactory = postgres.NewGormUnitOfWorkFactory(db)
	return nil
}

func (c *CompositionRoot) openRegistry(ctx context.Context) error {
	if c.cfg.RegistryDriver != RegistryDriverRedis {
		c.registry = memory.NewRunRegistry()
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     c.cfg.RedisAddr,
		Password: c.cfg.RedisPassword,
		DB:       c.cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("connect to redis: %w", err)
	}
	c.redisClient = client
	c.registry = redisout.NewRunRegistry(client, c.pipelineCfg.ClaimTTL)
	return nil
}

// Start launches the stage workers.
func (c *CompositionRoot) Start(ctx context.Context) error {
	return c.pool.Start(ctx)
}

// Close drains the engine, then the workers, then closes connections.
func (c *CompositionRoot) Close(ctx context.Context) error {
	engineErr := c.engine.Shutdown(ctx)
	poolErr := c.pool.Stop(ctx)
	return errors.Join(engineErr, poolErr, c.closeConnections())
}

func (c *CompositionRoot) closeConnections() error {
	var errList []error
	if c.redisClient != nil {
		errList = append(errList, c.redisClient.Close())
	}
	if c.gormDB != nil {
		if sqlDB, err := c.gormDB.DB(); err == nil {
			errList = append(errList, sqlDB.Close())
		}
	}
	return errors.Join(errList...)
}

func (c *CompositionRoot) Engine() *engine.Engine {
	return c.engine
}

func (c *CompositionRoot) orderUoWFactory() commands.OrderUoWFactory {
	return FuncOrderUoWFactory(func() commands.OrderUoW {
		return c.uowFactory.Create()
	})
}

func (c *CompositionRoot) executionUoWFactory() commands.ExecutionUoWFactory {
	return FuncExecutionUoWFactory(func() commands.ExecutionUoW {
		return c.uowFactory.Create()
	})
}

func (c *CompositionRoot) CreateCreateOrderCommandHandler() commands.CreateOrderCommandHandler {
	return commands.NewCreateOrderCommandHandler(c.orderUoWFactory())
}

func (c *CompositionRoot) CreateStartOrderWorkflowCommandHandler() commands.StartOrderWorkflowCommandHandler {
	return commands.NewStartOrderWorkflowCommandHandler(c.engine)
}

func (c *CompositionRoot) CreateCancelOrderWorkflowCommandHandler() commands.CancelOrderWorkflowCommandHandler {
	return commands.NewCancelOrderWorkflowCommandHandler(c.engine)
}

func (c *CompositionRoot) CreateAdvanceOrderStatusCommandHandler() commands.AdvanceOrderStatusCommandHandler {
	return commands.NewAdvanceOrderStatusCommandHandler(c.orderUoWFactory(), c.sink, c.logger)
}

func (c *CompositionRoot) CreateCancelOrderCommandHandler() commands.CancelOrderCommandHandler {
	return commands.NewCancelOrderCommandHandler(c.orderUoWFactory(), c.engine, c.registry, c.sink, c.logger)
}

func (c *CompositionRoot) CreateStartAwaitingWorkflowsCommandHandler() commands.StartAwaitingWorkflowsCommandHandler {
	return commands.NewStartAwaitingWorkflowsCommandHandler(c.orderUoWFactory(), c.engine, c.logger)
}

func (c *CompositionRoot) CreateCleanupStageExecutionsCommandHandler() commands.CleanupStageExecutionsCommandHandler {
	return commands.NewCleanupStageExecutionsCommandHandler(c.executionUoWFactory(), c.engine, c.logger)
}

func (c *CompositionRoot) CreateGetOrderWorkflowQueryHandler() queries.GetOrderWorkflowQueryHandler {
	var f queries.OrderReaderFactory = FuncOrderReaderFactory(func() queries.OrderReader {
		return c.uowFactory.Create()
	})
	return queries.NewGetOrderWorkflowQueryHandler(f, c.engine)
}

func (c *CompositionRoot) CreateGetFailedStageExecutionsQueryHandler() queries.GetFailedStageExecutionsQueryHandler {
	var f queries.ExecutionReaderFactory = FuncExecutionReaderFactory(func() queries.ExecutionReader {
		return c.uowFactory.Create()
	})
	return queries.NewGetFailedStageExecutionsQueryHandler(f)
}

func (c *CompositionRoot) CreateJobManager() *jobs.JobManager {
	launcher := c.CreateStartAwaitingWorkflowsCommandHandler()
	cleaner := c.CreateCleanupStageExecutionsCommandHandler()
	return jobs.NewJobManager(&launcher, &cleaner, c.pipelineCfg.JobSchedule(), c.logger)
}

// CreateHTTPServer builds the health server with a readiness check per
// external dependency.
func (c *CompositionRoot) CreateHTTPServer() *ophttp.Server {
	var checks []ophttp.HealthCheck
	if c.gormDB != nil {
		checks = append(checks, ophttp.HealthCheck{Name: "postgres", Check: func(ctx context.Context) error {
			sqlDB, err := c.gormDB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}})
	}
	if c.redisClient != nil {
		checks = append(checks, ophttp.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return c.redisClient.Ping(ctx).Err()
		}})
	}
	return ophttp.NewServer(checks...)
}

type FuncOrderUoWFactory func() commands.OrderUoW

func (f FuncOrderUoWFactory) Create() commands.OrderUoW {
	return f()
}

type FuncExecutionUoWFactory func() commands.ExecutionUoW

func (f FuncExecutionUoWFactory) Create() commands.ExecutionUoW {
	return f()
}

type FuncOrderReaderFactory func() queries.OrderReader

func (f FuncOrderReaderFactory) Create() queries.OrderReader {
	return f()
}

type FuncExecutionReaderFactory func() queries.ExecutionReader

func (f FuncExecutionReaderFactory) Create() queries.ExecutionReader {
	return f()
}
