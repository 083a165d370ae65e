package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/trellis-kanban/trellis-api/internal/config"
	"github.com/trellis-kanban/trellis-api/internal/platform/postgres"
	"github.com/trellis-kanban/trellis-api/internal/realtime"
	"github.com/trellis-kanban/trellis-api/internal/service"
	"github.com/trellis-kanban/trellis-api/internal/store"
	"github.com/trellis-kanban/trellis-api/internal/worker"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores
	boardStore      store.BoardStore
	columnStore     store.ColumnStore
	taskStore       store.TaskStore
	membershipStore store.MembershipStore
	commentStore    store.CommentStore
	userStore       store.UserStore

	// Realtime fanout
	registry    *realtime.TopicRegistry
	broadcaster realtime.Broadcaster
	redisClient *redis.Client
	redisBridge *realtime.RedisBridge
	bridgeStop  context.CancelFunc

	// Services
	boardService   *service.BoardService
	taskService    *service.TaskService
	memberService  *service.MemberService
	commentService *service.CommentService

	// Background jobs
	jobQueue   *worker.Queue
	workerPool *worker.Pool
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger, and
// database connection that must be established before application
// initialization.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	// Stores
	app.boardStore = postgres.NewPostgresBoardStore(db, logger)
	app.columnStore = postgres.NewPostgresColumnStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)
	app.membershipStore = postgres.NewPostgresMembershipStore(db, logger)
	app.commentStore = postgres.NewPostgresCommentStore(db, logger)
	app.userStore = postgres.NewPostgresUserStore(db, logger)

	// Realtime fanout. The local broadcaster always runs; when Redis is
	// configured a bridge mirrors events across instances.
	app.registry = realtime.NewTopicRegistry()
	local := realtime.NewLocalBroadcaster(app.registry, logger)

	if cfg.Redis.Addr != "" {
		app.redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := app.redisClient.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		app.redisBridge = realtime.NewRedisBridge(app.redisClient, cfg.Redis.Channel, local, logger)

		bridgeCtx, cancel := context.WithCancel(context.Background())
		app.bridgeStop = cancel
		go app.redisBridge.Run(bridgeCtx)

		logger.Info("Redis event bridge started",
			"addr", cfg.Redis.Addr,
			"channel", cfg.Redis.Channel)
	}
	app.broadcaster = newBroadcaster(local, app.redisBridge)

	// Background workers for mention fanout.
	app.jobQueue = worker.NewQueue(cfg.Worker.QueueSize, logger)
	app.workerPool = worker.NewPool(app.jobQueue, cfg.Worker.Count, logger)
	app.workerPool.Start()

	// Services
	app.boardService = service.NewBoardService(
		db,
		app.boardStore,
		app.columnStore,
		app.taskStore,
		app.membershipStore,
		app.broadcaster,
		logger,
	)
	app.taskService = service.NewTaskService(
		db,
		app.taskStore,
		app.columnStore,
		app.boardStore,
		app.membershipStore,
		app.broadcaster,
		logger,
	)
	app.memberService = service.NewMemberService(
		db,
		app.membershipStore,
		app.userStore,
		app.broadcaster,
		logger,
	)
	app.commentService = service.NewCommentService(
		db,
		app.commentStore,
		app.taskStore,
		app.membershipStore,
		app.userStore,
		app.broadcaster,
		app.jobQueue,
		logger,
	)

	logger.Info("Application initialized successfully")
	return app, nil
}

// newBroadcaster composes the publish path services use. The local
// broadcaster always receives the event so sessions on the publishing
// instance see it; the bridge, when configured, mirrors it to the other
// instances.
func newBroadcaster(local *realtime.LocalBroadcaster, bridge *realtime.RedisBridge) realtime.Broadcaster {
	if bridge == nil {
		return local
	}
	return realtime.FanoutBroadcaster{local, bridge}
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.workerPool != nil {
		app.workerPool.Stop()
	}

	if app.bridgeStop != nil {
		app.bridgeStop()
	}
	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Error("Error closing redis client", "error", err)
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
