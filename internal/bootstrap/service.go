package bootstrap

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/libra-dev/deploy-engine/internal/executor"
	"github.com/libra-dev/deploy-engine/internal/executor/mongostore"
	"github.com/libra-dev/deploy-engine/internal/httpapi"
	"github.com/libra-dev/deploy-engine/internal/logging"
	"github.com/libra-dev/deploy-engine/internal/postgres"
	"github.com/libra-dev/deploy-engine/internal/projectstore"
	"github.com/libra-dev/deploy-engine/internal/quota"
	"github.com/libra-dev/deploy-engine/internal/rabbitmq"
	"github.com/libra-dev/deploy-engine/internal/redislock"
	"github.com/libra-dev/deploy-engine/internal/sandbox"
	"github.com/libra-dev/deploy-engine/internal/workflow"
	"github.com/libra-dev/deploy-engine/migrations"
)

// mongoDatabaseName is the single Mongo database this process uses for
// durable step results. Unlike Postgres, the config carries no separate
// database-name field — MongoURI is expected to be a connection string
// without a trailing path segment, so the name is fixed here.
const mongoDatabaseName = "deploy_engine"

// defaultPlanDefaults seeds the FREE-period refresh path until a real
// plan-limits service exists to replace it (see DESIGN.md).
var defaultPlanDefaults = quota.NewStaticPlanDefaults(map[string]quota.DeployUploadDefaults{
	"FREE": {AINums: 50, EnhanceNums: 50, UploadLimit: 5, DeployLimit: 3, Seats: 1, ProjectNums: 3},
})

// Service composes every adapter and the deployment workflow into one
// runnable process.
type Service struct {
	Logger   logging.Logger
	postgres *postgres.Connection
	mongo    *mongo.Client
	rabbit   *rabbitmq.Connection
	redis    *redislock.Connection
	server   *Server
}

// NewService wires every collaborator from cfg and returns a Service ready
// to Run. Callers are responsible for calling Close when done (e.g. in
// tests); Run itself never returns until the server stops.
func NewService(ctx context.Context, cfg *Config) (*Service, error) {
	logger, err := logging.NewZapLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: init logger: %w", err)
	}

	pg := postgres.NewConnection(cfg.DatabaseURL)
	if err := pg.Open(ctx); err != nil {
		return nil, fmt.Errorf("bootstrap: open postgres: %w", err)
	}

	if err := pg.Migrate(ctx, migrations.FS, "."); err != nil {
		return nil, fmt.Errorf("bootstrap: migrate postgres: %w", err)
	}

	db, err := pg.DB(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: postgres handle: %w", err)
	}

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect mongo: %w", err)
	}

	if err := mongoClient.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("bootstrap: ping mongo: %w", err)
	}

	rabbit := rabbitmq.NewConnection(cfg.RabbitMQURI)

	redisConn := redislock.NewConnection(cfg.RedisURI)
	locker := redislock.NewRedisLocker(redisConn)

	projects := projectstore.NewPostgresStore(db)
	ledger := quota.NewPostgresLedger(db, defaultPlanDefaults, locker)

	sandboxes := sandbox.Default()
	sandbox.SeedDistributed(ctx, sandboxes, locker, func(r *sandbox.Registry) {
		r.Register("e2b", func() sandbox.Provider {
			return sandbox.NewBreakerProvider("e2b", sandbox.NewE2BProvider(cfg.E2BBaseURL, cfg.E2BAPIKey))
		})
		r.Register("daytona", func() sandbox.Provider {
			return sandbox.NewBreakerProvider("daytona", sandbox.NewDaytonaProvider(cfg.DaytonaBaseURL, cfg.DaytonaAPIKey))
		})
	})

	store := mongostore.New(mongoClient.Database(mongoDatabaseName), "")
	ex := executor.New(store)

	publisher := workflow.NewRabbitMQPublisher(rabbit)

	wf := workflow.New(workflow.Deps{
		Executor:               ex,
		Quota:                  ledger,
		Projects:               projects,
		Sandboxes:              sandboxes,
		Publisher:              publisher,
		DispatcherDomain:       cfg.DispatcherDomain(),
		DispatchNamespace:      cfg.DispatchNamespace,
		CloudflareAccountID:    cfg.CloudflareAccountID,
		CloudflareAPIToken:     cfg.CloudflareAPIToken,
		BuildTimeout:           cfg.BuildTimeout,
		DeployTimeout:          cfg.DeployTimeout,
		SandboxCleanupTimeout:  cfg.SandboxCleanupTimeout,
		SandboxCreationTimeout: cfg.SandboxCreationTimeout,
	})

	app := fiber.New()
	httpapi.NewHandler(wf).Register(app)

	server := NewServer(cfg.ServerAddress, app)

	return &Service{
		Logger:   logger,
		postgres: pg,
		mongo:    mongoClient,
		rabbit:   rabbit,
		redis:    redisConn,
		server:   server,
	}, nil
}

// Run starts the HTTP server and blocks until it stops.
func (s *Service) Run() {
	NewLauncher(
		WithLogger(s.Logger),
		RunApp("HTTP Server", s.server),
	).Run()
}

// Close releases every connection the Service opened.
func (s *Service) Close(ctx context.Context) error {
	var err error

	if cerr := s.postgres.Close(); cerr != nil {
		err = cerr
	}

	if cerr := s.mongo.Disconnect(ctx); cerr != nil {
		err = cerr
	}

	if cerr := s.rabbit.Close(); cerr != nil {
		err = cerr
	}

	if cerr := s.redis.Close(); cerr != nil {
		err = cerr
	}

	return err
}
