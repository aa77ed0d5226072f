// orchestrator is the HTTP/admin entrypoint for the agent orchestration
// runtime: it wires the Agent Executor, HITL queue/escalation engine, and
// continuous-learning feedback loop together and exposes the CLI/admin
// surface of spec §6 over gin.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"github.com/coreflow-dev/agentcore/pkg/activitylog"
	"github.com/coreflow-dev/agentcore/pkg/agent"
	"github.com/coreflow-dev/agentcore/pkg/blueprint"
	"github.com/coreflow-dev/agentcore/pkg/config"
	"github.com/coreflow-dev/agentcore/pkg/database"
	"github.com/coreflow-dev/agentcore/pkg/events"
	"github.com/coreflow-dev/agentcore/pkg/feedback"
	"github.com/coreflow-dev/agentcore/pkg/hitl"
	"github.com/coreflow-dev/agentcore/pkg/model"
	"github.com/coreflow-dev/agentcore/pkg/notify"
	"github.com/coreflow-dev/agentcore/pkg/registry"
	"github.com/coreflow-dev/agentcore/pkg/resilience"
	"github.com/coreflow-dev/agentcore/pkg/retention"
	"github.com/coreflow-dev/agentcore/pkg/slack"
	"github.com/coreflow-dev/agentcore/pkg/statestore/postgres"
	"github.com/coreflow-dev/agentcore/pkg/tenant"
	"github.com/coreflow-dev/agentcore/pkg/vectorstore"
	"github.com/coreflow-dev/agentcore/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: Could not load %s file: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	ginMode := getEnv("GIN_MODE", "debug")
	gin.SetMode(ginMode)

	log.Printf("Starting %s", version.Full())
	log.Printf("HTTP Port: %s", httpPort)
	log.Printf("Config Directory: %s", *configDir)

	ctx := context.Background()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load database config: %v", err)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Printf("Error closing database client: %v", err)
		}
	}()
	log.Println("connected to PostgreSQL database")

	store := postgres.New(dbClient)
	log.Println("state store ready (postgres)")

	activityLog := newActivityLog()
	vectorStore := vectorstore.NewMemoryStore()
	bus := events.NewBus()
	stream := events.NewActivityStream(activityLog)
	events.Bridge(bus, stream)

	reg := registry.New()
	if err := reg.RegisterAll(blueprint.Seeds()); err != nil {
		log.Fatalf("Failed to seed blueprint catalog: %v", err)
	}
	reg.SetStatePersistenceHook(func(ctx context.Context, s *model.AgentState) error {
		return store.SaveAgentState(ctx, s)
	})

	tenants := tenant.New(cfg)
	go tenants.Run(ctx)
	defer tenants.Stop()

	breakers := resilience.NewBreakers(cfg)

	dispatcher := notify.NewDispatcher()
	if slackSvc := slack.NewService(slack.ServiceConfig{
		Token:        os.Getenv("SLACK_TOKEN"),
		Channel:      os.Getenv("SLACK_CHANNEL"),
		DashboardURL: os.Getenv("SLACK_DASHBOARD_URL"),
	}); slackSvc != nil {
		dispatcher.Register(notify.NewSlackChannel(slackSvc))
		log.Println("slack notification channel registered")
	}

	queue := hitl.New(cfg.Queue)
	go queue.Run(ctx, cfg.Queue)
	escalations := hitl.NewEscalationManager(queue, dispatcher, bus)
	escalations.SetPlaybookStore(store)
	hitlManager := hitl.NewManager(queue, bus)

	feedbackCollector := feedback.NewCollector(store, vectorStore)
	hitlManager.SetFeedbackRecorder(feedbackCollector)

	executor := agent.NewExecutor(cfg.Executor, reg, tenants, store, bus)
	executor.SetHITLBridge(hitlManager)
	hitlManager.SetExecutor(executor)

	retentionSvc := retention.NewService(cfg.Retention, store)
	retentionSvc.Start(ctx)
	defer retentionSvc.Stop()

	app := &api{
		cfg:         cfg,
		store:       store,
		reg:         reg,
		tenants:     tenants,
		executor:    executor,
		queue:       queue,
		hitlManager: hitlManager,
		escalations: escalations,
		breakers:    breakers,
	}

	router := gin.Default()
	app.registerRoutes(router)

	log.Printf("HTTP server listening on :%s", httpPort)
	if err := router.Run(":" + httpPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// newActivityLog picks a Redis-backed activity log when REDIS_ADDR is set,
// falling back to the in-memory implementation otherwise — mirroring
// pkg/slack.Service's nil-safe "missing configuration, not an error" idiom.
func newActivityLog() activitylog.Log {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		slog.Default().Warn("REDIS_ADDR not set, activity log falling back to in-memory")
		return activitylog.NewMemoryLog()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		slog.Default().Error("redis unreachable, activity log falling back to in-memory", "addr", addr, "error", err)
		return activitylog.NewMemoryLog()
	}
	return activitylog.NewRedisLog(client)
}
