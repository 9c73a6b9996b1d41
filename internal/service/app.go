package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/leplonghi/Horamed-AG-sub003/common/database"
	mqttcommon "github.com/leplonghi/Horamed-AG-sub003/common/mqtt"
	rediscommon "github.com/leplonghi/Horamed-AG-sub003/common/redis"
	"github.com/leplonghi/Horamed-AG-sub003/internal/adherence"
	"github.com/leplonghi/Horamed-AG-sub003/internal/config"
	"github.com/leplonghi/Horamed-AG-sub003/internal/consumer"
	"github.com/leplonghi/Horamed-AG-sub003/internal/evaluator"
	httpapi "github.com/leplonghi/Horamed-AG-sub003/internal/http"
	"github.com/leplonghi/Horamed-AG-sub003/internal/notify"
	"github.com/leplonghi/Horamed-AG-sub003/internal/repository"
	"github.com/leplonghi/Horamed-AG-sub003/internal/scheduler"
	"github.com/leplonghi/Horamed-AG-sub003/internal/stock"
	"github.com/leplonghi/Horamed-AG-sub003/internal/store"
)

// App wires repositories, engines, consumers and the HTTP API
type App struct {
	config      *config.Config
	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *mqttcommon.Client
	logger      *zap.Logger

	runner         *consumer.GenerationRunner
	streamConsumer *consumer.StreamConsumer
	chanConsumer   *consumer.ChannelConsumer
	server         *Server
}

type repositories struct {
	profiles    repository.ProfileRepository
	medications repository.MedicationRepository
	schedules   repository.ScheduleRepository
	doses       repository.DoseRepository
	stock       repository.StockRepository
}

// NewApp connects backing services and builds every component
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{config: cfg, logger: logger}

	loc, err := time.LoadLocation(cfg.Schedule.DefaultTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_TIMEZONE %q: %w", cfg.Schedule.DefaultTimezone, err)
	}

	// 1. storage
	repos, err := app.openRepositories()
	if err != nil {
		return nil, err
	}

	// 2. redis (optional)
	var kv store.KVStore
	client := rediscommon.NewRedisClient(&cfg.Redis)
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rediscommon.Ping(pingCtx, client); err != nil {
		logger.Warn("Redis unavailable, using in-process cache and events", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		_ = client.Close()
		kv = store.NewMemoryKVStore()
	} else {
		app.redisClient = client
		kv = store.NewRedisKVStore(client)
	}

	// 3. reschedule signal
	notifier, err := app.buildNotifier()
	if err != nil {
		app.Stop()
		return nil, err
	}

	// 4. engines
	medCache := store.NewMedicationCache(kv, repos.medications, cfg.MedicationCacheTTL, logger)
	expander := scheduler.NewExpander(repos.profiles, repos.schedules, repos.doses, kv, notifier, scheduler.Config{
		WindowDays:      cfg.Schedule.WindowDays,
		MinInterval:     cfg.Schedule.MinInterval,
		Concurrency:     cfg.Schedule.Concurrency,
		DefaultLocation: loc,
	}, logger)
	ledger := stock.NewLedger(repos.stock, repos.doses, repos.schedules, repos.medications, logger)
	analyzer := adherence.NewAnalyzer(repos.doses, repos.profiles, medCache, loc, logger)

	table, err := evaluator.LoadInteractionTable(cfg.Alert.InteractionsFile)
	if err != nil {
		app.Stop()
		return nil, err
	}
	dismissals := evaluator.NewDismissalLedger(kv, cfg.Alert.DismissTTL)
	eval := evaluator.NewEvaluator(repos.profiles, medCache, repos.stock, repos.doses, dismissals, table, evaluator.Config{
		OverdueWindow:        cfg.Alert.OverdueWindow,
		CriticalAfter:        cfg.Alert.CriticalAfter,
		ElderlyAge:           cfg.Alert.ElderlyAge,
		ElderlyCriticalAfter: cfg.Alert.ElderlyCriticalAfter,
		DuplicateWindow:      cfg.Alert.DuplicateWindow,
	}, logger)
	feed := evaluator.NewFeed(eval, dismissals, kv, evaluator.FeedConfig{
		PollInterval: cfg.Alert.PollInterval,
		Cooldown:     cfg.Alert.Cooldown,
	}, logger)

	// 5. medication events
	handler := consumer.NewEventHandler(expander, medCache, feed, logger)
	var events notify.EventPublisher
	if app.redisClient != nil {
		events = notify.NewStreamEventPublisher(app.redisClient, cfg.Events.Stream)
		app.streamConsumer = consumer.NewStreamConsumer(app.redisClient, handler, consumer.StreamConsumerConfig{
			Stream:        cfg.Events.Stream,
			ConsumerGroup: cfg.Events.ConsumerGroup,
			ConsumerName:  cfg.Events.ConsumerName,
			BatchSize:     int64(cfg.Events.BatchSize),
		}, logger)
	} else {
		ch := make(chan notify.MedicationEvent, 64)
		events = notify.NewChannelEventPublisher(ch)
		app.chanConsumer = consumer.NewChannelConsumer(ch, handler, logger)
	}

	app.runner = consumer.NewGenerationRunner(repos.schedules, expander, consumer.RunnerConfig{
		Interval:    cfg.Schedule.RunInterval,
		BatchSize:   cfg.Schedule.BatchSize,
		WindowDays:  cfg.Schedule.WindowDays,
		MissedGrace: cfg.Schedule.MissedGrace,
	}, logger)

	// 6. HTTP
	doseService := NewDoseService(repos.doses, ledger, feed, logger)
	medicationService := NewMedicationService(repos.medications, events, logger)

	router := httpapi.NewRouter(logger)
	router.RegisterHealthRoutes()
	router.RegisterAlertRoutes(httpapi.NewAlertHandler(feed, logger))
	router.RegisterAdherenceRoutes(httpapi.NewAdherenceHandler(analyzer, logger))
	router.RegisterDoseRoutes(httpapi.NewDoseHandler(expander, doseService, logger))
	router.RegisterStockRoutes(httpapi.NewStockHandler(ledger, repos.medications, logger))
	router.RegisterMedicationRoutes(httpapi.NewMedicationHandler(medicationService, logger))
	app.server = NewServer(cfg.HTTP.Addr, router, logger)

	return app, nil
}

func (a *App) openRepositories() (*repositories, error) {
	if !a.config.DBEnabled {
		a.logger.Warn("DB_ENABLED=false, using in-memory repositories")
		mem := repository.NewMemoryStore()
		return &repositories{profiles: mem, medications: mem, schedules: mem, doses: mem, stock: mem}, nil
	}

	db, err := database.NewPostgresDB(&a.config.Database)
	if err != nil {
		return nil, err
	}
	if err := repository.Migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}
	a.db = db

	meds := repository.NewPostgresMedicationRepo(db, a.logger)
	return &repositories{
		profiles:    meds,
		medications: meds,
		schedules:   meds,
		doses:       repository.NewPostgresDoseRepo(db, a.logger),
		stock:       repository.NewPostgresStockRepo(db, a.logger),
	}, nil
}

func (a *App) buildNotifier() (notify.Notifier, error) {
	cfg := a.config
	switch cfg.Notify.Mode {
	case "none":
		return notify.Nop{}, nil
	case "stream":
		if a.redisClient == nil {
			a.logger.Warn("NOTIFY_MODE=stream without Redis, reschedule signals are dropped")
			return notify.Nop{}, nil
		}
		return notify.NewStreamNotifier(a.redisClient, cfg.Notify.Stream), nil
	case "mqtt":
		client, err := mqttcommon.NewClient(&cfg.MQTT, a.logger)
		if err != nil {
			return nil, err
		}
		a.mqttClient = client
		return notify.NewMQTTNotifier(client, cfg.Notify.Topic, client.QoS()), nil
	case "webhook":
		if cfg.Notify.WebhookURL == "" {
			return nil, fmt.Errorf("NOTIFY_WEBHOOK_URL is required when NOTIFY_MODE=webhook")
		}
		return notify.NewWebhookNotifier(cfg.Notify.WebhookURL, a.logger), nil
	default:
		return nil, fmt.Errorf("unsupported NOTIFY_MODE %q", cfg.Notify.Mode)
	}
}

// Start runs the consumers and the HTTP server until ctx is done or one fails
func (a *App) Start(ctx context.Context) error {
	a.logger.Info("Starting horamed-scheduler",
		zap.Bool("db_enabled", a.config.DBEnabled),
		zap.Bool("redis", a.redisClient != nil),
		zap.String("notify_mode", a.config.Notify.Mode),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.runner.Start(ctx) })
	if a.streamConsumer != nil {
		g.Go(func() error { return a.streamConsumer.Start(ctx) })
	}
	if a.chanConsumer != nil {
		g.Go(func() error { return a.chanConsumer.Start(ctx) })
	}
	g.Go(func() error {
		if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.server.Stop(shutdownCtx)
	})
	return g.Wait()
}

// Stop releases connections
func (a *App) Stop() error {
	a.logger.Info("Stopping horamed-scheduler")

	if a.mqttClient != nil {
		a.mqttClient.Close()
	}
	if a.redisClient != nil {
		if err := rediscommon.Close(a.redisClient); err != nil {
			a.logger.Error("Failed to close redis", zap.Error(err))
		}
	}
	if err := database.Close(a.db); err != nil {
		a.logger.Error("Failed to close database", zap.Error(err))
	}
	return nil
}
