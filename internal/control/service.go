// Package control wires the application together and manages its lifecycle.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dpuwatch/dpuwatch/internal/core/config"
	"github.com/dpuwatch/dpuwatch/internal/core/domain"
	"github.com/dpuwatch/dpuwatch/internal/core/worker"
	"github.com/dpuwatch/dpuwatch/internal/emit"
	"github.com/dpuwatch/dpuwatch/internal/health"
	redisclient "github.com/dpuwatch/dpuwatch/internal/infra/redis"
	"github.com/dpuwatch/dpuwatch/internal/infra/storage"
	"github.com/dpuwatch/dpuwatch/internal/infra/storage/memory"
	"github.com/dpuwatch/dpuwatch/internal/infra/storage/postgres"
	"github.com/dpuwatch/dpuwatch/internal/monitor"
	"github.com/dpuwatch/dpuwatch/internal/notify"
	"github.com/dpuwatch/dpuwatch/internal/recovery"
	"github.com/dpuwatch/dpuwatch/internal/report"
	"github.com/dpuwatch/dpuwatch/internal/telemetry"
)

// Service is the main application struct that manages the monitor lifecycle.
type Service struct {
	cfg config.AppConfig

	cards     storage.CardRepository
	snapshots storage.SnapshotRepository
	verdicts  storage.VerdictRepository
	attempts  storage.AttemptRepository
	queue     storage.RecoveryQueue

	sources   map[domain.CardID]telemetry.Source
	evaluator *health.Evaluator
	handler   *recovery.Handler

	pipelines      map[domain.CardID]*monitor.Pipeline
	recoveryWorker *monitor.RecoveryWorker
	pruners        []*worker.Pruner
	healthMon      *health.Monitor
	healthServer   *health.Server
	simulator      *telemetry.Simulator
	runner         *recovery.Runner
	techsupport    *report.TechSupport
	emitter        emit.Emitter

	db          *postgres.DB
	redisClient *redisclient.Client
	log         *slog.Logger
}

// NewService creates a Service with all dependencies initialized from config.
func NewService(ctx context.Context, cfg config.AppConfig) (*Service, error) {
	log := slog.Default()

	s := &Service{
		cfg:       cfg,
		pipelines: make(map[domain.CardID]*monitor.Pipeline),
		log:       log,
	}

	// 1. Storage
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate("migrations"); err != nil {
			db.Close()
			return nil, err
		}
		s.db = db
		s.cards = postgres.NewCardRepo(db)
		s.snapshots = postgres.NewSnapshotRepo(db)
		s.verdicts = postgres.NewVerdictRepo(db)
		s.attempts = postgres.NewAttemptRepo(db)
		log.Info("using PostgreSQL storage")
	} else {
		store := memory.New()
		s.cards = store.Cards()
		s.snapshots = store.Snapshots()
		s.verdicts = store.Verdicts()
		s.attempts = store.Attempts()
		s.queue = store.Queue()
		log.Info("using memory storage")
	}

	// 2. Recovery queue: Redis when configured, otherwise in-process
	if cfg.Redis.URL != "" {
		rc, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		s.redisClient = rc
		s.queue = redisclient.NewRecoveryQueue(rc)
		log.Info("using Redis recovery queue")
	} else if s.queue == nil {
		s.queue = memory.New().Queue()
	}

	// 3. Telemetry sources and card registration
	s.simulator = telemetry.NewSimulator(cfg.Simulator.Seed, cfg.Simulator.Injection, log)
	s.sources = make(map[domain.CardID]telemetry.Source, len(cfg.Cards))
	for _, cardCfg := range cfg.Cards {
		card := &domain.Card{
			ID:              cardCfg.ID,
			Model:           cardCfg.Model,
			FirmwareVersion: cardCfg.FirmwareVersion,
			TargetFirmware:  cardCfg.TargetFirmware,
			Status:          domain.FirmwareInstalled,
			RegisteredAt:    time.Now().UTC(),
		}
		if err := s.cards.Upsert(ctx, card); err != nil {
			return nil, fmt.Errorf("failed to register card %s: %w", cardCfg.ID, err)
		}

		switch cardCfg.Source {
		case "agent":
			if cardCfg.AgentURL == "" {
				return nil, fmt.Errorf("card %s: agent source requires agent_url", cardCfg.ID)
			}
			s.sources[cardCfg.ID] = telemetry.NewAgentSource(cardCfg.AgentURL)
		default:
			s.simulator.Register(card)
			s.sources[cardCfg.ID] = s.simulator
		}
	}

	// 4. Event emitter
	if len(cfg.Kafka.Brokers) > 0 {
		emitter, err := emit.NewKafkaEmitter(ctx, cfg.Kafka, log)
		if err != nil {
			return nil, fmt.Errorf("failed to init kafka emitter: %w", err)
		}
		s.emitter = emitter
		log.Info("emitting events to kafka", "topic", cfg.Kafka.Topic)
	} else {
		s.emitter = emit.NewLogEmitter(log)
	}

	// 5. Alerting
	var notifier monitor.Notifier
	var attemptNotifier monitor.AttemptNotifier
	if cfg.Slack.WebhookURL != "" {
		sn, err := notify.NewSlackNotifier(cfg.Slack.WebhookURL, cfg.Slack.Channel, cfg.Slack.Cooldown)
		if err != nil {
			return nil, fmt.Errorf("failed to init slack notifier: %w", err)
		}
		if s.redisClient != nil {
			// Replicas share one cooldown window per card.
			sn.SetCooldownStore(s.redisClient)
		}
		notifier = sn
		attemptNotifier = sn
	}

	// 6. Recovery
	executor := recovery.NewSimulatedExecutor(cfg.Recovery.StepFailureProbability, 0, cfg.Simulator.Seed)
	s.runner = recovery.NewRunner(executor)
	backoff := &recovery.ExponentialBackoff{
		InitialDelay: cfg.Recovery.InitialDelay,
		MaxDelay:     cfg.Recovery.MaxDelay,
		MaxAttempts:  cfg.Recovery.MaxAttempts,
	}
	handler := recovery.NewHandler(s.queue, s.attempts, s.cards, s.runner, backoff)
	s.handler = handler
	s.recoveryWorker = monitor.NewRecoveryWorker(handler, s.queue, cfg.Recovery.DrainInterval, s.emitter, attemptNotifier, log)

	// 7. Pipelines and pruners
	s.evaluator = health.NewEvaluator(health.Policy{
		TemperatureWarning:  cfg.Policy.TemperatureWarning,
		TemperatureCritical: cfg.Policy.TemperatureCritical,
		MaxErrors:           cfg.Policy.MaxErrors,
		MaxInterrupts:       cfg.Policy.MaxInterrupts,
		MaxPowerWatts:       cfg.Policy.MaxPowerWatts,
	})

	cardIDs := make([]domain.CardID, 0, len(cfg.Cards))
	for _, cardCfg := range cfg.Cards {
		cardIDs = append(cardIDs, cardCfg.ID)

		s.pipelines[cardCfg.ID] = monitor.NewPipeline(monitor.Config{
			CardID:       cardCfg.ID,
			PollInterval: cardCfg.PollInterval,
			Source:       s.sources[cardCfg.ID],
			Evaluator:    s.evaluator,
			Snapshots:    s.snapshots,
			Verdicts:     s.verdicts,
			Recovery:     handler,
			Emitter:      s.emitter,
			Notifier:     notifier,
			Logger:       log,
		})

		if cardCfg.RetentionPeriod > 0 {
			s.pruners = append(s.pruners, worker.NewPruner(cardCfg, s.snapshots, s.attempts, log))
		}
	}

	// 8. Fleet health monitor and HTTP server
	s.healthMon = health.NewMonitor(cardIDs, s.verdicts, s.snapshots, s.queue)
	s.healthServer = health.NewServer(s.healthMon, s.cards, cfg.Server.Port)

	s.techsupport = report.NewTechSupport(s.cards, s.snapshots, s.verdicts, s.attempts)

	return s, nil
}

// Start starts the service and all its components.
func (s *Service) Start(ctx context.Context) error {
	go func() {
		if err := s.healthServer.Start(); err != nil {
			s.log.Error("health server failed", "error", err)
		}
	}()

	if s.db != nil {
		s.db.StartMetricsCollector(ctx)
	}

	for id, p := range s.pipelines {
		s.log.Info("starting monitor pipeline", "card", id)
		go func(id domain.CardID, p *monitor.Pipeline) {
			if err := p.Start(ctx); err != nil {
				s.log.Error("pipeline failed", "card", id, "error", err)
			}
		}(id, p)
	}

	s.log.Info("starting recovery worker")
	go func() {
		if err := s.recoveryWorker.Start(ctx); err != nil {
			s.log.Error("recovery worker failed", "error", err)
		}
	}()

	for _, p := range s.pruners {
		go p.Start(ctx)
	}

	return nil
}

// Stop stops the service.
func (s *Service) Stop(ctx context.Context) error {
	s.log.Info("stopping service")

	for _, p := range s.pipelines {
		p.Stop()
	}
	s.recoveryWorker.Stop()

	if s.emitter != nil {
		s.emitter.Close()
	}
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.log.Warn("failed to close redis", "error", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Warn("failed to close db", "error", err)
		}
	}

	return s.healthServer.Stop(ctx)
}

// FleetStatus returns the aggregated fleet report.
func (s *Service) FleetStatus(ctx context.Context) *health.FleetReport {
	return s.healthMon.CheckFleet(ctx)
}
