package app

import (
	"context"
	"strings"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/storyquest/internal/adapter/actor"
	"github.com/eslsoft/storyquest/internal/adapter/events"
	"github.com/eslsoft/storyquest/internal/adapter/lock"
	"github.com/eslsoft/storyquest/internal/adapter/repository"
	"github.com/eslsoft/storyquest/internal/adapter/speech"
	"github.com/eslsoft/storyquest/internal/infrastructure/config"
	"github.com/eslsoft/storyquest/internal/infrastructure/database"
	repo "github.com/eslsoft/storyquest/internal/repository"
	"github.com/eslsoft/storyquest/internal/usecase"
)

func provideFieldLogger(logger *logrus.Logger) logrus.FieldLogger {
	return logger
}

func provideEntDriver(cfg *config.Config) (*entsql.Driver, func(), error) {
	return database.NewEntDriver(cfg)
}

// provideCreditGranter uses a pgx batch on PostgreSQL and the ledger elsewhere.
func provideCreditGranter(cfg *config.Config, ledger *repository.CreditRepository, logger *logrus.Logger) (repo.BulkCreditGranter, func(), error) {
	if !cfg.UsesPostgres() {
		return repository.NewLedgerCreditGranter(ledger, logger), func() {}, nil
	}
	pool, cleanup, err := database.NewPool(cfg, logger)
	if err != nil {
		if cleanup != nil {
			cleanup()
		}
		return nil, nil, err
	}
	return repository.NewBatchCreditGranter(pool, logger), cleanup, nil
}

func provideStoryStyle(cfg *config.Config) (usecase.StoryStyle, error) {
	return usecase.LoadStoryStyle(cfg.Generation.StoryStyleFile)
}

func provideTaskOptions(cfg *config.Config) usecase.TaskUsecaseOptions {
	costs := usecase.DefaultCreditCosts()
	if cfg.Credits.Recognition > 0 {
		costs.Recognition = cfg.Credits.Recognition
	}
	if cfg.Credits.Story > 0 {
		costs.Story = cfg.Credits.Story
	}
	if cfg.Credits.Cards > 0 {
		costs.Cards = cfg.Credits.Cards
	}
	return usecase.TaskUsecaseOptions{Costs: costs, GenerationLockTTL: cfg.Generation.LockTTL}
}

// provideGenerationGuard shares locks through Redis when an address is configured.
func provideGenerationGuard(cfg *config.Config, logger logrus.FieldLogger) (usecase.GenerationGuard, func(), error) {
	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		logger.Info("generation guard kept in process")
		return lock.NewMemoryGuard(), func() {}, nil
	}
	rdb, err := lock.NewRedisClient(context.Background(), cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	return lock.NewRedisGuard(rdb, logger), func() { _ = rdb.Close() }, nil
}

// provideNATS returns nil when no NATS URL is configured.
func provideNATS(cfg *config.Config, logger logrus.FieldLogger) (*events.NATSPublisher, func(), error) {
	if strings.TrimSpace(cfg.NATS.URL) == "" {
		return nil, func() {}, nil
	}
	p, err := events.NewNATSPublisher(cfg.NATS, logger)
	if err != nil {
		return nil, nil, err
	}
	return p, p.Close, nil
}

func provideEventPublisher(nats *events.NATSPublisher, hub *events.Hub) usecase.TaskEventPublisher {
	if nats != nil {
		return nats
	}
	return hub
}

func provideSpeechEvaluator(cfg *config.Config, logger logrus.FieldLogger) (usecase.SpeechEvaluator, func(), error) {
	if strings.EqualFold(strings.TrimSpace(cfg.Speech.Provider), "gcp") {
		ev, err := speech.NewGCPEvaluator(context.Background(), cfg.Speech, logger)
		if err != nil {
			return nil, nil, err
		}
		return ev, func() { _ = ev.Close() }, nil
	}
	ev, err := speech.NewHTTPEvaluator(cfg.Speech, cfg.AI, logger)
	if err != nil {
		return nil, nil, err
	}
	return ev, func() {}, nil
}

func provideResolver(cfg *config.Config, users repo.UserRepository, logger logrus.FieldLogger) *actor.Resolver {
	return actor.NewResolver(cfg.Auth, users, logger)
}

// EventRelay feeds task events from NATS into the local websocket hub.
type EventRelay struct {
	nats *events.NATSPublisher
	hub  *events.Hub
}

func NewEventRelay(nats *events.NATSPublisher, hub *events.Hub) *EventRelay {
	return &EventRelay{nats: nats, hub: hub}
}

// Run blocks until ctx is done. Without NATS events already reach the hub directly.
func (r *EventRelay) Run(ctx context.Context) error {
	if r.nats == nil {
		<-ctx.Done()
		return nil
	}
	return r.nats.Forward(ctx, r.hub)
}
