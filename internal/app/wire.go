//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"

	"github.com/eslsoft/storyquest/internal/adapter/connectrpc"
	"github.com/eslsoft/storyquest/internal/adapter/events"
	adaptergrpc "github.com/eslsoft/storyquest/internal/adapter/grpc"
	"github.com/eslsoft/storyquest/internal/adapter/llm"
	"github.com/eslsoft/storyquest/internal/adapter/repository"
	"github.com/eslsoft/storyquest/internal/infrastructure/config"
	"github.com/eslsoft/storyquest/internal/infrastructure/server"
	repo "github.com/eslsoft/storyquest/internal/repository"
	"github.com/eslsoft/storyquest/internal/usecase"
)

var configSet = wire.NewSet(
	config.Load,
	server.NewLogger,
	provideFieldLogger,
)

var databaseSet = wire.NewSet(
	provideEntDriver,
)

var repositorySet = wire.NewSet(
	repository.NewTaskRepository,
	repository.NewStoryRepository,
	repository.NewCardRepository,
	repository.NewAttemptRepository,
	repository.NewCreditRepository,
	wire.Bind(new(repo.CreditLedger), new(*repository.CreditRepository)),
	wire.Bind(new(repo.UserRepository), new(*repository.CreditRepository)),
)

var integrationSet = wire.NewSet(
	llm.NewClient,
	wire.FieldsOf(new(*config.Config), "AI"),
	wire.Bind(new(usecase.TextGenerator), new(*llm.Client)),
	provideSpeechEvaluator,
	provideGenerationGuard,
	provideNATS,
	events.NewHub,
	provideEventPublisher,
	NewEventRelay,
)

var usecaseSet = wire.NewSet(
	provideStoryStyle,
	provideTaskOptions,
	usecase.NewContentGenerator,
	usecase.NewCreditGate,
	usecase.NewTaskUsecase,
	usecase.NewChallengeUsecase,
)

var serviceSet = wire.NewSet(
	connectrpc.NewTaskServiceServer,
	connectrpc.NewChallengeServiceServer,
	adaptergrpc.NewProgressRoutes,
	events.NewWebSocketHandler,
	provideResolver,
)

var serverSet = wire.NewSet(
	server.NewServer,
)

// Initialize builds the serve container using Wire.
func Initialize() (*Container, func(), error) {
	wire.Build(
		configSet,
		databaseSet,
		repositorySet,
		integrationSet,
		usecaseSet,
		serviceSet,
		serverSet,
		wire.Struct(new(Container), "Config", "Logger", "Server", "Relay"),
	)
	return nil, nil, nil
}

// InitializeCredits builds the credit distribution container using Wire.
func InitializeCredits() (*CreditsContainer, func(), error) {
	wire.Build(
		configSet,
		databaseSet,
		repository.NewCreditRepository,
		wire.Bind(new(repo.UserRepository), new(*repository.CreditRepository)),
		provideCreditGranter,
		usecase.NewCreditDistributor,
		wire.Struct(new(CreditsContainer), "Config", "Logger", "Distributor"),
	)
	return nil, nil, nil
}
