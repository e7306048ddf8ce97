package app

import (
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/storyquest/internal/infrastructure/config"
	"github.com/eslsoft/storyquest/internal/infrastructure/server"
	"github.com/eslsoft/storyquest/internal/usecase"
)

// Container aggregates the serve dependencies produced by Wire.
type Container struct {
	Config *config.Config
	Logger *logrus.Logger
	Server *server.Server
	Relay  *EventRelay
}

// CreditsContainer carries what the credits commands need.
type CreditsContainer struct {
	Config      *config.Config
	Logger      *logrus.Logger
	Distributor usecase.CreditDistributor
}
