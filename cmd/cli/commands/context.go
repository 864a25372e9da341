package commands

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/hourbank/internal/config"
	"github.com/jakechorley/hourbank/pkg/core/model"
	"github.com/jakechorley/hourbank/pkg/core/services"
)

// AppContext holds the application dependencies shared across all commands. It is filled in
// by the root command before any subcommand runs.
type AppContext struct {
	Cfg    *config.Config
	Core   *services.Core
	Logger *zap.Logger
	Ctx    context.Context
}

func (a *AppContext) location() *time.Location {
	if a.Cfg == nil {
		return time.Local
	}
	return a.Cfg.Location()
}

func (a *AppContext) today() model.Date {
	return model.DateOf(time.Now(), a.location())
}
