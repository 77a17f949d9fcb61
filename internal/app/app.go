// Package app wires the storage, service, and fan-out layers into one
// runtime container shared by the server and the maintenance commands.
package app

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/bobby4fischer/pettrack/internal/config"
	"github.com/bobby4fischer/pettrack/internal/db"
	"github.com/bobby4fischer/pettrack/internal/fanout"
	"github.com/bobby4fischer/pettrack/internal/repository"
	"github.com/bobby4fischer/pettrack/internal/service"
)

type App struct {
	DB     *sql.DB
	Hub    *fanout.Hub
	Config config.Config
	Users  repository.UserRepo

	Sessions service.SessionService
	Tasks    service.TaskService
	Rewards  service.RewardService
	Pets     service.PetService
	Activity service.ActivityService
	Digests  service.DigestService
}

// New opens the database and wires every layer. The caller owns Close.
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	uow := db.NewSQLiteUnitOfWork(database)
	hub := fanout.NewHub()

	var observers []service.UseCaseObserver
	if cfg.LogUseCases {
		observers = append(observers, service.NewSlogUseCaseObserver(logger))
	}

	return &App{
		DB:       database,
		Hub:      hub,
		Config:   cfg,
		Users:    repository.NewSQLiteUserRepo(database),
		Sessions: service.NewSessionService(database, uow, cfg, hub, observers...),
		Tasks:    service.NewTaskService(database, uow, cfg, hub, observers...),
		Rewards:  service.NewRewardService(database, uow, cfg, hub, observers...),
		Pets:     service.NewPetService(database, uow, cfg, hub, observers...),
		Activity: service.NewActivityService(database, hub, observers...),
		Digests:  service.NewDigestService(database, uow, cfg, service.NewLogMailer(logger), observers...),
	}, nil
}

func (a *App) Close() error {
	return a.DB.Close()
}
