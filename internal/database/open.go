package database

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/medirank/medirank-api/internal/config"
	"github.com/medirank/medirank-api/internal/repository"
)

// Stores are the repositories for the configured driver.
type Stores struct {
	Driver      string
	Inspections repository.InspectionRepository
	Users       repository.UserRepository

	ping  func(context.Context) error
	close func(context.Context) error
}

// Ping checks that the backing database is reachable.
func (s *Stores) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases the connection.
func (s *Stores) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// Open connects the store selected by cfg.StoreDriver and prepares its
// schema: indexes for MongoDB, auto-migration for PostgreSQL.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Stores, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		m, err := ConnectMongo(ctx, cfg.Mongo, log)
		if err != nil {
			return nil, err
		}
		inspections := repository.NewMongoInspectionRepository(m.Database)
		users := repository.NewMongoUserRepository(m.Database)
		if err := inspections.EnsureIndexes(ctx); err != nil {
			log.Warn("mongo: inspection indexes", zap.Error(err))
		}
		if err := users.EnsureIndexes(ctx); err != nil {
			log.Warn("mongo: user indexes", zap.Error(err))
		}
		return &Stores{Driver: cfg.StoreDriver, Inspections: inspections, Users: users, ping: m.Ping, close: m.Close}, nil

	case config.DriverPostgres:
		pg, err := ConnectPostgres(cfg.Database, log)
		if err != nil {
			return nil, err
		}
		log.Info("synchronizing database schema")
		if err := repository.MigratePostgres(pg.DB); err != nil {
			_ = pg.Close(ctx)
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return &Stores{
			Driver:      cfg.StoreDriver,
			Inspections: repository.NewPostgresInspectionRepository(pg.DB),
			Users:       repository.NewPostgresUserRepository(pg.DB),
			ping:        pg.Ping,
			close:       pg.Close,
		}, nil

	case config.DriverMemory:
		log.Warn("using in-memory store; data is lost on exit")
		return &Stores{
			Driver:      cfg.StoreDriver,
			Inspections: repository.NewMemoryInspectionRepository(),
			Users:       repository.NewMemoryUserRepository(),
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
