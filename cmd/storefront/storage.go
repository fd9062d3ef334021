package main

import (
	"context"
	"fmt"

	"github.com/example/storefront/pkg/audit"
	"github.com/example/storefront/pkg/config"
	grpcserver "github.com/example/storefront/pkg/grpc"
	"github.com/example/storefront/pkg/port"
	"github.com/example/storefront/pkg/repository"
	"github.com/example/storefront/pkg/repository/memstore"
	"go.uber.org/zap"
)

type store interface {
	port.Store
	port.CartRepository
	port.UserDirectory
	repository.Seeder
}

// backends holds every connection the process opened. close releases them in
// reverse order of opening.
type backends struct {
	store      store
	users      port.UserDirectory
	sessions   port.SessionStore
	ledger     port.MergeLedger
	orderCache port.OrderCache
	auditTrail audit.Reader
	recorder   audit.Recorder
	probes     []grpcserver.Probe

	closers []func(ctx context.Context) error
}

func openBackends(ctx context.Context, cfg *config.Config, logger *zap.Logger) (b *backends, err error) {
	b = &backends{recorder: audit.Discard{}}
	defer func() {
		if err != nil {
			b.close(ctx, logger)
		}
	}()

	switch cfg.Storage.Driver {
	case "mysql":
		mysqlStore, err := repository.NewMySQLStore(&cfg.MySQL)
		if err != nil {
			return b, err
		}
		b.closers = append(b.closers, func(context.Context) error { return mysqlStore.Close() })
		b.store = mysqlStore
		logger.Info("MySQL connected", zap.String("database", cfg.MySQL.Database))

		redisRepo := repository.NewRedisRepository(&cfg.Redis, cfg.Cart)
		b.closers = append(b.closers, func(context.Context) error { return redisRepo.Close() })
		if err := redisRepo.Ping(ctx); err != nil {
			return b, fmt.Errorf("redis: %w", err)
		}
		logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))

		b.sessions = redisRepo
		b.ledger = redisRepo
		b.orderCache = redisRepo
		b.users = repository.NewCachedUsers(mysqlStore, redisRepo, logger)
		b.probes = append(b.probes, redisRepo.Ping)
	case "memory":
		memStore := memstore.New()
		sessions := memstore.NewSessions()
		b.store = memStore
		b.sessions = sessions
		b.ledger = sessions
		b.users = memStore
		logger.Warn("Using in-memory storage; data is lost on restart")
	default:
		return b, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	b.probes = append(b.probes, b.store.Ping)

	if err := repository.Seed(ctx, b.store, cfg.Storage); err != nil {
		return b, err
	}

	if cfg.Audit.Enabled {
		mongoRepo, err := repository.NewMongoRepository(&cfg.MongoDB, cfg.Server.Name)
		if err != nil {
			return b, fmt.Errorf("mongodb: %w", err)
		}
		b.closers = append(b.closers, mongoRepo.Close)
		if err := mongoRepo.EnsureIndexes(ctx); err != nil {
			return b, fmt.Errorf("mongodb indexes: %w", err)
		}

		journal, err := audit.NewJournal(mongoRepo, logger, cfg.Audit.WriteTimeout)
		if err != nil {
			return b, err
		}
		b.closers = append(b.closers, func(context.Context) error { return journal.Close() })
		b.recorder = journal
		b.auditTrail = mongoRepo
		logger.Info("Audit journal started", zap.String("collection", cfg.MongoDB.Collection))
	}

	return b, nil
}

func (b *backends) ready(ctx context.Context) error {
	for _, probe := range b.probes {
		if err := probe(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (b *backends) close(ctx context.Context, logger *zap.Logger) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil {
			logger.Error("Failed to close backend", zap.Error(err))
		}
	}
	b.closers = nil
}
