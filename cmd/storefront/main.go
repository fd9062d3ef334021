package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/storefront/gateway"
	"github.com/example/storefront/pkg/cart"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/discovery"
	grpcserver "github.com/example/storefront/pkg/grpc"
	"github.com/example/storefront/pkg/inventory"
	"github.com/example/storefront/pkg/logging"
	"github.com/example/storefront/pkg/metrics"
	"github.com/example/storefront/pkg/order"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const probeInterval = 5 * time.Second

func main() {
	configPath := flag.String("config", "config/storefront.yaml", "path to the YAML config file")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	logger, err := logging.New(cfg.Log, cfg.Server.Name)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("Storefront stopped with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("Storefront stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting storefront",
		zap.String("storage", cfg.Storage.Driver),
		zap.Bool("audit", cfg.Audit.Enabled),
		zap.Bool("restock_on_cancel", cfg.Orders.RestockOnCancel))

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.close(context.Background(), logger)

	// Services
	m := metrics.New()
	opts := []order.Option{order.WithAudit(b.recorder), order.WithMetrics(m)}
	if b.orderCache != nil {
		opts = append(opts, order.WithCache(b.orderCache))
	}
	carts := cart.NewService(b.sessions, b.store, b.store)

	gw, err := gateway.NewGateway(cfg, logger, gateway.Services{
		Orders:     order.NewWorkflow(b.store, cfg.Orders, logger, opts...),
		History:    order.NewHistory(b.store, b.orderCache, logger),
		Inventory:  inventory.NewService(b.store, b.recorder, logger),
		Carts:      carts,
		Reconciler: cart.NewReconciler(carts, b.ledger, b.recorder, m, logger),
		Users:      b.users,
		AuditTrail: b.auditTrail,
		Metrics:    m,
		Ready:      b.ready,
	})
	if err != nil {
		return err
	}
	health := grpcserver.NewHealthServer(cfg.GRPC, cfg.Server.Name, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(gw.Start)
	g.Go(health.Start)
	g.Go(func() error {
		health.Monitor(gctx, probeInterval, b.probes...)
		return nil
	})

	// Register in etcd once both listeners are up
	var (
		sd        *discovery.ServiceDiscovery
		instances []*discovery.ServiceInstance
	)
	if cfg.Etcd.Enabled {
		sd, err = discovery.NewServiceDiscovery(&cfg.Etcd, logger)
		if err != nil {
			logger.Warn("Failed to connect to etcd, continuing without service discovery", zap.Error(err))
		} else {
			instances = registerInstances(gctx, sd, cfg, logger)
		}
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if sd != nil {
			for _, inst := range instances {
				if err := sd.Deregister(shutdownCtx, inst); err != nil {
					logger.Error("Failed to deregister service", zap.String("name", inst.Name), zap.Error(err))
				}
			}
			if err := sd.Close(); err != nil {
				logger.Warn("Failed to close etcd client", zap.Error(err))
			}
		}

		health.Stop()
		return gw.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func registerInstances(ctx context.Context, sd *discovery.ServiceDiscovery, cfg *config.Config, logger *zap.Logger) []*discovery.ServiceInstance {
	candidates := []*discovery.ServiceInstance{
		{Name: cfg.Server.Name + "-http", Host: cfg.Server.Host, Port: cfg.Gateway.Port},
		{Name: cfg.Server.Name + "-grpc", Host: cfg.Server.Host, Port: cfg.GRPC.Port},
	}

	var registered []*discovery.ServiceInstance
	for _, inst := range candidates {
		if err := sd.Register(ctx, inst); err != nil {
			logger.Error("Failed to register service", zap.String("name", inst.Name), zap.Error(err))
			continue
		}
		logger.Info("Service registered in etcd",
			zap.String("name", inst.Name),
			zap.String("address", inst.Addr()))
		registered = append(registered, inst)
	}
	return registered
}
