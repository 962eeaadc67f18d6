package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/hiredeck/domainkit/api"
	"github.com/hiredeck/domainkit/core/certificate"
	"github.com/hiredeck/domainkit/core/config"
	"github.com/hiredeck/domainkit/core/dnsverify"
	"github.com/hiredeck/domainkit/core/logger"
	"github.com/hiredeck/domainkit/core/renewal"
	"github.com/hiredeck/domainkit/core/server"
	"github.com/hiredeck/domainkit/core/tenant"
	alertpostmark "github.com/hiredeck/domainkit/integration/alert/postmark"
	"github.com/hiredeck/domainkit/integration/database/pg"
	"github.com/hiredeck/domainkit/integration/database/redis"
	"github.com/hiredeck/domainkit/integration/dns/cloudflare"
)

type appConfig struct {
	Logger  logger.Config
	Server  server.Config
	PG      pg.Config
	Redis   redis.Config
	Certs   certificate.Config
	Tenant  tenant.Config
	Renewal renewal.Config
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.NewWithConfig(cfg.Logger, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		log.Error("postgres connection failed", logger.Error(err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, log); err != nil {
		log.Error("migrations failed", logger.Error(err))
		os.Exit(1)
	}
	store := pg.NewTenantStore(pool)

	// The status cache is informational; a missing Redis degrades to a no-op
	// cache instead of blocking startup.
	var statusCache tenant.StatusCache = tenant.NopStatusCache{}
	redisCheck := api.Healthcheck(nil)
	if client, err := redis.Connect(ctx, cfg.Redis); err != nil {
		log.Warn("redis unavailable, failure reasons will not be cached", logger.Error(err))
	} else {
		defer client.Close()
		statusCache = redis.NewStatusCache(client, cfg.Redis.StatusTTL)
		redisCheck = redis.Healthcheck(client)
	}

	var alerter renewal.Alerter = renewal.NewLogAlerter(log)
	if os.Getenv("POSTMARK_SERVER_TOKEN") != "" {
		var alertCfg alertpostmark.Config
		config.MustLoad(&alertCfg)
		pmAlerter, err := alertpostmark.New(alertCfg)
		if err != nil {
			log.Error("postmark alerter setup failed", logger.Error(err))
			os.Exit(1)
		}
		alerter = pmAlerter
	}

	certManager, err := certificate.NewManager(cfg.Certs,
		certificate.WithLogger(log),
		certificate.WithPublisherFactory(cloudflare.NewPublisher))
	if err != nil {
		log.Error("certificate manager setup failed", logger.Error(err))
		os.Exit(1)
	}

	verifier, err := dnsverify.New(cfg.Tenant.PlatformHost, dnsverify.WithLogger(log))
	if err != nil {
		log.Error("dns verifier setup failed", logger.Error(err))
		os.Exit(1)
	}

	svc, err := tenant.NewService(cfg.Tenant, store, verifier, certManager,
		tenant.WithStatusCache(statusCache),
		tenant.WithLogger(log))
	if err != nil {
		log.Error("tenant service setup failed", logger.Error(err))
		os.Exit(1)
	}

	sweeper, err := renewal.NewSweeper(cfg.Renewal, store, certManager,
		renewal.WithAlerter(alerter),
		renewal.WithStatusCache(statusCache),
		renewal.WithExpirySource(certManager.Storage()),
		renewal.WithLogger(log))
	if err != nil {
		log.Error("renewal sweeper setup failed", logger.Error(err))
		os.Exit(1)
	}

	scheduler, err := renewal.NewScheduler(sweeper, log)
	if err != nil {
		log.Error("renewal scheduler setup failed", logger.Error(err))
		os.Exit(1)
	}

	routerOpts := []api.RouterOption{
		api.WithRouterLogger(log),
		api.WithHealthcheck("postgres", pg.Healthcheck(pool)),
		api.WithHealthcheck("renewal", scheduler.Healthcheck),
	}
	if redisCheck != nil {
		routerOpts = append(routerOpts, api.WithHealthcheck("redis", redisCheck))
	}
	handler := api.NewRouter(svc, routerOpts...)

	srv, err := server.New(cfg.Server, server.WithLogger(log))
	if err != nil {
		log.Error("http server setup failed", logger.Error(err))
		os.Exit(1)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Run(ctx, handler))
	g.Go(scheduler.Run(ctx))

	log.Info("domainkitd started", logger.Key("addr", cfg.Server.Addr))

	if err := g.Wait(); err != nil {
		log.Error("service exited with error", logger.Error(err))
		os.Exit(1)
	}
	log.Info("domainkitd stopped")
}
