// Package pg provides PostgreSQL connection management, migrations and the
// tenant domain store.
//
// It wraps the pgx driver with retry logic on connect, connection pool
// tuning, goose-based schema migrations and a health check function, and
// implements tenant.Store on top of the pool. Every state transition the
// store performs is a single UPDATE statement, so readers never observe a
// partially applied transition.
//
// # Configuration
//
// All configuration is handled through the Config struct with environment
// variable mapping:
//
//	type Config struct {
//		ConnectionString  string        `env:"PG_CONN_URL,required"`
//		MaxOpenConns      int32         `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
//		MaxIdleConns      int32         `env:"PG_MAX_IDLE_CONNS" envDefault:"5"`
//		HealthCheckPeriod time.Duration `env:"PG_HEALTHCHECK_PERIOD" envDefault:"1m"`
//		MaxConnIdleTime   time.Duration `env:"PG_MAX_CONN_IDLE_TIME" envDefault:"10m"`
//		MaxConnLifetime   time.Duration `env:"PG_MAX_CONN_LIFETIME" envDefault:"30m"`
//		RetryAttempts     int           `env:"PG_RETRY_ATTEMPTS" envDefault:"3"`
//		RetryInterval     time.Duration `env:"PG_RETRY_INTERVAL" envDefault:"5s"`
//	}
//
// # Usage
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, logger); err != nil {
//		log.Fatal(err)
//	}
//
//	store := pg.NewTenantStore(pool)
//
// Migrations are embedded in the package and applied with goose through a
// database/sql adapter over the pgx pool.
//
// # Transactions
//
// WithTx attaches a pgx.Tx to a context and the store picks it up, so the
// caller can compose domain writes with other statements in one transaction:
//
//	tx, _ := pool.Begin(ctx)
//	defer tx.Rollback(ctx)
//	ctx = pg.WithTx(ctx, tx)
//	if err := store.MarkVerified(ctx, tenantID, time.Now()); err != nil {
//		return err
//	}
//	return tx.Commit(ctx)
package pg
