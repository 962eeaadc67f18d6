// Package redis provides Redis client initialization, health checking and
// the domain-status failure cache.
//
// Connect validates the URL, dials with retry and verifies connectivity with
// a ping before returning the client. StatusCache keeps the most recent
// operational failure reason per tenant with a TTL, for display on the
// domain status endpoint; the cache is informational and lossy by design.
//
// # Configuration
//
//	type Config struct {
//		ConnectionURL  string        `env:"REDIS_URL,required" envDefault:"redis://localhost:6379/0"`
//		RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
//		RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
//		ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
//		StatusTTL      time.Duration `env:"REDIS_STATUS_TTL" envDefault:"72h"`
//	}
//
// Both redis:// and rediss:// (TLS) URL schemes are supported.
//
// # Usage
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	cache := redis.NewStatusCache(client, cfg.StatusTTL)
package redis
