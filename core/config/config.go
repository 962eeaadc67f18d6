package config

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	// loadEnvOnce ensures .env files are loaded only once per process.
	loadEnvOnce sync.Once

	// cache stores loaded configurations keyed by their concrete type.
	cache sync.Map
)

// Load parses environment variables into the provided configuration struct.
// Each configuration type is loaded once and cached; subsequent calls for the
// same type return the cached value. The cfg argument must be a non-nil
// pointer to a struct.
func Load(cfg any) error {
	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("config: expected non-nil pointer to struct, got %T", cfg)
	}
	elem := v.Elem()
	if elem.Kind() != reflect.Struct {
		return fmt.Errorf("config: expected pointer to struct, got %T", cfg)
	}

	loadEnvOnce.Do(func() {
		// Missing .env files are fine; environment variables may be set directly.
		_ = godotenv.Load()
	})

	typ := elem.Type()
	if cached, ok := cache.Load(typ); ok {
		elem.Set(reflect.ValueOf(cached))
		return nil
	}

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("config: failed to parse %s: %w", typ, err)
	}

	cache.Store(typ, elem.Interface())
	return nil
}

// MustLoad is like Load but panics on failure. Intended for application
// startup where a missing required variable should abort the process.
func MustLoad(cfg any) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}
