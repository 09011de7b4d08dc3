package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	cache   sync.Map // type name -> parsed config value
	envOnce sync.Once
)

// Load parses environment variables into the provided configuration struct
// based on `env` field tags. The first call loads a .env file if one exists.
// Each configuration type is parsed once per process; later calls return the
// cached value so every component sees the same configuration.
//
// Example:
//
//	type DatabaseConfig struct {
//		Host string `env:"DB_HOST" envDefault:"localhost"`
//		Port int    `env:"DB_PORT" envDefault:"5432"`
//		User string `env:"DB_USER,required"`
//	}
//
//	var cfg DatabaseConfig
//	if err := config.Load(&cfg); err != nil { ... }
func Load[T any](v *T) error {
	envOnce.Do(func() {
		// A missing .env file is fine; real environments set vars directly.
		_ = godotenv.Load()
	})
	if v == nil {
		return ErrNilPointer
	}

	key := fmt.Sprintf("%T", *v)
	if cached, ok := cache.Load(key); ok {
		*v = cached.(T)
		return nil
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	actual, _ := cache.LoadOrStore(key, *v)
	*v = actual.(T)
	return nil
}

// MustLoad works like Load but panics on failure. Used for configuration the
// application cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}
