package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Validator is implemented by config structs that check their own
// invariants after parsing. Load calls Validate and refuses to cache a
// config that fails it.
type Validator interface {
	Validate() error
}

var (
	mu     sync.Mutex
	cache  = map[reflect.Type]any{}
	dotenv sync.Once
)

// Load fills v from the process environment using `env` struct tags.
// The first call loads a .env file from the working directory if one
// exists. Each config type is parsed once; later calls for the same type
// receive the cached copy.
//
//	type DatabaseConfig struct {
//		DSN      string `env:"DB_DSN,required"`
//		MaxConns int    `env:"DB_MAX_CONNS" envDefault:"10"`
//	}
//
//	var cfg DatabaseConfig
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	dotenv.Do(func() { _ = godotenv.Load() })

	key := reflect.TypeFor[T]()

	mu.Lock()
	defer mu.Unlock()

	if cached, ok := cache[key]; ok {
		*v = cached.(T)
		return nil
	}

	var parsed T
	if err := env.Parse(&parsed); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	if val, ok := any(&parsed).(Validator); ok {
		if err := val.Validate(); err != nil {
			return errors.Join(ErrInvalidConfig, err)
		}
	}
	cache[key] = parsed
	*v = parsed
	return nil
}

// MustLoad is Load for configuration the process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}

// LoadEnv loads the given .env files into the process environment. Files
// listed first take precedence and variables already set are never
// overridden. With no paths it loads .env from the working directory.
func LoadEnv(paths ...string) error {
	dotenv.Do(func() {})
	if err := godotenv.Load(paths...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	return nil
}

// MustLoadEnv panics if LoadEnv fails.
func MustLoadEnv(paths ...string) {
	if err := LoadEnv(paths...); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}

// Reload drops the cached copy of T and parses it again.
func Reload[T any](v *T) error {
	mu.Lock()
	delete(cache, reflect.TypeFor[T]())
	mu.Unlock()
	return Load(v)
}

// ResetCache forgets every cached config. Intended for tests.
func ResetCache() {
	mu.Lock()
	clear(cache)
	mu.Unlock()
}
