// Package config loads typed configuration structs from environment
// variables.
//
// Parsing is done by github.com/caarlos0/env/v11 from `env` and
// `envDefault` struct tags, and .env files are read with
// github.com/joho/godotenv. Each struct type is parsed once per process and
// cached, so packages can call Load for their own config type without
// coordinating with main.
//
//	type RouterConfig struct {
//		Driver string `env:"DB_DRIVER" envDefault:"sqlite3"`
//		DSN    string `env:"DB_DSN,required"`
//	}
//
//	var cfg RouterConfig
//	config.MustLoad(&cfg)
//
// A config type that implements Validator is checked after parsing.
// ResetCache and Reload exist for tests that change the environment
// between cases.
package config
