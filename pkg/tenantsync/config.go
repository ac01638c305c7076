package tenantsync

import "time"

// Source kinds accepted by Config.Source.
const (
	SourceStatic = "static"
	SourceFile   = "file"
	SourceSQL    = "sql"
	SourceRedis  = "redis"
)

// Config holds the configuration for the tenant reconciler
type Config struct {
	Interval time.Duration `env:"TENANTS_SYNC_INTERVAL" envDefault:"30s"`            // how often the tenant list is re-read
	Source   string        `env:"TENANTS_SOURCE" envDefault:"static"`                // static, file, sql or redis
	Tenants  []string      `env:"TENANTS" envSeparator:","`                          // ids for the static source
	File     string        `env:"TENANTS_FILE" envDefault:"tenants.yaml"`            // YAML file for the file source
	Query    string        `env:"TENANTS_QUERY" envDefault:"SELECT id FROM tenants"` // statement for the sql source, must return one id column
	RedisKey string        `env:"TENANTS_REDIS_KEY" envDefault:"tenants"`            // set holding ids for the redis source
}
