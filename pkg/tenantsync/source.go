package tenantsync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// Source lists the tenants that should currently be served.
type Source interface {
	ListTenants(ctx context.Context) ([]string, error)
}

// SourceFunc is an adapter to allow the use of ordinary functions as Sources.
type SourceFunc func(ctx context.Context) ([]string, error)

func (f SourceFunc) ListTenants(ctx context.Context) ([]string, error) {
	return f(ctx)
}

// StaticSource always lists the same ids.
type StaticSource []string

func (s StaticSource) ListTenants(context.Context) ([]string, error) {
	return append([]string(nil), s...), nil
}

// FileSource reads tenants from a YAML file, re-reading it on every call:
//
//	tenants:
//	  - id: acme
//	  - id: globex
//	    disabled: true
//
// Disabled tenants are not listed.
type FileSource struct {
	Path string
}

type tenantsFile struct {
	Tenants []struct {
		ID       string `yaml:"id"`
		Disabled bool   `yaml:"disabled"`
	} `yaml:"tenants"`
}

func (s FileSource) ListTenants(context.Context) ([]string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, errors.Join(ErrSourceFailed, err)
	}

	var f tenantsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Join(ErrInvalidTenantsFile, fmt.Errorf("%s: %w", s.Path, err))
	}

	ids := make([]string, 0, len(f.Tenants))
	for _, t := range f.Tenants {
		if !t.Disabled {
			ids = append(ids, t.ID)
		}
	}
	return ids, nil
}

// Querier is satisfied by *sql.DB and *sql.Conn.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SQLSource lists tenants from a control-plane table. Query must return
// a single text column.
type SQLSource struct {
	DB    Querier
	Query string
}

func (s SQLSource) ListTenants(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, s.Query)
	if err != nil {
		return nil, errors.Join(ErrSourceFailed, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Join(ErrSourceFailed, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrSourceFailed, err)
	}
	return ids, nil
}

// SetMembersClient is the part of a redis client RedisSource needs.
// redis.UniversalClient satisfies it.
type SetMembersClient interface {
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
}

// RedisSource lists the members of a redis set.
type RedisSource struct {
	Client SetMembersClient
	Key    string
}

func (s RedisSource) ListTenants(ctx context.Context) ([]string, error) {
	ids, err := s.Client.SMembers(ctx, s.Key).Result()
	if err != nil {
		return nil, errors.Join(ErrSourceFailed, err)
	}
	return ids, nil
}

// Dependencies are the clients NewSource may hand to a source.
type Dependencies struct {
	DB    Querier
	Redis SetMembersClient
}

// NewSource builds the source selected by cfg.Source.
func NewSource(cfg Config, deps Dependencies) (Source, error) {
	switch cfg.Source {
	case SourceStatic, "":
		return StaticSource(cfg.Tenants), nil
	case SourceFile:
		return FileSource{Path: cfg.File}, nil
	case SourceSQL:
		if deps.DB == nil {
			return nil, errors.Join(ErrMissingDependency, errors.New("sql source needs a database"))
		}
		return SQLSource{DB: deps.DB, Query: cfg.Query}, nil
	case SourceRedis:
		if deps.Redis == nil {
			return nil, errors.Join(ErrMissingDependency, errors.New("redis source needs a redis client"))
		}
		return RedisSource{Client: deps.Redis, Key: cfg.RedisKey}, nil
	}
	return nil, errors.Join(ErrUnknownSource, fmt.Errorf("%q", cfg.Source))
}
