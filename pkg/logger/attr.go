package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Group nests attrs under name.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error logs err under "error". A nil error yields an empty attribute,
// which slog handlers skip.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

// Errors groups the non-nil errors under "errors", keyed by position.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.String(strconv.Itoa(i), err.Error()))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// TenantID logs a single tenant identifier. Empty ids are skipped.
func TenantID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("tenant_id", id)
}

// Tenants logs a list of tenant identifiers.
func Tenants(ids []string) slog.Attr {
	return slog.Any("tenants", ids)
}

func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Table logs a database table name.
func Table(name string) slog.Attr {
	return slog.String("table", name)
}

// Version logs a schema migration version.
func Version(v int64) slog.Attr {
	return slog.Int64("version", v)
}
