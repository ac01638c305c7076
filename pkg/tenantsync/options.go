package tenantsync

import (
	"log/slog"
	"time"
)

// Option is a functional option for configuring a reconciler
type Option func(*Reconciler)

// WithInterval sets how often the source is re-read
func WithInterval(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithLogger sets a custom logger
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithValidator filters ids before they reach the target. Rejected ids
// are logged and skipped.
func WithValidator(valid func(id string) bool) Option {
	return func(r *Reconciler) {
		if valid != nil {
			r.valid = valid
		}
	}
}

// WithoutInitialSync makes Run wait for the first tick instead of syncing
// on start. Use it when the caller already ran Sync.
func WithoutInitialSync() Option {
	return func(r *Reconciler) {
		r.skipInitialSync = true
	}
}
