package tenantsync

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/multitenant/pkg/logger"
	"github.com/dmitrymomot/multitenant/pkg/tenant"
)

// Target is the registry being kept in sync. *tenantdb.Router satisfies it.
type Target interface {
	SetTenants(ctx context.Context, ids []string) error
	GetTenants() []string
}

// Reconciler keeps a Target's tenants equal to what a Source lists.
type Reconciler struct {
	id       uuid.UUID
	source   Source
	target   Target
	interval time.Duration
	valid    func(id string) bool
	logger   *slog.Logger

	skipInitialSync bool
}

// New creates a reconciler. Defaults: 30s interval, tenant.ValidIdentifier
// as the id filter.
func New(source Source, target Target, opts ...Option) (*Reconciler, error) {
	if source == nil {
		return nil, ErrNilSource
	}
	if target == nil {
		return nil, ErrNilTarget
	}

	r := &Reconciler{
		id:       uuid.New(),
		source:   source,
		target:   target,
		interval: 30 * time.Second,
		valid:    tenant.ValidIdentifier,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Sync reads the source once and applies it to the target.
func (r *Reconciler) Sync(ctx context.Context) error {
	listed, err := r.source.ListTenants(ctx)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(listed))
	for _, id := range listed {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if !r.valid(id) {
			r.logger.WarnContext(ctx, "skipping invalid tenant id",
				slog.String("reconciler_id", r.id.String()),
				logger.TenantID(id))
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	before := r.target.GetTenants()
	if err := r.target.SetTenants(ctx, ids); err != nil {
		return err
	}

	added, removed := diff(before, ids)
	if len(added) > 0 || len(removed) > 0 {
		r.logger.InfoContext(ctx, "tenants reconciled",
			slog.String("reconciler_id", r.id.String()),
			slog.Any("added", added),
			slog.Any("removed", removed),
			logger.Count("total", len(ids)))
	}
	return nil
}

// Run returns a function suitable for errgroup. It syncs once, failing
// if that first sync fails, then re-syncs every interval until ctx is
// done. Later failures are logged and retried on the next tick. With
// WithoutInitialSync the first sync is skipped.
func (r *Reconciler) Run(ctx context.Context) func() error {
	return func() error {
		if !r.skipInitialSync {
			if err := r.Sync(ctx); err != nil {
				return err
			}
		}
		r.logger.InfoContext(ctx, "tenant reconciler started",
			slog.String("reconciler_id", r.id.String()),
			slog.Duration("interval", r.interval))

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				r.logger.InfoContext(ctx, "tenant reconciler stopped",
					slog.String("reconciler_id", r.id.String()))
				return nil
			case <-ticker.C:
				if err := r.Sync(ctx); err != nil && ctx.Err() == nil {
					r.logger.ErrorContext(ctx, "tenant sync failed",
						slog.String("reconciler_id", r.id.String()),
						logger.Error(err))
				}
			}
		}
	}
}

// diff returns ids present only in after (added) and only in before (removed).
func diff(before, after []string) (added, removed []string) {
	for _, id := range after {
		if !slices.Contains(before, id) {
			added = append(added, id)
		}
	}
	for _, id := range before {
		if !slices.Contains(after, id) {
			removed = append(removed, id)
		}
	}
	return added, removed
}
