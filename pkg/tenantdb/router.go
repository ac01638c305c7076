package tenantdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/multitenant/pkg/logger"
	"github.com/dmitrymomot/multitenant/pkg/sqldb"
	"github.com/dmitrymomot/multitenant/pkg/tenant"
)

// Router keeps one connection per tenant and routes every operation to
// the connection of the tenant active in the operation's context.
type Router struct {
	base        sqldb.Config
	tenantID    TenantIDFunc
	configFor   ConfigFunc
	open        OpenFunc
	buildSchema SchemaFunc
	log         *slog.Logger
	metricsReg  prometheus.Registerer
	metrics     *metrics

	mu      sync.RWMutex
	conns   map[string]Conn
	pending map[string]struct{}
	closed  bool

	schemaMu sync.RWMutex
	schema   *sqldb.Schema

	repos sync.Map // reflect.Type -> repository proxy
}

// New builds a router over base. No tenant is registered yet; the shared
// entity metadata is derived from base right away so that it is available
// with zero tenants.
func New(base sqldb.Config, opts ...Option) (*Router, error) {
	r := &Router{
		base:        base,
		tenantID:    tenant.IDFromContext,
		configFor:   SameConfig,
		open:        DefaultOpen(),
		buildSchema: sqldb.BuildSchema,
		log:         slog.New(slog.DiscardHandler),
		conns:       make(map[string]Conn),
		pending:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	m, err := newMetrics(r.metricsReg)
	if err != nil {
		return nil, err
	}
	r.metrics = m

	schema, err := r.buildSchema(base)
	if err != nil {
		return nil, err
	}
	r.schema = schema

	return r, nil
}

// Initialize initializes every registered connection concurrently and
// then takes the shared metadata from the first of them.
func (r *Router) Initialize(ctx context.Context) error {
	ids, conns := r.snapshot()

	g, gctx := errgroup.WithContext(ctx)
	for i, conn := range conns {
		g.Go(func() error {
			if conn.IsInitialized() {
				return nil
			}
			if err := conn.Initialize(gctx); err != nil {
				return fmt.Errorf("tenant %s: %w", ids[i], err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var schema *sqldb.Schema
	if len(conns) > 0 {
		schema = conns[0].Metadata()
	}
	if schema == nil {
		var err error
		if schema, err = r.buildSchema(r.base); err != nil {
			return err
		}
	}
	r.schemaMu.Lock()
	r.schema = schema
	r.schemaMu.Unlock()

	r.log.InfoContext(ctx, "tenant router initialized", logger.Count("tenants", len(conns)))
	return nil
}

// Destroy closes every connection and empties the registry. All close
// errors are returned joined. The router accepts no tenants afterwards;
// adds still opening when Destroy runs close what they opened.
func (r *Router) Destroy(ctx context.Context) error {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]Conn)
	r.closed = true
	r.mu.Unlock()

	r.metrics.setTenants(0)
	return destroyAll(ctx, conns)
}

// IsInitialized reports whether every registered connection is
// initialized. It is true when no tenant is registered.
func (r *Router) IsInitialized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, conn := range r.conns {
		if !conn.IsInitialized() {
			return false
		}
	}
	return true
}

// AddTenant registers one tenant. See AddTenants.
func (r *Router) AddTenant(ctx context.Context, id string) error {
	return r.AddTenants(ctx, []string{id})
}

// AddTenants opens a connection for every id concurrently. When any id is
// already registered, being added by another call or repeated in ids, it
// fails with *TenantsExistError and changes nothing. When any open fails,
// the connections opened by this call are closed and the open error is
// returned as is.
func (r *Router) AddTenants(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return errors.Join(ErrInvalidTenantID, fmt.Errorf("%q", id))
		}
	}

	if err := r.reserve(ids); err != nil {
		return err
	}

	opened := make([]Conn, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			conn, err := r.openTenant(gctx, id)
			opened[i] = conn
			return err
		})
	}
	err := g.Wait()

	r.mu.Lock()
	if err == nil && r.closed {
		err = ErrRouterDestroyed
	}
	for i, id := range ids {
		delete(r.pending, id)
		if err == nil {
			r.conns[id] = opened[i]
		}
	}
	total := len(r.conns)
	r.mu.Unlock()

	if err != nil {
		partial := make(map[string]Conn, len(ids))
		for i, conn := range opened {
			if conn != nil {
				partial[ids[i]] = conn
			}
		}
		if cerr := destroyAll(context.WithoutCancel(ctx), partial); cerr != nil {
			r.log.ErrorContext(ctx, "failed to close connections of a failed add", logger.Error(cerr))
		}
		return err
	}

	r.metrics.setTenants(total)
	r.log.InfoContext(ctx, "tenants added", logger.Tenants(ids))
	return nil
}

// reserve marks ids as being added, or reports every id that is taken.
func (r *Router) reserve(ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRouterDestroyed
	}

	var taken []string
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		_, registered := r.conns[id]
		_, adding := r.pending[id]
		_, repeated := seen[id]
		if registered || adding || repeated {
			taken = append(taken, id)
		}
		seen[id] = struct{}{}
	}
	if len(taken) > 0 {
		return &TenantsExistError{TenantIDs: taken}
	}

	for _, id := range ids {
		r.pending[id] = struct{}{}
	}
	return nil
}

func (r *Router) openTenant(ctx context.Context, id string) (Conn, error) {
	start := time.Now()

	cfg, err := r.configFor(id, r.base)
	if err != nil {
		r.metrics.observeOpen(start, err)
		return nil, err
	}
	conn, err := r.open(ctx, cfg)
	if err == nil && conn == nil {
		err = ErrNilConnection
	}
	r.metrics.observeOpen(start, err)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// RemoveTenant closes and unregisters one tenant. See RemoveTenants.
func (r *Router) RemoveTenant(ctx context.Context, id string) error {
	return r.RemoveTenants(ctx, []string{id})
}

// RemoveTenants unregisters ids and closes their connections
// concurrently. Ids that are not registered are ignored.
func (r *Router) RemoveTenants(ctx context.Context, ids []string) error {
	r.mu.Lock()
	claimed := make(map[string]Conn, len(ids))
	for _, id := range ids {
		if conn, ok := r.conns[id]; ok {
			claimed[id] = conn
			delete(r.conns, id)
		}
	}
	total := len(r.conns)
	r.mu.Unlock()

	if len(claimed) == 0 {
		return nil
	}
	r.metrics.setTenants(total)
	r.log.InfoContext(ctx, "tenants removed", logger.Tenants(slices.Sorted(maps.Keys(claimed))))
	return destroyAll(ctx, claimed)
}

// GetTenants returns the registered tenant ids, sorted.
func (r *Router) GetTenants() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.conns))
}

// HasTenant reports whether id is registered.
func (r *Router) HasTenant(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[id]
	return ok
}

// SetTenants makes the registry hold exactly ids: missing ones are added
// and extra ones removed, both at once. Errors of both sides are joined.
func (r *Router) SetTenants(ctx context.Context, ids []string) error {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	r.mu.RLock()
	var toAdd, toRemove []string
	for id := range want {
		_, registered := r.conns[id]
		_, adding := r.pending[id]
		if !registered && !adding {
			toAdd = append(toAdd, id)
		}
	}
	for id := range r.conns {
		if _, ok := want[id]; !ok {
			toRemove = append(toRemove, id)
		}
	}
	r.mu.RUnlock()
	slices.Sort(toAdd)
	slices.Sort(toRemove)

	var (
		wg            sync.WaitGroup
		addErr, rmErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		addErr = r.AddTenants(ctx, toAdd)
	}()
	go func() {
		defer wg.Done()
		rmErr = r.RemoveTenants(ctx, toRemove)
	}()
	wg.Wait()

	return errors.Join(addErr, rmErr)
}

// snapshot returns registered ids (sorted) with their connections.
func (r *Router) snapshot() ([]string, []Conn) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := slices.Sorted(maps.Keys(r.conns))
	conns := make([]Conn, len(ids))
	for i, id := range ids {
		conns[i] = r.conns[id]
	}
	return ids, conns
}

func destroyAll(ctx context.Context, conns map[string]Conn) error {
	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	for id, conn := range conns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := conn.Destroy(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("tenant %s: %w", id, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}
