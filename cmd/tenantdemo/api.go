package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dmitrymomot/multitenant/pkg/httpserver"
	"github.com/dmitrymomot/multitenant/pkg/sqldb"
	"github.com/dmitrymomot/multitenant/pkg/tenant"
	"github.com/dmitrymomot/multitenant/pkg/tenantdb"
)

const maxPageSize = 100

// tenantStore persists the tenant list read by the reconciler.
type tenantStore interface {
	Add(ctx context.Context, ids ...string) (int64, error)
	Remove(ctx context.Context, ids ...string) (int64, error)
}

type apiDeps struct {
	Router     *tenantdb.Router
	Resolver   tenant.Resolver
	PathTenant bool // tenant id is a path segment: /api/{tenant}/...
	Store      tenantStore
	Sync       func(ctx context.Context) error
	AdminToken string
	Metrics    http.Handler
	Checks     []httpserver.Check
	Log        *slog.Logger
}

type api struct {
	router *tenantdb.Router
	notes  *tenantdb.Repository[Note]
	store  tenantStore
	sync   func(ctx context.Context) error
	log    *slog.Logger
}

func newHandler(d apiDeps) http.Handler {
	if d.Log == nil {
		d.Log = slog.New(slog.DiscardHandler)
	}
	a := &api{
		router: d.Router,
		notes:  tenantdb.GetRepository[Note](d.Router),
		store:  d.Store,
		sync:   d.Sync,
		log:    d.Log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)

	r.Get("/livez", httpserver.LivenessHandler())
	r.Get("/readyz", httpserver.ReadinessHandler(d.Log, 5*time.Second, d.Checks...))
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	prefix := "/api"
	if d.PathTenant {
		prefix = "/api/{tenant}"
	}
	r.Route(prefix, func(r chi.Router) {
		r.Use(
			tenant.Middleware(d.Resolver,
				tenant.WithKnownTenants(d.Router.HasTenant),
				tenant.WithErrorHandler(tenantErrorHandler(d.Log)),
				tenant.WithLogger(d.Log),
			),
			tenant.RequireTenant(tenantErrorHandler(d.Log)),
		)
		r.Get("/notes", a.listNotes)
		r.Post("/notes", a.createNote)
		r.Post("/notes/batch", a.createNotes)
		r.Get("/notes/{id}", a.getNote)
		r.Patch("/notes/{id}", a.updateNote)
		r.Delete("/notes/{id}", a.deleteNote)
		r.Get("/stats", a.stats)
	})

	if d.AdminToken != "" {
		r.Route("/admin", func(r chi.Router) {
			r.Use(requireToken(d.AdminToken, d.Log))
			r.Get("/tenants", a.listTenants)
			r.Post("/tenants", a.addTenant)
			r.Delete("/tenants/{id}", a.removeTenant)
			r.Get("/migrations", a.showMigrations)
			r.Post("/migrations/up", a.runMigrations)
			r.Post("/migrations/down", a.undoMigration)
		})
	}
	return r
}

func requireToken(token string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				respondError(w, r, log, errUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (a *api) listNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), 20)
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}
	if limit == 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	offset, err := intParam(q.Get("offset"), 0)
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}

	where := sqldb.Criteria{}
	if v := q.Get("pinned"); v != "" {
		pinned, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, r, a.log, fmt.Errorf("%w: pinned must be a boolean", errBadRequest))
			return
		}
		where["pinned"] = pinned
	}

	notes, err := a.notes.Find(r.Context(), sqldb.FindOptions{
		Where:   where,
		OrderBy: []string{"created_at DESC", "id"},
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}
	total, err := a.notes.CountBy(r.Context(), where)
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}
	respondMeta(w, notes, map[string]any{"total": total, "limit": limit, "offset": offset})
}

func (a *api) createNote(w http.ResponseWriter, r *http.Request) {
	var in noteInput
	if err := decode(w, r, &in); err != nil {
		respondError(w, r, a.log, err)
		return
	}
	note, err := newNote(in)
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}
	if err := a.notes.Insert(r.Context(), note); err != nil {
		respondError(w, r, a.log, err)
		return
	}
	respond(w, http.StatusCreated, note)
}

// createNotes inserts all notes in one transaction of the active tenant.
func (a *api) createNotes(w http.ResponseWriter, r *http.Request) {
	var in []noteInput
	if err := decode(w, r, &in); err != nil {
		respondError(w, r, a.log, err)
		return
	}
	if len(in) == 0 {
		respondError(w, r, a.log, fmt.Errorf("%w: empty batch", errBadRequest))
		return
	}

	notes := make([]*Note, 0, len(in))
	for _, item := range in {
		note, err := newNote(item)
		if err != nil {
			respondError(w, r, a.log, err)
			return
		}
		notes = append(notes, note)
	}

	err := a.router.Transaction(r.Context(), func(ctx context.Context) error {
		for _, note := range notes {
			if err := a.notes.Insert(ctx, note); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}
	respond(w, http.StatusCreated, notes)
}

func (a *api) getNote(w http.ResponseWriter, r *http.Request) {
	id, err := noteID(r)
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}
	note, err := a.notes.FindByID(r.Context(), id)
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}
	respond(w, http.StatusOK, note)
}

func (a *api) updateNote(w http.ResponseWriter, r *http.Request) {
	id, err := noteID(r)
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}
	var in noteInput
	if err := decode(w, r, &in); err != nil {
		respondError(w, r, a.log, err)
		return
	}

	values := sqldb.Criteria{}
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			respondError(w, r, a.log, fmt.Errorf("%w: title is required", errBadRequest))
			return
		}
		values["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Body != nil {
		values["body"] = *in.Body
	}
	if in.Pinned != nil {
		values["pinned"] = *in.Pinned
	}
	if len(values) == 0 {
		respondError(w, r, a.log, fmt.Errorf("%w: nothing to update", errBadRequest))
		return
	}

	var note *Note
	err = a.router.Transaction(r.Context(), func(ctx context.Context) error {
		n, err := a.notes.UpdateByID(ctx, id, values)
		if err != nil {
			return err
		}
		if n == 0 {
			return errNotFound
		}
		note, err = a.notes.FindByID(ctx, id)
		return err
	})
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}
	respond(w, http.StatusOK, note)
}

func (a *api) deleteNote(w http.ResponseWriter, r *http.Request) {
	id, err := noteID(r)
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}
	n, err := a.notes.DeleteByID(r.Context(), id)
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}
	if n == 0 {
		respondError(w, r, a.log, errNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type noteStats struct {
	Tenant string `json:"tenant"`
	Total  int64  `json:"total"`
	Pinned int64  `json:"pinned"`
	Latest *Note  `json:"latest,omitempty"`
}

func (a *api) stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	out := noteStats{Tenant: tenant.MustIDFromContext(ctx)}

	qb, err := a.router.CreateQueryBuilder(ctx)
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}
	err = qb.Select("COUNT(*)", "COALESCE(SUM(CASE WHEN pinned THEN 1 ELSE 0 END), 0)").
		From("notes").
		Row(ctx, &out.Total, &out.Pinned)
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}

	if out.Total > 0 {
		latest, err := a.notes.FindOne(ctx, sqldb.FindOptions{OrderBy: []string{"created_at DESC"}})
		if err != nil {
			respondError(w, r, a.log, err)
			return
		}
		out.Latest = latest
	}
	respond(w, http.StatusOK, out)
}

func (a *api) listTenants(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, a.router.GetTenants())
}

func (a *api) addTenant(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		respondError(w, r, a.log, errReadOnlyTenants)
		return
	}
	var in struct {
		ID string `json:"id"`
	}
	if err := decode(w, r, &in); err != nil {
		respondError(w, r, a.log, err)
		return
	}
	id := strings.TrimSpace(in.ID)
	if !tenant.ValidIdentifier(id) {
		respondError(w, r, a.log, tenant.ErrInvalidIdentifier)
		return
	}
	if a.router.HasTenant(id) {
		respondError(w, r, a.log, &tenantdb.TenantsExistError{TenantIDs: []string{id}})
		return
	}
	if _, err := a.store.Add(r.Context(), id); err != nil {
		respondError(w, r, a.log, err)
		return
	}
	if err := a.sync(r.Context()); err != nil {
		respondError(w, r, a.log, err)
		return
	}
	respond(w, http.StatusCreated, map[string]string{"id": id})
}

func (a *api) removeTenant(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		respondError(w, r, a.log, errReadOnlyTenants)
		return
	}
	id := chi.URLParam(r, "id")
	if !a.router.HasTenant(id) {
		respondError(w, r, a.log, &tenantdb.ConnectionNotFoundError{TenantID: id})
		return
	}
	if _, err := a.store.Remove(r.Context(), id); err != nil {
		respondError(w, r, a.log, err)
		return
	}
	if err := a.sync(r.Context()); err != nil {
		respondError(w, r, a.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) showMigrations(w http.ResponseWriter, r *http.Request) {
	pending, err := a.router.ShowMigrations(r.Context())
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"pending": pending, "tenants": len(a.router.GetTenants())})
}

func (a *api) runMigrations(w http.ResponseWriter, r *http.Request) {
	applied, err := a.router.RunMigrations(r.Context())
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}
	versions := make([]int64, len(applied))
	for i, m := range applied {
		versions[i] = m.Version
	}
	respond(w, http.StatusOK, map[string]any{"applied": versions})
}

func (a *api) undoMigration(w http.ResponseWriter, r *http.Request) {
	if err := a.router.UndoLastMigration(r.Context()); err != nil {
		respondError(w, r, a.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func newNote(in noteInput) (*Note, error) {
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", errBadRequest)
	}
	note := &Note{
		Title:     strings.TrimSpace(*in.Title),
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	if in.Body != nil {
		note.Body = *in.Body
	}
	if in.Pinned != nil {
		note.Pinned = *in.Pinned
	}
	return note, nil
}

func noteID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid note id", errBadRequest)
	}
	return id, nil
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q is not a non-negative integer", errBadRequest, s)
	}
	return n, nil
}
