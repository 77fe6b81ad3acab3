package api

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/aspect-console/aspect/pkg/auth"
	"github.com/aspect-console/aspect/pkg/catalog"
	"github.com/aspect-console/aspect/pkg/config"
	"github.com/aspect-console/aspect/pkg/httputil"
	"github.com/aspect-console/aspect/pkg/observability"
	"github.com/aspect-console/aspect/pkg/rbac"
	"github.com/aspect-console/aspect/pkg/registry"
	"github.com/aspect-console/aspect/pkg/storage"
)

// Server wires stores, middleware, and routes into one HTTP handler
type Server struct {
	cfg     *config.Config
	logger  *observability.Logger
	metrics *observability.Metrics

	verifier auth.Verifier
	source   rbac.Source
	cache    *rbac.CachedSource
	gate     *rbac.Gate
	registry *registry.Registry

	users       *storage.UserStore
	roles       *storage.RoleStore
	permissions *storage.PermissionStore
	modules     *storage.ModuleStore
	categories  *storage.CategoryStore
	pages       *storage.PageStore
	models      *storage.ModelStore
	navigation  *catalog.Store

	httpServer *http.Server
}

// NewServer builds a fully wired server. The permission snapshot cache is
// enabled only when the configured TTL is positive.
func NewServer(cfg *config.Config, db *sql.DB, verifier auth.Verifier,
	logger *observability.Logger, metrics *observability.Metrics) *Server {

	var source rbac.Source = rbac.NewStore(db, metrics)
	var cache *rbac.CachedSource
	if cfg.PermissionCacheTTL > 0 {
		cache = rbac.NewCachedSource(source, 1024, cfg.PermissionCacheTTL, metrics)
		source = cache
	}

	s := &Server{
		cfg:         cfg,
		logger:      logger,
		metrics:     metrics,
		verifier:    verifier,
		source:      source,
		cache:       cache,
		gate:        rbac.NewGate(metrics),
		registry:    registry.Default(),
		users:       storage.NewUserStore(db, metrics),
		roles:       storage.NewRoleStore(db, metrics),
		permissions: storage.NewPermissionStore(db, metrics),
		modules:     storage.NewModuleStore(db, metrics),
		categories:  storage.NewCategoryStore(db, metrics),
		pages:       storage.NewPageStore(db, metrics),
		models:      storage.NewModelStore(db, metrics),
		navigation:  catalog.NewStore(db, metrics),
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// Router builds the full route table behind the shared middleware chain.
// Logging, recovery, and CORS wrap the router itself rather than running
// as mux middleware: mux only invokes Use middleware on matched routes,
// and a browser preflight arrives as an OPTIONS request no route matches.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(auth.Middleware(s.verifier))
	r.Use(rbac.AttachPermissions(s.source, s.logger))

	endpoints := s.cfg.Endpoints

	nav := r.PathPrefix(endpoints.Navigation).Subrouter()
	nav.HandleFunc("", s.getNavigation).Methods(http.MethodGet)

	userPermissions := r.PathPrefix(endpoints.UserPermissions).Subrouter()
	userPermissions.HandleFunc("", s.getUserPermissions).Methods(http.MethodGet)

	s.mountResource(r, endpoints.Users, "users", resourceHandlers{
		list: s.listUsers, get: s.getUser, create: s.createUser,
		update: s.updateUser, delete: s.deleteUser,
	})
	s.mountResource(r, endpoints.Roles, "roles", resourceHandlers{
		list: s.listRoles, get: s.getRole, create: s.createRole,
		update: s.updateRole, delete: s.deleteRole,
	})
	s.mountResource(r, endpoints.Permissions, "permissions", resourceHandlers{
		list: s.listPermissions, get: s.getPermission, create: s.createPermission,
		update: s.updatePermission, delete: s.deletePermission,
	})
	s.mountResource(r, endpoints.Modules, "modules", resourceHandlers{
		list: s.listModules, get: s.getModule, create: s.createModule,
		update: s.updateModule, delete: s.deleteModule,
	})
	s.mountResource(r, endpoints.Categories, "categories", resourceHandlers{
		list: s.listCategories, get: s.getCategory, create: s.createCategory,
		update: s.updateCategory, delete: s.deleteCategory,
	})
	s.mountResource(r, endpoints.Pages, "pages", resourceHandlers{
		list: s.listPages, get: s.getPage, create: s.createPage,
		update: s.updatePage, delete: s.deletePage,
	})

	api := r.PathPrefix(endpoints.GenericAPI).Subrouter()
	api.HandleFunc("/{model}", s.listModelRecords).Methods(http.MethodGet)
	api.HandleFunc("/{model}", s.createModelRecord).Methods(http.MethodPost)
	api.HandleFunc("/{model}/{id:[0-9]+}", s.getModelRecord).Methods(http.MethodGet)
	api.HandleFunc("/{model}/{id:[0-9]+}", s.updateModelRecord).Methods(http.MethodPut)
	api.HandleFunc("/{model}/{id:[0-9]+}", s.deleteModelRecord).Methods(http.MethodDelete)

	var handler http.Handler = r
	handler = httputil.CORSMiddleware(s.cfg.CORS.Origin)(handler)
	handler = httputil.RecoveryMiddleware(s.logger)(handler)
	handler = httputil.LoggingMiddleware(s.logger, s.metrics)(handler)
	return handler
}

type resourceHandlers struct {
	list, get, create, update, delete http.HandlerFunc
}

// mountResource registers the uniform CRUD route family for one resource:
// reads require "{resource}:read", writes "{resource}:write", with
// "admin:read"/"admin:write" as blanket alternatives.
func (s *Server) mountResource(r *mux.Router, prefix, resource string, h resourceHandlers) {
	read := s.gate.RequireAny(resource + ":read|admin:read")
	write := s.gate.RequireAny(resource + ":write|admin:write")

	sub := r.PathPrefix(prefix).Subrouter()
	sub.Handle("", read(h.list)).Methods(http.MethodGet)
	sub.Handle("", write(h.create)).Methods(http.MethodPost)
	sub.Handle("/{id:[0-9]+}", read(h.get)).Methods(http.MethodGet)
	sub.Handle("/{id:[0-9]+}", write(h.update)).Methods(http.MethodPut)
	sub.Handle("/{id:[0-9]+}", write(h.delete)).Methods(http.MethodDelete)
}

// Start begins serving; it blocks until the listener fails or closes
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("starting API server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until the context expires
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// invalidatePermissions purges the permission snapshot cache after any
// mutation that can change who may do what.
func (s *Server) invalidatePermissions() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.WithError(err).WithFields(map[string]interface{}{
		"method":     r.Method,
		"path":       r.URL.Path,
		"request_id": httputil.RequestID(r),
	}).Error("handler failed")
	httputil.WriteInternalError(w, err)
}
