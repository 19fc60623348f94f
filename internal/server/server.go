package server

import (
	"context"
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/auth"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/config"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/pipeline"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/store"
	"github.com/amitkumar0206/finops-orchestrator-sub000/pkg/api"
)

type Server struct {
	cfg        *config.Config
	router     chi.Router
	store      store.Store
	authMgr    *auth.Manager
	rbac       *auth.RBAC
	entrypoint *pipeline.Entrypoint
	frontendFS fs.FS
	logger     *slog.Logger
	http       *http.Server
}

// New wires the HTTP surface: the FinOps query pipeline, the cost-source and
// project store, and OIDC auth, behind one chi.Router. rbac derives the
// effective RequestContext scope for every query (spec §3/§4.4) from the
// authenticated session rather than from client-supplied fields.
func New(cfg *config.Config, st store.Store, authMgr *auth.Manager, rbac *auth.RBAC, ep *pipeline.Entrypoint, frontendFS fs.FS, logger *slog.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		store:      st,
		authMgr:    authMgr,
		rbac:       rbac,
		entrypoint: ep,
		frontendFS: frontendFS,
		logger:     logger,
	}
	s.router = s.routes()
	s.http = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	if s.authMgr != nil {
		r.Get("/auth/login", s.authMgr.HandleLogin)
		r.Get("/auth/callback", s.authMgr.HandleCallback)
		r.Post("/auth/logout", s.authMgr.HandleLogout)
		r.Get("/auth/userinfo", s.authMgr.HandleUserInfo)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if s.authMgr != nil {
			r.Use(s.authMgr.Middleware)
		}

		// FinOps natural-language query engine
		r.Post("/query", s.handleQuery)
		r.Get("/health", s.handleDetailedHealth)

		// Project / cost-source management
		if s.store != nil {
			r.Route("/projects", func(r chi.Router) {
				r.Post("/", s.handleCreateProject)
				r.Get("/", s.handleListProjects)
				r.Route("/{projectID}", func(r chi.Router) {
					r.Get("/", s.handleGetProject)
					r.Put("/", s.handleUpdateProject)
					r.Delete("/", s.handleDeleteProject)
					r.Get("/costs", s.handleGetProjectCosts)

					r.Post("/sources", s.handleCreateCostSource)
					r.Get("/sources", s.handleListCostSources)
					r.Get("/sources/{sourceID}", s.handleGetCostSource)
					r.Delete("/sources/{sourceID}", s.handleDeleteCostSource)

					r.Get("/members", s.handleListProjectMembers)
					r.Post("/members", s.handleAddProjectMember)
					r.Delete("/members/{subjectID}", s.handleRemoveProjectMember)
				})
			})
		}
	})

	// Serve embedded frontend SPA
	if s.frontendFS != nil {
		fileServer := http.FileServer(http.FS(s.frontendFS))
		r.Get("/*", func(w http.ResponseWriter, req *http.Request) {
			// Try the exact path; fall back to index.html for SPA routing
			if _, err := fs.Stat(s.frontendFS, req.URL.Path[1:]); err != nil {
				req.URL.Path = "/"
			}
			fileServer.ServeHTTP(w, req)
		})
	}

	return r
}

func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.cfg.HTTPAddr)
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleDetailedHealth(w http.ResponseWriter, r *http.Request) {
	services := map[string]string{}
	if s.entrypoint != nil {
		services["query_pipeline"] = "ready"
	}
	if s.store != nil {
		services["store"] = "ready"
	}
	writeJSON(w, http.StatusOK, api.HealthResponse{
		Status:   "ok",
		Services: services,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write json response", "error", err)
	}
}
