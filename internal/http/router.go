// Package httpapi assembles the HTTP surface: middleware, the application
// and rule handlers, and the operational endpoints.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"accountflow/internal/application"
	"accountflow/internal/dashboard"
	pipelinehandler "accountflow/internal/pipeline/handler"
	"accountflow/internal/platform/metrics"
	"accountflow/internal/platform/middleware"
	ruleshandler "accountflow/internal/rules/handler"
	"accountflow/internal/workflow"
	"accountflow/pkg/platform/httputil"
	"accountflow/pkg/requestcontext"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Dashboard computes dashboard metrics.
type Dashboard interface {
	Metrics(ctx context.Context, now time.Time) (dashboard.Metrics, error)
}

// HealthChecker reports whether an infrastructure dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps are the collaborators the router serves.
type Deps struct {
	Applications pipelinehandler.Service
	Store        application.Store
	Rules        ruleshandler.Engine
	Auditor      ruleshandler.Auditor
	Dashboard    Dashboard
	Workflows    *workflow.Catalog
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	Gatherer     prometheus.Gatherer
	APIKey       string
	CORSOrigins  []string
	Dependencies map[string]HealthChecker
}

// NewRouter wires every endpoint. /health and /metrics are served without
// the API key.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestContext)
	r.Use(middleware.Logger(d.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(d.CORSOrigins))

	ops := &operations{deps: d}
	r.Get("/health", ops.handleHealth)
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAPIKey(d.APIKey, d.Logger))
		pipelinehandler.New(d.Applications, d.Logger, d.Metrics).Register(r)
		ruleshandler.New(d.Rules, d.Auditor, d.Logger, d.Metrics).Register(r)
		r.Get("/dashboard/metrics", ops.handleDashboard)
		r.Get("/workflows", ops.handleWorkflows)
	})
	return r
}

type operations struct {
	deps Deps
}

type healthResponse struct {
	Status            string            `json:"status"`
	Version           string            `json:"version"`
	Timestamp         time.Time         `json:"timestamp"`
	ApplicationsCount int               `json:"applications_count"`
	WorkflowsCount    int               `json:"workflows_count"`
	RulesCount        int               `json:"rules_count"`
	Dependencies      map[string]string `json:"dependencies,omitempty"`
}

func (o *operations) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	count, err := o.deps.Store.Count(ctx)
	if err != nil {
		o.deps.Logger.ErrorContext(ctx, "health check failed", "error", err)
		httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	resp := healthResponse{
		Status:            "healthy",
		Version:           Version,
		Timestamp:         requestcontext.Now(ctx),
		ApplicationsCount: count,
		WorkflowsCount:    len(o.deps.Workflows.List()),
		RulesCount:        len(o.deps.Rules.List()),
	}
	code := http.StatusOK
	if len(o.deps.Dependencies) > 0 {
		resp.Dependencies = make(map[string]string, len(o.deps.Dependencies))
		for name, dep := range o.deps.Dependencies {
			if err := dep.Health(ctx); err != nil {
				o.deps.Logger.WarnContext(ctx, "dependency unhealthy", "dependency", name, "error", err)
				resp.Dependencies[name] = "unhealthy"
				resp.Status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			resp.Dependencies[name] = "healthy"
		}
	}
	httputil.WriteJSON(w, code, resp)
}

func (o *operations) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, err := o.deps.Dashboard.Metrics(ctx, requestcontext.Now(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

func (o *operations) handleWorkflows(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, o.deps.Workflows.List())
}
