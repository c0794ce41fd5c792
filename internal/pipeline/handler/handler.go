// Package handler exposes the application workflow over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"accountflow/internal/application"
	"accountflow/internal/pipeline"
	"accountflow/internal/platform/metrics"
	"accountflow/internal/validation"
	dErrors "accountflow/pkg/domainerrors"
	"accountflow/pkg/platform/httputil"
	"accountflow/pkg/requestcontext"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// Service defines the application workflow operations.
type Service interface {
	Create(ctx context.Context, in pipeline.CreateInput) (*application.Application, error)
	Get(ctx context.Context, id string) (*application.Application, error)
	List(ctx context.Context, filter application.ListFilter) ([]*application.Application, error)
	Validate(ctx context.Context, id string) (validation.Report, error)
	Submit(ctx context.Context, id string) (pipeline.SubmitResult, error)
	Status(ctx context.Context, id string) (pipeline.StatusView, error)
	Resolve(ctx context.Context, id, decision, reason string) (*application.Application, error)
}

// Handler wires application endpoints to the workflow service.
type Handler struct {
	service Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New constructs an application handler.
func New(service Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
		metrics: metrics,
	}
}

// Register mounts application endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/applications", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
		r.Post("/{id}/validate", h.HandleValidate)
		r.Post("/{id}/submit", h.HandleSubmit)
		r.Get("/{id}/status", h.HandleStatus)
		r.Post("/{id}/resolve", h.HandleResolve)
	})
}

// HandleCreate handles POST /applications.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, requestID)
	if !ok {
		return
	}

	app, err := h.service.Create(ctx, req.Input(requestcontext.Now(ctx)))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create application",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.metrics.IncrementApplicationsCreated()
	httputil.WriteJSON(w, http.StatusCreated, app)
}

// HandleList handles GET /applications?status=&limit=.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := application.ListFilter{
		Status: application.Status(r.URL.Query().Get("status")),
		Limit:  defaultListLimit,
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be between 1 and 1000"))
			return
		}
		filter.Limit = n
	}

	apps, err := h.service.List(ctx, filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if apps == nil {
		apps = []*application.Application{}
	}
	httputil.WriteJSON(w, http.StatusOK, apps)
}

// HandleGet handles GET /applications/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	app, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

// HandleValidate handles POST /applications/{id}/validate.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Validate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleSubmit handles POST /applications/{id}/submit. The response is
// sent before processing finishes.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	result, err := h.service.Submit(ctx, id)
	if err != nil {
		h.logger.WarnContext(ctx, "submission rejected",
			"request_id", requestcontext.RequestID(ctx),
			"application_id", id,
			"code", string(dErrors.CodeOf(err)),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, result)
}

// HandleStatus handles GET /applications/{id}/status.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleResolve handles POST /applications/{id}/resolve.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ResolveRequest](w, r, h.logger, requestID)
	if !ok {
		return
	}

	ctx = requestcontext.WithReviewer(ctx, req.Reviewer)
	app, err := h.service.Resolve(ctx, chi.URLParam(r, "id"), req.Decision, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}
