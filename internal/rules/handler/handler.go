// Package handler exposes business rule administration over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"accountflow/internal/audit"
	"accountflow/internal/platform/metrics"
	"accountflow/internal/rules"
	dErrors "accountflow/pkg/domainerrors"
	"accountflow/pkg/platform/httputil"
	"accountflow/pkg/requestcontext"
)

// Engine is the rule set being administered.
type Engine interface {
	Add(ctx context.Context, r rules.BusinessRule) error
	Remove(ctx context.Context, id string) bool
	List() []rules.BusinessRule
}

// Auditor records rule changes.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Handler wires rule endpoints to the engine.
type Handler struct {
	engine  Engine
	auditor Auditor
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New constructs a rules handler. auditor may be nil.
func New(engine Engine, auditor Auditor, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		engine:  engine,
		auditor: auditor,
		logger:  logger,
		metrics: metrics,
	}
}

// Register mounts rule endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/rules", h.HandleList)
	r.Post("/rules", h.HandleCreate)
	r.Delete("/rules/{id}", h.HandleDelete)
}

// RuleRequest is the body of POST /rules. Enabled defaults to true.
type RuleRequest struct {
	ID        string `json:"rule_id"`
	Name      string `json:"rule_name"`
	Condition string `json:"condition"`
	Action    string `json:"action"`
	Priority  int    `json:"priority"`
	Enabled   *bool  `json:"enabled"`

	rule rules.BusinessRule
}

// Validate trims the request and checks the resulting rule.
func (r *RuleRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.rule = rules.BusinessRule{
		ID:        strings.TrimSpace(r.ID),
		Name:      strings.TrimSpace(r.Name),
		Condition: strings.TrimSpace(r.Condition),
		Action:    strings.TrimSpace(r.Action),
		Priority:  r.Priority,
		Enabled:   r.Enabled == nil || *r.Enabled,
	}
	return r.rule.Validate()
}

// HandleList handles GET /rules.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.engine.List())
}

// HandleCreate handles POST /rules.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RuleRequest](w, r, h.logger, requestID)
	if !ok {
		return
	}

	if err := h.engine.Add(ctx, req.rule); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.metrics.IncrementRulesChanged("add")
	h.logger.InfoContext(ctx, "rule added",
		"request_id", requestID,
		"rule_id", req.rule.ID,
		"action", req.rule.Action,
		"priority", req.rule.Priority,
	)
	h.emit(ctx, audit.Event{Action: audit.ActionRuleAdded, Subject: req.rule.ID, Decision: req.rule.Action})
	httputil.WriteJSON(w, http.StatusCreated, req.rule)
}

// HandleDelete handles DELETE /rules/{id}. Deleting an unknown rule
// succeeds without effect.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if h.engine.Remove(ctx, id) {
		h.metrics.IncrementRulesChanged("remove")
		h.logger.InfoContext(ctx, "rule removed",
			"request_id", requestcontext.RequestID(ctx),
			"rule_id", id,
		)
		h.emit(ctx, audit.Event{Action: audit.ActionRuleRemoved, Subject: id})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Rule " + id + " deleted"})
}

func (h *Handler) emit(ctx context.Context, event audit.Event) {
	if h.auditor == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if err := h.auditor.Emit(ctx, event); err != nil {
		h.logger.WarnContext(ctx, "failed to emit audit event", "action", string(event.Action), "error", err)
	}
}
