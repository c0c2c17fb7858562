// Package handler exposes the order pipeline and reports over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/order-pipeline/internal/domain/order"
	"github.com/xenking/order-pipeline/internal/report"
)

// Scopes checked by the API routes.
const (
	ScopeOrdersWrite = "orders:write"
	ScopeReportsRead = "reports:read"
)

// Submitter runs a single order through the pipeline.
type Submitter interface {
	Submit(ctx context.Context, raw *order.RawOrder) (order.Outcome, error)
}

// Handler serves the /api routes.
type Handler struct {
	orders  Submitter
	reports report.Source
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(orders Submitter, reports report.Source) *Handler {
	return &Handler{orders: orders, reports: reports}
}

// Routes returns the /api router. Every route requires an API key accepted
// by authn and carrying the route's scope.
func (h *Handler) Routes(authn Authenticator, middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middlewares...)
	r.Use(APIKey(authn))

	r.With(RequireScope(ScopeOrdersWrite)).Post("/orders", h.PlaceOrder)
	r.With(RequireScope(ScopeReportsRead)).Get("/reports/orders", h.OrderReport)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, message string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
	writeJSON(w, status, &e)
}

func internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	zctx.From(r.Context()).Error(msg, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
