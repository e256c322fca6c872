// Package server exposes a chat session over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"gochat/internal/classify"
	"gochat/internal/core"
	"gochat/internal/engine"
	"gochat/internal/session"
	"gochat/internal/status"
)

// Asker answers questions within a session.
type Asker interface {
	AskOutcome(ctx context.Context, question string, model core.ModelSelection) (engine.Outcome, error)
	Store() *session.Store
}

// ModelLister lists the endpoint's models.
type ModelLister interface {
	List(ctx context.Context) ([]core.Model, error)
}

// Pinger checks a backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators behind the HTTP handlers.
type Deps struct {
	Session Asker
	Models  ModelLister
	// Status is optional; its latest update is included in the session view.
	Status *status.Latest
	// Storage is optional; when set, /health pings it.
	Storage Pinger
	// Model is used for fields an ask request leaves empty.
	Model core.ModelSelection
}

// Handler holds the HTTP handlers
type Handler struct {
	deps Deps
}

// NewHandler creates a handler over deps.
func NewHandler(deps Deps) *Handler {
	return &Handler{deps: deps}
}

// AskRequest is the body of POST /v1/ask.
type AskRequest struct {
	Question    string  `json:"question"`
	Model       string  `json:"model,omitempty"`
	Temperature *string `json:"temperature,omitempty"`
	Prompt      *string `json:"prompt,omitempty"`
}

// AskResponse is returned by POST /v1/ask. Status describes this exchange
// only.
type AskResponse struct {
	Exchange core.Exchange    `json:"exchange"`
	Status   status.Update    `json:"status"`
	Failure  *classify.Result `json:"failure,omitempty"`
}

// SessionResponse is returned by GET /v1/session.
type SessionResponse struct {
	Exchanges  []core.Exchange          `json:"exchanges"`
	SelectedID string                   `json:"selected_id,omitempty"`
	Loading    bool                     `json:"loading"`
	Snapshots  map[string]core.Exchange `json:"snapshots"`
	Status     *status.Update           `json:"status,omitempty"`
}

// Health handles GET /health
//
// @Summary     Health check
// @Tags        system
// @Produce     json
// @Success     200  {object}  map[string]string
// @Failure     503  {object}  map[string]string
// @Router      /health [get]
func (h *Handler) Health(c echo.Context) error {
	if h.deps.Storage != nil {
		if err := h.deps.Storage.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Session handles GET /v1/session
//
// @Summary     Get the session view
// @Tags        session
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  server.SessionResponse
// @Failure     401  {object}  core.GatewayError
// @Router      /v1/session [get]
func (h *Handler) Session(c echo.Context) error {
	store := h.deps.Session.Store()
	return c.JSON(http.StatusOK, SessionResponse{
		Exchanges:  store.Exchanges(),
		SelectedID: store.SelectedID(),
		Loading:    store.Loading(),
		Snapshots:  store.Snapshots(),
		Status:     h.lastStatus(),
	})
}

// Ask handles POST /v1/ask. Provider failures do not fail the request; they
// appear in the returned status and failure.
//
// @Summary     Ask a question in the session
// @Tags        session
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request  body  server.AskRequest  true  "Question and optional model overrides"
// @Success     200  {object}  server.AskResponse
// @Failure     400  {object}  core.GatewayError
// @Failure     401  {object}  core.GatewayError
// @Router      /v1/ask [post]
func (h *Handler) Ask(c echo.Context) error {
	var req AskRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body", err))
	}
	if strings.TrimSpace(req.Question) == "" {
		return handleError(c, core.NewInvalidRequestError("question is required", nil))
	}

	model := h.deps.Model
	if req.Model != "" {
		model.Name = req.Model
	}
	if req.Temperature != nil {
		model.Temperature = *req.Temperature
	}
	if req.Prompt != nil {
		model.Prompt = *req.Prompt
	}
	if err := model.Validate(); err != nil {
		return handleError(c, core.NewInvalidRequestError(err.Error(), err))
	}

	out, err := h.deps.Session.AskOutcome(c.Request().Context(), req.Question, model)
	if err != nil {
		return handleError(c, core.NewInvalidRequestError(err.Error(), err))
	}
	resp := AskResponse{Exchange: out.Exchange, Status: status.Done(), Failure: out.Failure}
	if out.Failure != nil {
		resp.Status = status.Failed(out.Failure.Title, out.Failure.Message)
	}
	return c.JSON(http.StatusOK, resp)
}

// ClearExchanges handles DELETE /v1/exchanges
//
// @Summary     Clear all exchanges
// @Tags        session
// @Security    BearerAuth
// @Success     204
// @Failure     401  {object}  core.GatewayError
// @Router      /v1/exchanges [delete]
func (h *Handler) ClearExchanges(c echo.Context) error {
	h.deps.Session.Store().Clear()
	return c.NoContent(http.StatusNoContent)
}

// ListModels handles GET /v1/models
//
// @Summary     List models available at the endpoint
// @Tags        models
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  core.ModelsResponse
// @Failure     401  {object}  core.GatewayError
// @Failure     404  {object}  core.GatewayError
// @Failure     502  {object}  core.GatewayError
// @Router      /v1/models [get]
func (h *Handler) ListModels(c echo.Context) error {
	if h.deps.Models == nil {
		return handleError(c, core.NewNotFoundError("model listing is not configured"))
	}
	models, err := h.deps.Models.List(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, core.ModelsResponse{Object: "list", Data: models})
}

func (h *Handler) lastStatus() *status.Update {
	if h.deps.Status == nil {
		return nil
	}
	u, ok := h.deps.Status.Last()
	if !ok {
		return nil
	}
	return &u
}

// handleError converts gateway errors to appropriate HTTP responses
func handleError(c echo.Context, err error) error {
	var gatewayErr *core.GatewayError
	if errors.As(err, &gatewayErr) {
		return c.JSON(gatewayErr.HTTPStatusCode(), gatewayErr.ToJSON())
	}

	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": map[string]interface{}{
			"type":    "internal_error",
			"message": "an unexpected error occurred",
		},
	})
}
