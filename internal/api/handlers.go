package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"linkview/internal/brush"
	"linkview/internal/engine"
	"linkview/internal/models"
	"linkview/internal/selection"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// Options tunes route registration.
type Options struct {
	// BrushRate limits brush requests per second per client IP. Zero
	// disables the limit.
	BrushRate float64
	// Metrics, if set, is served at /metrics.
	Metrics http.Handler
}

type Handler struct {
	eng *engine.Engine
	hub *Hub
	log *logrus.Logger
	opt Options
}

func NewHandler(eng *engine.Engine, hub *Hub, log *logrus.Logger, opt Options) *Handler {
	return &Handler{eng: eng, hub: hub, log: log, opt: opt}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")
	api.GET("/attributes", h.GetAttributes)
	api.GET("/summary", h.GetSummary)
	api.GET("/state", h.GetState)
	api.GET("/selection", h.GetSelection)
	api.POST("/selection/clear", h.ClearSelection)
	api.PUT("/views/:view/encoding", h.SetEncoding)
	api.GET("/views/:view/svg", h.GetSVG)

	var limit []echo.MiddlewareFunc
	if h.opt.BrushRate > 0 {
		limit = append(limit, middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStore(rate.Limit(h.opt.BrushRate)),
			DenyHandler: func(c echo.Context, _ string, _ error) error {
				return c.JSON(http.StatusTooManyRequests, models.ErrorResponse{Error: "too many brush events"})
			},
		}))
	}
	api.POST("/views/:view/brush", h.Brush, limit...)

	e.GET("/ws", h.Stream)
	if h.opt.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(h.opt.Metrics))
	}
}

// --- HANDLERS ---
func getPaginationParams(c echo.Context, defaultLimit int) (int, int) {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	offset, err := strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

// statusOf maps engine errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, engine.ErrNotReady), errors.Is(err, engine.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, selection.ErrUnknownView):
		return http.StatusNotFound
	case errors.Is(err, selection.ErrUnknownAttribute),
		errors.Is(err, selection.ErrUnknownAxis),
		errors.Is(err, engine.ErrBadGesture):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(c echo.Context, err error) error {
	code := statusOf(err)
	if code == http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", c.Path()).Error("request failed")
	}
	return c.JSON(code, models.ErrorResponse{Error: err.Error()})
}

func (h *Handler) state(c echo.Context, code int) error {
	snap, err := h.eng.Snapshot(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(code, models.StateResponse{
		Ready:     snap.Ready,
		Rows:      snap.Rows,
		Version:   snap.Version,
		Selected:  snap.Selection.Len(),
		Encodings: snap.Encodings,
	})
}

func (h *Handler) GetAttributes(c echo.Context) error {
	snap, err := h.eng.Snapshot(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	if !snap.Ready {
		return h.fail(c, engine.ErrNotReady)
	}
	return c.JSON(http.StatusOK, models.AttributesResponse{Numerical: snap.Numerical, Categorical: snap.Categorical})
}

// GetSummary aggregates every attribute; ?scope=selection restricts it to
// the selected records.
func (h *Handler) GetSummary(c echo.Context) error {
	scope := c.QueryParam("scope")
	switch scope {
	case "":
		scope = "all"
	case "all", "selection":
	default:
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "scope must be all or selection"})
	}
	sums, err := h.eng.Summarize(c.Request().Context(), scope == "selection")
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, models.SummaryResponse{Scope: scope, Attributes: sums})
}

func (h *Handler) GetState(c echo.Context) error {
	return h.state(c, http.StatusOK)
}

func (h *Handler) GetSelection(c echo.Context) error {
	limit, offset := getPaginationParams(c, defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}
	recs, total, err := h.eng.SelectedRecords(c.Request().Context(), limit, offset)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, models.SelectionPage{Data: recs, Total: total, Limit: limit, Offset: offset})
}

func (h *Handler) ClearSelection(c echo.Context) error {
	if err := h.eng.ClearSelection(c.Request().Context()); err != nil {
		return h.fail(c, err)
	}
	return h.state(c, http.StatusOK)
}

func (h *Handler) SetEncoding(c echo.Context) error {
	var req models.EncodingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid encoding payload"})
	}
	if err := h.eng.SetEncoding(c.Request().Context(), c.Param("view"), req.Axis, req.Attribute); err != nil {
		return h.fail(c, err)
	}
	return h.state(c, http.StatusOK)
}

// Brush accepts one gesture event. A finished gesture may commit after the
// debounce delay, so the answer is 202 with the state as of now.
func (h *Handler) Brush(c echo.Context) error {
	var req models.BrushRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid brush payload"})
	}
	g := brush.Gesture{Phase: req.Phase, Region: req.Region}
	if err := h.eng.Brush(c.Request().Context(), c.Param("view"), g); err != nil {
		return h.fail(c, err)
	}
	return h.state(c, http.StatusAccepted)
}

func (h *Handler) GetSVG(c echo.Context) error {
	b, err := h.eng.Render(c.Request().Context(), c.Param("view"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.Blob(http.StatusOK, "image/svg+xml", b)
}

// Stream upgrades to a websocket that receives a state event after every
// change, starting with the current state.
func (h *Handler) Stream(c echo.Context) error {
	snap, err := h.eng.Snapshot(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	initial := selection.State{Version: snap.Version, Selection: snap.Selection, Encodings: snap.Encodings}
	return h.hub.Serve(c, &initial)
}
