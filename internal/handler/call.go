package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kioskconnect/backend/internal/coordinator"
	"github.com/kioskconnect/backend/internal/model"
	"github.com/kioskconnect/backend/internal/queue"
	queue_publisher "github.com/kioskconnect/backend/internal/service"
)

// CallHandler exposes the call lifecycle over HTTP: kiosks create
// calls, restaurant staff accept and end them, and both sides poll
// for state.  Transitions go through the coordinator; this layer
// only maps wire requests to coordinator operations and errors to
// status codes, and publishes lifecycle events after a transition
// lands.
type CallHandler struct {
	Coord *coordinator.Coordinator

	// Publish sends a lifecycle event to the broker.  Swappable so
	// tests can capture events instead of dialing RabbitMQ.
	Publish func(ctx context.Context, event queue.CallLifecycleEvent) error
}

// NewCallHandler builds a CallHandler wired to the real broker
// publisher.
func NewCallHandler(co *coordinator.Coordinator) *CallHandler {
	return &CallHandler{Coord: co, Publish: queue_publisher.PublishCallLifecycle}
}

type createCallRequest struct {
	RestaurantID uint64 `json:"restaurant_id"`
	OriginID     uint64 `json:"origin_id"`
}

// CreateCall handles POST /v1/calls.  Kiosks send the restaurant
// they want and the screen they are calling from.  While the
// restaurant is busy the request is refused with 409 so the kiosk
// surfaces "busy" instead of silently queueing behind an active
// conversation.
func (h *CallHandler) CreateCall(c echo.Context) error {
	var req createCallRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid JSON body"})
	}
	if req.RestaurantID == 0 || req.OriginID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "restaurant_id and origin_id are required"})
	}

	call, err := h.Coord.Create(c.Request().Context(), req.RestaurantID, req.OriginID)
	if err != nil {
		return callError(c, err)
	}

	h.publish(c, queue.EventCallCreated, call, nil)
	return c.JSON(http.StatusCreated, call)
}

// GetCall handles GET /v1/calls/:id.  The kiosk poller uses this as
// its authoritative snapshot.
func (h *CallHandler) GetCall(c echo.Context) error {
	call, err := h.Coord.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return callError(c, err)
	}
	return c.JSON(http.StatusOK, call)
}

// ListCalls handles GET /v1/calls?restaurant_id=N for the
// restaurant dashboard.  Staff tokens are bound to one restaurant
// and may only list their own; admin tokens may list any.
func (h *CallHandler) ListCalls(c echo.Context) error {
	rid, err := strconv.ParseUint(c.QueryParam("restaurant_id"), 10, 64)
	if err != nil || rid == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "restaurant_id query parameter is required"})
	}
	if scope, bound := restaurantScope(c); bound && scope != rid {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not allowed for this restaurant"})
	}

	calls, err := h.Coord.List(c.Request().Context(), rid)
	if err != nil {
		return callError(c, err)
	}
	if calls == nil {
		calls = []model.Call{}
	}
	return c.JSON(http.StatusOK, echo.Map{"calls": calls})
}

// AcceptCall handles POST /v1/calls/:id/accept.  First accept wins:
// the call goes ACTIVE, the restaurant flips busy, and every rival
// PENDING call is completed as superseded.  A second accept — even
// by the same staff member — gets 409, so the dashboard refetches
// instead of assuming it won.
func (h *CallHandler) AcceptCall(c echo.Context) error {
	actorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	callID := c.Param("id")

	if scope, bound := restaurantScope(c); bound {
		call, err := h.Coord.Get(c.Request().Context(), callID)
		if err != nil {
			return callError(c, err)
		}
		if call.RestaurantID != scope {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not allowed for this restaurant"})
		}
	}

	call, superseded, err := h.Coord.Accept(c.Request().Context(), callID, actorID)
	if err != nil {
		return callError(c, err)
	}

	h.publish(c, queue.EventCallAccepted, call, &actorID)
	for _, s := range superseded {
		h.publish(c, queue.EventCallSuperseded, s, &actorID)
	}
	return c.JSON(http.StatusOK, echo.Map{"call": call, "superseded": superseded})
}

// EndCall handles POST /v1/calls/:id/end.  The ACTIVE call is
// completed with outcome ended and the restaurant becomes available
// again.
func (h *CallHandler) EndCall(c echo.Context) error {
	actorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	callID := c.Param("id")

	if scope, bound := restaurantScope(c); bound {
		call, err := h.Coord.Get(c.Request().Context(), callID)
		if err != nil {
			return callError(c, err)
		}
		if call.RestaurantID != scope {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not allowed for this restaurant"})
		}
	}

	call, err := h.Coord.End(c.Request().Context(), callID, actorID)
	if err != nil {
		return callError(c, err)
	}

	h.publish(c, queue.EventCallEnded, call, &actorID)
	return c.JSON(http.StatusOK, call)
}

// publish sends a lifecycle event for the given call.  Publish
// failures are logged inside the publisher and ignored here: the
// database row already holds the truth.
func (h *CallHandler) publish(c echo.Context, eventType string, call model.Call, actorID *uint64) {
	ev := queue.CallLifecycleEvent{
		Type:         eventType,
		CallID:       call.ID,
		RestaurantID: call.RestaurantID,
		OriginID:     call.OriginID,
		ScreenName:   call.ScreenName,
		Status:       call.Status,
		ActorID:      actorID,
		Revision:     call.Revision,
		OccurredAt:   time.Now().UTC().Format(time.RFC3339),
	}
	if call.Outcome != nil {
		ev.Outcome = *call.Outcome
	}
	_ = h.Publish(c.Request().Context(), ev)
}

// callError maps coordinator sentinels to HTTP responses.
func callError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, coordinator.ErrCallNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "call not found"})
	case errors.Is(err, coordinator.ErrRestaurantNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "restaurant not found"})
	case errors.Is(err, coordinator.ErrRestaurantBusy):
		return c.JSON(http.StatusConflict, echo.Map{"error": "restaurant is busy"})
	case errors.Is(err, coordinator.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": "call state changed; refetch and retry"})
	case errors.Is(err, coordinator.ErrUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "temporarily unavailable"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
