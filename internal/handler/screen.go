package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/kioskconnect/backend/internal/model"
	"github.com/kioskconnect/backend/internal/repository"
)

// ScreenHandler manages kiosk screens and which restaurants each
// screen shows on its grid.  Screens are configured by admins; the
// public Get endpoint is what a kiosk loads at boot to learn its
// grid shape and restaurant set.
type ScreenHandler struct {
	Screens *repository.ScreenRepo
}

func NewScreenHandler(s *repository.ScreenRepo) *ScreenHandler {
	return &ScreenHandler{Screens: s}
}

type screenReq struct {
	Name         string `json:"name"`
	GridRows     int    `json:"grid_rows"`
	GridColumns  int    `json:"grid_columns"`
	ShowLanguage string `json:"show_language"` // en | ar | both
}

func (req *screenReq) validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return errors.New("name is required")
	}
	if req.GridRows < 1 || req.GridColumns < 1 {
		return errors.New("grid_rows and grid_columns must be positive")
	}
	switch req.ShowLanguage {
	case "en", "ar", "both":
	default:
		return errors.New("show_language must be en, ar or both")
	}
	return nil
}

type assignReq struct {
	RestaurantIDs []uint64 `json:"restaurant_ids"`
}

// List handles GET /v1/admin/screens.
func (h *ScreenHandler) List(c echo.Context) error {
	items, err := h.Screens.ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list screens failed"})
	}
	if items == nil {
		items = []*model.Screen{}
	}
	return c.JSON(http.StatusOK, echo.Map{"screens": items})
}

// Get handles GET /v1/screens/:id.  Public: a kiosk fetches its own
// screen record plus assignments at boot.
func (h *ScreenHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	s, err := h.Screens.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrScreenNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "screen not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "get screen failed"})
	}
	assignments, err := h.Screens.ListAssignments(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "get assignments failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"screen": s, "assignments": assignments})
}

// Create handles POST /v1/admin/screens.
func (h *ScreenHandler) Create(c echo.Context) error {
	var req screenReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := req.validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	s := model.Screen{
		Name:         strings.TrimSpace(req.Name),
		GridRows:     uint32(req.GridRows),
		GridColumns:  uint32(req.GridColumns),
		ShowLanguage: req.ShowLanguage,
	}
	if err := h.Screens.Create(c.Request().Context(), &s); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create screen failed"})
	}
	return c.JSON(http.StatusCreated, s)
}

// Update handles PUT /v1/admin/screens/:id.
func (h *ScreenHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req screenReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := req.validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	s := model.Screen{
		ID:           id,
		Name:         strings.TrimSpace(req.Name),
		GridRows:     uint32(req.GridRows),
		GridColumns:  uint32(req.GridColumns),
		ShowLanguage: req.ShowLanguage,
	}
	if err := h.Screens.Update(c.Request().Context(), &s); err != nil {
		if errors.Is(err, repository.ErrScreenNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "screen not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update screen failed"})
	}
	return c.JSON(http.StatusOK, s)
}

// Delete handles DELETE /v1/admin/screens/:id.
func (h *ScreenHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Screens.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrScreenNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "screen not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete screen failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Assign handles PUT /v1/admin/screens/:id/restaurants.  The body
// is the full ordered list; it replaces whatever was assigned.
func (h *ScreenHandler) Assign(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req assignReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := h.Screens.AssignRestaurants(c.Request().Context(), id, req.RestaurantIDs); err != nil {
		if errors.Is(err, repository.ErrScreenNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "screen not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "assign restaurants failed"})
	}
	assignments, err := h.Screens.ListAssignments(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "get assignments failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"assignments": assignments})
}
