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

// RestaurantHandler serves the restaurant catalogue: the public
// listing kiosks render as their home grid, and the admin CRUD
// surface.  Status (available|busy) is read-only here; only call
// transitions flip it.
type RestaurantHandler struct {
	Restaurants *repository.RestaurantRepo
}

func NewRestaurantHandler(r *repository.RestaurantRepo) *RestaurantHandler {
	return &RestaurantHandler{Restaurants: r}
}

type restaurantReq struct {
	NameEn        string `json:"name_en"`
	NameAr        string `json:"name_ar"`
	DescriptionEn string `json:"description_en"`
	DescriptionAr string `json:"description_ar"`
	MenuImageURL  string `json:"menu_image_url"`
	Phone         string `json:"phone"`
}

func (req *restaurantReq) validate() error {
	if strings.TrimSpace(req.NameEn) == "" && strings.TrimSpace(req.NameAr) == "" {
		return errors.New("name_en or name_ar is required")
	}
	return nil
}

// List handles GET /v1/restaurants.  Public: kiosks poll it to
// paint the grid, including each restaurant's live busy state.
// Mounted behind the response cache middleware.
func (h *RestaurantHandler) List(c echo.Context) error {
	items, err := h.Restaurants.ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list restaurants failed"})
	}
	if items == nil {
		items = []*model.Restaurant{}
	}
	return c.JSON(http.StatusOK, echo.Map{"restaurants": items})
}

// Get handles GET /v1/restaurants/:id.
func (h *RestaurantHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	rest, err := h.Restaurants.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrRestaurantNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "restaurant not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "get restaurant failed"})
	}
	return c.JSON(http.StatusOK, rest)
}

// Create handles POST /v1/admin/restaurants.
func (h *RestaurantHandler) Create(c echo.Context) error {
	var req restaurantReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := req.validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	rest := model.Restaurant{
		NameEn:        strings.TrimSpace(req.NameEn),
		NameAr:        strings.TrimSpace(req.NameAr),
		DescriptionEn: req.DescriptionEn,
		DescriptionAr: req.DescriptionAr,
		MenuImageURL:  req.MenuImageURL,
		Phone:         req.Phone,
	}
	if err := h.Restaurants.Create(c.Request().Context(), &rest); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create restaurant failed"})
	}
	return c.JSON(http.StatusCreated, rest)
}

// Update handles PUT /v1/admin/restaurants/:id.  Status is not an
// accepted field; attempts to set it are silently ignored by the
// request shape.
func (h *RestaurantHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req restaurantReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := req.validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	rest := model.Restaurant{
		ID:            id,
		NameEn:        strings.TrimSpace(req.NameEn),
		NameAr:        strings.TrimSpace(req.NameAr),
		DescriptionEn: req.DescriptionEn,
		DescriptionAr: req.DescriptionAr,
		MenuImageURL:  req.MenuImageURL,
		Phone:         req.Phone,
	}
	if err := h.Restaurants.Update(c.Request().Context(), &rest); err != nil {
		if errors.Is(err, repository.ErrRestaurantNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "restaurant not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update restaurant failed"})
	}
	return c.JSON(http.StatusOK, rest)
}

// Delete handles DELETE /v1/admin/restaurants/:id.  A restaurant
// with an ACTIVE call cannot be deleted; the call must end first.
func (h *RestaurantHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Restaurants.Delete(c.Request().Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrRestaurantNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "restaurant not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "restaurant has an active call"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete restaurant failed"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}
