package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/DarkIsCool10/UniEventos/internal/dto"
	"github.com/DarkIsCool10/UniEventos/internal/ledger"
	"github.com/DarkIsCool10/UniEventos/internal/service"
	"github.com/labstack/echo/v4"
)

type CartHandler struct {
	svc service.CartService
}

func NewCartHandler(svc service.CartService) *CartHandler {
	return &CartHandler{svc: svc}
}

func (h *CartHandler) RegisterRoutes(e *echo.Echo) {
	carts := e.Group("/api/v1/carts/:account_id")
	carts.GET("/items", h.ListItems)
	carts.DELETE("/items", h.ClearCart)
	carts.PUT("/items/:locality_id", h.AddItem)
	carts.DELETE("/items/:locality_id", h.RemoveItem)
	carts.GET("/total", h.GetTotal)
	carts.GET("/availability", h.ValidateAvailability)
	carts.POST("/checkout", h.Checkout)
}

func (h *CartHandler) AddItem(c echo.Context) error {
	localityID, err := strconv.ParseUint(c.Param("locality_id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid locality id")
	}

	var req dto.AddItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Quantity <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "quantity (>0) is required")
	}

	hold, err := h.svc.AddItem(c.Request().Context(), c.Param("account_id"), uint(localityID), req.Quantity)
	if err != nil {
		return cartError(c, err)
	}

	return c.JSON(http.StatusOK, dto.ToHoldResponse(hold))
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	localityID, err := strconv.ParseUint(c.Param("locality_id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid locality id")
	}

	if err := h.svc.RemoveItem(c.Request().Context(), c.Param("account_id"), uint(localityID)); err != nil {
		return cartError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *CartHandler) ClearCart(c echo.Context) error {
	if err := h.svc.ClearCart(c.Request().Context(), c.Param("account_id")); err != nil {
		return cartError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *CartHandler) ListItems(c echo.Context) error {
	lines, err := h.svc.ListItems(c.Request().Context(), c.Param("account_id"))
	if err != nil {
		return cartError(c, err)
	}

	return c.JSON(http.StatusOK, dto.ToCartItemResponses(lines))
}

// GetTotal prices the cart. strict=true rejects bad coupons and lapsed holds instead of warning.
func (h *CartHandler) GetTotal(c echo.Context) error {
	strict := false
	if s := c.QueryParam("strict"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid strict flag")
		}
		strict = v
	}

	total, err := h.svc.CalculateTotal(c.Request().Context(), c.Param("account_id"), c.QueryParam("coupon"), strict)
	if err != nil {
		return cartError(c, err)
	}

	return c.JSON(http.StatusOK, dto.ToCartTotalResponse(total))
}

func (h *CartHandler) ValidateAvailability(c echo.Context) error {
	unavailable, err := h.svc.ValidateAvailability(c.Request().Context(), c.Param("account_id"))
	if err != nil {
		return cartError(c, err)
	}

	return c.JSON(http.StatusOK, dto.CartAvailabilityResponse{
		Available:   len(unavailable) == 0,
		Unavailable: dto.ToUnavailableItemResponses(unavailable),
	})
}

func (h *CartHandler) Checkout(c echo.Context) error {
	var req dto.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	order, err := h.svc.Checkout(c.Request().Context(), c.Param("account_id"), req.CouponCode)
	if err != nil {
		return cartError(c, err)
	}

	return c.JSON(http.StatusCreated, dto.ToOrderResponse(order))
}

func cartError(c echo.Context, err error) error {
	var avErr *service.AvailabilityError
	if errors.As(err, &avErr) {
		return c.JSON(http.StatusConflict, dto.ErrorResponse{
			Message: "some cart items are no longer held",
			Items:   dto.ToUnavailableItemResponses(avErr.Items),
		})
	}

	switch {
	case errors.Is(err, service.ErrCartRequired),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, ledger.ErrEmptyCart):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrLocalityNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotEnoughAvailability),
		errors.Is(err, ledger.ErrHoldExpired):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCoupon):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
