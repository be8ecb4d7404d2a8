package transport

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pyop-labs/ticketing-backend/internal/entity"
	"github.com/pyop-labs/ticketing-backend/internal/service"
)

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// errorStatus maps domain errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, entity.ErrEventNotFound),
		errors.Is(err, entity.ErrOrderNotFound),
		errors.Is(err, entity.ErrUserNotFound),
		errors.Is(err, entity.ErrCategoryNotFound),
		errors.Is(err, entity.ErrTicketCategoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrInvalidRequest),
		errors.Is(err, entity.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrInsufficientTickets),
		errors.Is(err, entity.ErrEventHasOrders),
		errors.Is(err, entity.ErrUserAlreadyExists),
		errors.Is(err, entity.ErrAlreadyCheckedIn):
		return http.StatusConflict
	case errors.Is(err, entity.ErrPaymentVerificationFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, entity.ErrUnauthorized),
		errors.Is(err, entity.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(errorStatus(err), ErrorResponse{Success: false, Error: err.Error()})
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: err.Error()})
		return
	}

	resp, err := h.orderService.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *OrderHandler) QuotePromo(c *gin.Context) {
	var req service.PromoQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: err.Error()})
		return
	}

	quote, err := h.orderService.QuotePromo(c.Request.Context(), &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: "invalid order id"})
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) GetOrderForBuyer(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: "invalid order id"})
		return
	}

	order, err := h.orderService.GetOrderForBuyer(c.Request.Context(), orderID, c.Param("clerk_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) GetUserOrders(c *gin.Context) {
	orders, err := h.orderService.GetUserOrders(c.Request.Context(), c.Param("clerk_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) CheckInOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: "invalid order id"})
		return
	}

	if err := h.orderService.CheckInOrder(c.Request.Context(), orderID); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "order checked in"})
}
