package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"brokerage/libs/auth"
	"brokerage/services/order/internal/service"
	"brokerage/services/order/internal/storage"
)

type OrderService interface {
	Create(ctx context.Context, input service.CreateOrderInput) (*storage.Order, error)
	Get(ctx context.Context, id uuid.UUID, customerID string) (*storage.Order, error)
	List(ctx context.Context, filter storage.OrderFilter) ([]storage.Order, error)
	Cancel(ctx context.Context, id uuid.UUID, customerID string) (*storage.Order, error)
}

type Handler struct {
	Service OrderService
	Logger  *slog.Logger
}

func New(svc OrderService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Service: svc, Logger: logger}
}

func (h *Handler) Register(r *gin.Engine, jwtSecret []byte) {
	group := r.Group("/", auth.Middleware(jwtSecret))
	group.POST("/orders", h.CreateOrder)
	group.GET("/orders", h.ListOrders)
	group.GET("/orders/:id", h.GetOrder)
	group.DELETE("/orders/:id", h.CancelOrder)
}

type createOrderRequest struct {
	AssetName string `json:"asset_name"`
	OrderSide string `json:"order_side"`
	Size      string `json:"size"`
	Price     string `json:"price"`
}

type orderItem struct {
	OrderID    string `json:"order_id"`
	CustomerID string `json:"customer_id"`
	AssetName  string `json:"asset_name"`
	OrderSide  string `json:"order_side"`
	Size       string `json:"size"`
	Price      string `json:"price"`
	Status     string `json:"status"`
	CreateDate string `json:"create_date"`
	UpdatedAt  string `json:"updated_at"`
}

type listOrdersResponse struct {
	Orders []orderItem `json:"orders"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *Handler) CreateOrder(c *gin.Context) {
	customerID, ok := customerFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing customer")
		return
	}

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid payload")
		return
	}

	size, err := decimal.NewFromString(strings.TrimSpace(req.Size))
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid size")
		return
	}
	price, err := decimal.NewFromString(strings.TrimSpace(req.Price))
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid price")
		return
	}

	order, err := h.Service.Create(c.Request.Context(), service.CreateOrderInput{
		CustomerID: customerID,
		AssetName:  req.AssetName,
		Side:       req.OrderSide,
		Size:       size,
		Price:      price,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
			return
		}
		h.Logger.Error("create order failed", "error", err)
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
		return
	}

	c.JSON(http.StatusCreated, toOrderItem(*order))
}

func (h *Handler) ListOrders(c *gin.Context) {
	customerID, ok := customerFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing customer")
		return
	}

	filter := storage.OrderFilter{CustomerID: customerID}
	if from := c.Query("from"); from != "" {
		ts, err := time.Parse(time.RFC3339, from)
		if err != nil {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid from date")
			return
		}
		filter.From = ts
	}
	if to := c.Query("to"); to != "" {
		ts, err := time.Parse(time.RFC3339, to)
		if err != nil {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid to date")
			return
		}
		filter.To = ts
	}

	orders, err := h.Service.List(c.Request.Context(), filter)
	if err != nil {
		h.Logger.Error("list orders failed", "error", err)
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
		return
	}

	items := make([]orderItem, 0, len(orders))
	for _, o := range orders {
		items = append(items, toOrderItem(o))
	}
	c.JSON(http.StatusOK, listOrdersResponse{Orders: items})
}

func (h *Handler) GetOrder(c *gin.Context) {
	customerID, ok := customerFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing customer")
		return
	}

	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid order id")
		return
	}

	order, err := h.Service.Get(c.Request.Context(), id, customerID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found")
			return
		}
		h.Logger.Error("get order failed", "error", err)
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
		return
	}

	c.JSON(http.StatusOK, toOrderItem(*order))
}

func (h *Handler) CancelOrder(c *gin.Context) {
	customerID, ok := customerFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing customer")
		return
	}

	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid order id")
		return
	}

	order, err := h.Service.Cancel(c.Request.Context(), id, customerID)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			writeError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found")
		case errors.Is(err, storage.ErrInvalidStatus):
			writeError(c, http.StatusConflict, "ORDER_NOT_CANCELABLE", "only pending orders can be cancelled")
		default:
			h.Logger.Error("cancel order failed", "error", err)
			writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
		}
		return
	}

	c.JSON(http.StatusOK, toOrderItem(*order))
}

func toOrderItem(o storage.Order) orderItem {
	return orderItem{
		OrderID:    o.ID.String(),
		CustomerID: o.CustomerID,
		AssetName:  o.AssetName,
		OrderSide:  o.OrderSide,
		Size:       o.Size.String(),
		Price:      o.Price.String(),
		Status:     o.Status,
		CreateDate: o.CreateDate.UTC().Format(time.RFC3339),
		UpdatedAt:  o.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func customerFromContext(c *gin.Context) (string, bool) {
	customerID := c.GetString(auth.ContextCustomerIDKey)
	return customerID, customerID != ""
}

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{Code: code, Message: message})
}
