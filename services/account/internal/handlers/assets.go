package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"brokerage/libs/auth"
	"brokerage/services/account/internal/service"
	"brokerage/services/account/internal/storage"
)

type AssetService interface {
	Create(ctx context.Context, input service.CreateAssetInput) (*storage.Asset, error)
	List(ctx context.Context, filter storage.AssetFilter) ([]storage.Asset, error)
}

type Handler struct {
	Service AssetService
	Logger  *slog.Logger
}

func New(svc AssetService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Service: svc, Logger: logger}
}

func (h *Handler) Register(r *gin.Engine, jwtSecret []byte) {
	group := r.Group("/", auth.Middleware(jwtSecret))
	group.POST("/assets", auth.RequireRole(auth.RoleAdmin), h.CreateAsset)
	group.GET("/assets", h.ListAssets)
}

type createAssetRequest struct {
	CustomerID string `json:"customer_id"`
	AssetName  string `json:"asset_name"`
	Size       string `json:"size"`
}

type assetItem struct {
	CustomerID string `json:"customer_id"`
	AssetName  string `json:"asset_name"`
	TotalSize  string `json:"total_size"`
	UsableSize string `json:"usable_size"`
	UpdatedAt  string `json:"updated_at"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *Handler) CreateAsset(c *gin.Context) {
	var req createAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid payload")
		return
	}

	size := decimal.Zero
	if strings.TrimSpace(req.Size) != "" {
		var err error
		size, err = decimal.NewFromString(strings.TrimSpace(req.Size))
		if err != nil {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid size")
			return
		}
	}

	asset, err := h.Service.Create(c.Request.Context(), service.CreateAssetInput{
		CustomerID: req.CustomerID,
		AssetName:  req.AssetName,
		Size:       size,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		case errors.Is(err, storage.ErrAlreadyExists):
			writeError(c, http.StatusConflict, "ASSET_ALREADY_EXISTS", "asset already exists for customer")
		default:
			h.Logger.Error("create asset failed", "error", err)
			writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
		}
		return
	}

	c.JSON(http.StatusCreated, toAssetItem(*asset))
}

func (h *Handler) ListAssets(c *gin.Context) {
	customerID := c.GetString(auth.ContextCustomerIDKey)
	if customerID == "" {
		writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing customer")
		return
	}

	filter := storage.AssetFilter{
		CustomerID: customerID,
		AssetName:  c.Query("asset_name"),
	}
	if isAdmin(c) {
		if requested := strings.TrimSpace(c.Query("customer_id")); requested != "" {
			filter.CustomerID = requested
		}
	}

	assets, err := h.Service.List(c.Request.Context(), filter)
	if err != nil {
		h.Logger.Error("list assets failed", "error", err)
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
		return
	}

	items := make([]assetItem, 0, len(assets))
	for _, a := range assets {
		items = append(items, toAssetItem(a))
	}
	c.JSON(http.StatusOK, gin.H{"assets": items})
}

func toAssetItem(a storage.Asset) assetItem {
	return assetItem{
		CustomerID: a.CustomerID,
		AssetName:  a.AssetName,
		TotalSize:  a.TotalSize.String(),
		UsableSize: a.UsableSize.String(),
		UpdatedAt:  a.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func isAdmin(c *gin.Context) bool {
	val, ok := c.Get(auth.ContextRolesKey)
	if !ok {
		return false
	}
	roles, ok := val.([]string)
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == auth.RoleAdmin {
			return true
		}
	}
	return false
}

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{Code: code, Message: message})
}
