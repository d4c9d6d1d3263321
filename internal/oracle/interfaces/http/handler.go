package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/optionamm/internal/oracle/domain"
)

// PriceSetter 可写预言机，本地联调与管理接口使用
type PriceSetter interface {
	SetPrice(ctx context.Context, price decimal.Decimal) error
}

// Handler 预言机 HTTP 处理器
type Handler struct {
	oracle domain.PriceOracle
	setter PriceSetter
	logger *slog.Logger
}

// NewHandler 创建预言机 HTTP 处理器
func NewHandler(oracle domain.PriceOracle, setter PriceSetter, logger *slog.Logger) *Handler {
	return &Handler{oracle: oracle, setter: setter, logger: logger}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	oracle := r.Group("/oracle")
	{
		oracle.GET("/price", h.GetPrice)
		oracle.PUT("/price", h.SetPrice)
	}
}

// GetPrice 查询最新标的价格
func (h *Handler) GetPrice(c *gin.Context) {
	price, err := h.oracle.LatestPrice(c.Request.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNoPrice) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "oracle read failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"price": price}})
}

type setPriceRequest struct {
	Price string `json:"price" binding:"required"`
}

// SetPrice 更新标的价格
func (h *Handler) SetPrice(c *gin.Context) {
	var req setPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || !price.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
		return
	}
	if err := h.setter.SetPrice(c.Request.Context(), price); err != nil {
		h.logger.ErrorContext(c.Request.Context(), "oracle write failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"price": price}})
}
