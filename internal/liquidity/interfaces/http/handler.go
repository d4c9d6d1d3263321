package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/optionamm/internal/liquidity/application"
	"github.com/wyfcoding/optionamm/internal/liquidity/domain"
)

// Handler 流动性池 HTTP 处理器
type Handler struct {
	service *application.Service
	logger  *slog.Logger
}

// NewHandler 创建流动性池 HTTP 处理器
func NewHandler(service *application.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	liquidity := r.Group("/liquidity")
	{
		liquidity.GET("/pool", h.GetPool)
		liquidity.POST("/add", h.Add)
		liquidity.POST("/remove", h.Remove)
		liquidity.GET("/contributions", h.ListContributions)
		liquidity.GET("/contributions/:provider", h.GetContribution)
	}
}

type liquidityRequest struct {
	Provider string `json:"provider" binding:"required"`
	Amount   string `json:"amount" binding:"required"`
}

// Add 注入流动性
func (h *Handler) Add(c *gin.Context) {
	var req liquidityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}
	pool, err := h.service.AddLiquidity(c.Request.Context(), req.Provider, amount)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": pool})
}

// Remove 赎回流动性
func (h *Handler) Remove(c *gin.Context) {
	var req liquidityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}
	pool, err := h.service.RemoveLiquidity(c.Request.Context(), req.Provider, amount)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": pool})
}

// GetPool 查询池状态
func (h *Handler) GetPool(c *gin.Context) {
	pool, err := h.service.GetPool(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": pool})
}

// GetContribution 查询出资余额
func (h *Handler) GetContribution(c *gin.Context) {
	contrib, err := h.service.GetContribution(c.Request.Context(), c.Param("provider"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": contrib})
}

// ListContributions 列出全部出资记录
func (h *Handler) ListContributions(c *gin.Context) {
	contributions, err := h.service.ListContributions(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": contributions})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInsufficientContribution),
		errors.Is(err, domain.ErrInsufficientPoolLiquidity):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrTransferFailed):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.ErrorContext(c.Request.Context(), "liquidity request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
