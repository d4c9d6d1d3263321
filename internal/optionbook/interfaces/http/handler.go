package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/optionamm/internal/optionbook/application"
	"github.com/wyfcoding/optionamm/internal/optionbook/domain"
)

// Handler 期权簿 HTTP 处理器
type Handler struct {
	service *application.Service
	logger  *slog.Logger
}

// NewHandler 创建期权簿 HTTP 处理器
func NewHandler(service *application.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	options := r.Group("/options")
	{
		options.POST("", h.CreateOption)
		options.GET("", h.ListOptions)
		options.GET("/:option_id", h.GetOption)
		options.GET("/:option_id/quote", h.Quote)
		options.POST("/:option_id/purchase", h.Purchase)
		options.GET("/:option_id/holdings", h.OptionHoldings)
	}
	r.GET("/holders/:holder/holdings", h.HolderHoldings)
}

type createOptionRequest struct {
	StrikePrice string    `json:"strike_price" binding:"required"`
	LotSize     uint64    `json:"lot_size" binding:"required"`
	Premium     string    `json:"premium" binding:"required"`
	Expiry      time.Time `json:"expiry" binding:"required"`
	IsCall      *bool     `json:"is_call" binding:"required"`
	Creator     string    `json:"creator" binding:"required"`
}

// CreateOption 挂出新期权
func (h *Handler) CreateOption(c *gin.Context) {
	var req createOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	strike, err := decimal.NewFromString(req.StrikePrice)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid strike_price"})
		return
	}
	premium, err := decimal.NewFromString(req.Premium)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid premium"})
		return
	}

	opt, err := h.service.CreateOption(c.Request.Context(), application.CreateOptionRequest{
		StrikePrice: strike,
		LotSize:     req.LotSize,
		Premium:     premium,
		Expiry:      req.Expiry,
		IsCall:      *req.IsCall,
		Creator:     req.Creator,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": opt})
}

type purchaseRequest struct {
	Buyer string `json:"buyer" binding:"required"`
	Lots  uint64 `json:"lots" binding:"required"`
}

// Purchase 买入期权
func (h *Handler) Purchase(c *gin.Context) {
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.service.PurchaseOption(c.Request.Context(), c.Param("option_id"), req.Buyer, req.Lots)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

// GetOption 查询期权
func (h *Handler) GetOption(c *gin.Context) {
	opt, err := h.service.GetOption(c.Request.Context(), c.Param("option_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": opt})
}

// Quote 查询当前单手权利金
func (h *Handler) Quote(c *gin.Context) {
	premium, err := h.service.Quote(c.Request.Context(), c.Param("option_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"option_id": c.Param("option_id"), "premium": premium}})
}

// ListOptions 分页列出期权
func (h *Handler) ListOptions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	options, total, err := h.service.ListOptions(c.Request.Context(), limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"total": total, "options": options}})
}

// OptionHoldings 查询某期权的持仓分布
func (h *Handler) OptionHoldings(c *gin.Context) {
	holdings, err := h.service.OptionHoldings(c.Request.Context(), c.Param("option_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": holdings})
}

// HolderHoldings 查询某持有人的全部持仓
func (h *Handler) HolderHoldings(c *gin.Context) {
	holdings, err := h.service.Holdings(c.Request.Context(), c.Param("holder"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": holdings})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrOptionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrOptionExpired),
		errors.Is(err, domain.ErrOptionDepleted),
		errors.Is(err, domain.ErrInsufficientSupply):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrTransferFailed),
		errors.Is(err, domain.ErrInvalidOptionParams),
		errors.Is(err, domain.ErrArithmeticOverflow):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.ErrorContext(c.Request.Context(), "optionbook request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
