package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	liqdomain "github.com/wyfcoding/optionamm/internal/liquidity/domain"
	obdomain "github.com/wyfcoding/optionamm/internal/optionbook/domain"
	oracledomain "github.com/wyfcoding/optionamm/internal/oracle/domain"
	"github.com/wyfcoding/optionamm/internal/settlement/application"
	"github.com/wyfcoding/optionamm/internal/settlement/domain"
)

// Handler 结算 HTTP 处理器
type Handler struct {
	engine *application.Engine
	logger *slog.Logger
}

// NewHandler 创建结算 HTTP 处理器
func NewHandler(engine *application.Engine, logger *slog.Logger) *Handler {
	return &Handler{engine: engine, logger: logger}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	settlements := r.Group("/settlements")
	{
		settlements.POST("", h.Settle)
		settlements.GET("/records/:settlement_id", h.GetSettlement)
		settlements.GET("/options/:option_id", h.OptionSettlements)
		settlements.GET("/holders/:holder", h.HolderSettlements)
	}
}

type settleRequest struct {
	OptionID string `json:"option_id" binding:"required"`
	Holder   string `json:"holder" binding:"required"`
}

// Settle 结算某持有人的期权持仓
func (h *Handler) Settle(c *gin.Context) {
	var req settleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	record, err := h.engine.SettleOption(c.Request.Context(), req.OptionID, req.Holder)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": record})
}

// GetSettlement 查询结算记录
func (h *Handler) GetSettlement(c *gin.Context) {
	record, err := h.engine.GetSettlement(c.Request.Context(), c.Param("settlement_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": record})
}

// OptionSettlements 列出某期权的结算记录
func (h *Handler) OptionSettlements(c *gin.Context) {
	records, err := h.engine.OptionSettlements(c.Request.Context(), c.Param("option_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": records})
}

// HolderSettlements 列出某持有人的结算记录
func (h *Handler) HolderSettlements(c *gin.Context) {
	records, err := h.engine.HolderSettlements(c.Request.Context(), c.Param("holder"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": records})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrSettlementNotFound),
		errors.Is(err, obdomain.ErrOptionNotFound),
		errors.Is(err, oracledomain.ErrNoPrice):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotYetExpired),
		errors.Is(err, domain.ErrNoHoldings),
		errors.Is(err, liqdomain.ErrInsufficientPoolLiquidity):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrTransferFailed):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.ErrorContext(c.Request.Context(), "settlement request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
