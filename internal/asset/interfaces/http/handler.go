package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/optionamm/internal/asset/application"
	"github.com/wyfcoding/optionamm/internal/asset/domain"
)

// Handler 结算资产 HTTP 处理器
type Handler struct {
	service *application.Service
	logger  *slog.Logger
}

// NewHandler 创建结算资产 HTTP 处理器
func NewHandler(service *application.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	accounts := r.Group("/accounts")
	{
		accounts.POST("/deposit", h.Deposit)
		accounts.POST("/withdraw", h.Withdraw)
		accounts.GET("/:account_id/balance", h.Balance)
		accounts.GET("/:account_id/transfers", h.Transfers)
	}
}

type fundRequest struct {
	AccountID string `json:"account_id" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
}

// Deposit 入金
func (h *Handler) Deposit(c *gin.Context) {
	var req fundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}
	if err := h.service.Deposit(c.Request.Context(), req.AccountID, amount); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"account_id": req.AccountID, "amount": amount}})
}

// Withdraw 出金
func (h *Handler) Withdraw(c *gin.Context) {
	var req fundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}
	if err := h.service.Withdraw(c.Request.Context(), req.AccountID, amount); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"account_id": req.AccountID, "amount": amount}})
}

// Balance 查询余额
func (h *Handler) Balance(c *gin.Context) {
	accountID := c.Param("account_id")
	balance, err := h.service.Balance(c.Request.Context(), accountID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"account_id": accountID, "balance": balance}})
}

// Transfers 查询流水
func (h *Handler) Transfers(c *gin.Context) {
	accountID := c.Param("account_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	transfers, total, err := h.service.Transfers(c.Request.Context(), accountID, limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"total": total, "transfers": transfers}})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInsufficientBalance), errors.Is(err, domain.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.ErrorContext(c.Request.Context(), "asset request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
