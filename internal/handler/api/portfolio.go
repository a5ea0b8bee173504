package api

import (
	"errors"

	models "DexPilot/internal/domain/models"
	"DexPilot/internal/usecase"
	xhttp "DexPilot/pkg/http"
	xlogger "DexPilot/pkg/logger"

	"github.com/labstack/echo/v4"
)

// PortfolioHandler exposes master portfolio funding operations.
type PortfolioHandler struct {
	logger *xlogger.Logger
	ledger *usecase.Ledger
}

func NewPortfolioHandler(logger *xlogger.Logger, ledger *usecase.Ledger) *PortfolioHandler {
	return &PortfolioHandler{logger: logger, ledger: ledger}
}

func (h *PortfolioHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/portfolio")
	g.GET("", h.Snapshot)
	g.POST("/deposit", h.Deposit)
	g.POST("/withdraw", h.Withdraw)
	g.POST("/transfer", h.Transfer)
}

func (h *PortfolioHandler) Snapshot(c echo.Context) error {
	snap, err := h.ledger.Snapshot(c.Request().Context())
	if err != nil {
		h.logger.Error("portfolio.snapshot error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, snap)
}

func (h *PortfolioHandler) Deposit(c echo.Context) error {
	req := &models.DepositRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	available, err := h.ledger.Deposit(c.Request().Context(), req.Amount)
	if err != nil {
		return h.fundingError(c, "portfolio.deposit", err)
	}
	return xhttp.SuccessResponse(c, map[string]float64{"available": available})
}

func (h *PortfolioHandler) Withdraw(c echo.Context) error {
	req := &models.WithdrawRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	available, err := h.ledger.Withdraw(c.Request().Context(), req.Amount)
	if err != nil {
		return h.fundingError(c, "portfolio.withdraw", err)
	}
	return xhttp.SuccessResponse(c, map[string]float64{"available": available})
}

func (h *PortfolioHandler) Transfer(c echo.Context) error {
	req := &models.TransferRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()
	if err := h.ledger.Transfer(ctx, req.FromBotID, req.ToBotID, req.Amount); err != nil {
		if errors.Is(err, usecase.ErrUnknownBot) {
			return xhttp.NotFoundResponse(c, err.Error())
		}
		return h.fundingError(c, "portfolio.transfer", err)
	}
	snap, err := h.ledger.Snapshot(ctx)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, snap)
}

func (h *PortfolioHandler) fundingError(c echo.Context, op string, err error) error {
	if errors.Is(err, usecase.ErrInsufficientFunds) || errors.Is(err, usecase.ErrInvalidAmount) || errors.Is(err, usecase.ErrLedgerHalted) {
		return xhttp.BadRequestResponse(c, err.Error())
	}
	h.logger.Error(op+" error", xlogger.Error(err))
	return xhttp.AppErrorResponse(c, err)
}
