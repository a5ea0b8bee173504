package api

import (
	"errors"
	"time"

	models "DexPilot/internal/domain/models"
	"DexPilot/internal/usecase"
	xhttp "DexPilot/pkg/http"
	xlogger "DexPilot/pkg/logger"

	"github.com/labstack/echo/v4"
)

// BotsHandler exposes the bot lifecycle over HTTP.
type BotsHandler struct {
	logger    *xlogger.Logger
	ledger    *usecase.Ledger
	scheduler *usecase.Scheduler
	gate      *usecase.RiskGate
}

func NewBotsHandler(logger *xlogger.Logger, ledger *usecase.Ledger, scheduler *usecase.Scheduler, gate *usecase.RiskGate) *BotsHandler {
	return &BotsHandler{logger: logger, ledger: ledger, scheduler: scheduler, gate: gate}
}

func (h *BotsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/bots")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("/:id/pause", h.Pause)
	g.POST("/:id/resume", h.Resume)
	g.POST("/:id/stop", h.Stop)
	g.POST("/:id/reset", h.Reset)
	g.POST("/:id/allocate", h.Allocate)
	g.POST("/:id/sweep", h.Sweep)
	g.DELETE("/:id", h.Delete)
}

func (h *BotsHandler) Create(c echo.Context) error {
	req := &models.CreateBotRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	alloc, err := h.ledger.CreateBot(ctx, models.BotConfig{
		Pair:           req.Pair,
		Venue:          req.Venue,
		Allocation:     req.Allocation,
		UpdateInterval: time.Duration(req.IntervalSeconds) * time.Second,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrInsufficientFunds) || errors.Is(err, usecase.ErrInvalidAmount) {
			return xhttp.BadRequestResponse(c, err.Error())
		}
		h.logger.Error("bots.create error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if alloc.Status == models.BotActive {
		h.scheduler.StartBot(alloc)
	}
	return xhttp.CreatedResponse(c, alloc)
}

func (h *BotsHandler) List(c echo.Context) error {
	snap, err := h.ledger.Snapshot(c.Request().Context())
	if err != nil {
		h.logger.Error("bots.list error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	bots := make([]models.BotAllocation, 0, len(snap.Allocations))
	for _, a := range snap.Allocations {
		bots = append(bots, a)
	}
	return xhttp.ListResponse(c, bots, int64(len(bots)))
}

func (h *BotsHandler) Get(c echo.Context) error {
	alloc, err := h.ledger.Bot(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, usecase.ErrUnknownBot) {
			return xhttp.NotFoundResponse(c, err.Error())
		}
		h.logger.Error("bots.get error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, alloc)
}

func (h *BotsHandler) Pause(c echo.Context) error {
	botID := c.Param("id")
	if err := h.ledger.SetStatus(c.Request().Context(), botID, models.BotPaused); err != nil {
		return h.transitionError(c, "bots.pause", err)
	}
	// Abort the cycle already running so nothing dispatches after the pause.
	h.scheduler.Interrupt(botID)
	return xhttp.SuccessResponse(c, map[string]string{"bot_id": botID, "status": string(models.BotPaused)})
}

func (h *BotsHandler) Resume(c echo.Context) error {
	botID := c.Param("id")
	ctx := c.Request().Context()
	if err := h.ledger.SetStatus(ctx, botID, models.BotActive); err != nil {
		return h.transitionError(c, "bots.resume", err)
	}
	// a resumed bot starts with a clean denial streak
	h.gate.Reset(botID)
	alloc, err := h.ledger.Bot(ctx, botID)
	if err != nil {
		return h.transitionError(c, "bots.resume", err)
	}
	h.scheduler.StartBot(alloc)
	return xhttp.SuccessResponse(c, alloc)
}

func (h *BotsHandler) Stop(c echo.Context) error {
	botID := c.Param("id")
	if err := h.ledger.SetStatus(c.Request().Context(), botID, models.BotStopped); err != nil {
		return h.transitionError(c, "bots.stop", err)
	}
	h.scheduler.StopBot(botID)
	return xhttp.SuccessResponse(c, map[string]string{"bot_id": botID, "status": string(models.BotStopped)})
}

// Reset clears the circuit breaker without touching the bot's status. The
// operator uses it after investigating a trip on a still-paused bot.
func (h *BotsHandler) Reset(c echo.Context) error {
	botID := c.Param("id")
	if _, err := h.ledger.Bot(c.Request().Context(), botID); err != nil {
		if errors.Is(err, usecase.ErrUnknownBot) {
			return xhttp.NotFoundResponse(c, err.Error())
		}
		h.logger.Error("bots.reset error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	h.gate.Reset(botID)
	return xhttp.SuccessResponse(c, map[string]string{"bot_id": botID, "breaker": "reset"})
}

func (h *BotsHandler) Allocate(c echo.Context) error {
	req := &models.AllocateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()
	if err := h.ledger.Allocate(ctx, req.BotID, req.Amount); err != nil {
		switch {
		case errors.Is(err, usecase.ErrUnknownBot):
			return xhttp.NotFoundResponse(c, err.Error())
		case errors.Is(err, usecase.ErrInsufficientFunds), errors.Is(err, usecase.ErrInvalidAmount):
			return xhttp.BadRequestResponse(c, err.Error())
		}
		h.logger.Error("bots.allocate error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	alloc, err := h.ledger.Bot(ctx, req.BotID)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, alloc)
}

func (h *BotsHandler) Sweep(c echo.Context) error {
	botID := c.Param("id")
	swept, err := h.ledger.SweepProfit(c.Request().Context(), botID)
	if err != nil {
		if errors.Is(err, usecase.ErrUnknownBot) {
			return xhttp.NotFoundResponse(c, err.Error())
		}
		h.logger.Error("bots.sweep error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{"bot_id": botID, "swept": swept})
}

func (h *BotsHandler) Delete(c echo.Context) error {
	botID := c.Param("id")
	ctx := c.Request().Context()
	h.scheduler.StopBot(botID)
	if err := h.ledger.SetStatus(ctx, botID, models.BotStopped); err != nil {
		return h.transitionError(c, "bots.delete", err)
	}
	returned, err := h.ledger.Remove(ctx, botID)
	if err != nil {
		if errors.Is(err, usecase.ErrUnknownBot) {
			return xhttp.NotFoundResponse(c, err.Error())
		}
		h.logger.Error("bots.delete error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{"bot_id": botID, "returned": returned})
}

func (h *BotsHandler) transitionError(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, usecase.ErrUnknownBot):
		return xhttp.NotFoundResponse(c, err.Error())
	case errors.Is(err, usecase.ErrInvalidTransition):
		return xhttp.BadRequestResponse(c, err.Error())
	}
	h.logger.Error(op+" error", xlogger.Error(err))
	return xhttp.AppErrorResponse(c, err)
}
