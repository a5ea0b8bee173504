package api

import (
	"encoding/json"
	"time"

	models "DexPilot/internal/domain/models"
	domrepo "DexPilot/internal/domain/repository"
	icache "DexPilot/internal/service/cache"
	"DexPilot/internal/usecase"
	xhttp "DexPilot/pkg/http"
	xlogger "DexPilot/pkg/logger"

	"github.com/labstack/echo/v4"
)

const reportCacheTTL = 15 * time.Second

// ReportsHandler serves performance reports and fill history.
type ReportsHandler struct {
	logger  *xlogger.Logger
	tracker *usecase.Tracker
	fills   domrepo.FillLedger
	cache   icache.BytesCache
}

func NewReportsHandler(logger *xlogger.Logger, tracker *usecase.Tracker, fills domrepo.FillLedger) *ReportsHandler {
	return &ReportsHandler{logger: logger, tracker: tracker, fills: fills}
}

// SetCache enables short-lived report caching.
func (h *ReportsHandler) SetCache(c icache.BytesCache) { h.cache = c }

func (h *ReportsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/reports")
	g.GET("", h.Report)
	g.GET("/fills", h.Fills)
}

func (h *ReportsHandler) Report(c echo.Context) error {
	req := &models.ReportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	cacheKey := "report:" + req.BotID
	if h.cache != nil {
		if b, ok, err := h.cache.GetBytes(cacheKey); err != nil {
			h.logger.Warn("reports.report cache_get_error", xlogger.Error(err))
		} else if ok {
			var rep models.PerformanceReport
			if err := json.Unmarshal(b, &rep); err == nil {
				c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
				return xhttp.SuccessResponse(c, rep)
			}
		}
	}

	rep := h.tracker.Report(req.BotID, time.Now())
	if h.cache != nil {
		if b, err := json.Marshal(rep); err == nil {
			if err := h.cache.SetBytes(cacheKey, b, reportCacheTTL); err != nil {
				h.logger.Warn("reports.report cache_set_error", xlogger.Error(err))
			}
		}
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, rep)
}

type fillsQuery struct {
	BotID string `query:"bot_id" validate:"required"`
	Hours int    `query:"hours" default:"24" validate:"gte=1,lte=720"`
	Limit int    `query:"limit" default:"200" validate:"gte=1,lte=5000"`
}

func (h *ReportsHandler) Fills(c echo.Context) error {
	req := &fillsQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	now := time.Now()
	from := now.Add(-time.Duration(req.Hours) * time.Hour)
	rows, err := h.fills.History(c.Request().Context(), req.BotID, from, now, req.Limit)
	if err != nil {
		h.logger.Error("reports.fills error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}
