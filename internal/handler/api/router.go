package api

import (
	"github.com/labstack/echo/v4"
)

// Router bundles the API handlers behind a single route registrar.
type Router struct {
	bots      *BotsHandler
	portfolio *PortfolioHandler
	reports   *ReportsHandler
}

func NewRouter(bots *BotsHandler, portfolio *PortfolioHandler, reports *ReportsHandler) *Router {
	return &Router{bots: bots, portfolio: portfolio, reports: reports}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	r.bots.RegisterRoutes(e)
	r.portfolio.RegisterRoutes(e)
	r.reports.RegisterRoutes(e)
}
