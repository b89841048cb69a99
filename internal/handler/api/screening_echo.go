package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"RiskScreen/internal/domain/models"
	"RiskScreen/internal/services/screening"
	"RiskScreen/internal/usecase"
	xhttp "RiskScreen/pkg/http"
	applogger "RiskScreen/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ScreeningHandler exposes the screening rules over HTTP.
type ScreeningHandler struct {
	logger    *applogger.Logger
	screener  *usecase.Screener
	refresher *usecase.Refresher
	store     *usecase.SnapshotStore
}

func NewScreeningHandler(logger *applogger.Logger, screener *usecase.Screener, refresher *usecase.Refresher, store *usecase.SnapshotStore) *ScreeningHandler {
	return &ScreeningHandler{logger: logger, screener: screener, refresher: refresher, store: store}
}

func (h *ScreeningHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api/v1")
	w := g.Group("/warnings")
	w.GET("/virtual-growth", h.VirtualGrowth)
	w.GET("/negative-streak", h.NegativeStreak)
	w.GET("/industry", h.Industry)
	w.GET("/volume", h.Volume)
	w.GET("/volume/dates", h.VolumeDates)
	g.GET("/periods", h.Periods)
	g.GET("/groups", h.Groups)
	g.GET("/catalogue", h.Catalogue)
	g.POST("/admin/refresh", h.Refresh)
}

func (h *ScreeningHandler) VirtualGrowth(c echo.Context) error {
	req := &models.VirtualGrowthRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	mode, _ := screening.ParseMode(req.Mode)
	res, err := h.screener.VirtualGrowth(c.Request().Context(), usecase.VirtualGrowthQuery{
		Mode:     mode,
		Year:     req.Year,
		Quarters: req.Quarters,
		Filters:  usecase.Filters{Tickers: req.Tickers, Exchanges: req.Exchanges, Sectors: req.Sectors},
	})
	if err != nil {
		return h.fail(c, usecase.RuleVirtualGrowth, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ScreeningHandler) NegativeStreak(c echo.Context) error {
	req := &models.StreakRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	mode, _ := screening.ParseMode(req.Mode)
	res, err := h.screener.NegativeStreak(c.Request().Context(), usecase.StreakQuery{
		Mode:    mode,
		Metrics: req.Metrics,
		Filters: usecase.Filters{Tickers: req.Tickers, Exchanges: req.Exchanges, Sectors: req.Sectors},
	})
	if err != nil {
		return h.fail(c, usecase.RuleNegativeStreak, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ScreeningHandler) Industry(c echo.Context) error {
	req := &models.IndustryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	mode, _ := screening.ParseMode(req.Mode)
	res, err := h.screener.IndustryComparison(c.Request().Context(), usecase.RankQuery{
		Mode:     mode,
		Year:     req.Year,
		Quarters: req.Quarters,
		Groups:   req.Groups,
		Tickers:  req.Tickers,
	})
	if err != nil {
		return h.fail(c, usecase.RuleIndustry, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ScreeningHandler) Volume(c echo.Context) error {
	req := &models.VolumeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.screener.VolumeSignals(c.Request().Context(), usecase.VolumeQuery{Date: req.Date, Tickers: req.Tickers})
	if err != nil {
		return h.fail(c, usecase.RuleVolume, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ScreeningHandler) VolumeDates(c echo.Context) error {
	dates, err := h.screener.VolumeDates(c.Request().Context())
	if err != nil {
		return h.fail(c, "volume_dates", err)
	}
	return xhttp.ListResponse(c, dates, int64(len(dates)))
}

func (h *ScreeningHandler) Periods(c echo.Context) error {
	req := &models.PeriodsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	mode, _ := screening.ParseMode(req.Mode)
	res, err := h.screener.AvailablePeriods(c.Request().Context(), mode)
	if err != nil {
		return h.fail(c, "periods", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ScreeningHandler) Groups(c echo.Context) error {
	groups, err := h.screener.Groups(c.Request().Context())
	if err != nil {
		return h.fail(c, "groups", err)
	}
	return xhttp.ListResponse(c, groups, int64(len(groups)))
}

func (h *ScreeningHandler) Catalogue(c echo.Context) error {
	req := &models.CatalogueRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.screener.Catalogue(c.Request().Context(), usecase.CatalogueQuery{
		Tickers: req.Tickers,
		Model:   req.Model,
		Grades:  req.Grades,
		TopN:    req.TopN,
	})
	if err != nil {
		return h.fail(c, usecase.RuleCatalogue, err)
	}
	return xhttp.SuccessResponse(c, res)
}

type snapshotInfo struct {
	Version   uint64    `json:"version"`
	LoadedAt  time.Time `json:"loaded_at"`
	PanelRows int       `json:"panel_rows"`
}

func infoOf(s *usecase.Snapshot) snapshotInfo {
	return snapshotInfo{Version: s.Version, LoadedAt: s.LoadedAt, PanelRows: len(s.Panel.Rows)}
}

func (h *ScreeningHandler) Refresh(c echo.Context) error {
	req := &models.RefreshRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	snap, err := h.refresher.Refresh(c.Request().Context(), "http:"+req.Reason)
	if err != nil {
		return h.fail(c, "refresh", err)
	}
	return xhttp.SuccessResponse(c, infoOf(snap))
}

func (h *ScreeningHandler) Health(c echo.Context) error {
	snap := h.store.Current()
	if snap == nil {
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("snapshot not loaded"))
	}
	return xhttp.SuccessResponse(c, infoOf(snap))
}

// fail maps domain errors to API errors and logs server-side failures.
func (h *ScreeningHandler) fail(c echo.Context, op string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error("screening request failed",
			applogger.String("op", op),
			applogger.String("uri", c.Request().RequestURI),
			applogger.Error(err),
		)
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func toAppError(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, usecase.ErrInvalidQuery):
		return xhttp.NewAppError("ERR_INVALID_QUERY", "", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.Is(err, screening.ErrSchema):
		return xhttp.UnprocessableError("ERR_SCHEMA", err.Error()).WithError(err)
	case errors.Is(err, screening.ErrUnorderablePeriod):
		return xhttp.UnprocessableError("ERR_PERIOD_ORDER", err.Error()).WithError(err)
	case errors.Is(err, usecase.ErrSnapshotUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return xhttp.UnavailableError("data is temporarily unavailable").WithError(err)
	default:
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}
