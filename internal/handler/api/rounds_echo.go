package api

import (
	"errors"
	"net/http"
	"time"

	models "Quorum/internal/domain/models"
	domrepo "Quorum/internal/domain/repository"
	"Quorum/internal/registry"
	"Quorum/internal/usecase"
	pkgcache "Quorum/pkg/cache"
	xhttp "Quorum/pkg/http"
	xlogger "Quorum/pkg/logger"

	"github.com/labstack/echo/v4"
)

// roundResponse is what the presentation layer consumes: the outcome field
// keeps "no consensus this round" distinct from a considered HOLD.
type roundResponse struct {
	Outcome models.RoundOutcome     `json:"outcome"`
	Result  *models.ConsensusResult `json:"result,omitempty"`
}

// RoundsEchoHandler exposes the engine over HTTP.
type RoundsEchoHandler struct {
	logger  *xlogger.Logger
	engine  *usecase.Engine
	reg     *registry.Registry
	history domrepo.History
	archive domrepo.Archive
	cache   pkgcache.Service
}

func NewRoundsEchoHandler(logger *xlogger.Logger, engine *usecase.Engine, reg *registry.Registry, history domrepo.History, archive domrepo.Archive, cache pkgcache.Service) *RoundsEchoHandler {
	return &RoundsEchoHandler{logger: logger, engine: engine, reg: reg, history: history, archive: archive, cache: cache}
}

func (h *RoundsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/analyze", h.Analyze)
	g.GET("/rounds/latest", h.Latest)
	g.GET("/rounds", h.History)
	g.GET("/stats", h.Stats)
	g.GET("/providers", h.Providers)
	g.PATCH("/providers/:id/status", h.SetProviderStatus)
}

// Analyze runs one round on demand ("Analyze Now").
func (h *RoundsEchoHandler) Analyze(c echo.Context) error {
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if req.Price <= 0 {
		return xhttp.BadRequestResponse(c, "price is required for manual rounds")
	}
	ctx := c.Request().Context()
	deadline := time.Duration(req.DeadlineMS) * time.Millisecond

	// one in-flight manual round per symbol
	lockKey := "round:lock:" + req.Symbol
	if h.cache != nil {
		ok, err := h.cache.TryLock(ctx, lockKey, deadline+time.Second)
		if err == nil && !ok {
			return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_ROUND_IN_FLIGHT", "symbol", "a round for this symbol is already running", http.StatusConflict))
		}
		defer func() { _ = h.cache.Unlock(ctx, lockKey) }()
	}

	mc := models.MarketContext{
		Symbol:    req.Symbol,
		Price:     req.Price,
		Timestamp: time.Now(),
	}
	res, err := h.engine.RunRound(ctx, mc, deadline)
	switch {
	case err == nil:
		if h.cache != nil {
			_ = h.cache.Set(ctx, "round:latest:"+req.Symbol, roundResponse{Outcome: models.OutcomeConsensus, Result: res}, 5*time.Minute)
		}
		return xhttp.SuccessResponse(c, roundResponse{Outcome: models.OutcomeConsensus, Result: res})
	case errors.Is(err, usecase.ErrNoConsensus):
		return xhttp.SuccessResponse(c, roundResponse{Outcome: models.OutcomeNoConsensus})
	case errors.Is(err, usecase.ErrNoProvidersAvailable):
		return xhttp.SuccessResponse(c, roundResponse{Outcome: models.OutcomeNoProviders})
	default:
		h.logger.Error("analyze round error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
}

// Latest returns the most recent round for a symbol.
func (h *RoundsEchoHandler) Latest(c echo.Context) error {
	req := &models.LatestRoundRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()

	if h.cache != nil {
		var cached roundResponse
		if err := h.cache.Get(ctx, "round:latest:"+req.Symbol, &cached); err == nil {
			return xhttp.SuccessResponse(c, cached)
		}
	}
	rec, ok := h.history.Latest(req.Symbol)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no rounds recorded for %s", req.Symbol))
	}
	return xhttp.SuccessResponse(c, roundResponse{Outcome: rec.Outcome, Result: rec.Result})
}

// History lists recorded rounds, newest first. With from/to query params it
// reads the durable archive; otherwise the in-process log.
func (h *RoundsEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	fromStr, toStr := c.QueryParam("from"), c.QueryParam("to")
	if h.archive != nil && req.Symbol != "" && (fromStr != "" || toStr != "") {
		now := time.Now()
		from := xhttp.ParseTimeDefault(fromStr, now.Add(-24*time.Hour))
		to := xhttp.ParseTimeDefault(toStr, now)
		recs, err := h.archive.Query(c.Request().Context(), req.Symbol, from, to, req.Limit)
		if err != nil {
			h.logger.Error("archive query error", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, err)
		}
		return xhttp.ListResponse(c, recs, int64(len(recs)))
	}

	recs := h.history.Recent(req.Limit)
	if req.Symbol != "" {
		filtered := recs[:0]
		for _, r := range recs {
			if r.Symbol == req.Symbol {
				filtered = append(filtered, r)
			}
		}
		recs = filtered
	}
	return xhttp.ListResponse(c, recs, int64(len(recs)))
}

// Stats returns the rolling metrics snapshot.
func (h *RoundsEchoHandler) Stats(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.history.Metrics())
}

// Providers lists every configured provider with live counters.
func (h *RoundsEchoHandler) Providers(c echo.Context) error {
	return xhttp.ListResponse(c, h.reg.List(), int64(len(h.reg.List())))
}

// SetProviderStatus enables/disables a provider.
func (h *RoundsEchoHandler) SetProviderStatus(c echo.Context) error {
	req := &models.ProviderStatusRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	id := c.Param("id")
	if err := h.reg.SetStatus(id, models.ProviderStatus(req.Status)); err != nil {
		if errors.Is(err, registry.ErrProviderNotFound) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("provider %s not found", id))
		}
		h.logger.Error("set provider status error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	p, err := h.reg.Get(id)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, p)
}
