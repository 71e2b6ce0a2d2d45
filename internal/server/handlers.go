package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shopspring/decimal"

	"github.com/justinhartfield/weed-stock-exchange-game/internal/analytics"
	"github.com/justinhartfield/weed-stock-exchange-game/internal/domain"
	"github.com/justinhartfield/weed-stock-exchange-game/internal/valuation"
)

type strainResponse struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Slug          string   `json:"slug"`
	Price         float64  `json:"price"`
	Change24h     *float64 `json:"change_24h"`
	FavoriteCount int      `json:"favorite_count"`
	PharmacyCount int      `json:"pharmacy_count"`
}

type holdingResponse struct {
	StrainID      int64    `json:"strain_id"`
	StrainName    string   `json:"strain_name"`
	Shares        float64  `json:"shares"`
	AvgBuyPrice   float64  `json:"avg_buy_price"`
	CurrentPrice  float64  `json:"current_price"`
	PriceKnown    bool     `json:"price_known"`
	CurrentValue  float64  `json:"current_value"`
	ProfitLoss    float64  `json:"profit_loss"`
	ProfitLossPct *float64 `json:"profit_loss_pct"`
}

type tradeResponse struct {
	TradeID   int64   `json:"trade_id"`
	ClientRef string  `json:"client_ref,omitempty"`
	StrainID  int64   `json:"strain_id"`
	Side      string  `json:"side"`
	Shares    float64 `json:"shares"`
	Price     float64 `json:"price"`
	TotalCost float64 `json:"total_cost"`
	Timestamp string  `json:"timestamp,omitempty"`
}

type tradeIntentRequest struct {
	StrainID int64   `json:"strain_id"`
	Shares   float64 `json:"shares"`
	Side     string  `json:"side"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := systemStats()

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "ok",
		"uptime_seconds":   int(time.Since(s.startTime).Seconds()),
		"connection_state": string(s.controller.State()),
		"baseline_ready":   s.controller.BaselineReady(),
		"strain_count":     s.registry.Len(),
		"cpu_percent":      cpuPercent,
		"memory_percent":   memPercent,
	})
}

func (s *Server) handleListStrains(w http.ResponseWriter, r *http.Request) {
	strains := s.registry.List()

	resp := make([]strainResponse, 0, len(strains))
	for _, strain := range strains {
		resp = append(resp, toStrainResponse(strain))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStrainDetail(w http.ResponseWriter, r *http.Request) {
	strainID, err := strconv.ParseInt(chi.URLParam(r, "strainID"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid strain id")
		return
	}

	detail, err := s.api.GetStrainDetail(r.Context(), strainID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	indicators := analytics.ComputeIndicators(detail.PriceHistory)
	volatility := analytics.HistoryVolatility(detail.PriceHistory)

	history := make([]map[string]interface{}, 0, len(detail.PriceHistory))
	for _, p := range detail.PriceHistory {
		history = append(history, map[string]interface{}{
			"price":     p.Price,
			"volume":    p.Volume,
			"timestamp": p.Timestamp.Format(time.RFC3339),
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"strain":           toStrainResponse(detail.Strain),
		"base_price":       detail.BasePrice.InexactFloat64(),
		"popularity_score": detail.PopularityScore,
		"volatility_score": detail.VolatilityScore,
		"price_history":    history,
		"indicators": map[string]interface{}{
			"sma_7":  indicators.SMA7,
			"sma_30": indicators.SMA30,
			"ema_7":  indicators.EMA7,
			"ema_30": indicators.EMA30,
		},
		"observed_volatility": volatility,
	})
}

func (s *Server) handleMovers(w http.ResponseWriter, r *http.Request) {
	limit := 5
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	gainers, losers := valuation.RankMovers(s.registry.List(), limit)

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"gainers": toStrainResponses(gainers),
		"losers":  toStrainResponses(losers),
	})
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	balance := s.ledger.Balance()
	holdings := s.ledger.Holdings()

	total := valuation.ValuePortfolio(balance, holdings, s.registry)
	valued := valuation.ValueHoldings(holdings, s.registry)

	resp := make([]holdingResponse, 0, len(valued))
	for _, v := range valued {
		resp = append(resp, toHoldingResponse(v))
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"weedcoins_balance": balance.InexactFloat64(),
		"holdings_value":    total.HoldingsValue.InexactFloat64(),
		"total_value":       total.TotalValue.InexactFloat64(),
		"holdings":          resp,
	})
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	holdings := s.ledger.Holdings()
	best, worst := valuation.BestAndWorstPerformer(holdings, s.registry)

	valued := valuation.ValueHoldings(holdings, s.registry)
	pcts := make([]float64, 0, len(valued))
	for _, v := range valued {
		if v.ProfitLossPct != nil {
			pcts = append(pcts, *v.ProfitLossPct)
		}
	}
	dispersion := analytics.DisperseReturns(pcts)

	resp := map[string]interface{}{
		"best":  nil,
		"worst": nil,
		"dispersion": map[string]interface{}{
			"mean":    dispersion.Mean,
			"std_dev": dispersion.StdDev,
			"count":   dispersion.Count,
		},
	}
	if best != nil {
		resp["best"] = toHoldingResponse(*best)
	}
	if worst != nil {
		resp["worst"] = toHoldingResponse(*worst)
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateTrade(w http.ResponseWriter, r *http.Request) {
	var req tradeIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	side := domain.TradeSide(req.Side)
	if !side.Valid() {
		s.writeError(w, http.StatusBadRequest, "side must be buy or sell")
		return
	}

	trade, err := s.gateway.Execute(r.Context(), req.StrainID, decimal.NewFromFloat(req.Shares), side)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, toTradeResponse(*trade))
}

func (s *Server) handleTradeHistory(w http.ResponseWriter, r *http.Request) {
	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 50)

	trades, err := s.api.TradeHistory(r.Context(), skip, limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	resp := make([]tradeResponse, 0, len(trades))
	for _, t := range trades {
		resp = append(resp, toTradeResponse(t))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.Refresh(r.Context()); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, map[string]string{"detail": detail})
}

// writeDomainError maps domain errors onto HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var rejection *domain.MarketRejection

	switch {
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInsufficientShares),
		errors.Is(err, domain.ErrInsufficientBalance):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &rejection):
		s.writeError(w, http.StatusBadRequest, rejection.Detail)
	case errors.Is(err, domain.ErrUnknownStrain):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrSessionInvalid):
		s.writeError(w, http.StatusUnauthorized, err.Error())
	default:
		s.log.Error().Err(err).Msg("Request failed")
		s.writeError(w, http.StatusBadGateway, "exchange request failed")
	}
}

func toStrainResponse(s domain.Strain) strainResponse {
	return strainResponse{
		ID:            s.ID,
		Name:          s.Name,
		Slug:          s.Slug,
		Price:         s.Price.InexactFloat64(),
		Change24h:     s.Change24h,
		FavoriteCount: s.FavoriteCount,
		PharmacyCount: s.PharmacyCount,
	}
}

func toStrainResponses(strains []domain.Strain) []strainResponse {
	resp := make([]strainResponse, 0, len(strains))
	for _, s := range strains {
		resp = append(resp, toStrainResponse(s))
	}
	return resp
}

func toHoldingResponse(v valuation.ValuedHolding) holdingResponse {
	return holdingResponse{
		StrainID:      v.StrainID,
		StrainName:    v.StrainName,
		Shares:        v.Shares.InexactFloat64(),
		AvgBuyPrice:   v.AvgBuyPrice.InexactFloat64(),
		CurrentPrice:  v.CurrentPrice.InexactFloat64(),
		PriceKnown:    v.PriceKnown,
		CurrentValue:  v.CurrentValue.InexactFloat64(),
		ProfitLoss:    v.ProfitLoss.InexactFloat64(),
		ProfitLossPct: v.ProfitLossPct,
	}
}

func toTradeResponse(t domain.Trade) tradeResponse {
	resp := tradeResponse{
		TradeID:   t.ID,
		ClientRef: t.ClientRef,
		StrainID:  t.StrainID,
		Side:      string(t.Side),
		Shares:    t.Shares.InexactFloat64(),
		Price:     t.Price.InexactFloat64(),
		TotalCost: t.TotalCost.InexactFloat64(),
	}
	if !t.Timestamp.IsZero() {
		resp.Timestamp = t.Timestamp.Format(time.RFC3339)
	}
	return resp
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}

// systemStats returns CPU and memory utilization percentages.
func systemStats() (float64, float64) {
	cpuPercent := 0.0
	if percents, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(percents) > 0 {
		cpuPercent = percents[0]
	}

	memPercent := 0.0
	if memStat, err := mem.VirtualMemory(); err == nil {
		memPercent = memStat.UsedPercent
	}

	return cpuPercent, memPercent
}
