package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/PatelGH0512/stocklabs/internal/errors"
	"github.com/PatelGH0512/stocklabs/internal/events"
	"github.com/PatelGH0512/stocklabs/internal/models"
)

func symbolsParam(c *gin.Context) []string {
	var symbols []string
	for _, s := range strings.Split(c.Query("symbols"), ",") {
		if symbol := models.NormalizeSymbol(s); symbol != "" {
			symbols = append(symbols, symbol)
		}
	}
	return symbols
}

func (s *Server) getQuotes(c *gin.Context) {
	symbols := symbolsParam(c)
	if len(symbols) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbols is required"})
		return
	}
	c.JSON(http.StatusOK, s.market.GetQuotes(c.Request.Context(), symbols))
}

func (s *Server) getQuoteDetails(c *gin.Context) {
	symbols := symbolsParam(c)
	if len(symbols) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbols is required"})
		return
	}

	details := s.market.GetQuoteDetails(c.Request.Context(), symbols)
	resp := make(map[string]gin.H, len(details))
	for symbol, q := range details {
		resp[symbol] = gin.H{
			"current":       q.Current,
			"previousClose": q.PreviousClose,
			"changePct":     q.ChangePercent(),
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getNews(c *gin.Context) {
	articles, err := s.market.GetNews(c.Request.Context(), symbolsParam(c))
	if err != nil {
		s.logger.Error().Err(err).Msg("news fetch failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch news"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": articles})
}

func (s *Server) searchStocks(c *gin.Context) {
	results, err := s.market.Search(c.Request.Context(), strings.TrimSpace(c.Query("q")))
	if err != nil {
		s.logger.Error().Err(err).Msg("stock search failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) getMarketStatus(c *gin.Context) {
	exchange := c.DefaultQuery("exchange", "US")
	status, err := s.market.GetMarketStatus(c.Request.Context(), exchange)
	if err != nil {
		s.logger.Error().Err(err).Msg("market status fetch failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch market status"})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) getPerformance(c *gin.Context) {
	symbols := symbolsParam(c)
	if len(symbols) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbols is required"})
		return
	}

	period := strings.ToLower(c.DefaultQuery("period", "1m"))
	switch period {
	case "7d", "1m", "3m", "ytd":
	default:
		period = "1m"
	}

	items := s.market.GetPerformance(c.Request.Context(), symbols, period)

	// Candle access can be restricted per symbol; fall back to the caller's
	// buy price against the live quote for entries that came back flat.
	if userID := c.GetHeader("X-User-ID"); userID != "" {
		if holdings, err := s.store.GetHoldings(c.Request.Context(), userID); err == nil && len(holdings) > 0 {
			byBuyPrice := make(map[string]float64, len(holdings))
			for _, h := range holdings {
				byBuyPrice[h.Symbol] = h.BuyPrice
			}
			quotes := s.market.GetQuotes(c.Request.Context(), symbols)
			for i, item := range items {
				if item.ChangePct != 0 {
					continue
				}
				buy := byBuyPrice[item.Symbol]
				cur := quotes[item.Symbol]
				if buy > 0 && cur > 0 {
					items[i].ChangePct = (cur - buy) / buy * 100
				}
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "period": period})
}

type commentaryRequest struct {
	Items []struct {
		Symbol    string  `json:"symbol"`
		ChangePct float64 `json:"changePct"`
	} `json:"items"`
	Period string `json:"period"`
}

func (s *Server) postCommentary(c *gin.Context) {
	var req commentaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	items := make([]models.PerformanceItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, models.PerformanceItem{
			Symbol:    models.NormalizeSymbol(item.Symbol),
			ChangePct: item.ChangePct,
		})
	}

	comment := s.generator.Performance(c.Request.Context(), items, req.Period)
	c.JSON(http.StatusOK, gin.H{"comment": comment})
}

func (s *Server) listAlerts(c *gin.Context) {
	alerts, err := s.store.GetAlertsByUser(c.Request.Context(), currentUser(c))
	if err != nil {
		s.logger.Error().Err(err).Msg("alert list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch alerts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alertViews(alerts)})
}

type createAlertRequest struct {
	Symbol      string   `json:"symbol" binding:"required"`
	Company     string   `json:"company" binding:"required"`
	Condition   string   `json:"condition" binding:"required"`
	TargetPrice *float64 `json:"targetPrice" binding:"required"`
	Frequency   string   `json:"frequency"`
}

// conditionFromSymbolic accepts both operator and word forms.
func conditionFromSymbolic(s string) (models.AlertCondition, bool) {
	switch s {
	case ">", "above":
		return models.ConditionAbove, true
	case "<", "below":
		return models.ConditionBelow, true
	case "=", "equal":
		return models.ConditionEqual, true
	}
	return "", false
}

func (s *Server) createAlert(c *gin.Context) {
	var req createAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields"})
		return
	}

	condition, ok := conditionFromSymbolic(req.Condition)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown condition"})
		return
	}

	frequency := models.AlertFrequency(req.Frequency)
	if frequency == "" {
		frequency = models.FrequencyOnce
	}

	now := time.Now().UTC()
	alert := &models.Alert{
		ID:        uuid.NewString(),
		UserID:    currentUser(c),
		Symbol:    models.NormalizeSymbol(req.Symbol),
		Company:   strings.TrimSpace(req.Company),
		Condition: condition,
		Value:     *req.TargetPrice,
		Frequency: frequency,
		Active:    true,
		Triggered: false,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := alert.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.store.SaveAlert(c.Request.Context(), alert); err != nil {
		s.logger.Error().Err(err).Msg("alert create failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create alert"})
		return
	}

	// Queue the new alert for immediate evaluation.
	s.bus.Publish(events.EventAlertCreated, events.AlertCreated{
		AlertID: alert.ID,
		UserID:  alert.UserID,
		Symbol:  alert.Symbol,
	})

	c.JSON(http.StatusCreated, gin.H{"alert": alertView(*alert)})
}

func (s *Server) deleteAlert(c *gin.Context) {
	err := s.store.DeleteAlert(c.Request.Context(), c.Param("id"), currentUser(c))
	if apperrors.Is(err, apperrors.ErrAlertNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("alert delete failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete alert"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func alertView(a models.Alert) gin.H {
	view := gin.H{
		"id":        a.ID,
		"symbol":    a.Symbol,
		"company":   a.Company,
		"condition": a.Condition,
		"value":     a.Value,
		"frequency": a.Frequency,
		"active":    a.Active,
		"triggered": a.Triggered,
		"createdAt": a.CreatedAt,
	}
	if a.LastTriggered != nil {
		view["lastTriggered"] = a.LastTriggered
	}
	return view
}

func alertViews(alerts []models.Alert) []gin.H {
	views := make([]gin.H, 0, len(alerts))
	for _, a := range alerts {
		views = append(views, alertView(a))
	}
	return views
}

type holdingRequest struct {
	Symbol       string  `json:"symbol" binding:"required"`
	Company      string  `json:"company" binding:"required"`
	Shares       float64 `json:"shares"`
	BuyPrice     float64 `json:"buyPrice"`
	CurrentPrice float64 `json:"currentPrice"`
}

func (s *Server) listHoldings(c *gin.Context) {
	holdings, err := s.store.GetHoldings(c.Request.Context(), currentUser(c))
	if err != nil {
		s.logger.Error().Err(err).Msg("holdings list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch holdings"})
		return
	}
	if holdings == nil {
		holdings = []models.Holding{}
	}
	c.JSON(http.StatusOK, holdings)
}

func (s *Server) createHolding(c *gin.Context) {
	var req holdingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol and company required"})
		return
	}

	now := time.Now().UTC()
	holding := &models.Holding{
		ID:           uuid.NewString(),
		UserID:       currentUser(c),
		Symbol:       models.NormalizeSymbol(req.Symbol),
		Company:      strings.TrimSpace(req.Company),
		Shares:       req.Shares,
		BuyPrice:     req.BuyPrice,
		CurrentPrice: req.CurrentPrice,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.SaveHolding(c.Request.Context(), holding); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, holding)
}

func (s *Server) updateHolding(c *gin.Context) {
	var req holdingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol and company required"})
		return
	}

	holding := &models.Holding{
		ID:           c.Param("id"),
		UserID:       currentUser(c),
		Symbol:       models.NormalizeSymbol(req.Symbol),
		Company:      strings.TrimSpace(req.Company),
		Shares:       req.Shares,
		BuyPrice:     req.BuyPrice,
		CurrentPrice: req.CurrentPrice,
	}

	err := s.store.UpdateHolding(c.Request.Context(), holding)
	if apperrors.Is(err, apperrors.ErrHoldingNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "holding not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, holding)
}

func (s *Server) deleteHolding(c *gin.Context) {
	err := s.store.DeleteHolding(c.Request.Context(), c.Param("id"), currentUser(c))
	if apperrors.Is(err, apperrors.ErrHoldingNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "holding not found"})
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("holding delete failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete holding"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type watchlistRequest struct {
	Symbol  string `json:"symbol" binding:"required"`
	Company string `json:"company"`
}

func (s *Server) getWatchlist(c *gin.Context) {
	items, err := s.store.GetWatchlist(c.Request.Context(), currentUser(c))
	if err != nil {
		s.logger.Error().Err(err).Msg("watchlist fetch failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch watchlist"})
		return
	}
	if items == nil {
		items = []models.WatchlistItem{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) addWatchlistItem(c *gin.Context) {
	var req watchlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol required"})
		return
	}

	item := &models.WatchlistItem{
		UserID:  currentUser(c),
		Symbol:  models.NormalizeSymbol(req.Symbol),
		Company: strings.TrimSpace(req.Company),
		AddedAt: time.Now().UTC(),
	}
	if item.Symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol required"})
		return
	}

	if err := s.store.AddToWatchlist(c.Request.Context(), item); err != nil {
		s.logger.Error().Err(err).Msg("watchlist add failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add to watchlist"})
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (s *Server) removeWatchlistItem(c *gin.Context) {
	symbol := models.NormalizeSymbol(c.Param("symbol"))
	if err := s.store.RemoveFromWatchlist(c.Request.Context(), currentUser(c), symbol); err != nil {
		s.logger.Error().Err(err).Msg("watchlist remove failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove from watchlist"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
