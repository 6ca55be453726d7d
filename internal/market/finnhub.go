// Package market provides the Finnhub market data client.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/PatelGH0512/stocklabs/internal/config"
	apperrors "github.com/PatelGH0512/stocklabs/internal/errors"
	"github.com/PatelGH0512/stocklabs/internal/logging"
	"github.com/PatelGH0512/stocklabs/internal/models"
	"github.com/PatelGH0512/stocklabs/pkg/utils"
)

// QuoteSource is the ability to look up live quotes for a set of symbols.
// Implementations must tolerate partial failures: symbols that cannot be
// quoted are simply absent from the returned map.
type QuoteSource interface {
	GetQuoteDetails(ctx context.Context, symbols []string) map[string]models.Quote
}

// PopularSymbols are shown when a search query is empty.
var PopularSymbols = []string{"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META", "TSLA", "BRK.B", "JPM", "V"}

const maxNewsArticles = 6

// Client is a Finnhub REST client with rate limiting and retry.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      utils.RetryConfig
	logger     zerolog.Logger

	// bound on concurrent per-symbol lookups within one batch
	batchWorkers int
}

// NewClient creates a Finnhub client from configuration.
func NewClient(cfg config.MarketConfig, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		httpClient:   &http.Client{Timeout: cfg.RequestTimeout},
		limiter:      rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		retry:        utils.DefaultRetryConfig(),
		logger:       logger,
		batchWorkers: 8,
	}
}

// Configured reports whether the client has credentials.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// quoteResponse is Finnhub's /quote wire format.
type quoteResponse struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePct     float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
}

// GetQuote fetches a single quote.
func (c *Client) GetQuote(ctx context.Context, symbol string) (models.Quote, error) {
	symbol = models.NormalizeSymbol(symbol)
	var resp quoteResponse
	if err := c.getJSON(ctx, "/quote", url.Values{"symbol": {symbol}}, &resp); err != nil {
		return models.Quote{}, err
	}
	if resp.Current == 0 && resp.PreviousClose == 0 {
		return models.Quote{}, fmt.Errorf("%w: %s", apperrors.ErrQuoteUnavailable, symbol)
	}
	return models.Quote{Symbol: symbol, Current: resp.Current, PreviousClose: resp.PreviousClose}, nil
}

// GetQuoteDetails fetches quotes for a set of symbols. Symbols are
// deduplicated and uppercased; lookups run concurrently with a bounded
// worker count. A failed symbol is logged and left out of the result.
func (c *Client) GetQuoteDetails(ctx context.Context, symbols []string) map[string]models.Quote {
	distinct := DedupSymbols(symbols)
	result := make(map[string]models.Quote, len(distinct))
	if len(distinct) == 0 {
		return result
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, c.batchWorkers)

	for _, symbol := range distinct {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			quote, err := c.GetQuote(ctx, symbol)
			if err != nil {
				c.logger.Warn().Err(err).Str("symbol", symbol).Msg("quote lookup failed")
				return
			}
			mu.Lock()
			result[symbol] = quote
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()

	return result
}

// GetQuotes returns a symbol -> current price map.
func (c *Client) GetQuotes(ctx context.Context, symbols []string) map[string]float64 {
	details := c.GetQuoteDetails(ctx, symbols)
	prices := make(map[string]float64, len(details))
	for symbol, q := range details {
		prices[symbol] = q.Current
	}
	return prices
}

// newsResponse is Finnhub's news wire format.
type newsResponse struct {
	ID       int64  `json:"id"`
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Source   string `json:"source"`
	URL      string `json:"url"`
	Datetime int64  `json:"datetime"`
}

func (n newsResponse) valid() bool {
	return n.Headline != "" && n.URL != ""
}

func (n newsResponse) toArticle(symbol string) models.NewsArticle {
	return models.NewsArticle{
		ID:       n.ID,
		Symbol:   symbol,
		Headline: n.Headline,
		Summary:  n.Summary,
		Source:   n.Source,
		URL:      n.URL,
		Datetime: time.Unix(n.Datetime, 0).UTC(),
	}
}

// GetNews returns up to six articles. With symbols it fetches company news
// per symbol and round-robins the picks so every symbol gets coverage;
// without symbols, or when nothing was collected, it falls back to general
// market news deduplicated by id and URL.
func (c *Client) GetNews(ctx context.Context, symbols []string) ([]models.NewsArticle, error) {
	distinct := DedupSymbols(symbols)

	if len(distinct) > 0 {
		perSymbol := make(map[string][]newsResponse, len(distinct))
		var mu sync.Mutex
		var wg sync.WaitGroup
		to := time.Now().UTC()
		from := to.AddDate(0, 0, -5)

		for _, symbol := range distinct {
			wg.Add(1)
			go func(symbol string) {
				defer wg.Done()
				var items []newsResponse
				err := c.getJSON(ctx, "/company-news", url.Values{
					"symbol": {symbol},
					"from":   {from.Format("2006-01-02")},
					"to":     {to.Format("2006-01-02")},
				}, &items)
				if err != nil {
					c.logger.Warn().Err(err).Str("symbol", symbol).Msg("company news fetch failed")
					return
				}
				mu.Lock()
				perSymbol[symbol] = items
				mu.Unlock()
			}(symbol)
		}
		wg.Wait()

		var collected []models.NewsArticle
		for round := 0; len(collected) < maxNewsArticles; round++ {
			advanced := false
			for _, symbol := range distinct {
				list := perSymbol[symbol]
				if round >= len(list) {
					continue
				}
				advanced = true
				if !list[round].valid() {
					continue
				}
				collected = append(collected, list[round].toArticle(symbol))
				if len(collected) >= maxNewsArticles {
					break
				}
			}
			if !advanced {
				break
			}
		}

		if len(collected) > 0 {
			sort.Slice(collected, func(i, j int) bool {
				return collected[i].Datetime.After(collected[j].Datetime)
			})
			return collected, nil
		}
	}

	var general []newsResponse
	if err := c.getJSON(ctx, "/news", url.Values{"category": {"general"}}, &general); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var articles []models.NewsArticle
	for _, item := range general {
		if !item.valid() {
			continue
		}
		key := fmt.Sprintf("%d-%s", item.ID, item.URL)
		if seen[key] {
			continue
		}
		seen[key] = true
		articles = append(articles, item.toArticle(""))
		if len(articles) >= maxNewsArticles {
			break
		}
	}
	return articles, nil
}

// searchResponse is Finnhub's /search wire format.
type searchResponse struct {
	Result []struct {
		Symbol        string `json:"symbol"`
		Description   string `json:"description"`
		DisplaySymbol string `json:"displaySymbol"`
		Type          string `json:"type"`
	} `json:"result"`
}

// profileResponse is Finnhub's /stock/profile2 wire format.
type profileResponse struct {
	Name     string `json:"name"`
	Ticker   string `json:"ticker"`
	Exchange string `json:"exchange"`
}

// Search looks up symbols matching the query. An empty query returns
// profiles for the popular symbols instead. Results are capped at 15.
func (c *Client) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	if query == "" {
		return c.popularProfiles(ctx), nil
	}

	var resp searchResponse
	if err := c.getJSON(ctx, "/search", url.Values{"q": {query}}, &resp); err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		symbol := models.NormalizeSymbol(r.Symbol)
		if symbol == "" {
			continue
		}
		name := r.Description
		if name == "" {
			name = symbol
		}
		typ := r.Type
		if typ == "" {
			typ = "Stock"
		}
		results = append(results, models.SearchResult{
			Symbol:   symbol,
			Name:     name,
			Exchange: "US",
			Type:     typ,
		})
		if len(results) >= 15 {
			break
		}
	}
	return results, nil
}

func (c *Client) popularProfiles(ctx context.Context) []models.SearchResult {
	type entry struct {
		idx    int
		result models.SearchResult
		ok     bool
	}

	entries := make([]entry, len(PopularSymbols))
	var wg sync.WaitGroup
	for i, symbol := range PopularSymbols {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			var profile profileResponse
			err := c.getJSON(ctx, "/stock/profile2", url.Values{"symbol": {symbol}}, &profile)
			if err != nil {
				c.logger.Warn().Err(err).Str("symbol", symbol).Msg("profile fetch failed")
				return
			}
			name := profile.Name
			if name == "" {
				name = profile.Ticker
			}
			if name == "" {
				return
			}
			entries[i] = entry{
				idx: i,
				result: models.SearchResult{
					Symbol:   symbol,
					Name:     name,
					Exchange: profile.Exchange,
					Type:     "Common Stock",
				},
				ok: true,
			}
		}(i, symbol)
	}
	wg.Wait()

	var results []models.SearchResult
	for _, e := range entries {
		if e.ok {
			results = append(results, e.result)
		}
	}
	return results
}

// MarketStatus is the open/closed state of an exchange.
type MarketStatus struct {
	Exchange string  `json:"exchange"`
	IsOpen   bool    `json:"isOpen"`
	Session  string  `json:"session"`
	Timezone string  `json:"timezone"`
	T        int64   `json:"t"`
	Holiday  *string `json:"holiday"`
}

// GetMarketStatus returns the status of an exchange.
func (c *Client) GetMarketStatus(ctx context.Context, exchange string) (*MarketStatus, error) {
	var status MarketStatus
	if err := c.getJSON(ctx, "/stock/market-status", url.Values{"exchange": {exchange}}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// candleResponse is Finnhub's /stock/candle wire format.
type candleResponse struct {
	Close  []float64 `json:"c"`
	Status string    `json:"s"`
}

// GetPerformance computes percent change per symbol over the period
// ("7d", "1m", "3m", "ytd") from daily candles. Symbols whose candles are
// unavailable report zero change rather than failing the batch.
func (c *Client) GetPerformance(ctx context.Context, symbols []string, period string) []models.PerformanceItem {
	from := periodStart(period, time.Now().UTC())
	distinct := DedupSymbols(symbols)

	items := make([]models.PerformanceItem, len(distinct))
	var wg sync.WaitGroup
	for i, symbol := range distinct {
		items[i] = models.PerformanceItem{Symbol: symbol}
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			var resp candleResponse
			err := c.getJSON(ctx, "/stock/candle", url.Values{
				"symbol":     {symbol},
				"resolution": {"D"},
				"from":       {fmt.Sprintf("%d", from.Unix())},
				"to":         {fmt.Sprintf("%d", time.Now().Unix())},
			}, &resp)
			if err != nil || resp.Status != "ok" || len(resp.Close) < 2 {
				return
			}
			first, last := resp.Close[0], resp.Close[len(resp.Close)-1]
			if first != 0 {
				items[i].ChangePct = (last - first) / first * 100
			}
		}(i, symbol)
	}
	wg.Wait()

	return items
}

func periodStart(period string, now time.Time) time.Time {
	switch period {
	case "7d":
		return now.AddDate(0, 0, -7)
	case "3m":
		return now.AddDate(0, -3, 0)
	case "ytd":
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	default: // "1m"
		return now.AddDate(0, -1, 0)
	}
}

// getJSON performs a rate-limited GET with retry and decodes the body.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, target interface{}) error {
	if c.apiKey == "" {
		return fmt.Errorf("%w: missing market API key", apperrors.ErrNotConfigured)
	}

	params.Set("token", c.apiKey)
	endpoint := c.baseURL + path + "?" + params.Encode()

	start := time.Now()
	body, err := utils.RetryWithResult(ctx, c.retry, func() ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, apperrors.NewMarketError(resp.StatusCode, "", fmt.Errorf("unexpected status"))
		}
		return data, nil
	})
	logging.LogAPICall(c.logger, http.MethodGet, path, time.Since(start), err)
	if err != nil {
		return err
	}

	return json.Unmarshal(body, target)
}

// DedupSymbols uppercases, trims, and deduplicates symbols, preserving the
// order of first appearance.
func DedupSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	var distinct []string
	for _, s := range symbols {
		symbol := models.NormalizeSymbol(s)
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true
		distinct = append(distinct, symbol)
	}
	return distinct
}
