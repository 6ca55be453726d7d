package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/PatelGH0512/stocklabs/internal/config"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(config.MarketConfig{
		BaseURL:        srv.URL,
		APIKey:         "test-key",
		RequestTimeout: 5 * time.Second,
		RatePerSecond:  1000,
		RateBurst:      1000,
	}, zerolog.Nop())
	return client, srv
}

type callCounter struct {
	mu    sync.Mutex
	calls map[string]int
}

func newCallCounter() *callCounter {
	return &callCounter{calls: make(map[string]int)}
}

func (c *callCounter) inc(key string) {
	c.mu.Lock()
	c.calls[key]++
	c.mu.Unlock()
}

func (c *callCounter) get(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[key]
}

func quoteHandler(counter *callCounter, prices map[string]float64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		symbol := r.URL.Query().Get("symbol")
		counter.inc(symbol)
		price, ok := prices[symbol]
		if !ok {
			// Finnhub reports unknown symbols as an all-zero quote body.
			json.NewEncoder(w).Encode(map[string]float64{"c": 0, "pc": 0})
			return
		}
		json.NewEncoder(w).Encode(map[string]float64{"c": price, "pc": price - 1})
	})
}

func TestGetQuote(t *testing.T) {
	counter := newCallCounter()
	client, _ := newTestClient(t, quoteHandler(counter, map[string]float64{"AAPL": 241.00}))

	quote, err := client.GetQuote(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("GetQuote: %v", err)
	}
	if quote.Symbol != "AAPL" || quote.Current != 241.00 {
		t.Errorf("quote = %+v", quote)
	}
	if counter.get("AAPL") != 1 {
		t.Errorf("AAPL fetched %d times, want 1", counter.get("AAPL"))
	}
}

func TestGetQuoteUnknownSymbol(t *testing.T) {
	client, _ := newTestClient(t, quoteHandler(newCallCounter(), nil))

	_, err := client.GetQuote(context.Background(), "NOPE")
	if err == nil {
		t.Fatal("GetQuote accepted an all-zero quote")
	}
}

func TestGetQuoteDetailsDedup(t *testing.T) {
	counter := newCallCounter()
	client, _ := newTestClient(t, quoteHandler(counter, map[string]float64{
		"TSLA": 250.00,
		"AAPL": 241.00,
	}))

	quotes := client.GetQuoteDetails(context.Background(), []string{"TSLA", "tsla", " TSLA ", "AAPL"})
	if len(quotes) != 2 {
		t.Fatalf("got %d quotes, want 2: %v", len(quotes), quotes)
	}
	if counter.get("TSLA") != 1 {
		t.Errorf("TSLA fetched %d times, want 1", counter.get("TSLA"))
	}
	if quotes["TSLA"].Current != 250.00 || quotes["AAPL"].Current != 241.00 {
		t.Errorf("quotes = %v", quotes)
	}
}

func TestGetQuoteDetailsPartialFailure(t *testing.T) {
	client, _ := newTestClient(t, quoteHandler(newCallCounter(), map[string]float64{"AAPL": 241.00}))

	quotes := client.GetQuoteDetails(context.Background(), []string{"AAPL", "GHOST"})
	if _, ok := quotes["GHOST"]; ok {
		t.Error("failed symbol present in result")
	}
	if q, ok := quotes["AAPL"]; !ok || q.Current != 241.00 {
		t.Errorf("healthy symbol missing or wrong: %v", quotes)
	}
}

func TestGetNewsRoundRobinCap(t *testing.T) {
	article := func(id int64, headline string, ts int64) map[string]any {
		return map[string]any{
			"id": id, "headline": headline, "summary": "s",
			"source": "src", "url": fmt.Sprintf("https://example.com/%d", id), "datetime": ts,
		}
	}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/company-news" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		symbol := r.URL.Query().Get("symbol")
		var items []map[string]any
		for i := int64(0); i < 5; i++ {
			items = append(items, article(i, symbol+" story", 1000+i))
		}
		json.NewEncoder(w).Encode(items)
	}))

	articles, err := client.GetNews(context.Background(), []string{"AAPL", "MSFT"})
	if err != nil {
		t.Fatalf("GetNews: %v", err)
	}
	if len(articles) != 6 {
		t.Fatalf("got %d articles, want cap of 6", len(articles))
	}

	perSymbol := make(map[string]int)
	for _, a := range articles {
		perSymbol[a.Symbol]++
	}
	if perSymbol["AAPL"] != 3 || perSymbol["MSFT"] != 3 {
		t.Errorf("round-robin split = %v, want 3 each", perSymbol)
	}

	for i := 1; i < len(articles); i++ {
		if articles[i].Datetime.After(articles[i-1].Datetime) {
			t.Errorf("articles not sorted newest first at %d", i)
		}
	}
}

func TestGetNewsGeneralFallbackDedup(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/news" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		items := []map[string]any{
			{"id": 1, "headline": "one", "url": "https://example.com/1", "datetime": 100, "source": "s", "summary": ""},
			{"id": 1, "headline": "one again", "url": "https://example.com/1", "datetime": 100, "source": "s", "summary": ""},
			{"id": 2, "headline": "", "url": "https://example.com/2", "datetime": 100, "source": "s", "summary": ""},
			{"id": 3, "headline": "three", "url": "https://example.com/3", "datetime": 100, "source": "s", "summary": ""},
		}
		json.NewEncoder(w).Encode(items)
	}))

	articles, err := client.GetNews(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetNews: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("got %d articles, want 2 after dedup and validity filter", len(articles))
	}
	if articles[0].Headline != "one" || articles[1].Headline != "three" {
		t.Errorf("articles = %+v", articles)
	}
}

func TestSearchCapsResults(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			http.NotFound(w, r)
			return
		}
		var result []map[string]string
		for i := 0; i < 30; i++ {
			result = append(result, map[string]string{
				"symbol":      fmt.Sprintf("SYM%d", i),
				"description": fmt.Sprintf("Company %d", i),
				"type":        "Common Stock",
			})
		}
		json.NewEncoder(w).Encode(map[string]any{"result": result})
	}))

	results, err := client.Search(context.Background(), "sym")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 15 {
		t.Errorf("got %d results, want cap of 15", len(results))
	}
	if results[0].Symbol != "SYM0" || results[0].Name != "Company 0" {
		t.Errorf("first result = %+v", results[0])
	}
}

func TestSearchEmptyQueryUsesPopularProfiles(t *testing.T) {
	counter := newCallCounter()
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stock/profile2" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		symbol := r.URL.Query().Get("symbol")
		counter.inc(symbol)
		json.NewEncoder(w).Encode(map[string]string{"name": symbol + " Corp", "ticker": symbol, "exchange": "US"})
	}))

	results, err := client.Search(context.Background(), "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != len(PopularSymbols) {
		t.Fatalf("got %d results, want %d", len(results), len(PopularSymbols))
	}
	symbols := make([]string, len(results))
	for i, r := range results {
		symbols[i] = r.Symbol
	}
	if !reflect.DeepEqual(symbols, PopularSymbols) {
		t.Errorf("order = %v, want popular order preserved", symbols)
	}
}

func TestGetJSONRequiresAPIKey(t *testing.T) {
	client := NewClient(config.MarketConfig{
		BaseURL:        "http://unused.invalid",
		RequestTimeout: time.Second,
		RatePerSecond:  10,
		RateBurst:      10,
	}, zerolog.Nop())

	if client.Configured() {
		t.Error("Configured() = true without an API key")
	}
	if _, err := client.GetQuote(context.Background(), "AAPL"); err == nil {
		t.Error("GetQuote succeeded without an API key")
	}
}

func TestDedupSymbols(t *testing.T) {
	got := DedupSymbols([]string{"tsla", "TSLA", " aapl ", "", "AAPL", "msft"})
	want := []string{"TSLA", "AAPL", "MSFT"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DedupSymbols = %v, want %v", got, want)
	}
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		period string
		want   time.Time
	}{
		{"7d", now.AddDate(0, 0, -7)},
		{"1m", now.AddDate(0, -1, 0)},
		{"3m", now.AddDate(0, -3, 0)},
		{"ytd", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"bogus", now.AddDate(0, -1, 0)},
	}
	for _, tc := range cases {
		if got := periodStart(tc.period, now); !got.Equal(tc.want) {
			t.Errorf("periodStart(%q) = %v, want %v", tc.period, got, tc.want)
		}
	}
}
