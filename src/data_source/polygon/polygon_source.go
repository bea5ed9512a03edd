package polygon

import (
	"fmt"
	"time"

	"volume-tracker/src/helpers"
	"volume-tracker/src/logger"
	"volume-tracker/src/market"
	"volume-tracker/src/models"

	"github.com/go-resty/resty/v2"
)

// ---------------------------------------------------------------------------------------------------

// PolygonSource fetches ticks and aggregates from the Polygon REST API.
type PolygonSource struct {
	cfg    models.MProviderConfig
	log    *logger.Logger
	client *resty.Client
}

func NewPolygonSource(cfg models.MProviderConfig, log *logger.Logger) *PolygonSource {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(cfg.RequestTimeout) * time.Second).
		SetQueryParam("apiKey", cfg.APIKey).
		SetHeader("Accept", "application/json")

	return &PolygonSource{cfg: cfg, log: log.Named("polygon"), client: client}
}

// ---------------------------------------------------------------------------------------------------

type tradesResponse struct {
	Status  string          `json:"status"`
	Results []models.MTrade `json:"results"`
}

type quotesResponse struct {
	Status  string          `json:"status"`
	Results []models.MQuote `json:"results"`
}

type aggsResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Timestamp int64   `json:"t"`
		Close     float64 `json:"c"`
	} `json:"results"`
}

type tickersResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Ticker string `json:"ticker"`
	} `json:"results"`
}

// ---------------------------------------------------------------------------------------------------

func (p *PolygonSource) get(endpoint string, params map[string]string, out interface{}) error {
	attempt := func() error {
		resp, err := p.client.R().
			SetQueryParams(params).
			SetResult(out).
			Get(endpoint)
		if err != nil {
			return helpers.TransientWrap(err, "request %s failed", endpoint)
		}
		if resp.IsError() {
			return helpers.Transient("request %s returned status %d", endpoint, resp.StatusCode())
		}
		return nil
	}
	return helpers.RetryWithBackoff(p.cfg.MaxRetries, time.Second, attempt)
}

func tickParams(minute time.Time, limit int) map[string]string {
	return map[string]string{
		"timestamp.gte": fmt.Sprintf("%d", minute.UnixNano()),
		"timestamp.lt":  fmt.Sprintf("%d", minute.Add(time.Minute).UnixNano()),
		"sort":          "timestamp",
		"order":         "asc",
		"limit":         fmt.Sprintf("%d", limit),
	}
}

// ---------------------------------------------------------------------------------------------------

func (p *PolygonSource) TradesInMinute(symbol string, minute time.Time) ([]models.MTrade, error) {
	var out tradesResponse
	endpoint := fmt.Sprintf("/v3/trades/%s", symbol)
	if err := p.get(endpoint, tickParams(minute, p.cfg.PageLimit), &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

func (p *PolygonSource) QuotesInMinute(symbol string, minute time.Time) ([]models.MQuote, error) {
	var out quotesResponse
	endpoint := fmt.Sprintf("/v3/quotes/%s", symbol)
	if err := p.get(endpoint, tickParams(minute, p.cfg.PageLimit), &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// ---------------------------------------------------------------------------------------------------

const maxBackwardPages = 200

// MidpointBefore walks backwards through the quote stream one quote at a
// time until it finds a two-sided quote strictly before ts.
func (p *PolygonSource) MidpointBefore(symbol string, ts time.Time) (float64, error) {
	endpoint := fmt.Sprintf("/v3/quotes/%s", symbol)
	cursor := ts.UnixNano()

	for page := 0; page < maxBackwardPages; page++ {
		var out quotesResponse
		params := map[string]string{
			"timestamp.lt": fmt.Sprintf("%d", cursor),
			"sort":         "timestamp",
			"order":        "desc",
			"limit":        "1",
		}
		if err := p.get(endpoint, params, &out); err != nil {
			return 0, err
		}
		if len(out.Results) == 0 {
			return 0, helpers.Transient("no quote found before %s for %s", ts, symbol)
		}
		quote := out.Results[0]
		if mid, ok := quote.Mid(); ok {
			return mid, nil
		}
		cursor = quote.Timestamp
	}
	return 0, helpers.Transient("no two-sided quote within %d pages before %s for %s", maxBackwardPages, ts, symbol)
}

// ---------------------------------------------------------------------------------------------------

func (p *PolygonSource) IndexValueSeries(apiSymbol string, day time.Time) ([]models.MIndexValue, error) {
	open, sessionClose := market.OpenClose(day)
	endpoint := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/minute/%d/%d",
		apiSymbol, open.UnixMilli(), sessionClose.UnixMilli())

	var out aggsResponse
	params := map[string]string{"sort": "asc", "limit": fmt.Sprintf("%d", p.cfg.PageLimit)}
	if err := p.get(endpoint, params, &out); err != nil {
		return nil, err
	}

	series := make([]models.MIndexValue, 0, len(out.Results))
	for _, bar := range out.Results {
		t := time.UnixMilli(bar.Timestamp).In(market.Location())
		series = append(series, models.MIndexValue{Time: t, Value: bar.Close})
	}
	return series, nil
}

func (p *PolygonSource) IndexValueAt(apiSymbol string, minute time.Time) (*float64, error) {
	endpoint := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/minute/%d/%d",
		apiSymbol, minute.UnixMilli(), minute.Add(time.Minute).UnixMilli())

	var out aggsResponse
	params := map[string]string{"sort": "asc", "limit": "1"}
	if err := p.get(endpoint, params, &out); err != nil {
		return nil, err
	}
	if len(out.Results) == 0 {
		return nil, nil
	}
	value := out.Results[0].Close
	return &value, nil
}

// ---------------------------------------------------------------------------------------------------

func (p *PolygonSource) VerifySymbol(symbol string) (bool, error) {
	var out tickersResponse
	params := map[string]string{"ticker": symbol, "market": "stocks", "active": "true"}
	if err := p.get("/v3/reference/tickers", params, &out); err != nil {
		return false, err
	}
	return len(out.Results) > 0, nil
}
