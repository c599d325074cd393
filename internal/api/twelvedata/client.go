package twelvedata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mukundan1989/stockpairs/internal/model"
	httpclient "github.com/mukundan1989/stockpairs/internal/platform/http"
)

const (
	defaultBaseURL = "https://api.twelvedata.com"
	dailyInterval  = "1day"
	// maxOutputSize is the largest row count a single time_series call
	// returns.
	maxOutputSize = 5000
)

// Client is the Twelve Data API client
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *httpclient.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new Twelve Data client
type ClientOptions struct {
	APIKey          string
	BaseURL         string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetries      int
	MaxRetryTimeout time.Duration
}

// NewClient creates a new Twelve Data API client
func NewClient(options ClientOptions) *Client {
	if options.BaseURL == "" {
		options.BaseURL = defaultBaseURL
	}

	httpOpts := httpclient.ClientOptions{
		Timeout:         options.RequestTimeout,
		RequestsPerSec:  options.RequestsPerSec,
		MaxRetries:      options.MaxRetries,
		MaxRetryTimeout: options.MaxRetryTimeout,
		BreakerName:     "twelvedata",
	}

	return &Client{
		apiKey:     options.APIKey,
		baseURL:    strings.TrimRight(options.BaseURL, "/"),
		httpClient: httpclient.NewClient(httpOpts),
		logger:     log.With().Str("component", "twelvedata_client").Logger(),
	}
}

// DailyBars fetches the daily OHLCV history of a symbol, oldest first with
// duplicate days dropped. A zero start or end leaves that side of the range
// open.
func (c *Client) DailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.Bar, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", dailyInterval)
	params.Set("outputsize", strconv.Itoa(maxOutputSize))
	params.Set("apikey", c.apiKey)
	if !start.IsZero() {
		params.Set("start_date", start.Format(model.DateLayout))
	}
	if !end.IsZero() {
		params.Set("end_date", end.Format(model.DateLayout))
	}
	requestURL := c.baseURL + "/time_series?" + params.Encode()

	c.logger.Debug().Str("symbol", symbol).Msg("Fetching daily bars")

	// Create a new request with context
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.DoRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if strings.Contains(string(body), `"status":"error"`) {
		c.logger.Error().Str("response", string(body)).Msg("Twelve Data API error")
		return nil, fmt.Errorf("Twelve Data API error: %s", string(body))
	}

	var data model.TwelveResponse
	if err := json.Unmarshal(body, &data); err != nil {
		c.logger.Error().Err(err).Msg("Error parsing JSON")
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	if len(data.Values) == 0 {
		c.logger.Warn().Str("symbol", symbol).Msg("No bars in response")
		return nil, fmt.Errorf("empty data returned for %s", symbol)
	}

	// Sort rows oldest first for proper calculations
	sort.Slice(data.Values, func(i, j int) bool {
		return data.Values[i].Datetime < data.Values[j].Datetime
	})

	bars := make([]model.Bar, 0, len(data.Values))
	for _, v := range data.Values {
		date, err := model.ParseDate(v.Datetime)
		if err != nil {
			return nil, fmt.Errorf("bar for %s: %w", symbol, err)
		}
		if n := len(bars); n > 0 && bars[n-1].Date.Equal(date) {
			continue
		}
		bars = append(bars, model.Bar{
			Date:   date,
			Open:   v.Open,
			High:   v.High,
			Low:    v.Low,
			Close:  v.Close,
			Volume: v.Volume,
		})
	}

	c.logger.Debug().Str("symbol", symbol).Int("count", len(bars)).Msg("Fetched daily bars")
	return bars, nil
}
