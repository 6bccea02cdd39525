package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/cenkalti/backoff/v4"
	"github.com/damon-houk/georgia-tax-declaration/internal/domain/entity"
	"github.com/damon-houk/georgia-tax-declaration/internal/domain/service"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/logger"
	"github.com/shopspring/decimal"
)

const (
	// NBGBaseURL is the National Bank of Georgia official rates endpoint
	NBGBaseURL = "https://nbg.gov.ge/gw/api/ct/monetarypolicy/currencies/en/json/"

	defaultTimeout         = 10 * time.Second
	defaultMaxRetries      = 3
	defaultInitialInterval = 500 * time.Millisecond
)

// NBGClientConfig configures the NBG client
type NBGClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	// InitialInterval is the first backoff delay between retries
	InitialInterval time.Duration
}

// NBGClient implements service.RateSource against the National Bank of Georgia API
type NBGClient struct {
	baseURL         string
	httpClient      *http.Client
	maxRetries      int
	initialInterval time.Duration
	logger          logger.Logger
}

var _ service.RateSource = (*NBGClient)(nil)

// NewNBGClient creates a new NBG API client
func NewNBGClient(cfg NBGClientConfig, httpClient *http.Client, log logger.Logger) *NBGClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = NBGBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = defaultInitialInterval
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
		}
	}
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &NBGClient{
		baseURL:         cfg.BaseURL,
		httpClient:      httpClient,
		maxRetries:      cfg.MaxRetries,
		initialInterval: cfg.InitialInterval,
		logger:          log.WithField("component", "nbg_client"),
	}
}

// nbgResponse represents the response structure from the NBG API
type nbgResponse []struct {
	Date       string        `json:"date"`
	Currencies []nbgCurrency `json:"currencies"`
}

type nbgCurrency struct {
	Code          string          `json:"code"`
	Quantity      int64           `json:"quantity"`
	Rate          decimal.Decimal `json:"rate"`
	Name          string          `json:"name"`
	ValidFromDate string          `json:"validFromDate"`
}

// FetchRate retrieves the GEL rate of currency published for date
func (c *NBGClient) FetchRate(ctx context.Context, currency entity.Currency, date civil.Date) (*entity.ExchangeRate, error) {
	if currency.IsReporting() {
		return entity.UnitRate(date), nil
	}
	if currency == "" {
		return nil, errors.New("currency code is required")
	}

	reqURL, err := c.buildURL(currency, date)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Requesting NBG rate", map[string]interface{}{
		"currency": currency,
		"date":     date.String(),
		"url":      reqURL,
	})

	var body []byte
	attempt := 0
	operation := func() error {
		attempt++
		body, err = c.get(ctx, reqURL)
		if err != nil {
			c.logger.Warn("NBG request failed", map[string]interface{}{
				"currency": currency,
				"date":     date.String(),
				"attempt":  attempt,
				"error":    err.Error(),
			})
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialInterval
	retry := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.maxRetries)), ctx)

	if err := backoff.Retry(operation, retry); err != nil {
		return nil, fmt.Errorf("failed to execute request after %d attempts: %w", attempt, err)
	}

	rate, err := c.decode(body, currency, date)
	if err != nil {
		return nil, err
	}

	c.logger.Info("NBG rate fetched", map[string]interface{}{
		"currency":  currency,
		"date":      date.String(),
		"rate_date": rate.Date.String(),
		"rate":      rate.Rate.String(),
	})

	return rate, nil
}

func (c *NBGClient) buildURL(currency entity.Currency, date civil.Date) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid NBG base URL: %w", err)
	}
	q := u.Query()
	q.Set("currencies", string(currency))
	q.Set("date", date.String())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// get performs one request. Errors worth retrying are returned as is,
// everything else is wrapped with backoff.Permanent.
func (c *NBGClient) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Add("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Error closing response body", map[string]interface{}{
				"error": closeErr.Error(),
			})
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("API returned error status: %d", resp.StatusCode)
	default:
		return nil, backoff.Permanent(fmt.Errorf("API returned error status: %d, body: %s", resp.StatusCode, truncate(body, 200)))
	}
}

func (c *NBGClient) decode(body []byte, currency entity.Currency, date civil.Date) (*entity.ExchangeRate, error) {
	var resp nbgResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(resp) == 0 || len(resp[0].Currencies) == 0 {
		return nil, fmt.Errorf("%w: %s on %s", service.ErrRateNotPublished, currency, date)
	}

	data := resp[0].Currencies[0]
	if !strings.EqualFold(data.Code, string(currency)) {
		return nil, fmt.Errorf("NBG answered with currency %q for %q", data.Code, currency)
	}

	if !data.Rate.IsPositive() {
		return nil, fmt.Errorf("invalid exchange rate value: %s", data.Rate)
	}

	// Some currencies are quoted per 10 or 100 units
	rate := data.Rate
	if data.Quantity > 1 {
		rate = rate.Div(decimal.NewFromInt(data.Quantity))
	}

	rateDate := date
	if parsed, ok := parseNBGDate(data.ValidFromDate); ok {
		rateDate = parsed
	} else if parsed, ok := parseNBGDate(resp[0].Date); ok {
		rateDate = parsed
	}

	// A rate that becomes valid after the queried day is not a rate for that day
	if rateDate.After(date) {
		return nil, fmt.Errorf("%w: %s on %s (next rate valid from %s)", service.ErrRateNotPublished, currency, date, rateDate)
	}

	return &entity.ExchangeRate{
		Currency: currency,
		Date:     rateDate,
		Rate:     rate,
	}, nil
}

// parseNBGDate reads the date part of an NBG timestamp such as 2024-01-02T00:00:00.000Z
func parseNBGDate(s string) (civil.Date, bool) {
	if len(s) < 10 {
		return civil.Date{}, false
	}
	d, err := civil.ParseDate(s[:10])
	if err != nil {
		return civil.Date{}, false
	}
	return d, true
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
