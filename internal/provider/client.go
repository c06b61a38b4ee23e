package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"gw-currency-rates/internal/metrics"
)

const resultSuccess = "success"

// Config содержит параметры подключения к exchangerate-api
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	RPS     float64
	Burst   int
}

// pairResponse ответ /pair/{base}/{target}
type pairResponse struct {
	Result         string   `json:"result"`
	ErrorType      string   `json:"error-type"`
	ConversionRate *float64 `json:"conversion_rate"`
}

// latestResponse ответ /latest/{base}
type latestResponse struct {
	Result          string             `json:"result"`
	ErrorType       string             `json:"error-type"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

// Client HTTP клиент сервиса курсов валют. Повторов на этом уровне нет.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     *logrus.Logger
}

// NewClient создает клиент провайдера курсов
func NewClient(cfg Config, logger *logrus.Logger) *Client {
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/") + "/" + url.PathEscape(cfg.APIKey),
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger,
	}
}

// FetchPairRate возвращает курс base -> target
func (c *Client) FetchPairRate(ctx context.Context, base, target string) (float64, error) {
	var resp pairResponse
	if err := c.get(ctx, "pair", "/pair/"+url.PathEscape(base)+"/"+url.PathEscape(target), &resp); err != nil {
		return 0, err
	}

	if resp.Result != resultSuccess || resp.ConversionRate == nil {
		perr := classify(resp.ErrorType)
		metrics.ProviderRequests.WithLabelValues("pair", perr.Kind.String()).Inc()
		c.logger.Warnf("Rate provider rejected pair %s->%s: %s", base, target, perr.Message)
		return 0, perr
	}

	metrics.ProviderRequests.WithLabelValues("pair", resultSuccess).Inc()
	return *resp.ConversionRate, nil
}

// FetchFullTable возвращает все курсы относительно base
func (c *Client) FetchFullTable(ctx context.Context, base string) (map[string]float64, error) {
	var resp latestResponse
	if err := c.get(ctx, "table", "/latest/"+url.PathEscape(base), &resp); err != nil {
		return nil, err
	}

	if resp.Result != resultSuccess || resp.ConversionRates == nil {
		perr := classify(resp.ErrorType)
		metrics.ProviderRequests.WithLabelValues("table", perr.Kind.String()).Inc()
		c.logger.Warnf("Rate provider rejected table for %s: %s", base, perr.Message)
		return nil, perr
	}

	metrics.ProviderRequests.WithLabelValues("table", resultSuccess).Inc()
	return resp.ConversionRates, nil
}

// get выполняет запрос и декодирует JSON тело в out.
// Транспортные ошибки становятся NetworkError, нечитаемое тело UpstreamError.
func (c *Client) get(ctx context.Context, op, path string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		metrics.ProviderRequests.WithLabelValues(op, NetworkError.String()).Inc()
		return networkError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &ProviderError{Kind: UpstreamError, Message: fmt.Sprintf("failed to build request: %v", err), Err: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(op, NetworkError.String()).Inc()
		c.logger.Errorf("Rate provider request failed: %v", err)
		return networkError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(op, NetworkError.String()).Inc()
		return networkError(err)
	}

	c.logger.WithFields(logrus.Fields{
		"op":       op,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debug("Rate provider responded")

	if err := json.Unmarshal(body, out); err != nil {
		metrics.ProviderRequests.WithLabelValues(op, UpstreamError.String()).Inc()
		return &ProviderError{
			Kind:    UpstreamError,
			Message: fmt.Sprintf("unexpected response from rate provider (status %d)", resp.StatusCode),
			Err:     err,
		}
	}

	return nil
}
