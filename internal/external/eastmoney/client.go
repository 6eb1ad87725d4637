package eastmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/minqi/bottomfisher/internal/contracts"
	"github.com/minqi/bottomfisher/pkg/config"
	"github.com/minqi/bottomfisher/pkg/logger"
)

// kline bar types understood by the push2his endpoint
const (
	kltDaily  = "101"
	kltMinute = "1"
)

// Client fetches candle data from the Eastmoney push2his quote API.
// All requests go through one shared rate limiter so batch collection stays
// under the endpoint's informal quota.
// ⭐ SSOT: 东方财富行情 API 调用只在这里
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logger.Logger
	cfg        config.EastmoneyConfig
}

// NewClient creates a new Eastmoney API client
func NewClient(cfg config.EastmoneyConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit),
		logger:     log,
		cfg:        cfg,
	}
}

// klineResponse is the envelope of the push2his kline endpoint
type klineResponse struct {
	Data *struct {
		Code   string   `json:"code"`
		Name   string   `json:"name"`
		Klines []string `json:"klines"`
	} `json:"data"`
}

// DailyCandles fetches up to count daily candles ending at end
func (c *Client) DailyCandles(ctx context.Context, code string, end time.Time, count int) ([]contracts.Candle, error) {
	return c.klines(ctx, code, kltDaily, end, count, contracts.ResolutionDaily)
}

// MinuteCandles fetches up to count one-minute candles ending at end
func (c *Client) MinuteCandles(ctx context.Context, code string, end time.Time, count int) ([]contracts.Candle, error) {
	return c.klines(ctx, code, kltMinute, end, count, contracts.ResolutionMinute)
}

func (c *Client) klines(ctx context.Context, code, klt string, end time.Time, count int, resolution contracts.Resolution) ([]contracts.Candle, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	secID, err := secID(code)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf(
		"%s/api/qt/stock/kline/get?secid=%s&klt=%s&fqt=1&end=%s&lmt=%d&fields1=f1,f2,f3&fields2=f51,f52,f53,f54,f55,f56",
		c.cfg.BaseURL, secID, klt, end.Format("20060102"), count,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Referer", "https://quote.eastmoney.com/")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kline request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("kline request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var kr klineResponse
	if err := json.NewDecoder(resp.Body).Decode(&kr); err != nil {
		return nil, fmt.Errorf("failed to decode kline response: %w", err)
	}
	if kr.Data == nil {
		return nil, nil
	}

	candles, err := parseKlines(kr.Data.Klines, resolution)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"code":  code,
		"klt":   klt,
		"count": len(candles),
	}).Debug("Fetched klines")

	return candles, nil
}

// parseKlines parses the comma-joined kline rows:
// timestamp,open,close,high,low,volume
func parseKlines(klines []string, resolution contracts.Resolution) ([]contracts.Candle, error) {
	layout := "2006-01-02"
	if resolution == contracts.ResolutionMinute {
		layout = "2006-01-02 15:04"
	}

	candles := make([]contracts.Candle, 0, len(klines))
	for _, line := range klines {
		fields := strings.Split(line, ",")
		if len(fields) < 6 {
			return nil, fmt.Errorf("malformed kline row: %q", line)
		}

		ts, err := time.Parse(layout, fields[0])
		if err != nil {
			return nil, fmt.Errorf("malformed kline timestamp %q: %w", fields[0], err)
		}

		values := make([]float64, 5)
		for i, f := range fields[1:6] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("malformed kline value %q: %w", f, err)
			}
			values[i] = v
		}

		candles = append(candles, contracts.Candle{
			Open:       values[0],
			Close:      values[1],
			High:       values[2],
			Low:        values[3],
			Volume:     values[4],
			Timestamp:  ts,
			Resolution: resolution,
		})
	}
	return candles, nil
}

// secID maps an instrument code to the Eastmoney market-prefixed id:
// 1.xxxxxx for Shanghai, 0.xxxxxx for Shenzhen.
func secID(code string) (string, error) {
	parts := strings.SplitN(code, ".", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid instrument code: %s", code)
	}

	switch parts[1] {
	case "XSHG":
		return "1." + parts[0], nil
	case "XSHE":
		return "0." + parts[0], nil
	default:
		return "", fmt.Errorf("unknown exchange suffix: %s", code)
	}
}
