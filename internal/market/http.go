package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	applog "finora/internal/log"

	"github.com/shopspring/decimal"
)

// HTTPProvider queries a JSON quote endpoint. The endpoint may contain a
// {symbol} placeholder; otherwise the symbol is sent as the "symbol" query
// parameter. The response must look like {"price": "123.45"}.
type HTTPProvider struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
	log      *applog.Logger
}

func NewHTTPProvider(endpoint string, timeout time.Duration, logger *applog.Logger) *HTTPProvider {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &HTTPProvider{
		endpoint: endpoint,
		timeout:  timeout,
		client:   newHTTPClient(timeout),
		log:      logger.WithComponent(applog.ComponentMarket),
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

type quote struct {
	Symbol string           `json:"symbol"`
	Price  *decimal.Decimal `json:"price"`
}

func (p *HTTPProvider) GetLastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return decimal.Zero, fmt.Errorf("%w: empty symbol", ErrUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.quoteURL(symbol), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		p.log.WarnContext(ctx, "quote request failed", applog.FieldSymbol, symbol, applog.FieldError, err)
		return decimal.Zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return decimal.Zero, fmt.Errorf("%w: quote endpoint returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var q quote
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&q); err != nil {
		return decimal.Zero, fmt.Errorf("%w: decode quote: %v", ErrUnavailable, err)
	}
	if q.Price == nil || q.Price.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: quote has no usable price", ErrUnavailable)
	}
	return *q.Price, nil
}

func (p *HTTPProvider) quoteURL(symbol string) string {
	escaped := url.PathEscape(symbol)
	if strings.Contains(p.endpoint, "{symbol}") {
		return strings.ReplaceAll(p.endpoint, "{symbol}", escaped)
	}
	sep := "?"
	if strings.Contains(p.endpoint, "?") {
		sep = "&"
	}
	return p.endpoint + sep + "symbol=" + url.QueryEscape(symbol)
}
