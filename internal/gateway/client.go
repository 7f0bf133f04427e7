package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"pushflow/internal/config"
	"pushflow/internal/logger"
	"pushflow/pkg/circuitbreaker"
	"pushflow/pkg/metrics"
)

// Client calls the external push gateway over HTTP. Any transport or decode
// failure is returned as an error and means no delivery fact is known.
type Client interface {
	Send(ctx context.Context, req SendRequest) (*SendResponse, error)
}

type HTTPClient struct {
	baseURL string
	http    *http.Client
	breaker *circuitbreaker.Wrapper
	logger  logger.Logger
}

func NewClient(cfg config.GatewayConfig, cbCfg config.CircuitBreakerConfig, log logger.Logger) *HTTPClient {
	c := &HTTPClient{
		baseURL: cfg.BaseURL,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: log,
	}

	if cbCfg.Enabled {
		breakerCfg := circuitbreaker.DefaultConfig("push-gateway")
		if cbCfg.MaxRequests > 0 {
			breakerCfg.MaxRequests = cbCfg.MaxRequests
		}
		if cbCfg.Interval > 0 {
			breakerCfg.Interval = cbCfg.Interval
		}
		if cbCfg.Timeout > 0 {
			breakerCfg.Timeout = cbCfg.Timeout
		}
		if cbCfg.FailureRatio > 0 || cbCfg.MinRequests > 0 {
			breakerCfg.ReadyToTrip = readyToTrip(cbCfg.FailureRatio, cbCfg.MinRequests)
		}
		c.breaker = circuitbreaker.NewWrapper(breakerCfg)
	}

	return c
}

// readyToTrip opens the breaker once minRequests calls have been observed and
// the failure ratio reaches the configured threshold. Unset values fall back
// to the package defaults.
func readyToTrip(ratio float64, minRequests uint32) func(counts gobreaker.Counts) bool {
	if ratio <= 0 {
		ratio = 0.5
	}
	if minRequests == 0 {
		minRequests = 3
	}
	return func(counts gobreaker.Counts) bool {
		failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= minRequests && failureRatio >= ratio
	}
}

func (c *HTTPClient) Send(ctx context.Context, req SendRequest) (*SendResponse, error) {
	start := time.Now()

	var resp *SendResponse
	var err error
	if c.breaker != nil {
		var result interface{}
		result, err = c.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
			return c.send(ctx, req)
		})
		if err == nil {
			resp = result.(*SendResponse)
		}
	} else {
		resp, err = c.send(ctx, req)
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.ObserveGatewayCall(time.Since(start), status)

	return resp, err
}

func (c *HTTPClient) send(ctx context.Context, req SendRequest) (*SendResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gateway request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway call failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return nil, fmt.Errorf("gateway returned status %d: %s", httpResp.StatusCode, snippet)
	}

	var resp SendResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	return &resp, nil
}
