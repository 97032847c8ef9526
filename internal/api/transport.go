package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/chapski-dev/bps-energy-mobile-sub000/internal/config"
	"github.com/chapski-dev/bps-energy-mobile-sub000/pkg/logger"
	"github.com/chapski-dev/bps-energy-mobile-sub000/pkg/metrics"
)

// Transport is the configured HTTP client all API calls go through: base
// URL, JSON defaults, bounded retry on network-level failures, and a
// token-bucket limiter on outgoing requests.
type Transport struct {
	base    string
	client  *retryablehttp.Client
	limiter *rate.Limiter
}

func NewTransport(cfg config.APIConfig) *Transport {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.HTTPClient.Timeout = cfg.RequestTimeout
	rc.Logger = nil
	rc.CheckRetry = idempotentRetryPolicy

	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 10
	}

	return &Transport{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		client:  rc,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// methodKey carries the request method into the retry policy; on
// connection-level failures resp is nil and the method is otherwise lost.
type methodKey struct{}

// idempotentRetryPolicy retries network-level failures and 5xx responses,
// but only for methods that are safe to resubmit. POSTs are never retried
// by the transport; recovery for those is the caller's decision.
func idempotentRetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	method, _ := ctx.Value(methodKey{}).(string)
	if !isIdempotent(method) {
		return false, nil
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	return resp.StatusCode >= 500 && resp.StatusCode != http.StatusNotImplemented, nil
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// DoJSON performs a JSON request against the backend. body and out may be
// nil; hdr entries override the defaults. Non-2xx responses come back as
// *APIError, connection-level failures wrap ErrNetwork.
func (t *Transport) DoJSON(ctx context.Context, method, path string, body, out interface{}, hdr http.Header) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}

	var raw []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		raw = b
	}

	req, err := retryablehttp.NewRequestWithContext(context.WithValue(ctx, methodKey{}, method), method, t.base+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, vs := range hdr {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		metrics.APIRequests.WithLabelValues("network_error").Inc()
		return fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		if resp.StatusCode >= 500 {
			metrics.APIRequests.WithLabelValues("server_error").Inc()
		} else {
			metrics.APIRequests.WithLabelValues("client_error").Inc()
		}
		logger.Debugf("api: %s %s -> %d (%s)", method, path, resp.StatusCode, apiErr.Message)
		return apiErr
	}

	metrics.APIRequests.WithLabelValues("ok").Inc()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
