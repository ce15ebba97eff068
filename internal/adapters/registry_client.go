package adapters

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"app-installer/internal/shared"
)

const defaultRegistryTimeout = 15 * time.Second
const defaultRegistryRetries = 3
const defaultRegistryRetryDelay = 500 * time.Millisecond
const maxRegistryRetryDelay = 4 * time.Second
const maxRegistryBody = 8 << 20

const registryUserAgent = "app-installer-verifier/1.0"

type registryRetryConfig struct {
	timeout   time.Duration
	retries   int
	baseDelay time.Duration
}

func normalizeRegistryConfig(timeoutSec int, retries int, delayMs int) registryRetryConfig {
	timeout := time.Duration(timeoutSec) * time.Second
	if timeout <= 0 {
		timeout = defaultRegistryTimeout
	}
	retryCount := retries
	if retryCount <= 0 {
		retryCount = defaultRegistryRetries
	}
	baseDelay := time.Duration(delayMs) * time.Millisecond
	if baseDelay <= 0 {
		baseDelay = defaultRegistryRetryDelay
	}
	return registryRetryConfig{
		timeout:   timeout,
		retries:   retryCount,
		baseDelay: baseDelay,
	}
}

type registryResponse struct {
	status int
	body   []byte
}

// registryClient issues GET requests against public registries. Transport
// errors, 429 and 5xx responses are retried with jittered exponential
// backoff; every other response is returned to the caller as is.
type registryClient struct {
	http *http.Client
	cfg  registryRetryConfig
}

func newRegistryClient(cfg registryRetryConfig) registryClient {
	return registryClient{
		http: &http.Client{Timeout: cfg.timeout},
		cfg:  cfg,
	}
}

func (c registryClient) get(ctx context.Context, url string, headers map[string]string) (registryResponse, error) {
	attempt := 0
	operation := func() (registryResponse, error) {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return registryResponse{}, backoff.Permanent(errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to create request").
				WithCause(err))
		}
		req.Header.Set("User-Agent", registryUserAgent)
		for key, value := range headers {
			req.Header.Set(key, value)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return registryResponse{}, backoff.Permanent(ctx.Err())
			}
			log.Ctx(ctx).Debug().Err(err).Str("url", url).Int("attempt", attempt).Msg("registry request failed")
			return registryResponse{}, err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxRegistryBody))
		if err != nil {
			return registryResponse{}, err
		}
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			log.Ctx(ctx).Debug().Int("status", resp.StatusCode).Str("url", url).Int("attempt", attempt).Msg("registry request retryable")
			return registryResponse{}, shared.HTTPStatusErrorWithBody(resp.StatusCode, url, truncate(string(body), 200))
		}
		return registryResponse{status: resp.StatusCode, body: body}, nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.cfg.retries-1)), ctx)
	resp, err := backoff.RetryWithData(operation, policy)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return registryResponse{}, ctxErr
		}
		return registryResponse{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("registry request failed").
			WithCause(err)
	}
	return resp, nil
}

// getJSON decodes a 200 response into out. A 404 is a clean not-found and
// returns false without error; any other status is an error.
func (c registryClient) getJSON(ctx context.Context, url string, headers map[string]string, out any) (bool, error) {
	resp, err := c.get(ctx, url, headers)
	if err != nil {
		return false, err
	}
	switch resp.status {
	case http.StatusOK:
	case http.StatusNotFound:
		return false, nil
	default:
		if len(resp.body) == 0 {
			return false, shared.HTTPStatusError(resp.status, url)
		}
		return false, shared.HTTPStatusErrorWithBody(resp.status, url, truncate(string(resp.body), 200))
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("malformed registry response from " + url).
			WithCause(err)
	}
	return true, nil
}

func (c registryClient) newBackOff() backoff.BackOff {
	return backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(c.cfg.baseDelay),
		backoff.WithMultiplier(2),
		backoff.WithMaxInterval(maxRegistryRetryDelay),
	)
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}
