package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/pharmaguard-client/internal/domain"
)

// CorrelationHeader carries the correlation id of a submission.
const CorrelationHeader = "X-Correlation-ID"

// maxErrorBody bounds how much of a failed response is read for its detail.
const maxErrorBody = 64 * 1024

// serviceClient is the shared transport of the analysis and report clients:
// pacing, a circuit breaker, and error-body decoding.
type serviceClient struct {
	name       string
	baseURL    string
	httpClient *http.Client
	rateLimit  *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

func newServiceClient(name string, config domain.ServiceConfig, breaker CircuitBreakerConfig, logger *logrus.Logger) *serviceClient {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
	}
	return &serviceClient{
		name:    name,
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimit: rate.NewLimiter(limit, 1),
		breaker:   newCircuitBreaker(name, breaker, logger),
		logger:    logger,
	}
}

// endpoint joins the base URL and a path that keeps its trailing slash.
func (c *serviceClient) endpoint(path string) string {
	return c.baseURL + path
}

// post sends body to path through the limiter and the breaker and returns the
// response body of a 2xx answer.
func (c *serviceClient) post(ctx context.Context, path, contentType, accept string, body []byte) ([]byte, error) {
	if err := c.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	started := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s request: %w", c.name, err)
		}
		req.Header.Set("Content-Type", contentType)
		if accept != "" {
			req.Header.Set("Accept", accept)
		}
		if id := domain.CorrelationIDFrom(ctx); id != "" {
			req.Header.Set(CorrelationHeader, id)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s request failed: %w", c.name, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			return nil, &domain.ServiceError{
				Service:    c.name,
				StatusCode: resp.StatusCode,
				Detail:     parseDetail(errBody),
			}
		}

		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s response: %w", c.name, err)
		}
		return payload, nil
	})

	log := c.logger.WithFields(logrus.Fields{
		"service":        c.name,
		"path":           path,
		"duration":       time.Since(started),
		"correlation_id": domain.CorrelationIDFrom(ctx),
	})
	if err != nil {
		log.WithError(err).Debug("External call failed")
		return nil, err
	}
	log.Debug("External call completed")
	return result.([]byte), nil
}

// parseDetail extracts the "detail" member of an error body. A string detail
// is used as is; any other JSON value is passed through in compact form.
func parseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return text
	}
	if string(envelope.Detail) == "null" {
		return ""
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, envelope.Detail); err != nil {
		return ""
	}
	return compact.String()
}
