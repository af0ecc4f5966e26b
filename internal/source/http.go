package source

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/fillbot/gofill/internal/domain"
)

// HTTPConfig carries the knobs for the remote fills API.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Retries int
}

// HTTPSource fetches fills from the REST API at GET {base}/fills. resty
// picks proxy settings up from the environment (HTTP_PROXY / HTTPS_PROXY).
type HTTPSource struct {
	client *resty.Client
	apiKey string
}

// NewHTTPSource builds the client. Transport-level retries and the
// Retry-After handling below are the source's own posture; the processor
// still sees at most one Fetch per query.
func NewHTTPSource(cfg HTTPConfig) *HTTPSource {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(10 * time.Second).
		SetRetryAfter(func(client *resty.Client, resp *resty.Response) (time.Duration, error) {
			// On 429, honor the Retry-After header when present.
			if resp.StatusCode() == http.StatusTooManyRequests {
				if retryAfter := resp.Header().Get("Retry-After"); retryAfter != "" {
					if d, err := time.ParseDuration(retryAfter + "s"); err == nil {
						return d, nil
					}
				}
				return 10 * time.Second, nil
			}
			return 0, nil
		})
	return &HTTPSource{client: client, apiKey: cfg.APIKey}
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context, start, end int64) ([]domain.Fill, error) {
	var fills []domain.Fill
	req := s.client.R().
		SetContext(ctx).
		SetQueryParam("start", strconv.FormatInt(start, 10)).
		SetQueryParam("end", strconv.FormatInt(end, 10)).
		SetResult(&fills)
	if s.apiKey != "" {
		req.SetHeader("X-API-Key", s.apiKey)
	}

	resp, err := req.Get("/fills")
	if err != nil {
		return nil, errors.Wrapf(err, "fills api [%d, %d]", start, end)
	}
	if !resp.IsSuccess() {
		return nil, errors.Errorf("fills api [%d, %d]: %d %s",
			start, end, resp.StatusCode(), strings.TrimSpace(string(resp.Body())))
	}
	return fills, nil
}
