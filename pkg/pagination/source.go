package pagination

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ogulcanaydogan/miro-guardian/pkg/model"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// maxBodySize bounds how much of a single page response is read.
const maxBodySize = 32 << 20

// PageSource fetches a single page of a collection.
type PageSource interface {
	// Fetch performs one request for the page identified by token (empty
	// for the first page) and returns its records and continuation token.
	Fetch(ctx context.Context, endpoint, authToken string, style Style, token string) (*model.Page, error)
}

// HTTPSource is a PageSource backed by an HTTP client. It never retries.
type HTTPSource struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// SourceOption configures an HTTPSource.
type SourceOption func(*HTTPSource)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) SourceOption {
	return func(s *HTTPSource) {
		s.client = c
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) SourceOption {
	return func(s *HTTPSource) {
		if d > 0 {
			s.client.Timeout = d
		}
	}
}

// WithRateLimit paces requests to at most perSecond, allowing burst
// requests at once. A non-positive rate disables pacing.
func WithRateLimit(perSecond float64, burst int) SourceOption {
	return func(s *HTTPSource) {
		if perSecond <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) SourceOption {
	return func(s *HTTPSource) {
		s.userAgent = ua
	}
}

// NewHTTPSource creates an HTTP page source.
func NewHTTPSource(opts ...SourceOption) *HTTPSource {
	s := &HTTPSource{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		userAgent: "miroguard/1.0",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPSource) Fetch(ctx context.Context, endpoint, authToken string, style Style, token string) (*model.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, &model.CancelledError{Err: err}
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, &model.CancelledError{Err: ctxErr}
			}
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	target, err := style.RequestURL(endpoint, token)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", s.userAgent)
	(&oauth2.Token{AccessToken: authToken, TokenType: "Bearer"}).SetAuthHeader(req)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &model.CancelledError{Err: ctxErr}
		}
		return nil, fmt.Errorf("request %s: %w", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &model.CancelledError{Err: ctxErr}
		}
		return nil, fmt.Errorf("read response %s: %w", target, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &model.FetchError{URL: target, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &model.MalformedResponseError{URL: target, Err: err}
	}

	return &model.Page{
		Records:   env.Data,
		NextToken: style.NextToken(&env),
	}, nil
}
