// Package source fetches candidate wines, prices and critic scores from
// public wine sites that offer no API.
package source

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/cellar-valuation/internal/resilience"
)

// DefaultUserAgent is a desktop browser identity. The sources serve
// stripped or challenge pages to obvious bots.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const maxBodyBytes = 4 << 20

// Response is a fully read HTTP response.
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       string
	Cookies    []*http.Cookie
}

// OK reports whether the response has a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Session is the HTTP client shared by every adapter. It applies browser
// headers, per-host rate limits, retries and a circuit breaker per source.
type Session struct {
	client     *http.Client
	noRedirect *http.Client
	userAgent  string
	rps        float64
	retry      resilience.RetryConfig
	breakers   *resilience.Breakers

	mu       sync.Mutex
	limiters map[string]*hostLimiter
}

// Option configures a Session.
type Option func(*Session)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) { s.client = c }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.client.Timeout = d
		}
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(s *Session) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithRateLimit caps requests per second to any single host. Zero or less
// disables limiting.
func WithRateLimit(rps float64) Option {
	return func(s *Session) { s.rps = rps }
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(s *Session) { s.retry = cfg }
}

// WithBreakers sets the circuit breaker registry.
func WithBreakers(b *resilience.Breakers) Option {
	return func(s *Session) { s.breakers = b }
}

// NewSession creates a Session with browser defaults.
func NewSession(opts ...Option) *Session {
	s := &Session{
		client:    &http.Client{Timeout: 20 * time.Second},
		userAgent: DefaultUserAgent,
		rps:       1,
		retry:     resilience.DefaultRetryConfig(),
		breakers:  resilience.NewBreakers(resilience.DefaultCircuitBreakerConfig()),
		limiters:  make(map[string]*hostLimiter),
	}
	for _, o := range opts {
		o(s)
	}
	nr := *s.client
	nr.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	s.noRedirect = &nr
	return s
}

// Breakers returns the session's circuit breaker registry.
func (s *Session) Breakers() *resilience.Breakers { return s.breakers }

// Get fetches rawURL following redirects.
func (s *Session) Get(ctx context.Context, source, rawURL string) (*Response, error) {
	return s.guarded(ctx, source, func(ctx context.Context) (*Response, error) {
		return s.fetch(ctx, s.client, source, rawURL, nil)
	})
}

// GetWithHandoff fetches rawURL without following redirects, then requests
// the Location target (or rawURL again) carrying the cookies set by the
// first response. Sites that gate search results behind a session cookie
// need this two-step exchange.
func (s *Session) GetWithHandoff(ctx context.Context, source, rawURL string) (*Response, error) {
	return s.guarded(ctx, source, func(ctx context.Context) (*Response, error) {
		first, err := s.fetch(ctx, s.noRedirect, source, rawURL, nil)
		if err != nil {
			return nil, err
		}

		target := rawURL
		if loc := first.Header.Get("Location"); loc != "" {
			resolved, err := resolveURL(rawURL, loc)
			if err != nil {
				return nil, err
			}
			target = resolved
		}
		return s.fetch(ctx, s.client, source, target, first.Cookies)
	})
}

func (s *Session) guarded(ctx context.Context, source string, fn func(context.Context) (*Response, error)) (*Response, error) {
	return resilience.ExecuteVal(ctx, s.breakers.Get(source), func(ctx context.Context) (*Response, error) {
		cfg := s.retry
		cfg.OnRetry = resilience.RetryLogger(source, "get")
		return resilience.DoVal(ctx, cfg, fn)
	})
}

// fetch performs one request. Retryable statuses come back as errors so
// the retry loop sees them; every other status is returned as a Response.
func (s *Session) fetch(ctx context.Context, client *http.Client, source, rawURL string, cookies []*http.Cookie) (*Response, error) {
	lim := s.limiterFor(rawURL)
	if err := lim.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "source: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "source: create request")
	}
	s.setHeaders(req)
	for _, c := range cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "source: get %s", rawURL)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "source: read body")
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		lim.OnRateLimit()
	}
	if err := resilience.CheckStatus(resp); err != nil && resilience.IsTransient(err) {
		if blocked, kind := DetectBlock(resp, body); blocked {
			zap.L().Warn("source: request blocked",
				zap.String("source", source),
				zap.String("url", rawURL),
				zap.String("block", string(kind)),
			)
		}
		return nil, err
	}
	lim.OnSuccess()

	return &Response{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       string(body),
		Cookies:    resp.Cookies(),
	}, nil
}

func (s *Session) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
}

func (s *Session) limiterFor(rawURL string) *hostLimiter {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.limiters[host]; ok {
		return l
	}
	l := newHostLimiter(s.rps)
	s.limiters[host] = l
	return l
}

func resolveURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", eris.Wrap(err, "source: parse base url")
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", eris.Wrap(err, "source: parse location")
	}
	return b.ResolveReference(r).String(), nil
}

// hostLimiter halves its rate on 429s and recovers by 20% per success, never
// exceeding the configured rate or dropping below a quarter of it.
type hostLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	initial rate.Limit
	current rate.Limit
}

func newHostLimiter(rps float64) *hostLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &hostLimiter{
		limiter: rate.NewLimiter(limit, 1),
		initial: limit,
		current: limit,
	}
}

func (h *hostLimiter) Wait(ctx context.Context) error {
	return h.limiter.Wait(ctx)
}

func (h *hostLimiter) OnRateLimit() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.initial == rate.Inf {
		return
	}
	h.current = max(h.current*0.5, h.initial/4)
	h.limiter.SetLimit(h.current)
	zap.L().Warn("source: reducing request rate after 429", zap.Float64("rps", float64(h.current)))
}

func (h *hostLimiter) OnSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.initial == rate.Inf || h.current >= h.initial {
		return
	}
	h.current = min(h.current*1.2, h.initial)
	h.limiter.SetLimit(h.current)
}

func (h *hostLimiter) Limit() rate.Limit {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}
