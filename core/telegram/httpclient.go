package telegram

import (
	"log/slog"
	"net"
	"net/http"
	"path"
	"time"

	"github.com/m3rciful/walletbot/core/logger"
	"github.com/m3rciful/walletbot/core/telegram/netutil"
)

const (
	dialTimeout     = 5 * time.Second
	tlsTimeout      = 5 * time.Second
	idleConnTimeout = 30 * time.Second
	keepAlive       = 30 * time.Second
	// headerSlack is what a Bot API call may take on top of the long-poll wait.
	headerSlack = 5 * time.Second

	defaultRetryAttempts = 3
	defaultRetryBackoff  = 2 * time.Second
)

// HTTPClientOptions tune BuildHTTPClient. Zero values select defaults.
type HTTPClientOptions struct {
	// LongPoll is the getUpdates wait; response deadlines are stretched past it.
	LongPoll     time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// BuildHTTPClient returns an HTTP client for Bot API calls that retries transient network
// failures.
func BuildHTTPClient(opts HTTPClientOptions) *http.Client {
	if opts.LongPoll <= 0 {
		opts.LongPoll = defaultLongPollSeconds * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultRetryAttempts
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaultRetryBackoff
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: keepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   tlsTimeout,
		ResponseHeaderTimeout: opts.LongPoll + headerSlack,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout: opts.LongPoll + 4*headerSlack,
		Transport: &retryTransport{
			base:       transport,
			maxRetries: opts.MaxRetries,
			backoff:    opts.RetryBackoff,
		},
	}
}

// retryTransport replays requests that failed before a response arrived. Requests whose
// body cannot be rewound are not replayed.
type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	ctx := req.Context()

	for attempt := 1; ; attempt++ {
		resp, err := base.RoundTrip(req)
		if err == nil {
			return resp, nil
		}
		if attempt > t.maxRetries || !netutil.ShouldRetry(err) {
			return nil, err
		}
		next, rewindErr := rewind(req)
		if rewindErr != nil {
			return nil, err
		}

		delay := t.backoff * time.Duration(attempt)
		logger.Warn(ctx, componentTG, "http.retry",
			slog.String("status", "retry"),
			slog.String("method", path.Base(req.URL.Path)),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", delay),
			slog.String("err", netutil.Redact(err)),
		)
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
		req = next
	}
}

// rewind clones req with a fresh body.
func rewind(req *http.Request) (*http.Request, error) {
	next := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return next, nil
	}
	if req.GetBody == nil {
		return nil, http.ErrBodyNotAllowed
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	next.Body = body
	return next, nil
}
