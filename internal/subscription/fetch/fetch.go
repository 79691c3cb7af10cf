// SPDX-License-Identifier: MIT

// Package fetch implements the Fetcher plugin kind (spec §4.2): acquiring
// raw bytes from a SubscriptionSource, either over HTTP or from a local
// file, under a bounded timeout.
package fetch

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/sboxsync/sboxsync/internal/log"
	"github.com/sboxsync/sboxsync/internal/registry"
	"github.com/sboxsync/sboxsync/internal/subscription/model"
	"github.com/sboxsync/sboxsync/internal/trace"
)

// DefaultTimeout bounds every fetch per spec §4.2/§5 ("default <=30s").
const DefaultTimeout = 30 * time.Second

// Fetcher acquires the raw bytes named by a SubscriptionSource.
type Fetcher interface {
	Fetch(ctx context.Context, source model.SubscriptionSource) ([]byte, error)
}

// Constructor builds a Fetcher from no arguments; fetchers are stateless
// enough that a zero-config constructor is sufficient for registration.
type Constructor func() Fetcher

// Registry holds the fetcher namespace (spec §4.1).
var Registry = registry.New[Constructor]("fetcher")

func init() {
	Registry.Register("http", func() Fetcher { return NewHTTPFetcher(nil) })
	Registry.Register("file", func() Fetcher { return NewFileFetcher() })
}

// newHardenedClient mirrors the teacher's internal/platform/httpx.NewClient:
// a hardened client with bounded dial/response/idle timeouts, never the
// package-level http.DefaultClient.
func newHardenedClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dialTimeout := timeout
	if dialTimeout > 5*time.Second {
		dialTimeout = 5 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          16,
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       30 * time.Second,
			TLSHandshakeTimeout:   dialTimeout,
			ResponseHeaderTimeout: dialTimeout,
			ExpectContinueTimeout: time.Second,
		},
	}
}

// HTTPFetcher issues an HTTP GET for url-based sources. A per-host rate
// limiter bounds how aggressively a single process re-fetches the same
// subscription host, matching the resource model in spec §5.
type HTTPFetcher struct {
	client   *http.Client
	timeout  time.Duration
	limiters map[string]*rate.Limiter
}

// NewHTTPFetcher builds an HTTPFetcher. A nil client gets a hardened default.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = newHardenedClient(DefaultTimeout)
	}
	return &HTTPFetcher{
		client:   client,
		timeout:  DefaultTimeout,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (f *HTTPFetcher) limiterFor(host string) *rate.Limiter {
	if l, ok := f.limiters[host]; ok {
		return l
	}
	// One fetch per second per host, bursting to 3 — generous enough for
	// interactive use, tight enough to protect a flaky upstream.
	l := rate.NewLimiter(rate.Limit(1), 3)
	f.limiters[host] = l
	return l
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, source model.SubscriptionSource) ([]byte, error) {
	logger := log.Component("fetch").With().Str(log.FieldTraceID, trace.Get(ctx)).Logger()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, err
	}

	if host := req.URL.Host; host != "" {
		if err := f.limiterFor(host).Wait(ctx); err != nil {
			return nil, err
		}
	}

	if value, send := source.UserAgent.Resolve(); send {
		req.Header.Set("User-Agent", value)
	}
	for k, v := range source.Headers {
		req.Header.Set(k, v)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	req = req.WithContext(ctx)

	logger.Debug().Str(log.FieldSourceType, string(source.Type)).Msg("fetching subscription")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return body, &HTTPStatusError{StatusCode: resp.StatusCode}
	}
	return body, nil
}

// HTTPStatusError wraps a non-2xx/3xx response so callers can still inspect
// the (possibly empty) body that came back with it.
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return http.StatusText(e.StatusCode)
}

// FileFetcher reads bytes directly from a local path.
type FileFetcher struct{}

// NewFileFetcher builds a FileFetcher.
func NewFileFetcher() *FileFetcher { return &FileFetcher{} }

// Fetch implements Fetcher. Empty files are allowed through — spec §4.2
// says empty responses pass to parsing, which may reject them.
func (f *FileFetcher) Fetch(_ context.Context, source model.SubscriptionSource) ([]byte, error) {
	return os.ReadFile(source.URL)
}
