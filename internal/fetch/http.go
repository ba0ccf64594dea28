package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/corbalt/fetchbench/internal/engine"
	"github.com/corbalt/fetchbench/internal/tracing"
)

// HTTPError represents an HTTP response outside the 2xx range.
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error: %s", e.Status)
}

// defaultUserAgents is rotated across requests to avoid trivial blocking
// during bulk fetches.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:127.0) Gecko/20100101 Firefox/127.0",
}

// HTTPFetcher is a UnitOfWork that performs a real GET per item. The item is
// used as the request URL; the response body is drained and its size
// returned so payload accounting matches the simulated path.
type HTTPFetcher struct {
	client     *http.Client
	userAgents []string
	next       atomic.Uint64
}

// HTTPOptions configure an HTTPFetcher.
type HTTPOptions struct {
	Client     *http.Client // optional; a tuned client is built when nil
	UserAgents []string     // optional rotation pool
}

// NewHTTPFetcher builds an HTTPFetcher. The default client leaves the
// overall timeout to the engine's per-item deadline.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	client := opts.Client
	if client == nil {
		client = NewClient(0)
	}
	agents := opts.UserAgents
	if len(agents) == 0 {
		agents = defaultUserAgents
	}
	return &HTTPFetcher{client: client, userAgents: agents}
}

// Process fetches one URL and returns the number of body bytes read.
func (f *HTTPFetcher) Process(ctx context.Context, item engine.WorkItem) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, string(item), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", f.userAgents[f.next.Add(1)%uint64(len(f.userAgents))])
	tracing.InjectHTTPHeaders(ctx, req.Header)

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	bytes, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return bytes, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return bytes, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return bytes, nil
}

// NewClient builds an HTTP client tuned for many concurrent fetches against
// a small set of hosts.
func NewClient(timeout time.Duration) *http.Client {
	if timeout < 0 {
		timeout = 0
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
