package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

// Fetcher downloads a remote catalog. Each request is bounded by the
// fetcher timeout or the context deadline, whichever comes first.
type Fetcher struct {
	http           *fasthttp.Client
	defaultTimeout time.Duration
	userAgent      string
}

type Option func(*Fetcher)

func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.defaultTimeout = d
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.userAgent = ua }
}

func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		http:           &fasthttp.Client{ReadTimeout: 30 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 4},
		defaultTimeout: 10 * time.Second,
		userAgent:      "lootsync",
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch GETs url and returns a copy of the body. Non-2xx responses are errors.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(url)
	if f.userAgent != "" {
		req.Header.SetUserAgent(f.userAgent)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.http.DoDeadline(req, resp, f.computeDeadline(ctx)); err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("fetch catalog: status=%d body=%s", status, truncate(string(resp.Body()), 256))
	}
	return append([]byte(nil), resp.Body()...), nil
}

func (f *Fetcher) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(f.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
