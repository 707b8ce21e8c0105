// Package collyfetcher implements scraper.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/proxy"

	"github.com/scrapeworks/jobscraper/internal/scraper"
)

// Config controls collector behavior.
type Config struct {
	UserAgent    string
	Timeout      time.Duration
	IgnoreRobots bool
	// Proxies is a round-robin pool of proxy URLs, credentials embedded.
	Proxies     []string
	Parallelism int
	RandomDelay time.Duration
	MaxRetries  int
}

// Fetcher fetches pages over plain HTTP using the Colly collector. Each
// fetch clones the base collector so concurrent fetches share the pooled
// transport but nothing else.
type Fetcher struct {
	cfg           Config
	transport     http.RoundTripper
	proxyFunc     colly.ProxyFunc
	retry         *retryPolicy
	baseCollector *colly.Collector
}

// New builds a Fetcher. It fails when the proxy list contains an
// unparseable URL.
func New(cfg Config) (*Fetcher, error) {
	c := colly.NewCollector(colly.Async(false))
	transport := newHTTPTransport()
	c.WithTransport(transport)

	var proxyFunc colly.ProxyFunc
	if len(cfg.Proxies) > 0 {
		pf, err := proxy.RoundRobinProxySwitcher(cfg.Proxies...)
		if err != nil {
			return nil, fmt.Errorf("proxy switcher: %w", err)
		}
		proxyFunc = pf
	}

	return &Fetcher{
		cfg:           cfg,
		transport:     transport,
		proxyFunc:     proxyFunc,
		retry:         newRetryPolicy(cfg.MaxRetries),
		baseCollector: c,
	}, nil
}

// Fetch executes a single HTTP GET, retrying transport-level failures with
// jittered backoff up to the configured attempt cap.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*scraper.Page, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		page, err := f.fetchOnce(ctx, url)
		if err == nil {
			return page, nil
		}
		lastErr = err
		if !f.retry.shouldRetry(err, attempt) {
			break
		}
		if werr := f.retry.wait(ctx, attempt); werr != nil {
			return nil, werr
		}
	}
	return nil, lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (*scraper.Page, error) {
	var (
		page     *scraper.Page
		fetchErr error
	)
	collector := f.buildCollector(&page, &fetchErr)

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("colly visit failed: %w", err)
		}
		if fetchErr != nil {
			return nil, fmt.Errorf("colly response failed: %w", fetchErr)
		}
		if page == nil {
			return nil, fmt.Errorf("colly returned no response for %s", url)
		}
		return page, nil
	}
}

func (f *Fetcher) buildCollector(page **scraper.Page, fetchErr *error) *colly.Collector {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = f.cfg.IgnoreRobots

	timeout := f.cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collector.SetRequestTimeout(timeout)
	collector.WithTransport(f.transport)
	if f.proxyFunc != nil {
		collector.SetProxyFunc(f.proxyFunc)
	}
	if f.cfg.Parallelism > 0 || f.cfg.RandomDelay > 0 {
		if err := collector.Limit(&colly.LimitRule{
			DomainGlob:  "*",
			Parallelism: f.cfg.Parallelism,
			RandomDelay: f.cfg.RandomDelay,
		}); err != nil {
			*fetchErr = fmt.Errorf("set limit rule: %w", err)
		}
	}

	start := time.Now()
	collector.OnResponse(func(r *colly.Response) {
		parsed, err := scraper.NewPage(
			r.Request.URL.String(),
			r.StatusCode,
			append([]byte(nil), r.Body...),
			false,
		)
		if err != nil {
			*fetchErr = err
			return
		}
		parsed.Duration = time.Since(start)
		*page = parsed
	})
	collector.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
	return collector
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
