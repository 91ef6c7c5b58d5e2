// Package prewarmer provides cache prewarming and prefetching capabilities
// for a volley.RequestQueue. It allows proactive cache population before
// requests arrive, reducing initial latency for known critical resources.
package prewarmer

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/volley-go/volley"
	"github.com/volley-go/volley/cachecontrol"
)

// Prewarmer proactively loads URLs through a RequestQueue so their
// responses are already cached by the time real traffic requests them.
type Prewarmer struct {
	queue         *volley.RequestQueue
	sitemapClient *http.Client
	userAgent     string
	timeout       time.Duration
	forceRefresh  bool
}

// Config holds configuration options for the Prewarmer.
type Config struct {
	// Queue is the RequestQueue to prewarm through. Required; must already
	// be Start-ed.
	Queue *volley.RequestQueue

	// SitemapClient is the HTTP client used to fetch and parse sitemap XML
	// documents. Sitemap retrieval itself is not cached through Queue,
	// since a sitemap is consulted once per prewarm run rather than
	// repeatedly by application traffic. Optional - defaults to
	// http.DefaultClient.
	SitemapClient *http.Client

	// UserAgent is the User-Agent string to use for requests.
	// Optional - defaults to "volley-prewarmer/1.0".
	UserAgent string

	// Timeout is the timeout for each individual request.
	// Optional - defaults to 30 seconds.
	Timeout time.Duration

	// ForceRefresh, when true, adds a Cache-Control: no-cache header to each
	// request sent to the origin. The queue's cache lookup does not read
	// request headers, so a URL whose cached entry is still fresh is
	// delivered from the cache and no request is sent for it.
	// Optional - defaults to false.
	ForceRefresh bool
}

// Result represents the result of a prewarm operation.
type Result struct {
	// URL is the URL that was processed.
	URL string

	// Success indicates whether the prewarm was successful.
	Success bool

	// StatusCode is the HTTP status code returned, if known.
	StatusCode int

	// Duration is how long the request took.
	Duration time.Duration

	// Size is the response body size in bytes.
	Size int64

	// Error is the error if the request failed.
	Error error

	// FromCache indicates the response was already present in cache.
	FromCache bool
}

// Stats contains aggregate statistics from a prewarm operation.
type Stats struct {
	// Total is the total number of URLs processed.
	Total int

	// Successful is the number of successful requests.
	Successful int

	// Failed is the number of failed requests.
	Failed int

	// FromCache is the number of responses already cached.
	FromCache int

	// TotalDuration is the total elapsed time for the operation.
	TotalDuration time.Duration

	// TotalBytes is the total bytes downloaded.
	TotalBytes int64

	// Errors contains all errors encountered.
	Errors []error
}

// ProgressCallback is called after each URL is processed.
type ProgressCallback func(result *Result, completed, total int)

// New creates a new Prewarmer with the given configuration.
func New(config Config) (*Prewarmer, error) {
	if config.Queue == nil {
		return nil, errors.New("prewarmer: queue is required")
	}

	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = "volley-prewarmer/1.0"
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	sitemapClient := config.SitemapClient
	if sitemapClient == nil {
		sitemapClient = http.DefaultClient
	}

	return &Prewarmer{
		queue:         config.Queue,
		sitemapClient: sitemapClient,
		userAgent:     userAgent,
		timeout:       timeout,
		forceRefresh:  config.ForceRefresh,
	}, nil
}

// Prewarm loads the given URLs into the cache sequentially, returning
// aggregate statistics about the operation.
func (p *Prewarmer) Prewarm(ctx context.Context, urls []string) (*Stats, error) {
	return p.PrewarmWithCallback(ctx, urls, nil)
}

// PrewarmWithCallback loads URLs sequentially and calls the callback after each.
func (p *Prewarmer) PrewarmWithCallback(ctx context.Context, urls []string, callback ProgressCallback) (*Stats, error) {
	stats := &Stats{Total: len(urls)}
	startTime := time.Now()

	for i, url := range urls {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		result := p.fetchURL(ctx, url)
		recordResult(stats, result)

		if callback != nil {
			callback(result, i+1, len(urls))
		}
	}

	stats.TotalDuration = time.Since(startTime)
	return stats, nil
}

// PrewarmConcurrent loads URLs with controlled concurrency. The workers
// parameter specifies the number of concurrent goroutines issuing requests
// against Queue.
func (p *Prewarmer) PrewarmConcurrent(ctx context.Context, urls []string, workers int) (*Stats, error) {
	return p.PrewarmConcurrentWithCallback(ctx, urls, workers, nil)
}

// PrewarmConcurrentWithCallback loads URLs concurrently and calls the callback
// after each. The callback runs on the calling goroutine, once per result, in
// completion order.
func (p *Prewarmer) PrewarmConcurrentWithCallback(ctx context.Context, urls []string, workers int, callback ProgressCallback) (*Stats, error) {
	if workers <= 0 {
		workers = 1
	}

	stats := &Stats{Total: len(urls)}
	startTime := time.Now()

	urlChan := make(chan string, len(urls))
	for _, url := range urls {
		urlChan <- url
	}
	close(urlChan)

	resultChan := make(chan *Result, len(urls))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for url := range urlChan {
				select {
				case <-ctx.Done():
					return
				default:
				}
				resultChan <- p.fetchURL(ctx, url)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var mu sync.Mutex
	var completed int32
	for result := range resultChan {
		mu.Lock()
		recordResult(stats, result)
		mu.Unlock()

		n := atomic.AddInt32(&completed, 1)
		if callback != nil {
			callback(result, int(n), len(urls))
		}
	}

	stats.TotalDuration = time.Since(startTime)
	return stats, nil
}

// PrewarmFromSitemap parses an XML sitemap and prewarms all URLs found.
func (p *Prewarmer) PrewarmFromSitemap(ctx context.Context, sitemapURL string) (*Stats, error) {
	return p.PrewarmFromSitemapWithCallback(ctx, sitemapURL, 1, nil)
}

// PrewarmFromSitemapConcurrent parses an XML sitemap and prewarms with concurrency.
func (p *Prewarmer) PrewarmFromSitemapConcurrent(ctx context.Context, sitemapURL string, workers int) (*Stats, error) {
	return p.PrewarmFromSitemapWithCallback(ctx, sitemapURL, workers, nil)
}

// PrewarmFromSitemapWithCallback parses a sitemap and prewarms with callback.
func (p *Prewarmer) PrewarmFromSitemapWithCallback(ctx context.Context, sitemapURL string, workers int, callback ProgressCallback) (*Stats, error) {
	urls, err := p.parseSitemap(ctx, sitemapURL)
	if err != nil {
		return nil, fmt.Errorf("prewarmer: failed to parse sitemap: %w", err)
	}

	if workers <= 1 {
		return p.PrewarmWithCallback(ctx, urls, callback)
	}
	return p.PrewarmConcurrentWithCallback(ctx, urls, workers, callback)
}

func recordResult(stats *Stats, result *Result) {
	if result.Success {
		stats.Successful++
		stats.TotalBytes += result.Size
		if result.FromCache {
			stats.FromCache++
		}
		return
	}
	stats.Failed++
	if result.Error != nil {
		stats.Errors = append(stats.Errors, result.Error)
	}
}

// fetchURL drives a single request through Queue and blocks until its
// final response is delivered.
func (p *Prewarmer) fetchURL(ctx context.Context, url string) *Result {
	result := &Result{URL: url}

	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	startTime := time.Now()
	done := make(chan struct{})

	req := cachecontrol.NewStringRequest(http.MethodGet, url, func(resp volley.Response[string]) {
		result.Duration = time.Since(startTime)
		if resp.Err != nil {
			result.Error = resp.Err
			var verr *volley.Error
			if errors.As(resp.Err, &verr) {
				result.StatusCode = verr.StatusCode
			}
		} else {
			result.Success = true
			result.Size = int64(len(resp.Result))
			result.FromCache = resp.CacheEntry != nil
			result.StatusCode = http.StatusOK
		}
		close(done)
	})
	headers := http.Header{}
	headers.Set("User-Agent", p.userAgent)
	if p.forceRefresh {
		headers.Set("Cache-Control", "no-cache")
	}
	req.Headers = func(context.Context) (http.Header, error) { return headers, nil }

	p.queue.Add(req)

	select {
	case <-done:
	case <-reqCtx.Done():
		result.Error = reqCtx.Err()
	}

	return result
}

// Sitemap represents an XML sitemap structure.
type Sitemap struct {
	XMLName xml.Name     `xml:"urlset"`
	URLs    []SitemapURL `xml:"url"`
}

// SitemapURL represents a single URL entry in a sitemap.
type SitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// SitemapIndex represents an XML sitemap index structure.
type SitemapIndex struct {
	XMLName  xml.Name          `xml:"sitemapindex"`
	Sitemaps []SitemapLocation `xml:"sitemap"`
}

// SitemapLocation represents a sitemap reference in a sitemap index.
type SitemapLocation struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

// parseSitemap fetches and parses an XML sitemap, returning all URLs. It
// supports both regular sitemaps and sitemap indexes. Sitemap retrieval
// bypasses Queue; see SitemapClient.
func (p *Prewarmer) parseSitemap(ctx context.Context, sitemapURL string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sitemapURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.sitemapClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // best effort cleanup

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sitemap returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var sitemapIndex SitemapIndex
	if err := xml.Unmarshal(body, &sitemapIndex); err == nil && len(sitemapIndex.Sitemaps) > 0 {
		var allURLs []string
		for _, sm := range sitemapIndex.Sitemaps {
			urls, err := p.parseSitemap(ctx, sm.Loc)
			if err != nil {
				continue
			}
			allURLs = append(allURLs, urls...)
		}
		return allURLs, nil
	}

	var sitemap Sitemap
	if err := xml.Unmarshal(body, &sitemap); err != nil {
		return nil, fmt.Errorf("failed to parse sitemap XML: %w", err)
	}

	urls := make([]string, 0, len(sitemap.URLs))
	for _, u := range sitemap.URLs {
		loc := strings.TrimSpace(u.Loc)
		if loc != "" {
			urls = append(urls, loc)
		}
	}
	return urls, nil
}
