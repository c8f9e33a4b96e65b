// Package registry fetches the template list published on the IDTA
// content hub.
package registry

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/agentstation/utc"
	"github.com/gocolly/colly/v2"

	"github.com/agentstation/smtindex/pkg/constants"
	"github.com/agentstation/smtindex/pkg/errors"
	"github.com/agentstation/smtindex/pkg/logging"
	"github.com/agentstation/smtindex/pkg/sources"
)

// Source scrapes registry records from the content hub. Pages are tried in
// order and the first page yielding records wins.
type Source struct {
	urls      []string
	timeout   time.Duration
	userAgent string
	domains   []string
	transport http.RoundTripper
	clock     func() time.Time
}

// Option configures a registry source.
type Option func(*Source)

// WithURLs sets the pages to try, in order.
func WithURLs(urls ...string) Option {
	return func(s *Source) {
		if len(urls) > 0 {
			s.urls = urls
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *Source) {
		s.userAgent = ua
	}
}

// WithAllowedDomains restricts the hosts the collector may visit.
func WithAllowedDomains(domains ...string) Option {
	return func(s *Source) {
		s.domains = domains
	}
}

// WithTransport sets the HTTP transport used by the collector.
func WithTransport(rt http.RoundTripper) Option {
	return func(s *Source) {
		s.transport = rt
	}
}

// WithClock sets the clock used to stamp fetches.
func WithClock(clock func() time.Time) Option {
	return func(s *Source) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New creates a new registry source.
func New(opts ...Option) *Source {
	s := &Source{
		urls:      []string{constants.RegistryURL, constants.RegistryURLEnglish},
		timeout:   constants.DefaultHTTPTimeout,
		userAgent: constants.UserAgent,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the source identifier.
func (s *Source) ID() sources.ID {
	return sources.RegistryID
}

// Fetch scrapes the configured pages. A page that loads but lists no
// templates is not an error: if no page yields records, an empty snapshot
// for the first page is returned. Fetch fails only when every page fails
// to load.
func (s *Source) Fetch(ctx context.Context) (*sources.Snapshot, error) {
	ctx = logging.WithSource(ctx, string(sources.RegistryID))
	logger := logging.FromContext(ctx)

	var (
		lastErr error
		loaded  bool
	)
	for _, pageURL := range s.urls {
		records, err := s.scrape(ctx, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.WrapFetch(string(sources.RegistryID), pageURL, ctx.Err())
			}
			logger.Warn().Err(err).Str("url", pageURL).Msg("Registry page failed")
			lastErr = err
			continue
		}
		loaded = true
		if len(records) == 0 {
			logger.Warn().Str("url", pageURL).Msg("Registry page lists no templates")
			continue
		}
		logger.Info().Str("url", pageURL).Int("records", len(records)).Msg("Fetched registry")
		return s.snapshot(pageURL, records), nil
	}

	if !loaded && lastErr != nil {
		return nil, lastErr
	}
	return s.snapshot(s.urls[0], nil), nil
}

func (s *Source) snapshot(pageURL string, records []sources.RegistryRecord) *sources.Snapshot {
	if records == nil {
		records = []sources.RegistryRecord{}
	}
	return &sources.Snapshot{
		Source: sources.RegistryID,
		Metadata: sources.Metadata{
			URL:         pageURL,
			FetchedAt:   utc.New(s.clock()),
			RecordCount: len(records),
		},
		Registry: records,
	}
}

// scrape loads one page and parses it.
func (s *Source) scrape(ctx context.Context, pageURL string) ([]sources.RegistryRecord, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, errors.NewFetchError(string(sources.RegistryID), pageURL, 0, "invalid url")
	}

	opts := []colly.CollectorOption{
		colly.UserAgent(s.userAgent),
		colly.StdlibContext(ctx),
	}
	if len(s.domains) > 0 {
		opts = append(opts, colly.AllowedDomains(s.domains...))
	}
	c := colly.NewCollector(opts...)
	c.SetRequestTimeout(s.timeout)
	if s.transport != nil {
		c.WithTransport(s.transport)
	}

	var (
		body     []byte
		fetchErr error
	)
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
		base = r.Request.URL
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = &errors.FetchError{
			Source:     string(sources.RegistryID),
			URL:        pageURL,
			StatusCode: r.StatusCode,
			Message:    err.Error(),
			Err:        err,
		}
	})

	if err := c.Visit(pageURL); err != nil && fetchErr == nil {
		fetchErr = errors.WrapFetch(string(sources.RegistryID), pageURL, err)
	}
	c.Wait()
	if fetchErr != nil {
		return nil, fetchErr
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, errors.WrapParse("html", pageURL, err)
	}
	return Parse(doc, base), nil
}
