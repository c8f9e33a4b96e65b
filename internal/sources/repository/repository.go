// Package repository indexes the version folders of the submodel template
// repository by walking its branch archive.
package repository

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/smtindex/pkg/constants"
	"github.com/agentstation/smtindex/pkg/errors"
	"github.com/agentstation/smtindex/pkg/logging"
	"github.com/agentstation/smtindex/pkg/sources"
)

// Source downloads the repository archive, or reads a local copy of it,
// and lists its leaf version folders.
type Source struct {
	archiveURL  string
	archiveFile string
	layout      Layout
	client      *http.Client
	userAgent   string
	maxSize     int64
	clock       func() time.Time
}

// Option configures a repository source.
type Option func(*Source)

// WithArchiveURL sets the zip archive to download.
func WithArchiveURL(u string) Option {
	return func(s *Source) {
		if u != "" {
			s.archiveURL = u
		}
	}
}

// WithArchiveFile reads the archive from disk instead of downloading it.
func WithArchiveFile(path string) Option {
	return func(s *Source) {
		s.archiveFile = path
	}
}

// WithBaseURL sets the repository URL browse links are built from.
func WithBaseURL(u string) Option {
	return func(s *Source) {
		if u != "" {
			s.layout.BaseURL = u
		}
	}
}

// WithBranch sets the branch named in browse links.
func WithBranch(branch string) Option {
	return func(s *Source) {
		if branch != "" {
			s.layout.Branch = branch
		}
	}
}

// WithHTTPClient sets the HTTP client used for the download.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Source) {
		if c != nil {
			s.client = c
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *Source) {
		s.userAgent = ua
	}
}

// WithMaxSize caps the archive size in bytes.
func WithMaxSize(n int64) Option {
	return func(s *Source) {
		if n > 0 {
			s.maxSize = n
		}
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

// New creates a new repository source.
func New(opts ...Option) *Source {
	s := &Source{
		archiveURL: constants.RepositoryArchiveURL,
		layout: Layout{
			BaseURL: constants.RepositoryURL,
			Branch:  constants.RepositoryBranch,
		},
		client:    &http.Client{Timeout: constants.FetchTimeout},
		userAgent: constants.UserAgent,
		maxSize:   constants.MaxArchiveSize,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the source identifier.
func (s *Source) ID() sources.ID {
	return sources.RepositoryID
}

// Fetch retrieves the archive and lists its version folders. An archive
// without version folders yields an empty snapshot.
func (s *Source) Fetch(ctx context.Context) (*sources.Snapshot, error) {
	ctx = logging.WithSource(ctx, string(sources.RepositoryID))
	logger := logging.FromContext(ctx)

	data, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.WrapParse("zip", s.location(), err)
	}

	records := Walk(zr, s.layout)
	logger.Info().
		Str("archive", s.location()).
		Int("entries", len(zr.File)).
		Int("records", len(records)).
		Msg("Fetched repository")

	return &sources.Snapshot{
		Source: sources.RepositoryID,
		Metadata: sources.Metadata{
			URL:         s.layout.BaseURL,
			FetchedAt:   utc.New(s.clock()),
			RecordCount: len(records),
		},
		Repository: records,
	}, nil
}

func (s *Source) location() string {
	if s.archiveFile != "" {
		return s.archiveFile
	}
	return s.archiveURL
}

func (s *Source) load(ctx context.Context) ([]byte, error) {
	if s.archiveFile != "" {
		f, err := os.Open(s.archiveFile)
		if err != nil {
			return nil, errors.WrapIO("read", s.archiveFile, err)
		}
		defer func() { _ = f.Close() }()
		return s.readLimited(f)
	}
	return s.download(ctx)
}

func (s *Source) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.archiveURL, nil)
	if err != nil {
		return nil, errors.WrapResource("create", "request", s.archiveURL, err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.WrapFetch(string(sources.RepositoryID), s.archiveURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewFetchError(string(sources.RepositoryID), s.archiveURL, resp.StatusCode, resp.Status)
	}
	return s.readLimited(resp.Body)
}

func (s *Source) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return nil, errors.WrapIO("read", s.location(), err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, errors.NewFetchError(string(sources.RepositoryID), s.location(), 0,
			fmt.Sprintf("archive exceeds %d bytes", s.maxSize))
	}
	return data, nil
}
