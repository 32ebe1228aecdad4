// Package remote reads containers served over HTTP.
//
// A Source issues one range request per read, so it is usually wrapped in
// a memory.BlockSource before index tables are parsed from it.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

// ErrRangeUnsupported is returned when the server ignores Range headers.
var ErrRangeUnsupported = errors.New("remote: range requests not supported")

// Source implements random access reads over HTTP range requests.
// It satisfies archive.ByteSource and cache.RangeReader.
type Source struct {
	url         string
	client      *http.Client
	headers     http.Header
	logger      *slog.Logger
	size        int64
	etag        string
	sourceID    string
	conditional bool
}

// Option configures a Source.
type Option func(*Source)

// WithClient sets the HTTP client used for requests.
func WithClient(client *http.Client) Option {
	return func(s *Source) {
		s.client = client
	}
}

// WithHeader sets a header on each request.
func WithHeader(key, value string) Option {
	return func(s *Source) {
		if s.headers == nil {
			s.headers = make(http.Header)
		}
		s.headers.Set(key, value)
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

// WithConditionalReads sends If-Match with every range request once the
// server has reported an ETag, so a container replaced mid-read fails
// instead of mixing bytes from two versions.
func WithConditionalReads() Option {
	return func(s *Source) {
		s.conditional = true
	}
}

// NewSource probes url with a one-byte range request to learn the
// container size and validator.
func NewSource(ctx context.Context, url string, opts ...Option) (*Source, error) {
	s := &Source{url: url, client: http.DefaultClient}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = http.DefaultClient
	}

	resp, err := s.get(ctx, 0, 0, false)
	if err != nil {
		return nil, err
	}
	defer drain(resp.Body)
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	s.size, err = parseContentRange(resp.Header.Get("Content-Range"))
	if err != nil {
		return nil, err
	}
	s.etag = resp.Header.Get("ETag")
	if s.etag != "" {
		s.sourceID = fmt.Sprintf("url:%s|etag:%s", s.url, s.etag)
	} else {
		s.sourceID = fmt.Sprintf("url:%s|mod:%s|size:%d", s.url, resp.Header.Get("Last-Modified"), s.size)
	}
	s.log().Debug("opened remote container", "url", s.url, "size", s.size)
	return s, nil
}

// Size returns the total size of the remote container.
func (s *Source) Size() int64 {
	return s.size
}

// SourceID identifies the remote container version.
func (s *Source) SourceID() string {
	return s.sourceID
}

// ReadRange returns a reader for [off, off+length), clamped to the
// container size. Reading at or past the end returns io.EOF. The caller
// must close the reader.
func (s *Source) ReadRange(off, length int64) (io.ReadCloser, error) {
	return s.ReadRangeContext(context.Background(), off, length)
}

// ReadRangeContext is ReadRange with a caller-supplied context.
func (s *Source) ReadRangeContext(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	switch {
	case length < 0:
		return nil, fmt.Errorf("read range length %d: negative length", length)
	case off < 0:
		return nil, fmt.Errorf("read range %d: negative offset", off)
	case length == 0:
		return io.NopCloser(bytes.NewReader(nil)), nil
	case off >= s.size:
		return io.NopCloser(bytes.NewReader(nil)), io.EOF
	}
	length = min(length, s.size-off)

	resp, err := s.get(ctx, off, off+length-1, s.conditional)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusPreconditionFailed {
		drain(resp.Body)
		return nil, fmt.Errorf("remote: %s changed since it was opened", s.url)
	}
	if resp.StatusCode == http.StatusRequestedRangeNotSatisfiable {
		drain(resp.Body)
		return io.NopCloser(bytes.NewReader(nil)), io.EOF
	}
	if err := checkStatus(resp); err != nil {
		drain(resp.Body)
		return nil, err
	}
	return &rangeBody{body: resp.Body, Reader: io.LimitReader(resp.Body, length)}, nil
}

// ReadAt reads len(p) bytes at off. If fewer bytes remain it returns
// them together with io.EOF.
func (s *Source) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 {
		return 0, fmt.Errorf("read at %d: negative offset", off)
	}
	if off >= s.size {
		return 0, io.EOF
	}
	expected := int(min(int64(len(p)), s.size-off))

	rc, err := s.ReadRange(off, int64(expected))
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	n, err := io.ReadFull(rc, p[:expected])
	if err != nil {
		return n, err
	}
	if expected < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s *Source) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}

func (s *Source) get(ctx context.Context, off, end int64, conditional bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return nil, err
	}
	for key, values := range s.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("Accept-Encoding", "identity")
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, end))
	if conditional && s.etag != "" {
		req.Header.Set("If-Match", s.etag)
	}
	s.log().Debug("range request", "url", s.url, "off", off, "end", end)
	return s.client.Do(req)
}

func checkStatus(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusPartialContent:
		return nil
	case http.StatusOK:
		return ErrRangeUnsupported
	case http.StatusNotFound:
		return fmt.Errorf("remote: %s: %w", resp.Request.URL, fs.ErrNotExist)
	default:
		return fmt.Errorf("remote: range request failed: %s", resp.Status)
	}
}

// drain discards the rest of body so the connection can be reused.
func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body) //nolint:errcheck // best-effort drain for connection reuse
	_ = body.Close()
}

type rangeBody struct {
	io.Reader
	body io.ReadCloser
}

func (r *rangeBody) Close() error {
	drain(r.body)
	return nil
}

// parseContentRange returns the complete length from a Content-Range
// value of the form "bytes start-end/size".
func parseContentRange(value string) (int64, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(value), "bytes ")
	if !ok {
		return 0, fmt.Errorf("remote: invalid Content-Range %q", value)
	}
	_, total, ok := strings.Cut(rest, "/")
	if !ok {
		return 0, fmt.Errorf("remote: invalid Content-Range %q", value)
	}
	size, err := strconv.ParseInt(total, 10, 64)
	if err != nil || size < 0 {
		return 0, fmt.Errorf("remote: invalid Content-Range %q", value)
	}
	return size, nil
}
