// Package fetcher retrieves listing pages for the catalog builder.
package fetcher

import (
	"context"
	"errors"
	"fmt"
)

// PageFetcher returns the raw text of the page at url
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (string, error)
}

// FetcherFunc adapts a function to PageFetcher
type FetcherFunc func(ctx context.Context, url string) (string, error)

// FetchPage calls f(ctx, url)
func (f FetcherFunc) FetchPage(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}

var (
	// ErrTransport is matched by every TransportError
	ErrTransport = errors.New("could not reach listing source")

	// ErrDisallowed is wrapped when robots.txt forbids fetching a page
	ErrDisallowed = errors.New("disallowed by robots.txt")
)

// TransportError reports a page that could not be fetched: network failure,
// timeout, or a non-success status
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
}

// Is makes errors.Is(err, ErrTransport) true for any TransportError
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
