/*
Copyright 2025 The memofetch authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/opencontainers/go-digest"

	"github.com/memofetch/memofetch/cache"
	"github.com/memofetch/memofetch/memoize"
)

// ErrFileNotFound is an error type used to signal 404 HTTP status code responses.
var ErrFileNotFound = errors.New("file not found")

// TextFetcher holds the HTTP client that retries with back off when
// the file server is offline.
type TextFetcher struct {
	httpClient      *retryablehttp.Client
	maxResponseSize int64
}

type fetcherOptions struct {
	retries         int
	retryWaitMin    time.Duration
	retryWaitMax    time.Duration
	maxResponseSize int64
	logger          *logr.Logger
	storeOpts       []cache.Options
}

// Option is a function that configures the fetcher.
type Option func(*fetcherOptions)

// WithRetries sets the maximum number of retries for transient HTTP errors.
func WithRetries(retries int) Option {
	return func(o *fetcherOptions) {
		o.retries = retries
	}
}

// WithRetryWait sets the bounds for the wait between retries.
func WithRetryWait(min, max time.Duration) Option {
	return func(o *fetcherOptions) {
		o.retryWaitMin = min
		o.retryWaitMax = max
	}
}

// WithMaxResponseSize limits the number of response body bytes the
// fetcher is willing to read. Responses larger than the limit fail the
// fetch. Zero or negative means no limit.
func WithMaxResponseSize(size int64) Option {
	return func(o *fetcherOptions) {
		o.maxResponseSize = size
	}
}

// WithLogger sets the logger the HTTP retry loop reports errors to.
// Without a logger the retry loop is silent.
func WithLogger(logger logr.Logger) Option {
	return func(o *fetcherOptions) {
		o.logger = &logger
	}
}

// WithStoreOptions sets the options for the result store of a
// MemoizedFetcher, e.g. a metrics registerer. It has no effect on a
// plain TextFetcher.
func WithStoreOptions(opts ...cache.Options) Option {
	return func(o *fetcherOptions) {
		o.storeOpts = opts
	}
}

// NewTextFetcher configures the retryable HTTP client used for fetching
// content.
func NewTextFetcher(opts ...Option) *TextFetcher {
	o := fetcherOptions{
		retries:      3,
		retryWaitMin: 5 * time.Second,
		retryWaitMax: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}

	httpClient := retryablehttp.NewClient()
	httpClient.RetryWaitMin = o.retryWaitMin
	httpClient.RetryWaitMax = o.retryWaitMax
	httpClient.RetryMax = o.retries
	httpClient.Logger = nil
	if o.logger != nil {
		httpClient.Logger = newRetryLogger(*o.logger)
	}

	return &TextFetcher{
		httpClient:      httpClient,
		maxResponseSize: o.maxResponseSize,
	}
}

// Fetch downloads the content at the given URL and returns it as a
// string. If the file server responds with 5xx errors, the download
// operation is retried. If the file server responds with 404, the
// returned error is ErrFileNotFound. The fetcher adds no timeout of its
// own; cancellation and deadlines are taken from the passed context.
func (f *TextFetcher) Fetch(ctx context.Context, contentURL string) (string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, contentURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create a new request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download content, error: %w", err)
	}
	defer resp.Body.Close()

	if code := resp.StatusCode; code != http.StatusOK {
		if code == http.StatusNotFound {
			return "", ErrFileNotFound
		}
		return "", fmt.Errorf("failed to download content from %s, status: %s", contentURL, resp.Status)
	}

	var body strings.Builder
	if f.maxResponseSize > 0 {
		// Headers can lie, so instead of trusting resp.ContentLength,
		// limit the download to the max response size and error in case
		// there are still bytes left.
		// Note that discarding of remaining bytes in resp.Body is a
		// requirement for Go to effectively reuse HTTP connections.
		_, err = io.Copy(&body, io.LimitReader(resp.Body, f.maxResponseSize))
		n, _ := io.Copy(io.Discard, resp.Body)
		if n > 0 {
			return "", fmt.Errorf("content is %d bytes greater than the max response size of %d bytes", n, f.maxResponseSize)
		}
	} else {
		_, err = io.Copy(&body, resp.Body)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	return body.String(), nil
}

// FetchWithDigest downloads the content at the given URL and verifies it
// against the expected digest before returning it.
func (f *TextFetcher) FetchWithDigest(ctx context.Context, contentURL string, expected digest.Digest) (string, error) {
	if err := expected.Validate(); err != nil {
		return "", fmt.Errorf("invalid digest: %w", err)
	}

	body, err := f.Fetch(ctx, contentURL)
	if err != nil {
		return "", err
	}

	verifier := expected.Verifier()
	if _, err := verifier.Write([]byte(body)); err != nil {
		return "", err
	}
	if !verifier.Verified() {
		return "", fmt.Errorf("failed to verify content from %s: computed digest doesn't match expected %s", contentURL, expected)
	}

	return body, nil
}

// MemoizedFetcher is a TextFetcher whose results are memoized per URL in
// a bounded LRU store. The content of a URL is downloaded at most once
// while its key remains in the store; failed downloads are not stored,
// so they are retried on the next call.
type MemoizedFetcher struct {
	memo *memoize.Memoizer[string]
}

// NewMemoizedFetcher returns a MemoizedFetcher holding at most capacity
// fetched documents. A capacity of cache.Unbounded disables eviction.
func NewMemoizedFetcher(capacity int, opts ...Option) (*MemoizedFetcher, error) {
	var o fetcherOptions
	for _, opt := range opts {
		opt(&o)
	}

	fetcher := NewTextFetcher(opts...)
	store, err := cache.NewLRU[memoize.Outcome[string]](capacity, o.storeOpts...)
	if err != nil {
		return nil, err
	}
	memo, err := memoize.New(store, fetcher.Fetch)
	if err != nil {
		return nil, err
	}
	return &MemoizedFetcher{memo: memo}, nil
}

// Fetch returns the content for the given URL, downloading it only if no
// result for the URL is stored.
func (f *MemoizedFetcher) Fetch(ctx context.Context, contentURL string) (string, error) {
	return f.memo.Do(ctx, contentURL)
}
