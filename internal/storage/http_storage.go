package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "go-image-enhancer/internal/errors"
	"go-image-enhancer/internal/media"
)

// ImageFetcher downloads an image for upload-by-URL
type ImageFetcher interface {
	Fetch(ctx context.Context, imageURL string) (media.Raw, error)
}

// FetcherOptions tunes the HTTP fetcher
type FetcherOptions struct {
	Timeout    time.Duration
	MaxBytes   int64
	Attempts   int
	RetryDelay time.Duration
}

// DefaultFetcherOptions returns the options used by the service
func DefaultFetcherOptions() FetcherOptions {
	return FetcherOptions{
		Timeout:    15 * time.Second,
		MaxBytes:   10 * 1024 * 1024,
		Attempts:   3,
		RetryDelay: time.Second,
	}
}

// HTTPImageFetcher implements ImageFetcher with retries on transient failures
type HTTPImageFetcher struct {
	client  *http.Client
	options FetcherOptions
}

// NewHTTPImageFetcher creates an HTTP image fetcher
func NewHTTPImageFetcher(options FetcherOptions) *HTTPImageFetcher {
	defaults := DefaultFetcherOptions()
	if options.Timeout <= 0 {
		options.Timeout = defaults.Timeout
	}
	if options.MaxBytes <= 0 {
		options.MaxBytes = defaults.MaxBytes
	}
	if options.Attempts <= 0 {
		options.Attempts = defaults.Attempts
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,
	}

	return &HTTPImageFetcher{
		options: options,
		client: &http.Client{
			Transport: transport,
			Timeout:   options.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
	}
}

// statusError is a non-200 response
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	if e.code >= 500 {
		return fmt.Sprintf("server error: status code %d", e.code)
	}
	return fmt.Sprintf("client error: status code %d", e.code)
}

func (e *statusError) retryable() bool {
	return e.code >= 500
}

// Fetch downloads imageURL. Transport failures and 5xx responses are retried
// with a linear backoff; 4xx responses are not.
func (h *HTTPImageFetcher) Fetch(ctx context.Context, imageURL string) (media.Raw, error) {
	var lastErr error

	for attempt := 0; attempt < h.options.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return media.Raw{}, h.wrap(ctx.Err(), attempt)
			case <-time.After(time.Duration(attempt) * h.options.RetryDelay):
			}
		}

		raw, err := h.fetchOnce(ctx, imageURL)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		var se *statusError
		if errors.As(err, &se) && !se.retryable() {
			return media.Raw{}, h.wrap(err, attempt+1)
		}
		var ae *apperrors.AppError
		if errors.As(err, &ae) || ctx.Err() != nil {
			return media.Raw{}, h.wrap(err, attempt+1)
		}
	}

	return media.Raw{}, h.wrap(lastErr, h.options.Attempts)
}

func (h *HTTPImageFetcher) fetchOnce(ctx context.Context, imageURL string) (media.Raw, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return media.Raw{}, apperrors.NewValidationError("invalid image URL", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png, */*;q=0.5")
	req.Header.Set("User-Agent", "Go-Image-Enhancer/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return media.Raw{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little so the connection can be reused
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		return media.Raw{}, &statusError{code: resp.StatusCode}
	}
	if resp.ContentLength > h.options.MaxBytes {
		return media.Raw{}, h.tooLarge()
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, h.options.MaxBytes+1))
	if err != nil {
		return media.Raw{}, err
	}
	if int64(len(data)) > h.options.MaxBytes {
		return media.Raw{}, h.tooLarge()
	}

	mediaType := resp.Header.Get("Content-Type")
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	return media.Raw{
		Data:      data,
		MediaType: strings.TrimSpace(strings.ToLower(mediaType)),
		Source:    imageURL,
	}, nil
}

func (h *HTTPImageFetcher) tooLarge() error {
	return apperrors.NewValidationError(fmt.Sprintf("image exceeds the %d byte limit", h.options.MaxBytes), nil)
}

// wrap maps a fetch failure to an AppError
func (h *HTTPImageFetcher) wrap(err error, attempts int) error {
	var ae *apperrors.AppError
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeoutError("image download timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return apperrors.NewNetworkError("image download cancelled", err)
	}
	return apperrors.NewNetworkError(fmt.Sprintf("failed to fetch image after %d attempts", attempts), err)
}
