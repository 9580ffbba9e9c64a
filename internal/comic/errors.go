package comic

import (
	"errors"
	"fmt"
)

// Sentinel errors distinguishing failure kinds at the API boundary.
var (
	// ErrSiteNotSupport means the requested site key has no registered
	// crawler. Caller error; never retried.
	ErrSiteNotSupport = errors.New("site not supported")

	// ErrComicbookNotFound means the source has no comic with that id.
	ErrComicbookNotFound = errors.New("comicbook not found")

	// ErrChapterNotFound means the source no longer serves the chapter.
	ErrChapterNotFound = errors.New("chapter not found")
)

// URLError wraps a transport-level failure (timeout, connection error,
// unexpected status). It may be transient; only the image pipeline retries
// it automatically, everywhere else it propagates to the caller.
type URLError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *URLError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

func (e *URLError) Unwrap() error { return e.Err }

// NewURLError wraps err as a transport failure for url.
func NewURLError(url string, err error) *URLError {
	return &URLError{URL: url, Err: err}
}

// NewStatusError reports a non-2xx response where one was required.
func NewStatusError(url string, status int) *URLError {
	return &URLError{URL: url, StatusCode: status}
}

// ImageDownloadError means one image failed download or integrity
// verification after retries were exhausted. Fatal only to that image,
// never to the batch.
type ImageDownloadError struct {
	URL string
	Err error
}

func (e *ImageDownloadError) Error() string {
	return fmt.Sprintf("download image %s: %v", e.URL, e.Err)
}

func (e *ImageDownloadError) Unwrap() error { return e.Err }
