package attach

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/leofalp/genchat/internal/utils"
	"github.com/leofalp/genchat/providers/ai"
)

const (
	// MaxInlineSize is the largest payload accepted as an inline part.
	MaxInlineSize = 20 * 1024 * 1024
	// DefaultTimeout bounds a URL fetch when the caller sets none.
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent is sent with URL fetches.
	DefaultUserAgent = "genchat/1.0"

	maxRedirects = 10
)

// ErrTooLarge reports a payload above the configured size limit.
var ErrTooLarge = errors.New("attachment too large")

type options struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	maxSize   int64
}

type Option func(*options)

// WithHTTPClient replaces the client used by [URL].
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.client = client }
}

func WithUserAgent(userAgent string) Option {
	return func(o *options) { o.userAgent = userAgent }
}

func WithTimeout(timeout time.Duration) Option {
	return func(o *options) { o.timeout = timeout }
}

// WithMaxSize lowers (or raises) the [MaxInlineSize] limit.
func WithMaxSize(bytes int64) Option {
	return func(o *options) { o.maxSize = bytes }
}

func newOptions(opts []Option) options {
	o := options{userAgent: DefaultUserAgent, timeout: DefaultTimeout, maxSize: MaxInlineSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.client == nil {
		o.client = defaultClient(o.timeout)
	}
	return o
}

// File reads path and converts it with [Bytes]. The MIME type is taken from
// the extension, falling back to content sniffing.
func File(path string, opts ...Option) (ai.Part, error) {
	o := newOptions(opts)

	info, err := os.Stat(path)
	if err != nil {
		return ai.Part{}, fmt.Errorf("attach %s: %w", path, err)
	}
	if info.IsDir() {
		return ai.Part{}, fmt.Errorf("attach %s: is a directory", path)
	}
	if info.Size() > o.maxSize {
		return ai.Part{}, fmt.Errorf("attach %s: %w (%d bytes, limit %d)", path, ErrTooLarge, info.Size(), o.maxSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ai.Part{}, fmt.Errorf("attach %s: %w", path, err)
	}
	return Bytes(filepath.Base(path), data, mime.TypeByExtension(filepath.Ext(path)))
}

// Bytes converts data into a part. An empty mimeType is sniffed from data.
func Bytes(name string, data []byte, mimeType string) (ai.Part, error) {
	if len(data) == 0 {
		return ai.Part{}, fmt.Errorf("attach %s: empty content", name)
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mediaType = "application/octet-stream"
	}

	switch {
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
		markdown, err := htmltomarkdown.ConvertString(string(data))
		if err != nil {
			return ai.Part{}, fmt.Errorf("attach %s: convert HTML to Markdown: %w", name, err)
		}
		return textPart(name, markdown), nil
	case isText(mediaType):
		return textPart(name, string(data)), nil
	default:
		return ai.NewBlobPart(mediaType, data), nil
	}
}

// URL fetches rawURL and converts the body with [Bytes] using the
// Content-Type of the response.
func URL(ctx context.Context, rawURL string, opts ...Option) (ai.Part, error) {
	o := newOptions(opts)

	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ai.Part{}, errors.New("attach: URL cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ai.Part{}, fmt.Errorf("attach %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", o.userAgent)

	resp, err := o.client.Do(req)
	if err != nil {
		return ai.Part{}, fmt.Errorf("attach %s: %w", rawURL, err)
	}
	defer utils.CloseWithLog(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return ai.Part{}, fmt.Errorf("attach %s: unexpected status %s", rawURL, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, o.maxSize+1))
	if err != nil {
		return ai.Part{}, fmt.Errorf("attach %s: read body: %w", rawURL, err)
	}
	if int64(len(data)) > o.maxSize {
		return ai.Part{}, fmt.Errorf("attach %s: %w (limit %d)", rawURL, ErrTooLarge, o.maxSize)
	}

	return Bytes(resp.Request.URL.String(), data, resp.Header.Get("Content-Type"))
}

// IsURL reports whether s should be fetched rather than read from disk.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func textPart(name, body string) ai.Part {
	return ai.NewTextPart(fmt.Sprintf("[attachment: %s]\n%s", name, body))
}

func isText(mediaType string) bool {
	if strings.HasPrefix(mediaType, "text/") {
		return true
	}
	switch mediaType {
	case "application/json", "application/xml", "application/x-yaml", "application/yaml",
		"application/javascript", "application/toml", "application/x-sh":
		return true
	}
	return strings.HasSuffix(mediaType, "+json") || strings.HasSuffix(mediaType, "+xml")
}

func defaultClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
			IdleConnTimeout:       90 * time.Second,
			ForceAttemptHTTP2:     true,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects (>%d)", maxRedirects)
			}
			return nil
		},
	}
}
