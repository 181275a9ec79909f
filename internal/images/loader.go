package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/vincent-petithory/dataurl"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultTimeout bounds a single Load call
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBytes caps the size of any fetched image
	DefaultMaxBytes int64 = 25 * 1024 * 1024

	// ProxyPath is the same-origin endpoint remote images are routed through
	ProxyPath = "/proxy-image"
)

// Loader turns image sources (data URIs, blob ids, local paths, remote URLs)
// into decoded images
type Loader struct {
	// HTTPClient fetches remote URLs directly
	HTTPClient *http.Client
	// ProxyClient fetches through ProxyBaseURL; nil uses HTTPClient
	ProxyClient  *http.Client
	ProxyBaseURL string
	Blobs        *BlobStore
	MaxBytes     int64
	Timeout      time.Duration

	// LocalFiles allows plain paths and file:// sources. Servers turn it off
	// so requests cannot read from disk.
	LocalFiles bool
}

// NewLoader creates a loader. When proxyBaseURL is empty remote images are
// fetched directly.
func NewLoader(proxyBaseURL string, blobs *BlobStore) *Loader {
	return &Loader{
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		ProxyBaseURL: strings.TrimRight(proxyBaseURL, "/"),
		Blobs:        blobs,
		MaxBytes:     DefaultMaxBytes,
		Timeout:      DefaultTimeout,
		LocalFiles:   true,
	}
}

// NewServerLoader creates a loader for request-supplied sources: local files
// are refused and direct fetches go through the private address guard. The
// hop to ProxyBaseURL is unguarded since the proxy may be this same service.
func NewServerLoader(proxyBaseURL string, blobs *BlobStore, allowPrivate bool, timeout time.Duration) *Loader {
	l := NewLoader(proxyBaseURL, blobs)
	if timeout > 0 {
		l.Timeout = timeout
	}
	l.ProxyClient = &http.Client{Timeout: l.Timeout}
	l.HTTPClient = NewGuardedClient(allowPrivate, l.Timeout)
	l.LocalFiles = false
	return l
}

// Load fetches and decodes an image source
func (l *Loader) Load(ctx context.Context, source string) (image.Image, error) {
	data, err := l.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	return Decode(source, data)
}

// Fetch returns the raw bytes behind an image source without decoding them
func (l *Loader) Fetch(ctx context.Context, source string) ([]byte, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, &AssetLoadError{Source: source, Op: OpSource, Err: errors.New("empty image source")}
	}

	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch {
	case strings.HasPrefix(source, "data:"):
		return l.fetchDataURI(source)
	case strings.HasPrefix(source, blobPrefix):
		return l.fetchBlob(source)
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return l.fetchRemote(ctx, source)
	case strings.HasPrefix(source, "file://"):
		return l.fetchFile(source, strings.TrimPrefix(source, "file://"))
	case strings.Contains(source, "://"):
		return nil, &AssetLoadError{Source: source, Op: OpSource, Err: errors.New("unsupported URL scheme")}
	default:
		return l.fetchFile(source, source)
	}
}

func (l *Loader) fetchDataURI(source string) ([]byte, error) {
	du, err := dataurl.DecodeString(source)
	if err != nil {
		return nil, &AssetLoadError{Source: source, Op: OpDecode, Err: fmt.Errorf("invalid data URI: %w", err)}
	}
	if du.MediaType.Type != "image" {
		return nil, &AssetLoadError{Source: source, Op: OpDecode, Err: fmt.Errorf("data URI is %s, not an image", du.ContentType())}
	}
	return du.Data, nil
}

func (l *Loader) fetchBlob(source string) ([]byte, error) {
	if l.Blobs == nil {
		return nil, &AssetLoadError{Source: source, Op: OpSource, Err: errors.New("no blob store configured")}
	}
	data, ok := l.Blobs.Get(source)
	if !ok {
		return nil, &AssetLoadError{Source: source, Op: OpSource, Err: errors.New("blob not found")}
	}
	return data, nil
}

func (l *Loader) fetchFile(source, path string) ([]byte, error) {
	if !l.LocalFiles {
		return nil, &AssetLoadError{Source: source, Op: OpSource, Err: errors.New("local files are not allowed")}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &AssetLoadError{Source: source, Op: OpRead, Err: err}
	}
	defer f.Close()

	data, err := readLimited(f, l.maxBytes())
	if err != nil {
		return nil, &AssetLoadError{Source: source, Op: OpRead, Err: err}
	}
	return data, nil
}

// ProxyURL rewrites a remote URL to go through the configured proxy.
// Sources already pointing at the proxy are returned unchanged.
func (l *Loader) ProxyURL(remote string) string {
	if l.ProxyBaseURL == "" || strings.HasPrefix(remote, l.ProxyBaseURL+ProxyPath) {
		return remote
	}
	return l.ProxyBaseURL + ProxyPath + "?url=" + url.QueryEscape(remote)
}

func (l *Loader) fetchRemote(ctx context.Context, source string) ([]byte, error) {
	target := l.ProxyURL(source)
	slog.Debug("Fetching remote image", "source", DisplaySource(source), "via_proxy", target != source)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &AssetLoadError{Source: source, Op: OpFetch, Err: err}
	}

	client := l.HTTPClient
	if target != source && l.ProxyClient != nil {
		client = l.ProxyClient
	}
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &AssetLoadError{Source: source, Op: classify(ctx, OpFetch), Err: err}
	}
	defer resp.Body.Close()

	// the body is not included: it may belong to an internal service and
	// the error reaches API clients
	if resp.StatusCode != http.StatusOK {
		return nil, &AssetLoadError{
			Source: source,
			Op:     OpStatus,
			Err:    fmt.Errorf("received non-200 status code: %d", resp.StatusCode),
		}
	}

	data, err := readLimited(resp.Body, l.maxBytes())
	if err != nil {
		return nil, &AssetLoadError{Source: source, Op: classify(ctx, OpRead), Err: err}
	}
	return data, nil
}

func (l *Loader) maxBytes() int64 {
	if l.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return l.MaxBytes
}

func classify(ctx context.Context, op string) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return OpTimeout
	}
	return op
}

// Decode decodes image bytes; source is only used for error reporting
func Decode(source string, data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &AssetLoadError{Source: source, Op: OpDecode, Err: err}
	}
	return img, nil
}

// readLimited reads at most limit bytes and fails if the input is larger
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("image exceeds maximum allowed size of %d bytes", limit)
	}
	return data, nil
}
