// Package loader fetches raw form documents from disk, an fs.FS or HTTP and
// reports which syntax the location suggests.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Kind selects the read strategy.
type Kind string

const (
	KindFile Kind = "file"
	KindFS   Kind = "fs"
	KindURL  Kind = "url"
)

// Format is the syntax hinted by a file extension or a Content-Type header.
type Format string

const (
	FormatUnknown Format = ""
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
)

// MaxDocumentBytes caps documents read from any source.
const MaxDocumentBytes = 8 << 20

var (
	// ErrHTTPDisabled is returned for URL locations when no client was set.
	ErrHTTPDisabled = errors.New("loader: url sources are disabled")
	// ErrNoFS is returned for fs locations when no fs.FS was set.
	ErrNoFS = errors.New("loader: no fs.FS configured")
	// ErrEmpty is returned for a document without content.
	ErrEmpty = errors.New("loader: document is empty")
	// ErrTooLarge is returned for a document above MaxDocumentBytes.
	ErrTooLarge = fmt.Errorf("loader: document exceeds %d bytes", MaxDocumentBytes)
)

// StatusError reports a non-2xx answer from a document URL.
type StatusError struct {
	URL    string
	Status string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("loader: GET %s: unexpected status %s", e.URL, e.Status)
}

// Raw is a fetched document.
type Raw struct {
	Data   []byte
	Format Format
}

// Options configures a Loader. URL locations are served only when
// HTTPClient is set or AllowHTTP is true.
type Options struct {
	FileSystem fs.FS
	HTTPClient *http.Client
	AllowHTTP  bool
	Timeout    time.Duration
}

type fetchFunc func(ctx context.Context, location string) (Raw, error)

// Loader dispatches a location to the fetcher registered for its kind.
type Loader struct {
	fetchers map[Kind]fetchFunc
}

// New registers a fetcher per configured source kind. Files are always
// readable.
func New(options Options) *Loader {
	l := &Loader{fetchers: map[Kind]fetchFunc{KindFile: readFile}}
	if options.FileSystem != nil {
		l.fetchers[KindFS] = readFS(options.FileSystem)
	}
	if client := httpClient(options); client != nil {
		l.fetchers[KindURL] = fetchURL(client, options.Timeout)
	}
	return l
}

// Load reads location with the fetcher for kind.
func (l *Loader) Load(ctx context.Context, kind Kind, location string) (Raw, error) {
	if strings.TrimSpace(location) == "" {
		return Raw{}, fmt.Errorf("loader: %s location is required", kind)
	}
	fetch, ok := l.fetchers[kind]
	if !ok {
		switch kind {
		case KindURL:
			return Raw{}, ErrHTTPDisabled
		case KindFS:
			return Raw{}, ErrNoFS
		default:
			return Raw{}, fmt.Errorf("loader: unsupported source kind %q", kind)
		}
	}
	if err := ctx.Err(); err != nil {
		return Raw{}, err
	}

	raw, err := fetch(ctx, location)
	if err != nil {
		return Raw{}, err
	}
	if len(strings.TrimSpace(string(raw.Data))) == 0 {
		return Raw{}, fmt.Errorf("%w: %s %q", ErrEmpty, kind, location)
	}
	return raw, nil
}

// FormatOf maps a file name or URL path extension to a Format.
func FormatOf(name string) Format {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatUnknown
	}
}

func readFile(_ context.Context, location string) (Raw, error) {
	abs, err := filepath.Abs(location)
	if err != nil {
		return Raw{}, err
	}
	f, err := os.Open(abs)
	if err != nil {
		return Raw{}, err
	}
	defer f.Close()
	data, err := readCapped(f)
	if err != nil {
		return Raw{}, err
	}
	return Raw{Data: data, Format: FormatOf(abs)}, nil
}

func readFS(files fs.FS) fetchFunc {
	return func(_ context.Context, name string) (Raw, error) {
		f, err := files.Open(name)
		if err != nil {
			return Raw{}, err
		}
		defer f.Close()
		data, err := readCapped(f)
		if err != nil {
			return Raw{}, err
		}
		return Raw{Data: data, Format: FormatOf(name)}, nil
	}
}

func httpClient(options Options) *http.Client {
	switch {
	case options.HTTPClient != nil:
		clone := *options.HTTPClient
		if options.Timeout > 0 && clone.Timeout == 0 {
			clone.Timeout = options.Timeout
		}
		return &clone
	case options.AllowHTTP:
		return &http.Client{Timeout: options.Timeout}
	default:
		return nil
	}
}

func fetchURL(client *http.Client, timeout time.Duration) fetchFunc {
	return func(ctx context.Context, location string) (Raw, error) {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
		if err != nil {
			return Raw{}, err
		}
		req.Header.Set("Accept", "application/json, application/yaml;q=0.9, */*;q=0.1")

		resp, err := client.Do(req)
		if err != nil {
			return Raw{}, err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return Raw{}, &StatusError{URL: location, Status: resp.Status, Code: resp.StatusCode}
		}

		data, err := readCapped(resp.Body)
		if err != nil {
			return Raw{}, err
		}
		format := formatOfMediaType(resp.Header.Get("Content-Type"))
		if format == FormatUnknown {
			format = FormatOf(req.URL.Path)
		}
		return Raw{Data: data, Format: format}, nil
	}
}

func formatOfMediaType(header string) Format {
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return FormatUnknown
	}
	switch {
	case strings.HasSuffix(mediaType, "json"):
		return FormatJSON
	case strings.HasSuffix(mediaType, "yaml"):
		return FormatYAML
	default:
		return FormatUnknown
	}
}

func readCapped(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxDocumentBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxDocumentBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}
