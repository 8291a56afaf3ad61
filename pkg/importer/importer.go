package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formwizard/internal/loader"
	"github.com/goliatone/go-formwizard/internal/logging"
	"github.com/goliatone/go-formwizard/pkg/convert"
	"github.com/goliatone/go-formwizard/pkg/model"
)

// DefaultRequestTimeout bounds URL imports.
const DefaultRequestTimeout = 15 * time.Second

// Document is a loaded schema document normalised to JSON. Format is the
// syntax it was read as.
type Document struct {
	Source Source
	Format loader.Format
	JSON   []byte
}

// Option customises an Importer.
type Option func(*config)

type config struct {
	files     fs.FS
	client    *http.Client
	allowHTTP bool
	timeout   time.Duration
	logger    logrus.FieldLogger
}

// WithFS sets the file system used by SourceFromFS sources.
func WithFS(files fs.FS) Option {
	return func(c *config) {
		c.files = files
	}
}

// WithHTTPClient sets the client used for URL sources.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) {
		c.client = client
		c.allowHTTP = client != nil || c.allowHTTP
	}
}

// WithHTTP enables URL sources with a default client.
func WithHTTP(enabled bool) Option {
	return func(c *config) {
		c.allowHTTP = enabled
	}
}

// WithTimeout bounds URL requests.
func WithTimeout(timeout time.Duration) Option {
	return func(c *config) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLogger sets the importer logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Importer loads schema documents and converts them into forms.
type Importer struct {
	loader *loader.Loader
	logger logrus.FieldLogger
}

// New constructs an Importer. URL sources are rejected unless WithHTTP or
// WithHTTPClient is given.
func New(opts ...Option) *Importer {
	cfg := config{timeout: DefaultRequestTimeout, logger: logging.Discard()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Importer{
		loader: loader.New(loader.Options{
			FileSystem: cfg.files,
			HTTPClient: cfg.client,
			AllowHTTP:  cfg.allowHTTP,
			Timeout:    cfg.timeout,
		}),
		logger: cfg.logger,
	}
}

// Load reads src and normalises YAML to JSON.
func (i *Importer) Load(ctx context.Context, src Source) (Document, error) {
	if src == nil {
		return Document{}, errors.New("importer: source is nil")
	}

	var raw loader.Raw
	if text, ok := src.(textSource); ok {
		raw.Data = []byte(text.text)
	} else {
		var err error
		raw, err = i.loader.Load(ctx, loader.Kind(src.Kind()), src.Location())
		if err != nil {
			return Document{}, fmt.Errorf("importer: load %s %q: %w", src.Kind(), src.Location(), err)
		}
	}

	data, format, err := normalize(raw.Data, raw.Format)
	if err != nil {
		return Document{}, err
	}
	i.logger.WithFields(logrus.Fields{
		"kind":     src.Kind(),
		"location": src.Location(),
		"format":   format,
		"bytes":    len(data),
	}).Debug("importer: document loaded")
	return Document{Source: src, Format: format, JSON: data}, nil
}

// Import loads src and converts it. A document holding an array of schemas
// yields one form per entry, or one multi-step form when opts.AsSteps is set.
func (i *Importer) Import(ctx context.Context, src Source, opts convert.ImportOptions) ([]model.FormSchema, error) {
	doc, err := i.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	forms, err := convert.ImportDocuments(doc.JSON, opts)
	if err != nil {
		return nil, fmt.Errorf("importer: %s %q: %w", src.Kind(), src.Location(), err)
	}
	return forms, nil
}
