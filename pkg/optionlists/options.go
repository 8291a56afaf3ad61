package optionlists

import "net/http"

// EmptySearchMode decides what an empty query returns.
type EmptySearchMode string

const (
	EmptySearchAll  EmptySearchMode = "all"
	EmptySearchNone EmptySearchMode = "none"
)

const (
	defaultRoutePath = "/api/options"
	defaultLimit     = 50
	defaultMaxLimit  = 500
)

// GuardFunc vets a request before any list is read. A returned error that
// carries a status code (see StatusError) sets the response status.
type GuardFunc func(r *http.Request) error

// Options configures the list handler. ValueField identifies a record in
// validate calls; LabelField is searched along with it.
type Options struct {
	RoutePath       string
	SearchParam     string
	LimitParam      string
	DefaultLimit    int
	MaxLimit        int
	EmptySearchMode EmptySearchMode
	Guard           GuardFunc
	ValueField      string
	LabelField      string
}

type OptionFn func(*Options)

// NewOptions applies fns and fills every zero field with its default.
func NewOptions(fns ...OptionFn) Options {
	var opts Options
	for _, fn := range fns {
		if fn != nil {
			fn(&opts)
		}
	}
	fill(&opts.RoutePath, defaultRoutePath)
	fill(&opts.SearchParam, "q")
	fill(&opts.LimitParam, "limit")
	fill(&opts.ValueField, "value")
	fill(&opts.LabelField, "label")
	fill(&opts.EmptySearchMode, EmptySearchAll)
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = defaultLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = defaultMaxLimit
	}
	return opts
}

func fill[T ~string](dst *T, def T) {
	if *dst == "" {
		*dst = def
	}
}

func WithRoutePath(path string) OptionFn {
	return func(o *Options) { o.RoutePath = path }
}

// WithParams renames the query parameters carrying the search text and the
// page size.
func WithParams(search, limit string) OptionFn {
	return func(o *Options) {
		o.SearchParam = search
		o.LimitParam = limit
	}
}

// WithLimits sets the page size used when none is asked for and the cap on
// requested sizes.
func WithLimits(def, max int) OptionFn {
	return func(o *Options) {
		o.DefaultLimit = def
		o.MaxLimit = max
	}
}

func WithEmptySearchMode(mode EmptySearchMode) OptionFn {
	return func(o *Options) { o.EmptySearchMode = mode }
}

func WithGuard(guard GuardFunc) OptionFn {
	return func(o *Options) { o.Guard = guard }
}

// WithFields sets the record keys used as value and label.
func WithFields(valueField, labelField string) OptionFn {
	return func(o *Options) {
		o.ValueField = valueField
		o.LabelField = labelField
	}
}

// pageSize maps a requested limit to the effective one: negative is zero,
// zero is the default and anything above MaxLimit is capped.
func (o Options) pageSize(requested int) int {
	switch {
	case requested < 0:
		return 0
	case requested == 0:
		requested = o.DefaultLimit
	}
	return min(requested, o.MaxLimit)
}
