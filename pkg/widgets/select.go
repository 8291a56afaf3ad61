package widgets

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/pkg/resolver"
)

// ErrUnknownOption is returned when a selection is not among the loaded
// options.
var ErrUnknownOption = errors.New("widgets: value is not a loaded option")

// Reporter receives value changes from widgets. The multi-step runtime
// implements it.
type Reporter interface {
	SetValue(field string, value any)
	StoreResponse(field string, record map[string]any)
}

// OptionResolver loads select options.
type OptionResolver interface {
	Resolve(ctx context.Context, src *model.ExternalDataSource) ([]resolver.Option, error)
}

// Widget is the capability shared by the bound field widgets.
type Widget interface {
	Field() string
	Name() string
}

// SelectState is a snapshot of a select widget.
type SelectState struct {
	Loading bool
	Options []resolver.Option
	Err     error
	Value   string
}

// SelectWidget populates a choice control from an external source and
// reports the selected record for response-data mapping.
type SelectWidget struct {
	field    string
	resolver OptionResolver
	reporter Reporter
	gen      resolver.Generation

	mu     sync.Mutex
	source *model.ExternalDataSource
	state  SelectState
}

// NewSelectWidget binds a select widget to one field.
func NewSelectWidget(field string, src *model.ExternalDataSource, res OptionResolver, reporter Reporter) *SelectWidget {
	return &SelectWidget{field: field, source: src, resolver: res, reporter: reporter}
}

// Field returns the bound property key.
func (w *SelectWidget) Field() string { return w.field }

// Name returns the widget identifier.
func (w *SelectWidget) Name() string { return WidgetExternalSourceSelect }

// SetSource replaces the source configuration and reloads the options when
// it differs from the current one. Loads still in flight for the previous
// configuration are discarded when they complete.
func (w *SelectWidget) SetSource(ctx context.Context, src *model.ExternalDataSource) error {
	w.mu.Lock()
	if reflect.DeepEqual(w.source, src) {
		w.mu.Unlock()
		return nil
	}
	w.source = src.Clone()
	w.mu.Unlock()
	return w.Load(ctx)
}

// Load resolves the options. The result is applied only if no newer load or
// source change happened meanwhile. Failures are kept on the widget state and
// also returned.
func (w *SelectWidget) Load(ctx context.Context) error {
	seq := w.gen.Next()
	w.mu.Lock()
	src := w.source
	w.state.Loading = true
	w.mu.Unlock()

	var (
		options []resolver.Option
		err     error
	)
	if w.resolver == nil {
		err = &resolver.Error{Message: "no resolver configured"}
	} else {
		options, err = w.resolver.Resolve(ctx, src)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.gen.Current(seq) {
		return nil
	}
	w.state.Loading = false
	if err != nil {
		w.state.Err = resolver.WithField(err, w.field)
		return w.state.Err
	}
	w.state.Options = options
	w.state.Err = nil
	return nil
}

// Select reports value and the matching record. An empty value clears the
// selection and the stored record.
func (w *SelectWidget) Select(value string) error {
	w.mu.Lock()
	var record map[string]any
	if value != "" {
		found := false
		for _, option := range w.state.Options {
			if option.Value == value {
				record = option.Record
				found = true
				break
			}
		}
		if !found {
			w.mu.Unlock()
			return fmt.Errorf("%w: %q for field %q", ErrUnknownOption, value, w.field)
		}
	}
	w.state.Value = value
	w.mu.Unlock()

	if w.reporter != nil {
		w.reporter.SetValue(w.field, value)
		w.reporter.StoreResponse(w.field, record)
	}
	return nil
}

// State returns a snapshot of the widget.
func (w *SelectWidget) State() SelectState {
	w.mu.Lock()
	defer w.mu.Unlock()
	snapshot := w.state
	snapshot.Options = append([]resolver.Option(nil), w.state.Options...)
	return snapshot
}
