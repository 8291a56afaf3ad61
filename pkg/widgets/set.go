package widgets

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-formwizard/pkg/jsonschema"
	"github.com/goliatone/go-formwizard/pkg/resolver"
)

// DefaultLoadLimit bounds concurrent option loads in LoadAll.
const DefaultLoadLimit = 4

// Dependencies are the collaborators handed to widgets built by a registry.
type Dependencies struct {
	Resolver  OptionResolver
	Validator ValueValidator
	Reporter  Reporter
	Scheduler resolver.Scheduler
	Window    time.Duration
}

// Set holds the widgets bound for one step, in property order.
type Set struct {
	Selects     []*SelectWidget
	Validations []*ValidationWidget
	order       []Widget
}

// All returns every widget in property order.
func (s Set) All() []Widget {
	return append([]Widget(nil), s.order...)
}

// Select returns the select widget bound to field.
func (s Set) Select(field string) (*SelectWidget, bool) {
	for _, widget := range s.Selects {
		if widget.Field() == field {
			return widget, true
		}
	}
	return nil, false
}

// Validation returns the validation widget bound to field.
func (s Set) Validation(field string) (*ValidationWidget, bool) {
	for _, widget := range s.Validations {
		if widget.Field() == field {
			return widget, true
		}
	}
	return nil, false
}

// Build instantiates the built-in widgets bound to props. Properties bound to
// custom widgets are left to the renderer.
func (r *Registry) Build(props []jsonschema.NamedProperty, deps Dependencies) Set {
	var set Set
	for _, prop := range props {
		binding, ok := r.Bind(prop)
		if !ok {
			continue
		}
		switch binding.Widget {
		case WidgetExternalSourceSelect:
			widget := NewSelectWidget(binding.Field, binding.Source, deps.Resolver, deps.Reporter)
			set.Selects = append(set.Selects, widget)
			set.order = append(set.order, widget)
		case WidgetExternalValidation:
			widget := NewValidationWidget(binding.Field, binding.Source, deps.Validator, deps.Reporter,
				WithDebounce(deps.Window, deps.Scheduler))
			set.Validations = append(set.Validations, widget)
			set.order = append(set.order, widget)
		}
	}
	return set
}

// LoadAll loads every select widget with at most limit loads in flight.
// Failures stay on each widget; LoadAll only waits.
func LoadAll(ctx context.Context, selects []*SelectWidget, limit int) {
	if limit <= 0 {
		limit = DefaultLoadLimit
	}
	var group errgroup.Group
	group.SetLimit(limit)
	for _, widget := range selects {
		widget := widget
		group.Go(func() error {
			_ = widget.Load(ctx)
			return nil
		})
	}
	_ = group.Wait()
}
