package widgets

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-formwizard/pkg/jsonschema"
	"github.com/goliatone/go-formwizard/pkg/model"
)

// Built-in widget identifiers exposed by the registry.
const (
	WidgetExternalSourceSelect = "ExternalSourceSelect"
	WidgetExternalValidation   = "ExternalValidation"
)

// UI schema keys understood by schema-driven renderers.
const (
	UIWidget      = "ui:widget"
	UIPlaceholder = "ui:placeholder"
)

// Matcher decides whether a widget should handle the supplied property.
type Matcher func(prop jsonschema.Property) bool

type rule struct {
	name     string
	priority int
	match    Matcher
	order    int
}

// Registry maps a property's capabilities to a widget. Higher priority wins;
// ties fall back to registration order. An empty registry never binds.
type Registry struct {
	mu    sync.RWMutex
	rules []rule
}

// NewRegistry constructs a registry with the external-source widgets
// registered. The select binds first; validation binds only when no enabled
// select source is present on the same property.
func NewRegistry() *Registry {
	reg := &Registry{}
	reg.registerBuiltins()
	return reg
}

// Register adds a widget matcher with the provided name and priority.
func (r *Registry) Register(name string, priority int, matcher Matcher) {
	if r == nil || matcher == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules = append(r.rules, rule{
		name:     trimmed,
		priority: priority,
		match:    matcher,
		order:    len(r.rules),
	})
}

// Resolve returns the widget name for a property.
func (r *Registry) Resolve(prop jsonschema.Property) (string, bool) {
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	if len(r.rules) == 0 {
		r.mu.RUnlock()
		return "", false
	}
	rules := append([]rule(nil), r.rules...)
	r.mu.RUnlock()
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order < rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, entry := range rules {
		if entry.match(prop) {
			return entry.name, true
		}
	}
	return "", false
}

// Binding ties one property to the widget chosen for it. Source is the
// extension payload the widget consumes; it is nil for custom widgets.
type Binding struct {
	Field       string
	Widget      string
	Source      *model.ExternalDataSource
	Placeholder string
}

// Bind resolves the widget for a named property.
func (r *Registry) Bind(prop jsonschema.NamedProperty) (Binding, bool) {
	name, ok := r.Resolve(prop.Property)
	if !ok {
		return Binding{}, false
	}
	binding := Binding{Field: prop.Name, Widget: name, Placeholder: prop.Placeholder}
	switch name {
	case WidgetExternalSourceSelect:
		binding.Source = prop.Extensions.ExternalSource
	case WidgetExternalValidation:
		binding.Source = prop.Extensions.ValidationExternalSource
	}
	return binding, true
}

// UISchema derives the renderer UI schema for an ordered property list.
// Properties with neither a widget nor a placeholder get no entry.
func (r *Registry) UISchema(props []jsonschema.NamedProperty) map[string]map[string]any {
	ui := make(map[string]map[string]any)
	for _, prop := range props {
		entry := make(map[string]any)
		if binding, ok := r.Bind(prop); ok {
			entry[UIWidget] = binding.Widget
		}
		if prop.Placeholder != "" {
			entry[UIPlaceholder] = prop.Placeholder
		}
		if len(entry) > 0 {
			ui[prop.Name] = entry
		}
	}
	return ui
}

func (r *Registry) registerBuiltins() {
	r.Register(WidgetExternalSourceSelect, 90, func(prop jsonschema.Property) bool {
		return enabled(prop.Extensions.ExternalSource)
	})
	r.Register(WidgetExternalValidation, 80, func(prop jsonschema.Property) bool {
		return enabled(prop.Extensions.ValidationExternalSource) && !enabled(prop.Extensions.ExternalSource)
	})
}

func enabled(src *model.ExternalDataSource) bool {
	return src != nil && src.Enabled
}
