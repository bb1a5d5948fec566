package dashboard

import "time"

// Dashboard is a tenant-owned visualisation page composed of widgets.
type Dashboard struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Layout      Layout    `json:"layout"`
	Widgets     []Widget  `json:"widgets"`
	Filters     Filters   `json:"filters"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Widget is a single visualisation element on a dashboard.
//
// Config holds the widget's binding and display settings as a JSON map.
// Bindings to platform resources are stored under well-known keys:
//
//	{"device_type_id": "uuid...", "metric": "temperature", "window": "1h"}
//	{"asset_id": "uuid...", "mode": "tree"}
type Widget struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Position Position       `json:"position"`
	Config   map[string]any `json:"config"`
}

// Layout holds grid layout settings as a JSON map.
type Layout map[string]any

// Position holds widget placement within the dashboard grid.
type Position map[string]any

// Filters holds dashboard-level filter settings as a JSON map.
type Filters map[string]any

// DeepCopy creates an independent copy of the Dashboard, cloning the
// layout, filters and every widget's position and config maps.
func (d *Dashboard) DeepCopy() *Dashboard {
	if d == nil {
		return nil
	}
	cpy := *d
	cpy.Layout = deepCopyMap(d.Layout)
	cpy.Filters = deepCopyMap(d.Filters)
	if d.Widgets != nil {
		cpy.Widgets = make([]Widget, len(d.Widgets))
		for i, w := range d.Widgets {
			cpy.Widgets[i] = Widget{
				ID:       w.ID,
				Type:     w.Type,
				Position: deepCopyMap(w.Position),
				Config:   deepCopyMap(w.Config),
			}
		}
	}
	return &cpy
}

// deepCopyMap creates a deep copy of a map[string]any.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		return v
	}
}
