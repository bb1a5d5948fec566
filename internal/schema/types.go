package schema

import "time"

// Schema represents a data schema owned by a tenant. Device types bind to
// a schema to describe the shape of the telemetry their devices report.
type Schema struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id"`
	Name        string     `json:"name"`
	Version     string     `json:"version"`
	Definition  Definition `json:"definition"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Definition holds the schema body as a JSON map.
//
// Example:
//
//	{"fields": [{"name": "temperature", "type": "float", "unit": "celsius"}]}
type Definition map[string]any

// DeepCopy creates an independent copy of the Schema. The definition map
// is cloned so modifications to the copy do not affect the original.
func (s *Schema) DeepCopy() *Schema {
	if s == nil {
		return nil
	}
	cpy := *s
	cpy.Definition = deepCopyMap(s.Definition)
	return &cpy
}

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
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
		// Primitives are safe to copy by value
		return v
	}
}
