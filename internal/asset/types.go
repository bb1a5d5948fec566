package asset

import "time"

// Asset is a physical or logical entity in a tenant's hierarchy: a site,
// building, production line, machine. Assets form a forest via ParentID;
// the hierarchy must be acyclic.
type Asset struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	ParentID  *string   `json:"parent_id,omitempty"`
	Icon      *string   `json:"icon,omitempty"`
	Metadata  Metadata  `json:"metadata"`
	Location  Location  `json:"location"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Metadata holds free-form asset attributes as a JSON map.
type Metadata map[string]any

// Location holds geographic or positional data as a JSON map.
//
// Example: {"lat": 51.5, "lon": -0.12, "floor": 2}
type Location map[string]any

// Common asset types. The type field is free-form; these are the values
// the platform UI knows how to render.
const (
	TypeSite     = "site"
	TypeBuilding = "building"
	TypeLine     = "line"
	TypeMachine  = "machine"
	TypeGeneric  = "generic"
)

// DeepCopy creates an independent copy of the Asset, cloning the metadata
// and location maps and the optional pointer fields.
func (a *Asset) DeepCopy() *Asset {
	if a == nil {
		return nil
	}
	cpy := *a
	if a.ParentID != nil {
		v := *a.ParentID
		cpy.ParentID = &v
	}
	if a.Icon != nil {
		v := *a.Icon
		cpy.Icon = &v
	}
	cpy.Metadata = deepCopyMap(a.Metadata)
	cpy.Location = deepCopyMap(a.Location)
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
