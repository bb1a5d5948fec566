package devicetype

import "time"

// DeviceType is a reusable template describing a class of devices within a
// tenant: display metadata, custom provisioning fields and the mapping from
// raw telemetry fields to schema fields. A device type may bind to a data
// schema via SchemaID.
type DeviceType struct {
	ID            string        `json:"id"`
	TenantID      string        `json:"tenant_id"`
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	SchemaID      *string       `json:"schema_id,omitempty"`
	CustomFields  CustomFields  `json:"custom_fields"`
	FieldMappings FieldMappings `json:"field_mappings"`
	Icon          *string       `json:"icon,omitempty"`
	Color         *string       `json:"color,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// CustomFields holds free-form provisioning fields as a JSON map.
//
// Example: {"firmware_channel": "stable", "reporting_interval_s": 60}
type CustomFields map[string]any

// FieldMappings maps raw telemetry field names to schema field names.
//
// Example: {"t": "temperature", "h": "humidity"}
type FieldMappings map[string]any

// DeepCopy creates an independent copy of the DeviceType, cloning the
// custom field and field mapping maps and the optional pointer fields.
func (dt *DeviceType) DeepCopy() *DeviceType {
	if dt == nil {
		return nil
	}
	cpy := *dt
	cpy.SchemaID = copyStringPtr(dt.SchemaID)
	cpy.Icon = copyStringPtr(dt.Icon)
	cpy.Color = copyStringPtr(dt.Color)
	cpy.CustomFields = deepCopyMap(dt.CustomFields)
	cpy.FieldMappings = deepCopyMap(dt.FieldMappings)
	return &cpy
}

func copyStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
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
