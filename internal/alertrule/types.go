package alertrule

import "time"

// AlertRule defines a condition evaluated against device telemetry and the
// actions to take when it fires. A rule may be scoped to a device type.
type AlertRule struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenant_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Condition       Condition `json:"condition"`
	DeviceTypeID    *string   `json:"device_type_id,omitempty"`
	Severity        Severity  `json:"severity"`
	IsEnabled       bool      `json:"is_enabled"`
	Actions         []Action  `json:"actions"`
	CooldownMinutes int       `json:"cooldown_minutes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Condition holds the rule expression as a JSON map.
//
// Example: {"field": "temperature", "operator": "gt", "threshold": 80}
type Condition map[string]any

// Action describes a notification or remediation step as a JSON map.
//
// Example: {"type": "email", "to": "ops@example.com"}
type Action map[string]any

// Severity classifies how urgent a fired alert is.
type Severity string

// Severity constants.
const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// AllSeverities returns all valid severity values.
func AllSeverities() []Severity {
	return []Severity{SeverityInfo, SeverityWarning, SeverityCritical}
}

// DeepCopy creates an independent copy of the AlertRule, cloning the
// condition map and every action map.
func (r *AlertRule) DeepCopy() *AlertRule {
	if r == nil {
		return nil
	}
	cpy := *r
	cpy.Condition = deepCopyMap(r.Condition)
	if r.DeviceTypeID != nil {
		v := *r.DeviceTypeID
		cpy.DeviceTypeID = &v
	}
	if r.Actions != nil {
		cpy.Actions = make([]Action, len(r.Actions))
		for i, a := range r.Actions {
			cpy.Actions[i] = deepCopyMap(a)
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
