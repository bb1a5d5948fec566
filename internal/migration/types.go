package migration

import (
	"time"

	"github.com/gridpoint-io/gridpoint-core/internal/alertrule"
	"github.com/gridpoint-io/gridpoint-core/internal/asset"
	"github.com/gridpoint-io/gridpoint-core/internal/dashboard"
	"github.com/gridpoint-io/gridpoint-core/internal/devicetype"
	"github.com/gridpoint-io/gridpoint-core/internal/schema"
)

// FormatVersion is the package format version this engine produces.
const FormatVersion = "1.0"

// supportedFormatVersions is the set of package format versions this
// engine understands on import.
var supportedFormatVersions = map[string]struct{}{
	"1.0": {},
}

// Collection names used in validation issues, import results and
// preview counts.
const (
	CollectionSchemas     = "schemas"
	CollectionDeviceTypes = "device_types"
	CollectionDashboards  = "dashboards"
	CollectionAlertRules  = "alert_rules"
	CollectionAssets      = "assets"
)

// Widget config keys linking widgets to platform resources. On export the
// real-identifier key is replaced by its ref counterpart holding a package
// local identifier; on import the substitution is reversed.
const (
	widgetKeyDeviceTypeID  = "device_type_id"
	widgetKeyDeviceTypeRef = "device_type_ref"
	widgetKeyAssetID       = "asset_id"
	widgetKeyAssetRef      = "asset_ref"
)

// Package is a portable bundle of platform resources. It is produced by
// Export, checked by Validate and consumed by Import. Resources reference
// each other only through package-scoped local identifiers, never through
// tenant-scoped real identifiers.
//
// A Package is treated as immutable once produced; Import works on copies
// of the embedded configuration when substituting references.
type Package struct {
	Metadata  Metadata  `json:"metadata"`
	Resources Resources `json:"resources"`
	Mappings  Mappings  `json:"mappings"`
}

// Metadata describes the package itself.
type Metadata struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Version       string    `json:"version"`
	SchemaVersion string    `json:"schema_version"`
	Description   string    `json:"description,omitempty"`
	Author        string    `json:"author,omitempty"`
	AuthorEmail   string    `json:"author_email,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	Category      string    `json:"category,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Resources holds the typed resource collections of a package.
type Resources struct {
	Schemas     []PackagedSchema     `json:"schemas"`
	DeviceTypes []PackagedDeviceType `json:"device_types"`
	Dashboards  []PackagedDashboard  `json:"dashboards"`
	AlertRules  []PackagedAlertRule  `json:"alert_rules"`
	Assets      []PackagedAsset      `json:"assets"`
}

// Mappings holds derived, informational cross-reference data.
type Mappings struct {
	// References maps a source local identifier to the local identifiers
	// that depend on it. Derived by Export; used for validation warnings
	// and dependency visualisation, never for import ordering.
	References map[string][]string `json:"references"`
}

// PackagedSchema is a data schema stripped of tenant identity.
type PackagedSchema struct {
	LocalID     string            `json:"local_id"`
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Definition  schema.Definition `json:"definition"`
	Description string            `json:"description,omitempty"`
}

// PackagedDeviceType is a device type template stripped of tenant identity.
// SchemaRef, when set, names the local identifier of a schema in the same
// package.
type PackagedDeviceType struct {
	LocalID       string                   `json:"local_id"`
	Name          string                   `json:"name"`
	Description   string                   `json:"description,omitempty"`
	SchemaRef     string                   `json:"schema_ref,omitempty"`
	CustomFields  devicetype.CustomFields  `json:"custom_fields"`
	FieldMappings devicetype.FieldMappings `json:"field_mappings"`
	Icon          *string                  `json:"icon,omitempty"`
	Color         *string                  `json:"color,omitempty"`
}

// PackagedDashboard is a dashboard stripped of tenant identity. Widget
// configs may carry *_ref keys naming local identifiers in the same package.
type PackagedDashboard struct {
	LocalID     string             `json:"local_id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Layout      dashboard.Layout   `json:"layout"`
	Widgets     []dashboard.Widget `json:"widgets"`
	Filters     dashboard.Filters  `json:"filters"`
}

// PackagedAlertRule is an alert rule stripped of tenant identity.
// DeviceTypeRef, when set, names the local identifier of a device type in
// the same package.
type PackagedAlertRule struct {
	LocalID         string              `json:"local_id"`
	Name            string              `json:"name"`
	Description     string              `json:"description,omitempty"`
	Condition       alertrule.Condition `json:"condition"`
	DeviceTypeRef   string              `json:"device_type_ref,omitempty"`
	Severity        alertrule.Severity  `json:"severity"`
	IsEnabled       bool                `json:"is_enabled"`
	Actions         []alertrule.Action  `json:"actions"`
	CooldownMinutes int                 `json:"cooldown_minutes"`
}

// PackagedAsset is an asset stripped of tenant identity. ParentRef, when
// set, names the local identifier of another asset in the same package.
type PackagedAsset struct {
	LocalID   string         `json:"local_id"`
	Name      string         `json:"name"`
	Type      string         `json:"type"`
	ParentRef string         `json:"parent_ref,omitempty"`
	Icon      *string        `json:"icon,omitempty"`
	Metadata  asset.Metadata `json:"metadata"`
	Location  asset.Location `json:"location"`
}

// IDMap maps package local identifiers to tenant-scoped real identifiers.
// It is created at the start of an import, optionally seeded from a
// previous run, mutated only by that import, and returned to the caller.
type IDMap map[string]string

// Clone returns an independent copy of the map. Cloning a nil map returns
// an empty, non-nil map.
func (m IDMap) Clone() IDMap {
	cpy := make(IDMap, len(m))
	for k, v := range m {
		cpy[k] = v
	}
	return cpy
}

// Selection names the resources to include in an export. Schemas may be
// selected wholesale; other resource types are explicit identifier lists.
type Selection struct {
	AllSchemas    bool     `json:"all_schemas"`
	SchemaIDs     []string `json:"schema_ids,omitempty"`
	DeviceTypeIDs []string `json:"device_type_ids,omitempty"`
	DashboardIDs  []string `json:"dashboard_ids,omitempty"`
	AlertRuleIDs  []string `json:"alert_rule_ids,omitempty"`
	AssetIDs      []string `json:"asset_ids,omitempty"`
}

// ConflictPolicy controls how Import treats a package resource whose name
// already exists in the target tenant.
type ConflictPolicy string

// Conflict policies.
const (
	// ConflictSkip keeps the existing resource and binds the package's
	// local identifier to it.
	ConflictSkip ConflictPolicy = "skip"

	// ConflictOverwrite replaces the existing resource's content in place.
	// Only schemas honour Overwrite; other resource types degrade to Skip.
	ConflictOverwrite ConflictPolicy = "overwrite"

	// ConflictRename creates a new resource under a disambiguated name and
	// leaves the existing one untouched.
	ConflictRename ConflictPolicy = "rename"
)

// AllConflictPolicies returns all valid conflict policy values.
func AllConflictPolicies() []ConflictPolicy {
	return []ConflictPolicy{ConflictSkip, ConflictOverwrite, ConflictRename}
}

// ImportOptions carries per-import settings.
type ImportOptions struct {
	// Policy is the conflict-resolution policy applied across the package.
	Policy ConflictPolicy `json:"policy"`

	// IDMap optionally seeds the identifier map for incremental or merge
	// imports. Seeded entries win over package resources: a local
	// identifier already present is treated as imported.
	IDMap IDMap `json:"id_map,omitempty"`
}

// ImportResult reports the outcome of an import.
type ImportResult struct {
	// Success is true when no per-resource failure occurred. A failed
	// import still commits every unaffected resource; there is no rollback.
	Success bool `json:"success"`

	// Imported counts created or overwritten resources by collection.
	Imported map[string]int `json:"imported"`

	// Skipped lists the display names of resources left untouched by the
	// Skip policy, by collection.
	Skipped map[string][]string `json:"skipped"`

	// Errors holds one entry per failed resource.
	Errors []ImportError `json:"errors,omitempty"`

	// IDMap is the final local-to-real identifier map, including seeded
	// entries.
	IDMap IDMap `json:"id_map"`
}

// ImportError describes a single failed resource.
type ImportError struct {
	Collection string `json:"collection"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

// PreviewResult reports what an import would do, without writing anything.
type PreviewResult struct {
	// Counts is the number of package resources by collection.
	Counts map[string]int `json:"counts"`

	// Conflicts lists package resources whose name already exists in the
	// target tenant.
	Conflicts []Conflict `json:"conflicts,omitempty"`
}

// Conflict names a package resource that collides with an existing one.
type Conflict struct {
	Collection string `json:"collection"`
	LocalID    string `json:"local_id"`
	Name       string `json:"name"`
	ExistingID string `json:"existing_id"`
}
