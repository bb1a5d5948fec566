package migration

import (
	"fmt"
	"regexp"
)

// Issue codes reported by Validate.
const (
	CodeNameRequired        = "NAME_REQUIRED"
	CodeVersionInvalid      = "VERSION_INVALID"
	CodeFormatUnsupported   = "FORMAT_UNSUPPORTED"
	CodeLocalIDRequired     = "LOCALID_REQUIRED"
	CodeLocalIDDuplicate    = "LOCALID_DUPLICATE"
	CodeFieldRequired       = "FIELD_REQUIRED"
	CodeRefUnresolved       = "REF_UNRESOLVED"
	CodeCircularReference   = "CIRCULAR_REFERENCE"
	CodeWidgetRefUnresolved = "WIDGET_REF_UNRESOLVED"
	CodeMappingUnknownLocal = "MAPPING_UNKNOWN_LOCALID"
)

// semverPattern accepts two or three dot-separated integer components.
// The stricter three-component form is recommended but not required.
var semverPattern = regexp.MustCompile(`^\d+(\.\d+){1,2}$`)

// Issue is a single validation finding tied to a location in the package.
type Issue struct {
	Code       string `json:"code"`
	Collection string `json:"collection,omitempty"`
	LocalID    string `json:"local_id,omitempty"`
	Message    string `json:"message"`
}

// ValidationResult is the outcome of Validate. Valid is true exactly when
// Errors is empty; warnings never block an import.
type ValidationResult struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

func (r *ValidationResult) addError(code, collection, localID, format string, args ...any) {
	r.Errors = append(r.Errors, Issue{
		Code:       code,
		Collection: collection,
		LocalID:    localID,
		Message:    fmt.Sprintf(format, args...),
	})
}

func (r *ValidationResult) addWarning(code, collection, localID, format string, args ...any) {
	r.Warnings = append(r.Warnings, Issue{
		Code:       code,
		Collection: collection,
		LocalID:    localID,
		Message:    fmt.Sprintf(format, args...),
	})
}

// Validate checks a package for structural and referential integrity. It
// never mutates the package, and malformed data produces issues rather
// than an error; the error return is reserved for a nil package. All
// checks run and their findings accumulate, so a single call reports
// every problem at once.
func Validate(pkg *Package) (*ValidationResult, error) {
	if pkg == nil {
		return nil, ErrNilPackage
	}

	result := &ValidationResult{
		Errors:   []Issue{},
		Warnings: []Issue{},
	}

	validateMetadata(pkg, result)

	schemaIDs := collectLocalIDs(result, CollectionSchemas, len(pkg.Resources.Schemas), func(i int) string {
		return pkg.Resources.Schemas[i].LocalID
	})
	deviceTypeIDs := collectLocalIDs(result, CollectionDeviceTypes, len(pkg.Resources.DeviceTypes), func(i int) string {
		return pkg.Resources.DeviceTypes[i].LocalID
	})
	collectLocalIDs(result, CollectionDashboards, len(pkg.Resources.Dashboards), func(i int) string {
		return pkg.Resources.Dashboards[i].LocalID
	})
	collectLocalIDs(result, CollectionAlertRules, len(pkg.Resources.AlertRules), func(i int) string {
		return pkg.Resources.AlertRules[i].LocalID
	})
	assetIDs := collectLocalIDs(result, CollectionAssets, len(pkg.Resources.Assets), func(i int) string {
		return pkg.Resources.Assets[i].LocalID
	})

	validateRequiredFields(pkg, result)
	validateReferences(pkg, result, schemaIDs, deviceTypeIDs, assetIDs)
	validateAssetHierarchy(pkg, result)
	validateReferenceMap(pkg, result, schemaIDs, deviceTypeIDs, assetIDs)

	result.Valid = len(result.Errors) == 0
	return result, nil
}

func validateMetadata(pkg *Package, result *ValidationResult) {
	if pkg.Metadata.Name == "" {
		result.addError(CodeNameRequired, "", "", "package name is required")
	}
	if pkg.Metadata.Version == "" {
		result.addError(CodeVersionInvalid, "", "", "package version is required")
	} else if !semverPattern.MatchString(pkg.Metadata.Version) {
		result.addError(CodeVersionInvalid, "", "",
			"package version %q is not a semantic version", pkg.Metadata.Version)
	}
	if _, ok := supportedFormatVersions[pkg.Metadata.SchemaVersion]; !ok {
		result.addError(CodeFormatUnsupported, "", "",
			"package format version %q is not supported", pkg.Metadata.SchemaVersion)
	}
}

// collectLocalIDs checks local identifier presence and uniqueness within
// one collection and returns the set of identifiers seen, duplicates
// included, for use by the cross-reference checks.
func collectLocalIDs(result *ValidationResult, collection string, n int, localID func(int) string) map[string]struct{} {
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		id := localID(i)
		if id == "" {
			result.addError(CodeLocalIDRequired, collection, "",
				"%s[%d] has no local identifier", collection, i)
			continue
		}
		if _, dup := seen[id]; dup {
			result.addError(CodeLocalIDDuplicate, collection, id,
				"local identifier %q appears more than once in %s", id, collection)
			continue
		}
		seen[id] = struct{}{}
	}
	return seen
}

func validateRequiredFields(pkg *Package, result *ValidationResult) {
	for _, s := range pkg.Resources.Schemas {
		if s.Name == "" {
			result.addError(CodeFieldRequired, CollectionSchemas, s.LocalID,
				"schema %q has no name", s.LocalID)
		}
		if len(s.Definition) == 0 {
			result.addError(CodeFieldRequired, CollectionSchemas, s.LocalID,
				"schema %q has an empty definition", s.LocalID)
		}
	}
	for _, dt := range pkg.Resources.DeviceTypes {
		if dt.Name == "" {
			result.addError(CodeFieldRequired, CollectionDeviceTypes, dt.LocalID,
				"device type %q has no name", dt.LocalID)
		}
	}
	for _, d := range pkg.Resources.Dashboards {
		if d.Name == "" {
			result.addError(CodeFieldRequired, CollectionDashboards, d.LocalID,
				"dashboard %q has no name", d.LocalID)
		}
	}
	for _, r := range pkg.Resources.AlertRules {
		if r.Name == "" {
			result.addError(CodeFieldRequired, CollectionAlertRules, r.LocalID,
				"alert rule %q has no name", r.LocalID)
		}
		if len(r.Condition) == 0 {
			result.addError(CodeFieldRequired, CollectionAlertRules, r.LocalID,
				"alert rule %q has an empty condition", r.LocalID)
		}
	}
	for _, a := range pkg.Resources.Assets {
		if a.Name == "" {
			result.addError(CodeFieldRequired, CollectionAssets, a.LocalID,
				"asset %q has no name", a.LocalID)
		}
	}
}

// validateReferences checks direct entity references (errors) and
// widget-embedded references (warnings).
func validateReferences(pkg *Package, result *ValidationResult, schemaIDs, deviceTypeIDs, assetIDs map[string]struct{}) {
	for _, dt := range pkg.Resources.DeviceTypes {
		if dt.SchemaRef == "" {
			continue
		}
		if _, ok := schemaIDs[dt.SchemaRef]; !ok {
			result.addError(CodeRefUnresolved, CollectionDeviceTypes, dt.LocalID,
				"device type %q references unknown schema %q", dt.LocalID, dt.SchemaRef)
		}
	}
	for _, r := range pkg.Resources.AlertRules {
		if r.DeviceTypeRef == "" {
			continue
		}
		if _, ok := deviceTypeIDs[r.DeviceTypeRef]; !ok {
			result.addError(CodeRefUnresolved, CollectionAlertRules, r.LocalID,
				"alert rule %q references unknown device type %q", r.LocalID, r.DeviceTypeRef)
		}
	}
	for _, a := range pkg.Resources.Assets {
		if a.ParentRef == "" {
			continue
		}
		if _, ok := assetIDs[a.ParentRef]; !ok {
			result.addError(CodeRefUnresolved, CollectionAssets, a.LocalID,
				"asset %q references unknown parent %q", a.LocalID, a.ParentRef)
		}
	}

	// A dashboard widget with a dangling binding still renders, just with
	// no data behind it, so unresolved widget references stay warnings.
	for _, d := range pkg.Resources.Dashboards {
		for _, w := range d.Widgets {
			if ref, ok := widgetRef(w.Config, widgetKeyDeviceTypeRef); ok {
				if _, known := deviceTypeIDs[ref]; !known {
					result.addWarning(CodeWidgetRefUnresolved, CollectionDashboards, d.LocalID,
						"dashboard %q widget %q references unknown device type %q", d.LocalID, w.ID, ref)
				}
			}
			if ref, ok := widgetRef(w.Config, widgetKeyAssetRef); ok {
				if _, known := assetIDs[ref]; !known {
					result.addWarning(CodeWidgetRefUnresolved, CollectionDashboards, d.LocalID,
						"dashboard %q widget %q references unknown asset %q", d.LocalID, w.ID, ref)
				}
			}
		}
	}
}

// validateAssetHierarchy walks every asset's parent chain looking for
// cycles. The walk is bounded by the asset count so malformed input can
// never loop forever.
func validateAssetHierarchy(pkg *Package, result *ValidationResult) {
	parents := make(map[string]string, len(pkg.Resources.Assets))
	for _, a := range pkg.Resources.Assets {
		if a.LocalID != "" && a.ParentRef != "" {
			parents[a.LocalID] = a.ParentRef
		}
	}

	for _, a := range pkg.Resources.Assets {
		if a.LocalID == "" || a.ParentRef == "" {
			continue
		}
		visited := map[string]struct{}{a.LocalID: {}}
		current := a.ParentRef
		for i := 0; i < len(pkg.Resources.Assets); i++ {
			if _, seen := visited[current]; seen {
				result.addError(CodeCircularReference, CollectionAssets, a.LocalID,
					"asset %q is part of a circular parent chain", a.LocalID)
				break
			}
			visited[current] = struct{}{}
			next, ok := parents[current]
			if !ok {
				break
			}
			current = next
		}
	}
}

// validateReferenceMap checks that every endpoint named in the derived
// reference map is a known local identifier. Dangling endpoints are
// warnings; the map is informational and never drives import ordering.
func validateReferenceMap(pkg *Package, result *ValidationResult, schemaIDs, deviceTypeIDs, assetIDs map[string]struct{}) {
	if len(pkg.Mappings.References) == 0 {
		return
	}

	known := make(map[string]struct{})
	for id := range schemaIDs {
		known[id] = struct{}{}
	}
	for id := range deviceTypeIDs {
		known[id] = struct{}{}
	}
	for id := range assetIDs {
		known[id] = struct{}{}
	}
	for _, d := range pkg.Resources.Dashboards {
		if d.LocalID != "" {
			known[d.LocalID] = struct{}{}
		}
	}
	for _, r := range pkg.Resources.AlertRules {
		if r.LocalID != "" {
			known[r.LocalID] = struct{}{}
		}
	}

	for source, dependents := range pkg.Mappings.References {
		if _, ok := known[source]; !ok {
			result.addWarning(CodeMappingUnknownLocal, "", source,
				"reference map names unknown local identifier %q", source)
		}
		for _, dep := range dependents {
			if _, ok := known[dep]; !ok {
				result.addWarning(CodeMappingUnknownLocal, "", dep,
					"reference map names unknown local identifier %q", dep)
			}
		}
	}
}

// widgetRef reads a string-valued reference key from a widget config.
func widgetRef(config map[string]any, key string) (string, bool) {
	if config == nil {
		return "", false
	}
	v, ok := config[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
