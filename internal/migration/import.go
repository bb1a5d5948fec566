package migration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gridpoint-io/gridpoint-core/internal/alertrule"
	"github.com/gridpoint-io/gridpoint-core/internal/asset"
	"github.com/gridpoint-io/gridpoint-core/internal/dashboard"
	"github.com/gridpoint-io/gridpoint-core/internal/devicetype"
	"github.com/gridpoint-io/gridpoint-core/internal/schema"
)

// Import writes a package's resources into the target tenant in three
// ordered passes: schemas and assets first, device types second,
// dashboards and alert rules last. Later passes resolve their references
// through the identifier map populated by earlier ones.
//
// The package must pass Validate first; an invalid package returns
// ErrPackageInvalid without touching the tenant. Past that point failures
// are localised: a resource that cannot be written is recorded in the
// result's error list and processing continues, so a partially failed
// import still commits every unaffected resource. There is no rollback.
//
// Cancellation is honoured between resources, never mid-resource, so the
// identifier map always reflects every write that happened.
func (e *Engine) Import(ctx context.Context, tenantID string, pkg *Package, opts ImportOptions) (*ImportResult, error) {
	if pkg == nil {
		return nil, ErrNilPackage
	}
	policy := opts.Policy
	if policy == "" {
		policy = ConflictSkip
	}
	if policy != ConflictSkip && policy != ConflictOverwrite && policy != ConflictRename {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPolicy, opts.Policy)
	}

	validation, err := Validate(pkg)
	if err != nil {
		return nil, err
	}
	if !validation.Valid {
		return nil, fmt.Errorf("%w: %d error(s)", ErrPackageInvalid, len(validation.Errors))
	}

	idMap := opts.IDMap.Clone()
	result := &ImportResult{
		Imported: map[string]int{},
		Skipped:  map[string][]string{},
		Errors:   []ImportError{},
		IDMap:    idMap,
	}

	// Pass 1: base resources nothing else depends on for identity.
	if err := e.importSchemas(ctx, tenantID, pkg, policy, idMap, result); err != nil {
		return finishImport(result, e, tenantID, pkg, err)
	}
	if err := e.importAssets(ctx, tenantID, pkg, idMap, result); err != nil {
		return finishImport(result, e, tenantID, pkg, err)
	}

	// Pass 2: device types, which bind to schemas.
	if err := e.importDeviceTypes(ctx, tenantID, pkg, policy, idMap, result); err != nil {
		return finishImport(result, e, tenantID, pkg, err)
	}

	// Pass 3: leaf resources referencing device types and assets.
	if err := e.importDashboards(ctx, tenantID, pkg, policy, idMap, result); err != nil {
		return finishImport(result, e, tenantID, pkg, err)
	}
	if err := e.importAlertRules(ctx, tenantID, pkg, policy, idMap, result); err != nil {
		return finishImport(result, e, tenantID, pkg, err)
	}

	return finishImport(result, e, tenantID, pkg, nil)
}

func finishImport(result *ImportResult, e *Engine, tenantID string, pkg *Package, err error) (*ImportResult, error) {
	result.Success = err == nil && len(result.Errors) == 0
	e.logInfo("package import finished",
		"tenant_id", tenantID,
		"package", pkg.Metadata.Name,
		"success", result.Success,
		"failed", len(result.Errors))
	return result, err
}

func (r *ImportResult) recordError(collection, name string, err error) {
	r.Errors = append(r.Errors, ImportError{
		Collection: collection,
		Name:       name,
		Message:    err.Error(),
	})
}

func (r *ImportResult) recordSkip(collection, name string) {
	r.Skipped[collection] = append(r.Skipped[collection], name)
}

// renameMarker disambiguates a conflicting name under the Rename policy.
func renameMarker(name string) string {
	return fmt.Sprintf("%s (imported %s)", name, time.Now().UTC().Format("20060102-150405"))
}

func (e *Engine) importSchemas(ctx context.Context, tenantID string, pkg *Package, policy ConflictPolicy, idMap IDMap, result *ImportResult) error {
	for _, ps := range pkg.Resources.Schemas {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, seeded := idMap[ps.LocalID]; seeded {
			continue
		}

		existing, err := e.stores.Schemas.GetByName(ctx, tenantID, ps.Name)
		if err != nil && !errors.Is(err, schema.ErrNotFound) {
			result.recordError(CollectionSchemas, ps.Name, err)
			continue
		}

		name := ps.Name
		if existing != nil {
			switch policy {
			case ConflictSkip:
				idMap[ps.LocalID] = existing.ID
				result.recordSkip(CollectionSchemas, ps.Name)
				continue
			case ConflictOverwrite:
				updated := existing.DeepCopy()
				updated.Version = ps.Version
				updated.Definition = ps.Definition
				updated.Description = ps.Description
				if err := e.stores.Schemas.Update(ctx, updated); err != nil {
					result.recordError(CollectionSchemas, ps.Name, err)
					continue
				}
				idMap[ps.LocalID] = existing.ID
				result.Imported[CollectionSchemas]++
				continue
			case ConflictRename:
				name = renameMarker(ps.Name)
			}
		}

		created := &schema.Schema{
			TenantID:    tenantID,
			Name:        name,
			Version:     ps.Version,
			Definition:  ps.Definition,
			Description: ps.Description,
		}
		if err := e.stores.Schemas.Create(ctx, created); err != nil {
			result.recordError(CollectionSchemas, ps.Name, err)
			continue
		}
		idMap[ps.LocalID] = created.ID
		result.Imported[CollectionSchemas]++
	}
	return nil
}

// importAssets creates assets ancestors-first so every parent reference
// can be resolved at creation time. Assets are always created; the
// conflict policy does not apply to the asset hierarchy.
func (e *Engine) importAssets(ctx context.Context, tenantID string, pkg *Package, idMap IDMap, result *ImportResult) error {
	for _, pa := range sortAssetsByHierarchy(pkg.Resources.Assets) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, seeded := idMap[pa.LocalID]; seeded {
			continue
		}

		created := &asset.Asset{
			TenantID: tenantID,
			Name:     pa.Name,
			Type:     pa.Type,
			Icon:     pa.Icon,
			Metadata: pa.Metadata,
			Location: pa.Location,
		}
		// An unresolved parent degrades to a root asset rather than
		// failing the subtree.
		if pa.ParentRef != "" {
			if realID, ok := idMap[pa.ParentRef]; ok {
				created.ParentID = &realID
			}
		}
		if err := e.stores.Assets.Create(ctx, created); err != nil {
			result.recordError(CollectionAssets, pa.Name, err)
			continue
		}
		idMap[pa.LocalID] = created.ID
		result.Imported[CollectionAssets]++
	}
	return nil
}

// sortAssetsByHierarchy orders assets so that every parent precedes its
// children. Assets whose parent is absent from the package are roots. The
// visited set bounds the walk, so even a cyclic chain (which validation
// rejects) cannot loop.
func sortAssetsByHierarchy(assets []PackagedAsset) []PackagedAsset {
	index := make(map[string]int, len(assets))
	for i, a := range assets {
		index[a.LocalID] = i
	}

	ordered := make([]PackagedAsset, 0, len(assets))
	visited := make(map[string]struct{}, len(assets))
	var visit func(i int)
	visit = func(i int) {
		a := assets[i]
		if _, done := visited[a.LocalID]; done {
			return
		}
		visited[a.LocalID] = struct{}{}
		if a.ParentRef != "" {
			if j, ok := index[a.ParentRef]; ok {
				visit(j)
			}
		}
		ordered = append(ordered, a)
	}
	for i := range assets {
		visit(i)
	}
	return ordered
}

func (e *Engine) importDeviceTypes(ctx context.Context, tenantID string, pkg *Package, policy ConflictPolicy, idMap IDMap, result *ImportResult) error {
	for _, pdt := range pkg.Resources.DeviceTypes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, seeded := idMap[pdt.LocalID]; seeded {
			continue
		}

		existing, err := e.stores.DeviceTypes.GetByName(ctx, tenantID, pdt.Name)
		if err != nil && !errors.Is(err, devicetype.ErrNotFound) {
			result.recordError(CollectionDeviceTypes, pdt.Name, err)
			continue
		}

		name := pdt.Name
		if existing != nil {
			// Overwrite is honoured for schemas only; device types
			// degrade to Skip to avoid mutating templates live devices
			// already bind to.
			switch policy {
			case ConflictSkip, ConflictOverwrite:
				idMap[pdt.LocalID] = existing.ID
				result.recordSkip(CollectionDeviceTypes, pdt.Name)
				continue
			case ConflictRename:
				name = renameMarker(pdt.Name)
			}
		}

		created := &devicetype.DeviceType{
			TenantID:      tenantID,
			Name:          name,
			Description:   pdt.Description,
			CustomFields:  pdt.CustomFields,
			FieldMappings: pdt.FieldMappings,
			Icon:          pdt.Icon,
			Color:         pdt.Color,
		}
		if pdt.SchemaRef != "" {
			if realID, ok := idMap[pdt.SchemaRef]; ok {
				created.SchemaID = &realID
			}
		}
		if err := e.stores.DeviceTypes.Create(ctx, created); err != nil {
			result.recordError(CollectionDeviceTypes, pdt.Name, err)
			continue
		}
		idMap[pdt.LocalID] = created.ID
		result.Imported[CollectionDeviceTypes]++
	}
	return nil
}

func (e *Engine) importDashboards(ctx context.Context, tenantID string, pkg *Package, policy ConflictPolicy, idMap IDMap, result *ImportResult) error {
	for _, pd := range pkg.Resources.Dashboards {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, seeded := idMap[pd.LocalID]; seeded {
			continue
		}

		existing, err := e.stores.Dashboards.GetByName(ctx, tenantID, pd.Name)
		if err != nil && !errors.Is(err, dashboard.ErrNotFound) {
			result.recordError(CollectionDashboards, pd.Name, err)
			continue
		}

		name := pd.Name
		if existing != nil {
			switch policy {
			case ConflictSkip, ConflictOverwrite:
				idMap[pd.LocalID] = existing.ID
				result.recordSkip(CollectionDashboards, pd.Name)
				continue
			case ConflictRename:
				name = renameMarker(pd.Name)
			}
		}

		// Widget configs are rewritten on a copy; the package itself
		// stays untouched.
		source := dashboard.Dashboard{
			Name:        name,
			Description: pd.Description,
			Layout:      pd.Layout,
			Widgets:     pd.Widgets,
			Filters:     pd.Filters,
		}
		created := source.DeepCopy()
		created.TenantID = tenantID
		for i := range created.Widgets {
			rewriteWidgetToReal(created.Widgets[i].Config, idMap)
		}
		if err := e.stores.Dashboards.Create(ctx, created); err != nil {
			result.recordError(CollectionDashboards, pd.Name, err)
			continue
		}
		idMap[pd.LocalID] = created.ID
		result.Imported[CollectionDashboards]++
	}
	return nil
}

func (e *Engine) importAlertRules(ctx context.Context, tenantID string, pkg *Package, policy ConflictPolicy, idMap IDMap, result *ImportResult) error {
	for _, pr := range pkg.Resources.AlertRules {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, seeded := idMap[pr.LocalID]; seeded {
			continue
		}

		existing, err := e.stores.AlertRules.GetByName(ctx, tenantID, pr.Name)
		if err != nil && !errors.Is(err, alertrule.ErrNotFound) {
			result.recordError(CollectionAlertRules, pr.Name, err)
			continue
		}

		name := pr.Name
		if existing != nil {
			switch policy {
			case ConflictSkip, ConflictOverwrite:
				idMap[pr.LocalID] = existing.ID
				result.recordSkip(CollectionAlertRules, pr.Name)
				continue
			case ConflictRename:
				name = renameMarker(pr.Name)
			}
		}

		created := &alertrule.AlertRule{
			TenantID:        tenantID,
			Name:            name,
			Description:     pr.Description,
			Condition:       pr.Condition,
			Severity:        pr.Severity,
			IsEnabled:       pr.IsEnabled,
			Actions:         pr.Actions,
			CooldownMinutes: pr.CooldownMinutes,
		}
		if pr.DeviceTypeRef != "" {
			if realID, ok := idMap[pr.DeviceTypeRef]; ok {
				created.DeviceTypeID = &realID
			}
		}
		if err := e.stores.AlertRules.Create(ctx, created); err != nil {
			result.recordError(CollectionAlertRules, pr.Name, err)
			continue
		}
		idMap[pr.LocalID] = created.ID
		result.Imported[CollectionAlertRules]++
	}
	return nil
}

// rewriteWidgetToReal is the inverse of the export rewrite: local
// reference keys whose value resolves through the identifier map are
// replaced by the real-identifier key. Unresolved references are left in
// place so nothing is silently dropped.
func rewriteWidgetToReal(config map[string]any, idMap IDMap) {
	swap := func(refKey, realKey string) {
		local, ok := widgetRef(config, refKey)
		if !ok {
			return
		}
		realID, ok := idMap[local]
		if !ok {
			return
		}
		config[realKey] = realID
		delete(config, refKey)
	}
	swap(widgetKeyDeviceTypeRef, widgetKeyDeviceTypeID)
	swap(widgetKeyAssetRef, widgetKeyAssetID)
}
