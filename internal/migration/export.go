package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gridpoint-io/gridpoint-core/internal/schema"
)

// Export reads the selected resources from the source tenant and produces
// a portable package. Cross-references are rewritten from tenant-scoped
// real identifiers to package-scoped local identifiers of the form
// <type>_<n>; the numbering is stable within one call only.
//
// A collaborator fetch that fails for one requested identifier skips that
// resource rather than aborting the export. The resulting package is
// internally valid whenever the source tenant is well formed.
func (e *Engine) Export(ctx context.Context, tenantID string, meta Metadata, sel Selection) (*Package, error) {
	if meta.Name == "" {
		return nil, ErrNameRequired
	}
	if meta.Version == "" {
		meta.Version = "1.0.0"
	}
	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}
	meta.SchemaVersion = FormatVersion
	now := time.Now().UTC()
	meta.CreatedAt = now
	meta.UpdatedAt = now

	pkg := &Package{
		Metadata: meta,
		Resources: Resources{
			Schemas:     []PackagedSchema{},
			DeviceTypes: []PackagedDeviceType{},
			Dashboards:  []PackagedDashboard{},
			AlertRules:  []PackagedAlertRule{},
			Assets:      []PackagedAsset{},
		},
		Mappings: Mappings{References: map[string][]string{}},
	}

	// realToLocal translates tenant-scoped identifiers into local ones,
	// shared across all resource types. Counters mint local identifiers
	// per type.
	realToLocal := make(map[string]string)
	counters := make(map[string]int)
	mint := func(prefix, realID string) string {
		counters[prefix]++
		localID := fmt.Sprintf("%s_%d", prefix, counters[prefix])
		realToLocal[realID] = localID
		return localID
	}

	if err := e.exportSchemas(ctx, tenantID, sel, pkg, mint); err != nil {
		return nil, err
	}
	e.exportDeviceTypes(ctx, tenantID, sel.DeviceTypeIDs, pkg, realToLocal, mint)
	e.exportDashboards(ctx, tenantID, sel.DashboardIDs, pkg, realToLocal, mint)
	e.exportAlertRules(ctx, tenantID, sel.AlertRuleIDs, pkg, realToLocal, mint)
	e.exportAssets(ctx, tenantID, sel.AssetIDs, pkg, realToLocal, mint)

	deriveReferences(pkg)

	e.logInfo("package exported",
		"tenant_id", tenantID,
		"package", meta.Name,
		"schemas", len(pkg.Resources.Schemas),
		"device_types", len(pkg.Resources.DeviceTypes),
		"dashboards", len(pkg.Resources.Dashboards),
		"alert_rules", len(pkg.Resources.AlertRules),
		"assets", len(pkg.Resources.Assets))
	return pkg, nil
}

func (e *Engine) exportSchemas(ctx context.Context, tenantID string, sel Selection, pkg *Package, mint func(string, string) string) error {
	if sel.AllSchemas {
		all, err := e.stores.Schemas.List(ctx, tenantID)
		if err != nil {
			return fmt.Errorf("listing schemas: %w", err)
		}
		for i := range all {
			e.appendSchema(pkg, &all[i], mint)
		}
		return nil
	}
	for _, id := range sel.SchemaIDs {
		s, err := e.stores.Schemas.GetByID(ctx, tenantID, id)
		if err != nil {
			e.logWarn("schema skipped during export", "schema_id", id, "error", err)
			continue
		}
		e.appendSchema(pkg, s, mint)
	}
	return nil
}

func (e *Engine) appendSchema(pkg *Package, s *schema.Schema, mint func(string, string) string) {
	cpy := s.DeepCopy()
	pkg.Resources.Schemas = append(pkg.Resources.Schemas, PackagedSchema{
		LocalID:     mint("schema", s.ID),
		Name:        cpy.Name,
		Version:     cpy.Version,
		Definition:  cpy.Definition,
		Description: cpy.Description,
	})
}

func (e *Engine) exportDeviceTypes(ctx context.Context, tenantID string, ids []string, pkg *Package, realToLocal map[string]string, mint func(string, string) string) {
	for _, id := range ids {
		dt, err := e.stores.DeviceTypes.GetByID(ctx, tenantID, id)
		if err != nil {
			e.logWarn("device type skipped during export", "device_type_id", id, "error", err)
			continue
		}
		packaged := PackagedDeviceType{
			LocalID:       mint("device_type", dt.ID),
			Name:          dt.Name,
			Description:   dt.Description,
			CustomFields:  dt.CustomFields,
			FieldMappings: dt.FieldMappings,
			Icon:          dt.Icon,
			Color:         dt.Color,
		}
		// Only schemas already in the package can be referenced; a
		// binding to an unexported schema is dropped.
		if dt.SchemaID != nil {
			if local, ok := realToLocal[*dt.SchemaID]; ok {
				packaged.SchemaRef = local
			}
		}
		pkg.Resources.DeviceTypes = append(pkg.Resources.DeviceTypes, packaged)
	}
}

func (e *Engine) exportDashboards(ctx context.Context, tenantID string, ids []string, pkg *Package, realToLocal map[string]string, mint func(string, string) string) {
	for _, id := range ids {
		d, err := e.stores.Dashboards.GetByID(ctx, tenantID, id)
		if err != nil {
			e.logWarn("dashboard skipped during export", "dashboard_id", id, "error", err)
			continue
		}
		cpy := d.DeepCopy()
		for i := range cpy.Widgets {
			rewriteWidgetToLocal(cpy.Widgets[i].Config, realToLocal)
		}
		pkg.Resources.Dashboards = append(pkg.Resources.Dashboards, PackagedDashboard{
			LocalID:     mint("dashboard", d.ID),
			Name:        cpy.Name,
			Description: cpy.Description,
			Layout:      cpy.Layout,
			Widgets:     cpy.Widgets,
			Filters:     cpy.Filters,
		})
	}
}

func (e *Engine) exportAlertRules(ctx context.Context, tenantID string, ids []string, pkg *Package, realToLocal map[string]string, mint func(string, string) string) {
	for _, id := range ids {
		r, err := e.stores.AlertRules.GetByID(ctx, tenantID, id)
		if err != nil {
			e.logWarn("alert rule skipped during export", "alert_rule_id", id, "error", err)
			continue
		}
		packaged := PackagedAlertRule{
			LocalID:         mint("alert_rule", r.ID),
			Name:            r.Name,
			Description:     r.Description,
			Condition:       r.Condition,
			Severity:        r.Severity,
			IsEnabled:       r.IsEnabled,
			Actions:         r.Actions,
			CooldownMinutes: r.CooldownMinutes,
		}
		if r.DeviceTypeID != nil {
			if local, ok := realToLocal[*r.DeviceTypeID]; ok {
				packaged.DeviceTypeRef = local
			}
		}
		pkg.Resources.AlertRules = append(pkg.Resources.AlertRules, packaged)
	}
}

// exportAssets runs in two phases so parent references resolve regardless
// of the order identifiers were requested in: every asset gets its local
// identifier first, then parent references are rewritten.
func (e *Engine) exportAssets(ctx context.Context, tenantID string, ids []string, pkg *Package, realToLocal map[string]string, mint func(string, string) string) {
	type pending struct {
		packaged PackagedAsset
		parentID *string
	}
	fetched := make([]pending, 0, len(ids))
	for _, id := range ids {
		a, err := e.stores.Assets.GetByID(ctx, tenantID, id)
		if err != nil {
			e.logWarn("asset skipped during export", "asset_id", id, "error", err)
			continue
		}
		fetched = append(fetched, pending{
			packaged: PackagedAsset{
				LocalID:  mint("asset", a.ID),
				Name:     a.Name,
				Type:     a.Type,
				Icon:     a.Icon,
				Metadata: a.Metadata,
				Location: a.Location,
			},
			parentID: a.ParentID,
		})
	}
	for _, p := range fetched {
		if p.parentID != nil {
			if local, ok := realToLocal[*p.parentID]; ok {
				p.packaged.ParentRef = local
			}
		}
		pkg.Resources.Assets = append(pkg.Resources.Assets, p.packaged)
	}
}

// rewriteWidgetToLocal swaps real-identifier widget config keys for their
// local-reference counterparts. Unknown identifiers leave the config
// untouched so the widget keeps whatever binding it had.
func rewriteWidgetToLocal(config map[string]any, realToLocal map[string]string) {
	swap := func(realKey, refKey string) {
		realID, ok := widgetRef(config, realKey)
		if !ok {
			return
		}
		local, ok := realToLocal[realID]
		if !ok {
			return
		}
		config[refKey] = local
		delete(config, realKey)
	}
	swap(widgetKeyDeviceTypeID, widgetKeyDeviceTypeRef)
	swap(widgetKeyAssetID, widgetKeyAssetRef)
}

// deriveReferences builds the informational dependency map: schemas to the
// device types bound to them, device types to the dashboards and alert
// rules that reference them. Entries with no dependents are omitted.
func deriveReferences(pkg *Package) {
	for _, s := range pkg.Resources.Schemas {
		var dependents []string
		for _, dt := range pkg.Resources.DeviceTypes {
			if dt.SchemaRef == s.LocalID {
				dependents = append(dependents, dt.LocalID)
			}
		}
		if len(dependents) > 0 {
			pkg.Mappings.References[s.LocalID] = dependents
		}
	}
	for _, dt := range pkg.Resources.DeviceTypes {
		var dependents []string
		for _, d := range pkg.Resources.Dashboards {
			for _, w := range d.Widgets {
				if ref, ok := widgetRef(w.Config, widgetKeyDeviceTypeRef); ok && ref == dt.LocalID {
					dependents = append(dependents, d.LocalID)
					break
				}
			}
		}
		for _, r := range pkg.Resources.AlertRules {
			if r.DeviceTypeRef == dt.LocalID {
				dependents = append(dependents, r.LocalID)
			}
		}
		if len(dependents) > 0 {
			pkg.Mappings.References[dt.LocalID] = dependents
		}
	}
}
