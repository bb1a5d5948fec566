package migration

import (
	"context"
	"errors"

	"github.com/gridpoint-io/gridpoint-core/internal/alertrule"
	"github.com/gridpoint-io/gridpoint-core/internal/dashboard"
	"github.com/gridpoint-io/gridpoint-core/internal/devicetype"
	"github.com/gridpoint-io/gridpoint-core/internal/schema"
)

// Preview reports what importing the package into the tenant would do:
// resource counts by collection plus every name collision with an
// existing resource. Nothing is written. Assets are counted but never
// listed as conflicts because import always creates them.
func (e *Engine) Preview(ctx context.Context, tenantID string, pkg *Package) (*PreviewResult, error) {
	if pkg == nil {
		return nil, ErrNilPackage
	}

	result := &PreviewResult{
		Counts: map[string]int{
			CollectionSchemas:     len(pkg.Resources.Schemas),
			CollectionDeviceTypes: len(pkg.Resources.DeviceTypes),
			CollectionDashboards:  len(pkg.Resources.Dashboards),
			CollectionAlertRules:  len(pkg.Resources.AlertRules),
			CollectionAssets:      len(pkg.Resources.Assets),
		},
		Conflicts: []Conflict{},
	}

	for _, ps := range pkg.Resources.Schemas {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		existing, err := e.stores.Schemas.GetByName(ctx, tenantID, ps.Name)
		if err != nil {
			if errors.Is(err, schema.ErrNotFound) {
				continue
			}
			return nil, err
		}
		result.Conflicts = append(result.Conflicts, Conflict{
			Collection: CollectionSchemas,
			LocalID:    ps.LocalID,
			Name:       ps.Name,
			ExistingID: existing.ID,
		})
	}
	for _, pdt := range pkg.Resources.DeviceTypes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		existing, err := e.stores.DeviceTypes.GetByName(ctx, tenantID, pdt.Name)
		if err != nil {
			if errors.Is(err, devicetype.ErrNotFound) {
				continue
			}
			return nil, err
		}
		result.Conflicts = append(result.Conflicts, Conflict{
			Collection: CollectionDeviceTypes,
			LocalID:    pdt.LocalID,
			Name:       pdt.Name,
			ExistingID: existing.ID,
		})
	}
	for _, pd := range pkg.Resources.Dashboards {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		existing, err := e.stores.Dashboards.GetByName(ctx, tenantID, pd.Name)
		if err != nil {
			if errors.Is(err, dashboard.ErrNotFound) {
				continue
			}
			return nil, err
		}
		result.Conflicts = append(result.Conflicts, Conflict{
			Collection: CollectionDashboards,
			LocalID:    pd.LocalID,
			Name:       pd.Name,
			ExistingID: existing.ID,
		})
	}
	for _, pr := range pkg.Resources.AlertRules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		existing, err := e.stores.AlertRules.GetByName(ctx, tenantID, pr.Name)
		if err != nil {
			if errors.Is(err, alertrule.ErrNotFound) {
				continue
			}
			return nil, err
		}
		result.Conflicts = append(result.Conflicts, Conflict{
			Collection: CollectionAlertRules,
			LocalID:    pr.LocalID,
			Name:       pr.Name,
			ExistingID: existing.ID,
		})
	}

	return result, nil
}
