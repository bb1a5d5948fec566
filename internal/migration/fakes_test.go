package migration

import (
	"context"
	"errors"
	"fmt"

	"github.com/gridpoint-io/gridpoint-core/internal/alertrule"
	"github.com/gridpoint-io/gridpoint-core/internal/asset"
	"github.com/gridpoint-io/gridpoint-core/internal/dashboard"
	"github.com/gridpoint-io/gridpoint-core/internal/devicetype"
	"github.com/gridpoint-io/gridpoint-core/internal/schema"
)

// ─── In-Memory Fakes ────────────────────────────────────────────────────────

// fakeTenant is an in-memory stand-in for all five resource stores. It
// records every write and can be told to fail creation for a given
// resource name.
type fakeTenant struct {
	schemas     []*schema.Schema
	deviceTypes []*devicetype.DeviceType
	dashboards  []*dashboard.Dashboard
	alertRules  []*alertrule.AlertRule
	assets      []*asset.Asset

	nextID       int
	failCreate   map[string]error // resource name -> error to return
	updatedNames []string         // schema names passed to Update
}

func newFakeTenant() *fakeTenant {
	return &fakeTenant{failCreate: map[string]error{}}
}

func (f *fakeTenant) stores() Stores {
	return Stores{
		Schemas:     (*fakeSchemaStore)(f),
		DeviceTypes: (*fakeDeviceTypeStore)(f),
		Dashboards:  (*fakeDashboardStore)(f),
		AlertRules:  (*fakeAlertRuleStore)(f),
		Assets:      (*fakeAssetStore)(f),
	}
}

func (f *fakeTenant) mintID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-real-%d", prefix, f.nextID)
}

func (f *fakeTenant) checkFail(name string) error {
	if err, ok := f.failCreate[name]; ok {
		return err
	}
	return nil
}

// ─── Schema Store ───────────────────────────────────────────────────────────

type fakeSchemaStore fakeTenant

func (f *fakeSchemaStore) List(_ context.Context, tenantID string) ([]schema.Schema, error) {
	var out []schema.Schema
	for _, s := range f.schemas {
		if s.TenantID == tenantID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSchemaStore) GetByID(_ context.Context, tenantID, id string) (*schema.Schema, error) {
	for _, s := range f.schemas {
		if s.TenantID == tenantID && s.ID == id {
			return s.DeepCopy(), nil
		}
	}
	return nil, schema.ErrNotFound
}

func (f *fakeSchemaStore) GetByName(_ context.Context, tenantID, name string) (*schema.Schema, error) {
	for _, s := range f.schemas {
		if s.TenantID == tenantID && s.Name == name {
			return s.DeepCopy(), nil
		}
	}
	return nil, schema.ErrNotFound
}

func (f *fakeSchemaStore) Create(_ context.Context, s *schema.Schema) error {
	if err := (*fakeTenant)(f).checkFail(s.Name); err != nil {
		return err
	}
	if s.ID == "" {
		s.ID = (*fakeTenant)(f).mintID("schema")
	}
	f.schemas = append(f.schemas, s.DeepCopy())
	return nil
}

func (f *fakeSchemaStore) Update(_ context.Context, s *schema.Schema) error {
	for i, existing := range f.schemas {
		if existing.TenantID == s.TenantID && existing.ID == s.ID {
			f.schemas[i] = s.DeepCopy()
			f.updatedNames = append(f.updatedNames, s.Name)
			return nil
		}
	}
	return schema.ErrNotFound
}

// ─── Device Type Store ──────────────────────────────────────────────────────

type fakeDeviceTypeStore fakeTenant

func (f *fakeDeviceTypeStore) GetByID(_ context.Context, tenantID, id string) (*devicetype.DeviceType, error) {
	for _, dt := range f.deviceTypes {
		if dt.TenantID == tenantID && dt.ID == id {
			return dt.DeepCopy(), nil
		}
	}
	return nil, devicetype.ErrNotFound
}

func (f *fakeDeviceTypeStore) GetByName(_ context.Context, tenantID, name string) (*devicetype.DeviceType, error) {
	for _, dt := range f.deviceTypes {
		if dt.TenantID == tenantID && dt.Name == name {
			return dt.DeepCopy(), nil
		}
	}
	return nil, devicetype.ErrNotFound
}

func (f *fakeDeviceTypeStore) Create(_ context.Context, dt *devicetype.DeviceType) error {
	if err := (*fakeTenant)(f).checkFail(dt.Name); err != nil {
		return err
	}
	if dt.ID == "" {
		dt.ID = (*fakeTenant)(f).mintID("devicetype")
	}
	f.deviceTypes = append(f.deviceTypes, dt.DeepCopy())
	return nil
}

// ─── Dashboard Store ────────────────────────────────────────────────────────

type fakeDashboardStore fakeTenant

func (f *fakeDashboardStore) GetByID(_ context.Context, tenantID, id string) (*dashboard.Dashboard, error) {
	for _, d := range f.dashboards {
		if d.TenantID == tenantID && d.ID == id {
			return d.DeepCopy(), nil
		}
	}
	return nil, dashboard.ErrNotFound
}

func (f *fakeDashboardStore) GetByName(_ context.Context, tenantID, name string) (*dashboard.Dashboard, error) {
	for _, d := range f.dashboards {
		if d.TenantID == tenantID && d.Name == name {
			return d.DeepCopy(), nil
		}
	}
	return nil, dashboard.ErrNotFound
}

func (f *fakeDashboardStore) Create(_ context.Context, d *dashboard.Dashboard) error {
	if err := (*fakeTenant)(f).checkFail(d.Name); err != nil {
		return err
	}
	if d.ID == "" {
		d.ID = (*fakeTenant)(f).mintID("dashboard")
	}
	f.dashboards = append(f.dashboards, d.DeepCopy())
	return nil
}

// ─── Alert Rule Store ───────────────────────────────────────────────────────

type fakeAlertRuleStore fakeTenant

func (f *fakeAlertRuleStore) GetByID(_ context.Context, tenantID, id string) (*alertrule.AlertRule, error) {
	for _, r := range f.alertRules {
		if r.TenantID == tenantID && r.ID == id {
			return r.DeepCopy(), nil
		}
	}
	return nil, alertrule.ErrNotFound
}

func (f *fakeAlertRuleStore) GetByName(_ context.Context, tenantID, name string) (*alertrule.AlertRule, error) {
	for _, r := range f.alertRules {
		if r.TenantID == tenantID && r.Name == name {
			return r.DeepCopy(), nil
		}
	}
	return nil, alertrule.ErrNotFound
}

func (f *fakeAlertRuleStore) Create(_ context.Context, r *alertrule.AlertRule) error {
	if err := (*fakeTenant)(f).checkFail(r.Name); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = (*fakeTenant)(f).mintID("alertrule")
	}
	f.alertRules = append(f.alertRules, r.DeepCopy())
	return nil
}

// ─── Asset Store ────────────────────────────────────────────────────────────

type fakeAssetStore fakeTenant

func (f *fakeAssetStore) GetByID(_ context.Context, tenantID, id string) (*asset.Asset, error) {
	for _, a := range f.assets {
		if a.TenantID == tenantID && a.ID == id {
			return a.DeepCopy(), nil
		}
	}
	return nil, asset.ErrNotFound
}

func (f *fakeAssetStore) GetByName(_ context.Context, tenantID, name string) (*asset.Asset, error) {
	for _, a := range f.assets {
		if a.TenantID == tenantID && a.Name == name {
			return a.DeepCopy(), nil
		}
	}
	return nil, asset.ErrNotFound
}

func (f *fakeAssetStore) Create(_ context.Context, a *asset.Asset) error {
	if err := (*fakeTenant)(f).checkFail(a.Name); err != nil {
		return err
	}
	if a.ParentID != nil {
		if _, err := f.GetByID(context.Background(), a.TenantID, *a.ParentID); err != nil {
			return asset.ErrParentNotFound
		}
	}
	if a.ID == "" {
		a.ID = (*fakeTenant)(f).mintID("asset")
	}
	f.assets = append(f.assets, a.DeepCopy())
	return nil
}

// ─── Shared Test Helpers ────────────────────────────────────────────────────

var errStoreDown = errors.New("store unavailable")

func validMetadata() Metadata {
	return Metadata{
		Name:          "Factory Monitoring Pack",
		Version:       "1.0.0",
		SchemaVersion: FormatVersion,
	}
}

// validPackage builds a small internally consistent package: one schema,
// one device type bound to it, one dashboard with a widget bound to the
// device type, one alert rule and a three-level asset chain.
func validPackage() *Package {
	return &Package{
		Metadata: validMetadata(),
		Resources: Resources{
			Schemas: []PackagedSchema{
				{
					LocalID:    "schema_1",
					Name:       "Temperature",
					Version:    "1.0.0",
					Definition: schema.Definition{"fields": []any{map[string]any{"name": "temperature", "type": "float"}}},
				},
			},
			DeviceTypes: []PackagedDeviceType{
				{
					LocalID:   "device_type_1",
					Name:      "Thermal Sensor",
					SchemaRef: "schema_1",
				},
			},
			Dashboards: []PackagedDashboard{
				{
					LocalID: "dashboard_1",
					Name:    "Plant Overview",
					Widgets: []dashboard.Widget{
						{
							ID:     "w1",
							Type:   "line-chart",
							Config: map[string]any{"device_type_ref": "device_type_1", "metric": "temperature"},
						},
					},
				},
			},
			AlertRules: []PackagedAlertRule{
				{
					LocalID:       "alert_rule_1",
					Name:          "Overheat",
					Condition:     alertrule.Condition{"field": "temperature", "operator": "gt", "threshold": 80},
					DeviceTypeRef: "device_type_1",
					Severity:      alertrule.SeverityCritical,
				},
			},
			Assets: []PackagedAsset{
				{LocalID: "asset_1", Name: "Site A", Type: asset.TypeSite},
				{LocalID: "asset_2", Name: "Building 1", Type: asset.TypeBuilding, ParentRef: "asset_1"},
				{LocalID: "asset_3", Name: "Line 7", Type: asset.TypeLine, ParentRef: "asset_2"},
			},
		},
		Mappings: Mappings{References: map[string][]string{
			"schema_1":      {"device_type_1"},
			"device_type_1": {"dashboard_1", "alert_rule_1"},
		}},
	}
}

func deviceTypeFixture(id, tenantID, name string) *devicetype.DeviceType {
	return &devicetype.DeviceType{
		ID:       id,
		TenantID: tenantID,
		Name:     name,
	}
}

func hasIssue(issues []Issue, code string) bool {
	for _, issue := range issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}
