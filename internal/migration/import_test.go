package migration

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gridpoint-io/gridpoint-core/internal/asset"
	"github.com/gridpoint-io/gridpoint-core/internal/schema"
)

const targetTenant = "tenant-b"

func TestImport_EmptyTenant(t *testing.T) {
	tenant := newFakeTenant()
	engine := NewEngine(tenant.stores())

	result, err := engine.Import(context.Background(), targetTenant, validPackage(), ImportOptions{Policy: ConflictSkip})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got errors: %v", result.Errors)
	}

	want := map[string]int{
		CollectionSchemas:     1,
		CollectionDeviceTypes: 1,
		CollectionDashboards:  1,
		CollectionAlertRules:  1,
		CollectionAssets:      3,
	}
	for collection, n := range want {
		if result.Imported[collection] != n {
			t.Errorf("imported[%s] = %d, want %d", collection, result.Imported[collection], n)
		}
	}
	for _, localID := range []string{"schema_1", "device_type_1", "dashboard_1", "alert_rule_1", "asset_1", "asset_2", "asset_3"} {
		if result.IDMap[localID] == "" {
			t.Errorf("no identifier mapping for %s", localID)
		}
	}
}

func TestImport_RoundTripResolvesReferences(t *testing.T) {
	source := newFakeTenant()
	seedSourceTenant(source)
	exporter := NewEngine(source.stores())

	pkg, err := exporter.Export(context.Background(), testTenant, validMetadata(), fullSelection())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	target := newFakeTenant()
	importer := NewEngine(target.stores())
	result, err := importer.Import(context.Background(), targetTenant, pkg, ImportOptions{Policy: ConflictSkip})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got errors: %v", result.Errors)
	}

	// The device type binds to a freshly created schema with matching content.
	dt, err := target.stores().DeviceTypes.GetByName(context.Background(), targetTenant, "Thermal Sensor")
	if err != nil {
		t.Fatalf("device type not created: %v", err)
	}
	if dt.SchemaID == nil {
		t.Fatal("device type schema reference not resolved")
	}
	s, err := target.stores().Schemas.GetByID(context.Background(), targetTenant, *dt.SchemaID)
	if err != nil {
		t.Fatalf("referenced schema missing: %v", err)
	}
	if s.Name != "Temperature" || len(s.Definition) == 0 {
		t.Errorf("schema content not carried over: %+v", s)
	}

	// The asset chain is re-linked root to leaf.
	line, err := target.stores().Assets.GetByName(context.Background(), targetTenant, "Line 7")
	if err != nil {
		t.Fatalf("asset not created: %v", err)
	}
	if line.ParentID == nil {
		t.Fatal("line asset lost its parent")
	}
	building, err := target.stores().Assets.GetByID(context.Background(), targetTenant, *line.ParentID)
	if err != nil || building.Name != "Building 1" {
		t.Fatalf("line parent = %+v, want Building 1 (err %v)", building, err)
	}
}

func TestImport_WidgetReferenceRemap(t *testing.T) {
	tenant := newFakeTenant()
	engine := NewEngine(tenant.stores())

	pkg := validPackage()
	result, err := engine.Import(context.Background(), targetTenant, pkg, ImportOptions{Policy: ConflictSkip})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	d, err := tenant.stores().Dashboards.GetByName(context.Background(), targetTenant, "Plant Overview")
	if err != nil {
		t.Fatalf("dashboard not created: %v", err)
	}
	config := d.Widgets[0].Config
	if config["device_type_id"] != result.IDMap["device_type_1"] {
		t.Errorf("device_type_id = %v, want %s", config["device_type_id"], result.IDMap["device_type_1"])
	}
	if _, ok := config["device_type_ref"]; ok {
		t.Error("leftover device_type_ref after import")
	}

	// The package's own widget config stays untouched.
	if pkg.Resources.Dashboards[0].Widgets[0].Config["device_type_ref"] != "device_type_1" {
		t.Error("import mutated the package widget config")
	}
}

func TestImport_AssetTopologicalOrder(t *testing.T) {
	tenant := newFakeTenant()
	engine := NewEngine(tenant.stores())

	// Children listed before parents; creation must still be ancestors first
	// or the parent-exists check in the store rejects the child.
	pkg := validPackage()
	pkg.Resources.Assets = []PackagedAsset{
		{LocalID: "asset_3", Name: "Line 7", Type: asset.TypeLine, ParentRef: "asset_2"},
		{LocalID: "asset_2", Name: "Building 1", Type: asset.TypeBuilding, ParentRef: "asset_1"},
		{LocalID: "asset_1", Name: "Site A", Type: asset.TypeSite},
	}

	result, err := engine.Import(context.Background(), targetTenant, pkg, ImportOptions{Policy: ConflictSkip})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got errors: %v", result.Errors)
	}
	if got := len(tenant.assets); got != 3 {
		t.Fatalf("assets created = %d, want 3", got)
	}
	if tenant.assets[0].Name != "Site A" {
		t.Errorf("first created asset = %s, want Site A", tenant.assets[0].Name)
	}
}

func TestImport_MissingParentBecomesRoot(t *testing.T) {
	tenant := newFakeTenant()
	engine := NewEngine(tenant.stores())

	pkg := validPackage()
	pkg.Resources.Assets = []PackagedAsset{
		{LocalID: "asset_1", Name: "Orphan", Type: asset.TypeMachine},
	}
	// A seed map entry naming an asset outside the package would be the
	// usual source of an unresolvable parent; simplest is no parent at all.
	result, err := engine.Import(context.Background(), targetTenant, pkg, ImportOptions{})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	a, err := tenant.stores().Assets.GetByName(context.Background(), targetTenant, "Orphan")
	if err != nil {
		t.Fatalf("asset not created: %v", err)
	}
	if a.ParentID != nil {
		t.Errorf("orphan asset has parent %v", *a.ParentID)
	}
	if !result.Success {
		t.Errorf("expected success, got %v", result.Errors)
	}
}

func TestImport_ConflictSkip(t *testing.T) {
	tenant := newFakeTenant()
	existing := &schema.Schema{
		ID:         "schema-existing",
		TenantID:   targetTenant,
		Name:       "Temperature",
		Version:    "0.9.0",
		Definition: schema.Definition{"fields": []any{"old"}},
	}
	tenant.schemas = append(tenant.schemas, existing)
	engine := NewEngine(tenant.stores())

	result, err := engine.Import(context.Background(), targetTenant, validPackage(), ImportOptions{Policy: ConflictSkip})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if result.IDMap["schema_1"] != "schema-existing" {
		t.Errorf("local id bound to %q, want existing schema", result.IDMap["schema_1"])
	}
	if len(tenant.schemas) != 1 {
		t.Errorf("schemas in tenant = %d, want 1", len(tenant.schemas))
	}
	if tenant.schemas[0].Version != "0.9.0" {
		t.Error("skip policy changed the existing schema")
	}
	skipped := result.Skipped[CollectionSchemas]
	if len(skipped) != 1 || skipped[0] != "Temperature" {
		t.Errorf("skipped = %v, want [Temperature]", skipped)
	}
}

func TestImport_ConflictOverwrite(t *testing.T) {
	tenant := newFakeTenant()
	tenant.schemas = append(tenant.schemas, &schema.Schema{
		ID:         "schema-existing",
		TenantID:   targetTenant,
		Name:       "Temperature",
		Version:    "0.9.0",
		Definition: schema.Definition{"fields": []any{"old"}},
	})
	engine := NewEngine(tenant.stores())

	result, err := engine.Import(context.Background(), targetTenant, validPackage(), ImportOptions{Policy: ConflictOverwrite})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if result.IDMap["schema_1"] != "schema-existing" {
		t.Errorf("overwrite must keep the existing identifier, got %q", result.IDMap["schema_1"])
	}
	if len(tenant.schemas) != 1 {
		t.Fatalf("schemas in tenant = %d, want 1", len(tenant.schemas))
	}
	if tenant.schemas[0].Version != "1.0.0" {
		t.Error("overwrite did not replace the schema content")
	}
	if len(tenant.updatedNames) != 1 {
		t.Errorf("updates recorded = %v, want one", tenant.updatedNames)
	}
}

func TestImport_ConflictRename(t *testing.T) {
	tenant := newFakeTenant()
	tenant.schemas = append(tenant.schemas, &schema.Schema{
		ID:         "schema-existing",
		TenantID:   targetTenant,
		Name:       "Temperature",
		Version:    "0.9.0",
		Definition: schema.Definition{"fields": []any{"old"}},
	})
	engine := NewEngine(tenant.stores())

	result, err := engine.Import(context.Background(), targetTenant, validPackage(), ImportOptions{Policy: ConflictRename})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if len(tenant.schemas) != 2 {
		t.Fatalf("schemas in tenant = %d, want 2", len(tenant.schemas))
	}
	if tenant.schemas[0].Version != "0.9.0" {
		t.Error("rename policy touched the existing schema")
	}
	created := tenant.schemas[1]
	if !strings.HasPrefix(created.Name, "Temperature (imported ") {
		t.Errorf("renamed schema = %q, want import marker suffix", created.Name)
	}
	if result.IDMap["schema_1"] != created.ID {
		t.Errorf("local id bound to %q, want new schema %q", result.IDMap["schema_1"], created.ID)
	}
}

func TestImport_OverwriteDegradesToSkipForDeviceTypes(t *testing.T) {
	tenant := newFakeTenant()
	tenant.deviceTypes = append(tenant.deviceTypes, deviceTypeFixture("dt-existing", targetTenant, "Thermal Sensor"))
	engine := NewEngine(tenant.stores())

	result, err := engine.Import(context.Background(), targetTenant, validPackage(), ImportOptions{Policy: ConflictOverwrite})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(tenant.deviceTypes) != 1 {
		t.Errorf("device types = %d, want 1 (no create on overwrite)", len(tenant.deviceTypes))
	}
	if result.IDMap["device_type_1"] != "dt-existing" {
		t.Errorf("local id bound to %q, want existing device type", result.IDMap["device_type_1"])
	}
	if got := result.Skipped[CollectionDeviceTypes]; len(got) != 1 {
		t.Errorf("skipped device types = %v, want one entry", got)
	}
}

func TestImport_PartialFailure(t *testing.T) {
	tenant := newFakeTenant()
	tenant.failCreate["Thermal Sensor"] = errStoreDown
	engine := NewEngine(tenant.stores())

	pkg := validPackage()
	pkg.Resources.DeviceTypes = append(pkg.Resources.DeviceTypes, PackagedDeviceType{
		LocalID: "device_type_2",
		Name:    "Vibration Sensor",
	})

	result, err := engine.Import(context.Background(), targetTenant, pkg, ImportOptions{Policy: ConflictSkip})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if result.Success {
		t.Error("expected success=false after a per-resource failure")
	}
	var found bool
	for _, ie := range result.Errors {
		if ie.Collection == CollectionDeviceTypes && ie.Name == "Thermal Sensor" {
			found = true
		}
	}
	if !found {
		t.Errorf("errors = %v, want entry naming Thermal Sensor", result.Errors)
	}
	if _, ok := result.IDMap["device_type_1"]; ok {
		t.Error("failed resource must not appear in the identifier map")
	}
	if result.IDMap["device_type_2"] == "" {
		t.Error("unaffected device type missing from the identifier map")
	}
	if result.Imported[CollectionDeviceTypes] != 1 {
		t.Errorf("imported device types = %d, want 1", result.Imported[CollectionDeviceTypes])
	}
	// Later passes still ran.
	if result.Imported[CollectionDashboards] != 1 {
		t.Errorf("imported dashboards = %d, want 1", result.Imported[CollectionDashboards])
	}
}

func TestImport_SeededIDMap(t *testing.T) {
	tenant := newFakeTenant()
	tenant.schemas = append(tenant.schemas, &schema.Schema{
		ID:         "schema-preexisting",
		TenantID:   targetTenant,
		Name:       "Somewhere Else",
		Version:    "1.0.0",
		Definition: schema.Definition{"fields": []any{}},
	})
	engine := NewEngine(tenant.stores())

	seed := IDMap{"schema_1": "schema-preexisting"}
	result, err := engine.Import(context.Background(), targetTenant, validPackage(), ImportOptions{
		Policy: ConflictSkip,
		IDMap:  seed,
	})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if len(tenant.schemas) != 1 {
		t.Errorf("seeded schema re-imported, tenant has %d schemas", len(tenant.schemas))
	}
	dt, err := tenant.stores().DeviceTypes.GetByName(context.Background(), targetTenant, "Thermal Sensor")
	if err != nil {
		t.Fatalf("device type not created: %v", err)
	}
	if dt.SchemaID == nil || *dt.SchemaID != "schema-preexisting" {
		t.Errorf("schema ref = %v, want seeded identifier", dt.SchemaID)
	}
	// The caller's seed map is not mutated.
	if len(seed) != 1 {
		t.Errorf("seed map grew to %d entries", len(seed))
	}
	if result.IDMap["device_type_1"] == "" {
		t.Error("result map missing entries added during import")
	}
}

func TestImport_InvalidPackageRejected(t *testing.T) {
	engine := NewEngine(newFakeTenant().stores())
	pkg := validPackage()
	pkg.Resources.Assets = []PackagedAsset{
		{LocalID: "a", Name: "A", Type: asset.TypeGeneric, ParentRef: "b"},
		{LocalID: "b", Name: "B", Type: asset.TypeGeneric, ParentRef: "a"},
	}

	_, err := engine.Import(context.Background(), targetTenant, pkg, ImportOptions{Policy: ConflictSkip})
	if !errors.Is(err, ErrPackageInvalid) {
		t.Fatalf("expected ErrPackageInvalid, got %v", err)
	}
}

func TestImport_InvalidPolicy(t *testing.T) {
	engine := NewEngine(newFakeTenant().stores())
	_, err := engine.Import(context.Background(), targetTenant, validPackage(), ImportOptions{Policy: "merge"})
	if !errors.Is(err, ErrInvalidPolicy) {
		t.Fatalf("expected ErrInvalidPolicy, got %v", err)
	}
}

func TestImport_NilPackage(t *testing.T) {
	engine := NewEngine(newFakeTenant().stores())
	_, err := engine.Import(context.Background(), targetTenant, nil, ImportOptions{})
	if !errors.Is(err, ErrNilPackage) {
		t.Fatalf("expected ErrNilPackage, got %v", err)
	}
}

func TestImport_ContextCancelled(t *testing.T) {
	tenant := newFakeTenant()
	engine := NewEngine(tenant.stores())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := engine.Import(ctx, targetTenant, validPackage(), ImportOptions{Policy: ConflictSkip})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result == nil {
		t.Fatal("partial result must still be returned on cancellation")
	}
	if result.Success {
		t.Error("cancelled import reported success")
	}
}

func TestSortAssetsByHierarchy(t *testing.T) {
	assets := []PackagedAsset{
		{LocalID: "leaf", ParentRef: "mid"},
		{LocalID: "other_root"},
		{LocalID: "mid", ParentRef: "root"},
		{LocalID: "root"},
		{LocalID: "orphan", ParentRef: "outside"},
	}

	ordered := sortAssetsByHierarchy(assets)
	if len(ordered) != len(assets) {
		t.Fatalf("sorted length = %d, want %d", len(ordered), len(assets))
	}
	pos := map[string]int{}
	for i, a := range ordered {
		pos[a.LocalID] = i
	}
	if pos["root"] > pos["mid"] || pos["mid"] > pos["leaf"] {
		t.Errorf("parents must precede children: %v", pos)
	}
	if _, ok := pos["orphan"]; !ok {
		t.Error("asset with a parent outside the package must still be placed")
	}
}
