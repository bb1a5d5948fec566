package migration

import (
	"context"

	"github.com/gridpoint-io/gridpoint-core/internal/alertrule"
	"github.com/gridpoint-io/gridpoint-core/internal/asset"
	"github.com/gridpoint-io/gridpoint-core/internal/dashboard"
	"github.com/gridpoint-io/gridpoint-core/internal/devicetype"
	"github.com/gridpoint-io/gridpoint-core/internal/schema"
)

// The migration engine depends on one narrow capability set per resource
// type. Production wiring satisfies these with the SQLite repositories;
// tests use in-memory fakes. Each store must return its package's
// sentinel not-found error from GetByName so the engine can distinguish
// "no conflict" from a real failure.

// SchemaStore is the schema collaborator surface.
type SchemaStore interface {
	List(ctx context.Context, tenantID string) ([]schema.Schema, error)
	GetByID(ctx context.Context, tenantID, id string) (*schema.Schema, error)
	GetByName(ctx context.Context, tenantID, name string) (*schema.Schema, error)
	Create(ctx context.Context, s *schema.Schema) error
	Update(ctx context.Context, s *schema.Schema) error
}

// DeviceTypeStore is the device type collaborator surface.
type DeviceTypeStore interface {
	GetByID(ctx context.Context, tenantID, id string) (*devicetype.DeviceType, error)
	GetByName(ctx context.Context, tenantID, name string) (*devicetype.DeviceType, error)
	Create(ctx context.Context, dt *devicetype.DeviceType) error
}

// DashboardStore is the dashboard collaborator surface.
type DashboardStore interface {
	GetByID(ctx context.Context, tenantID, id string) (*dashboard.Dashboard, error)
	GetByName(ctx context.Context, tenantID, name string) (*dashboard.Dashboard, error)
	Create(ctx context.Context, d *dashboard.Dashboard) error
}

// AlertRuleStore is the alert rule collaborator surface.
type AlertRuleStore interface {
	GetByID(ctx context.Context, tenantID, id string) (*alertrule.AlertRule, error)
	GetByName(ctx context.Context, tenantID, name string) (*alertrule.AlertRule, error)
	Create(ctx context.Context, rule *alertrule.AlertRule) error
}

// AssetStore is the asset collaborator surface.
type AssetStore interface {
	GetByID(ctx context.Context, tenantID, id string) (*asset.Asset, error)
	GetByName(ctx context.Context, tenantID, name string) (*asset.Asset, error)
	Create(ctx context.Context, a *asset.Asset) error
}

// Stores bundles the collaborator set for one tenant-facing deployment.
type Stores struct {
	Schemas     SchemaStore
	DeviceTypes DeviceTypeStore
	Dashboards  DashboardStore
	AlertRules  AlertRuleStore
	Assets      AssetStore
}

// Logger is the optional logging surface used by the engine.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Engine exports, previews and imports configuration packages against a
// set of resource stores. The zero-value logger is a no-op.
//
// Thread Safety: an Engine is safe for concurrent use; each call carries
// its own identifier map and never shares mutable state with other calls.
type Engine struct {
	stores Stores
	logger Logger
}

// NewEngine creates a migration engine over the given stores.
func NewEngine(stores Stores) *Engine {
	return &Engine{stores: stores}
}

// SetLogger attaches a logger for progress and best-effort warnings.
func (e *Engine) SetLogger(l Logger) {
	e.logger = l
}

func (e *Engine) logInfo(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Info(msg, args...)
	}
}

func (e *Engine) logWarn(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}
