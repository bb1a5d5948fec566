package dashboard

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repository defines the persistence surface for dashboards.
type Repository interface {
	// List retrieves all dashboards belonging to a tenant.
	List(ctx context.Context, tenantID string) ([]Dashboard, error)

	// GetByID retrieves a dashboard by its unique identifier.
	// Returns ErrNotFound if the dashboard does not exist in the tenant.
	GetByID(ctx context.Context, tenantID, id string) (*Dashboard, error)

	// GetByName retrieves the first dashboard with the given display name.
	// Returns ErrNotFound if no dashboard matches.
	GetByName(ctx context.Context, tenantID, name string) (*Dashboard, error)

	// Create inserts a new dashboard. An empty ID is replaced with a fresh UUID.
	Create(ctx context.Context, d *Dashboard) error

	// Update modifies an existing dashboard in place.
	// Returns ErrNotFound if the dashboard does not exist.
	Update(ctx context.Context, d *Dashboard) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed dashboard repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const dashboardColumns = `id, tenant_id, name, description, layout, widgets, filters, created_at, updated_at`

// List retrieves all dashboards belonging to a tenant.
func (r *SQLiteRepository) List(ctx context.Context, tenantID string) ([]Dashboard, error) {
	query := `SELECT ` + dashboardColumns + ` FROM dashboards WHERE tenant_id = ? ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("querying dashboards: %w", err)
	}
	defer rows.Close()

	var dashboards []Dashboard
	for rows.Next() {
		d, err := scanDashboard(rows)
		if err != nil {
			return nil, err
		}
		dashboards = append(dashboards, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating dashboards: %w", err)
	}
	return dashboards, nil
}

// GetByID retrieves a dashboard by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, tenantID, id string) (*Dashboard, error) {
	query := `SELECT ` + dashboardColumns + ` FROM dashboards WHERE tenant_id = ? AND id = ?`

	d, err := scanDashboard(r.db.QueryRowContext(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying dashboard by id: %w", err)
	}
	return d, nil
}

// GetByName retrieves the first dashboard with the given display name.
func (r *SQLiteRepository) GetByName(ctx context.Context, tenantID, name string) (*Dashboard, error) {
	query := `SELECT ` + dashboardColumns + ` FROM dashboards WHERE tenant_id = ? AND name = ? ORDER BY created_at LIMIT 1`

	d, err := scanDashboard(r.db.QueryRowContext(ctx, query, tenantID, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying dashboard by name: %w", err)
	}
	return d, nil
}

// Create inserts a new dashboard.
func (r *SQLiteRepository) Create(ctx context.Context, d *Dashboard) error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}

	layoutJSON, widgetsJSON, filtersJSON, err := marshalDashboardFields(d)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	query := `
		INSERT INTO dashboards (id, tenant_id, name, description, layout, widgets, filters, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		d.ID, d.TenantID, d.Name, d.Description,
		layoutJSON, widgetsJSON, filtersJSON,
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrExists
		}
		return fmt.Errorf("inserting dashboard: %w", err)
	}
	return nil
}

// Update modifies an existing dashboard in place.
func (r *SQLiteRepository) Update(ctx context.Context, d *Dashboard) error {
	layoutJSON, widgetsJSON, filtersJSON, err := marshalDashboardFields(d)
	if err != nil {
		return err
	}

	d.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE dashboards
		SET name = ?, description = ?, layout = ?, widgets = ?, filters = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?`

	result, err := r.db.ExecContext(ctx, query,
		d.Name, d.Description, layoutJSON, widgetsJSON, filtersJSON,
		d.UpdatedAt.Format(time.RFC3339), d.TenantID, d.ID,
	)
	if err != nil {
		return fmt.Errorf("updating dashboard: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// marshalDashboardFields marshals the JSON-valued columns of a dashboard.
func marshalDashboardFields(d *Dashboard) (layout, widgets, filters string, err error) {
	layoutBytes, err := json.Marshal(d.Layout)
	if err != nil {
		return "", "", "", fmt.Errorf("marshalling layout: %w", err)
	}
	if d.Widgets == nil {
		d.Widgets = []Widget{}
	}
	widgetsBytes, err := json.Marshal(d.Widgets)
	if err != nil {
		return "", "", "", fmt.Errorf("marshalling widgets: %w", err)
	}
	filtersBytes, err := json.Marshal(d.Filters)
	if err != nil {
		return "", "", "", fmt.Errorf("marshalling filters: %w", err)
	}
	return string(layoutBytes), string(widgetsBytes), string(filtersBytes), nil
}

// scanDashboard scans a dashboard from a row scanner.
func scanDashboard(row interface{ Scan(...any) error }) (*Dashboard, error) {
	var d Dashboard
	var layoutJSON, widgetsJSON, filtersJSON, createdAt, updatedAt string

	if err := row.Scan(
		&d.ID, &d.TenantID, &d.Name, &d.Description,
		&layoutJSON, &widgetsJSON, &filtersJSON,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(layoutJSON), &d.Layout); err != nil {
		return nil, fmt.Errorf("unmarshalling layout: %w", err)
	}
	if err := json.Unmarshal([]byte(widgetsJSON), &d.Widgets); err != nil {
		return nil, fmt.Errorf("unmarshalling widgets: %w", err)
	}
	if err := json.Unmarshal([]byte(filtersJSON), &d.Filters); err != nil {
		return nil, fmt.Errorf("unmarshalling filters: %w", err)
	}

	d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // Format is controlled
	d.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // Format is controlled
	return &d, nil
}

// isUniqueViolation checks if an error is a SQLite unique constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
