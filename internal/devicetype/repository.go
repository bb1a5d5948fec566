package devicetype

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

// Repository defines the persistence surface for device types.
type Repository interface {
	// List retrieves all device types belonging to a tenant.
	List(ctx context.Context, tenantID string) ([]DeviceType, error)

	// GetByID retrieves a device type by its unique identifier.
	// Returns ErrNotFound if the device type does not exist in the tenant.
	GetByID(ctx context.Context, tenantID, id string) (*DeviceType, error)

	// GetByName retrieves the first device type with the given display name.
	// Returns ErrNotFound if no device type matches.
	GetByName(ctx context.Context, tenantID, name string) (*DeviceType, error)

	// Create inserts a new device type. An empty ID is replaced with a fresh UUID.
	Create(ctx context.Context, dt *DeviceType) error

	// Update modifies an existing device type in place.
	// Returns ErrNotFound if the device type does not exist.
	Update(ctx context.Context, dt *DeviceType) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed device type repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const deviceTypeColumns = `id, tenant_id, name, description, schema_id, custom_fields, field_mappings, icon, color, created_at, updated_at`

// List retrieves all device types belonging to a tenant.
func (r *SQLiteRepository) List(ctx context.Context, tenantID string) ([]DeviceType, error) {
	query := `SELECT ` + deviceTypeColumns + ` FROM device_types WHERE tenant_id = ? ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("querying device types: %w", err)
	}
	defer rows.Close()

	var types []DeviceType
	for rows.Next() {
		dt, err := scanDeviceType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, *dt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device types: %w", err)
	}
	return types, nil
}

// GetByID retrieves a device type by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, tenantID, id string) (*DeviceType, error) {
	query := `SELECT ` + deviceTypeColumns + ` FROM device_types WHERE tenant_id = ? AND id = ?`

	dt, err := scanDeviceType(r.db.QueryRowContext(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying device type by id: %w", err)
	}
	return dt, nil
}

// GetByName retrieves the first device type with the given display name.
func (r *SQLiteRepository) GetByName(ctx context.Context, tenantID, name string) (*DeviceType, error) {
	query := `SELECT ` + deviceTypeColumns + ` FROM device_types WHERE tenant_id = ? AND name = ? ORDER BY created_at LIMIT 1`

	dt, err := scanDeviceType(r.db.QueryRowContext(ctx, query, tenantID, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying device type by name: %w", err)
	}
	return dt, nil
}

// Create inserts a new device type.
func (r *SQLiteRepository) Create(ctx context.Context, dt *DeviceType) error {
	if strings.TrimSpace(dt.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if dt.ID == "" {
		dt.ID = uuid.New().String()
	}

	customJSON, err := json.Marshal(dt.CustomFields)
	if err != nil {
		return fmt.Errorf("marshalling custom fields: %w", err)
	}
	mappingsJSON, err := json.Marshal(dt.FieldMappings)
	if err != nil {
		return fmt.Errorf("marshalling field mappings: %w", err)
	}

	now := time.Now().UTC()
	dt.CreatedAt = now
	dt.UpdatedAt = now

	query := `
		INSERT INTO device_types (id, tenant_id, name, description, schema_id, custom_fields, field_mappings, icon, color, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		dt.ID, dt.TenantID, dt.Name, dt.Description, dt.SchemaID,
		string(customJSON), string(mappingsJSON), dt.Icon, dt.Color,
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrExists
		}
		return fmt.Errorf("inserting device type: %w", err)
	}
	return nil
}

// Update modifies an existing device type in place.
func (r *SQLiteRepository) Update(ctx context.Context, dt *DeviceType) error {
	customJSON, err := json.Marshal(dt.CustomFields)
	if err != nil {
		return fmt.Errorf("marshalling custom fields: %w", err)
	}
	mappingsJSON, err := json.Marshal(dt.FieldMappings)
	if err != nil {
		return fmt.Errorf("marshalling field mappings: %w", err)
	}

	dt.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE device_types
		SET name = ?, description = ?, schema_id = ?, custom_fields = ?, field_mappings = ?, icon = ?, color = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?`

	result, err := r.db.ExecContext(ctx, query,
		dt.Name, dt.Description, dt.SchemaID, string(customJSON), string(mappingsJSON),
		dt.Icon, dt.Color, dt.UpdatedAt.Format(time.RFC3339), dt.TenantID, dt.ID,
	)
	if err != nil {
		return fmt.Errorf("updating device type: %w", err)
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

// scanDeviceType scans a device type from a row scanner.
func scanDeviceType(row interface{ Scan(...any) error }) (*DeviceType, error) {
	var dt DeviceType
	var customJSON, mappingsJSON, createdAt, updatedAt string

	if err := row.Scan(
		&dt.ID, &dt.TenantID, &dt.Name, &dt.Description, &dt.SchemaID,
		&customJSON, &mappingsJSON, &dt.Icon, &dt.Color,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(customJSON), &dt.CustomFields); err != nil {
		return nil, fmt.Errorf("unmarshalling custom fields: %w", err)
	}
	if err := json.Unmarshal([]byte(mappingsJSON), &dt.FieldMappings); err != nil {
		return nil, fmt.Errorf("unmarshalling field mappings: %w", err)
	}

	dt.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // Format is controlled
	dt.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // Format is controlled
	return &dt, nil
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
