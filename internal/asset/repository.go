package asset

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

// Repository defines the persistence surface for assets.
type Repository interface {
	// List retrieves all assets belonging to a tenant.
	List(ctx context.Context, tenantID string) ([]Asset, error)

	// GetByID retrieves an asset by its unique identifier.
	// Returns ErrNotFound if the asset does not exist in the tenant.
	GetByID(ctx context.Context, tenantID, id string) (*Asset, error)

	// GetByName retrieves the first asset with the given display name.
	// Returns ErrNotFound if no asset matches.
	GetByName(ctx context.Context, tenantID, name string) (*Asset, error)

	// ListChildren retrieves the direct children of an asset.
	ListChildren(ctx context.Context, tenantID, parentID string) ([]Asset, error)

	// Create inserts a new asset. An empty ID is replaced with a fresh UUID.
	// Returns ErrParentNotFound if ParentID references a missing asset.
	Create(ctx context.Context, a *Asset) error

	// Update modifies an existing asset in place.
	// Returns ErrNotFound if the asset does not exist.
	Update(ctx context.Context, a *Asset) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed asset repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const assetColumns = `id, tenant_id, name, type, parent_id, icon, metadata, location, created_at, updated_at`

// List retrieves all assets belonging to a tenant.
func (r *SQLiteRepository) List(ctx context.Context, tenantID string) ([]Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE tenant_id = ? ORDER BY name`
	return r.queryAssets(ctx, query, tenantID)
}

// ListChildren retrieves the direct children of an asset.
func (r *SQLiteRepository) ListChildren(ctx context.Context, tenantID, parentID string) ([]Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE tenant_id = ? AND parent_id = ? ORDER BY name`
	return r.queryAssets(ctx, query, tenantID, parentID)
}

// GetByID retrieves an asset by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, tenantID, id string) (*Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE tenant_id = ? AND id = ?`

	a, err := scanAsset(r.db.QueryRowContext(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying asset by id: %w", err)
	}
	return a, nil
}

// GetByName retrieves the first asset with the given display name.
func (r *SQLiteRepository) GetByName(ctx context.Context, tenantID, name string) (*Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE tenant_id = ? AND name = ? ORDER BY created_at LIMIT 1`

	a, err := scanAsset(r.db.QueryRowContext(ctx, query, tenantID, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying asset by name: %w", err)
	}
	return a, nil
}

// Create inserts a new asset.
func (r *SQLiteRepository) Create(ctx context.Context, a *Asset) error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Type == "" {
		a.Type = TypeGeneric
	}

	// Verify the parent exists before inserting; there is no foreign key
	// on parent_id so orphaned references would otherwise go unnoticed.
	if a.ParentID != nil {
		if _, err := r.GetByID(ctx, a.TenantID, *a.ParentID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrParentNotFound
			}
			return err
		}
	}

	metaJSON, locJSON, err := marshalAssetFields(a)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	query := `
		INSERT INTO assets (id, tenant_id, name, type, parent_id, icon, metadata, location, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		a.ID, a.TenantID, a.Name, a.Type, a.ParentID, a.Icon,
		metaJSON, locJSON,
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrExists
		}
		return fmt.Errorf("inserting asset: %w", err)
	}
	return nil
}

// Update modifies an existing asset in place.
func (r *SQLiteRepository) Update(ctx context.Context, a *Asset) error {
	metaJSON, locJSON, err := marshalAssetFields(a)
	if err != nil {
		return err
	}

	a.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE assets
		SET name = ?, type = ?, parent_id = ?, icon = ?, metadata = ?, location = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?`

	result, err := r.db.ExecContext(ctx, query,
		a.Name, a.Type, a.ParentID, a.Icon, metaJSON, locJSON,
		a.UpdatedAt.Format(time.RFC3339), a.TenantID, a.ID,
	)
	if err != nil {
		return fmt.Errorf("updating asset: %w", err)
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

// queryAssets runs a multi-row asset query.
func (r *SQLiteRepository) queryAssets(ctx context.Context, query string, args ...any) ([]Asset, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying assets: %w", err)
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assets: %w", err)
	}
	return assets, nil
}

// marshalAssetFields marshals the JSON-valued columns of an asset.
func marshalAssetFields(a *Asset) (metadata, location string, err error) {
	metaBytes, err := json.Marshal(a.Metadata)
	if err != nil {
		return "", "", fmt.Errorf("marshalling metadata: %w", err)
	}
	locBytes, err := json.Marshal(a.Location)
	if err != nil {
		return "", "", fmt.Errorf("marshalling location: %w", err)
	}
	return string(metaBytes), string(locBytes), nil
}

// scanAsset scans an asset from a row scanner.
func scanAsset(row interface{ Scan(...any) error }) (*Asset, error) {
	var a Asset
	var metaJSON, locJSON, createdAt, updatedAt string

	if err := row.Scan(
		&a.ID, &a.TenantID, &a.Name, &a.Type, &a.ParentID, &a.Icon,
		&metaJSON, &locJSON,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(metaJSON), &a.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshalling metadata: %w", err)
	}
	if err := json.Unmarshal([]byte(locJSON), &a.Location); err != nil {
		return nil, fmt.Errorf("unmarshalling location: %w", err)
	}

	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // Format is controlled
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // Format is controlled
	return &a, nil
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
