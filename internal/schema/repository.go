package schema

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

// Repository defines the persistence surface for schemas.
// This is the narrow collaborator interface the migration engine depends on.
type Repository interface {
	// List retrieves all schemas belonging to a tenant.
	List(ctx context.Context, tenantID string) ([]Schema, error)

	// GetByID retrieves a schema by its unique identifier.
	// Returns ErrNotFound if the schema does not exist in the tenant.
	GetByID(ctx context.Context, tenantID, id string) (*Schema, error)

	// GetByName retrieves the first schema with the given display name.
	// Returns ErrNotFound if no schema matches.
	GetByName(ctx context.Context, tenantID, name string) (*Schema, error)

	// Create inserts a new schema. An empty ID is replaced with a fresh UUID.
	// Returns ErrExists if a schema with the same ID already exists.
	Create(ctx context.Context, s *Schema) error

	// Update modifies an existing schema in place.
	// Returns ErrNotFound if the schema does not exist.
	Update(ctx context.Context, s *Schema) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed schema repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const schemaColumns = `id, tenant_id, name, version, definition, description, created_at, updated_at`

// List retrieves all schemas belonging to a tenant.
func (r *SQLiteRepository) List(ctx context.Context, tenantID string) ([]Schema, error) {
	query := `SELECT ` + schemaColumns + ` FROM schemas WHERE tenant_id = ? ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("querying schemas: %w", err)
	}
	defer rows.Close()

	var schemas []Schema
	for rows.Next() {
		s, err := scanSchema(rows)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating schemas: %w", err)
	}
	return schemas, nil
}

// GetByID retrieves a schema by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, tenantID, id string) (*Schema, error) {
	query := `SELECT ` + schemaColumns + ` FROM schemas WHERE tenant_id = ? AND id = ?`

	s, err := scanSchema(r.db.QueryRowContext(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying schema by id: %w", err)
	}
	return s, nil
}

// GetByName retrieves the first schema with the given display name.
func (r *SQLiteRepository) GetByName(ctx context.Context, tenantID, name string) (*Schema, error) {
	query := `SELECT ` + schemaColumns + ` FROM schemas WHERE tenant_id = ? AND name = ? ORDER BY created_at LIMIT 1`

	s, err := scanSchema(r.db.QueryRowContext(ctx, query, tenantID, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying schema by name: %w", err)
	}
	return s, nil
}

// Create inserts a new schema.
func (r *SQLiteRepository) Create(ctx context.Context, s *Schema) error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Version == "" {
		s.Version = "1.0.0"
	}

	defJSON, err := json.Marshal(s.Definition)
	if err != nil {
		return fmt.Errorf("marshalling definition: %w", err)
	}

	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	query := `
		INSERT INTO schemas (id, tenant_id, name, version, definition, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		s.ID, s.TenantID, s.Name, s.Version, string(defJSON), s.Description,
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrExists
		}
		return fmt.Errorf("inserting schema: %w", err)
	}
	return nil
}

// Update modifies an existing schema in place.
func (r *SQLiteRepository) Update(ctx context.Context, s *Schema) error {
	defJSON, err := json.Marshal(s.Definition)
	if err != nil {
		return fmt.Errorf("marshalling definition: %w", err)
	}

	s.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE schemas
		SET name = ?, version = ?, definition = ?, description = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?`

	result, err := r.db.ExecContext(ctx, query,
		s.Name, s.Version, string(defJSON), s.Description,
		s.UpdatedAt.Format(time.RFC3339), s.TenantID, s.ID,
	)
	if err != nil {
		return fmt.Errorf("updating schema: %w", err)
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

// scanSchema scans a schema from a row scanner.
func scanSchema(row interface{ Scan(...any) error }) (*Schema, error) {
	var s Schema
	var defJSON, createdAt, updatedAt string

	if err := row.Scan(
		&s.ID, &s.TenantID, &s.Name, &s.Version, &defJSON, &s.Description,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(defJSON), &s.Definition); err != nil {
		return nil, fmt.Errorf("unmarshalling definition: %w", err)
	}

	s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // Format is controlled
	s.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // Format is controlled
	return &s, nil
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
