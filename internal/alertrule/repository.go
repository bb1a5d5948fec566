package alertrule

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

// Repository defines the persistence surface for alert rules.
type Repository interface {
	// List retrieves all alert rules belonging to a tenant.
	List(ctx context.Context, tenantID string) ([]AlertRule, error)

	// GetByID retrieves an alert rule by its unique identifier.
	// Returns ErrNotFound if the rule does not exist in the tenant.
	GetByID(ctx context.Context, tenantID, id string) (*AlertRule, error)

	// GetByName retrieves the first alert rule with the given display name.
	// Returns ErrNotFound if no rule matches.
	GetByName(ctx context.Context, tenantID, name string) (*AlertRule, error)

	// Create inserts a new alert rule. An empty ID is replaced with a fresh UUID.
	// Returns ErrEmptyCondition if the rule has no condition.
	Create(ctx context.Context, rule *AlertRule) error

	// Update modifies an existing alert rule in place.
	// Returns ErrNotFound if the rule does not exist.
	Update(ctx context.Context, rule *AlertRule) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed alert rule repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const alertRuleColumns = `id, tenant_id, name, description, condition, device_type_id, severity, is_enabled, actions, cooldown_minutes, created_at, updated_at`

// List retrieves all alert rules belonging to a tenant.
func (r *SQLiteRepository) List(ctx context.Context, tenantID string) ([]AlertRule, error) {
	query := `SELECT ` + alertRuleColumns + ` FROM alert_rules WHERE tenant_id = ? ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("querying alert rules: %w", err)
	}
	defer rows.Close()

	var rules []AlertRule
	for rows.Next() {
		rule, err := scanAlertRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating alert rules: %w", err)
	}
	return rules, nil
}

// GetByID retrieves an alert rule by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, tenantID, id string) (*AlertRule, error) {
	query := `SELECT ` + alertRuleColumns + ` FROM alert_rules WHERE tenant_id = ? AND id = ?`

	rule, err := scanAlertRule(r.db.QueryRowContext(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying alert rule by id: %w", err)
	}
	return rule, nil
}

// GetByName retrieves the first alert rule with the given display name.
func (r *SQLiteRepository) GetByName(ctx context.Context, tenantID, name string) (*AlertRule, error) {
	query := `SELECT ` + alertRuleColumns + ` FROM alert_rules WHERE tenant_id = ? AND name = ? ORDER BY created_at LIMIT 1`

	rule, err := scanAlertRule(r.db.QueryRowContext(ctx, query, tenantID, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying alert rule by name: %w", err)
	}
	return rule, nil
}

// Create inserts a new alert rule.
func (r *SQLiteRepository) Create(ctx context.Context, rule *AlertRule) error {
	if strings.TrimSpace(rule.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if len(rule.Condition) == 0 {
		return ErrEmptyCondition
	}
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	if rule.Severity == "" {
		rule.Severity = SeverityWarning
	}

	condJSON, actionsJSON, err := marshalRuleFields(rule)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	query := `
		INSERT INTO alert_rules (id, tenant_id, name, description, condition, device_type_id, severity, is_enabled, actions, cooldown_minutes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		rule.ID, rule.TenantID, rule.Name, rule.Description,
		condJSON, rule.DeviceTypeID, string(rule.Severity), boolToInt(rule.IsEnabled),
		actionsJSON, rule.CooldownMinutes,
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrExists
		}
		return fmt.Errorf("inserting alert rule: %w", err)
	}
	return nil
}

// Update modifies an existing alert rule in place.
func (r *SQLiteRepository) Update(ctx context.Context, rule *AlertRule) error {
	condJSON, actionsJSON, err := marshalRuleFields(rule)
	if err != nil {
		return err
	}

	rule.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE alert_rules
		SET name = ?, description = ?, condition = ?, device_type_id = ?, severity = ?, is_enabled = ?, actions = ?, cooldown_minutes = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?`

	result, err := r.db.ExecContext(ctx, query,
		rule.Name, rule.Description, condJSON, rule.DeviceTypeID,
		string(rule.Severity), boolToInt(rule.IsEnabled), actionsJSON, rule.CooldownMinutes,
		rule.UpdatedAt.Format(time.RFC3339), rule.TenantID, rule.ID,
	)
	if err != nil {
		return fmt.Errorf("updating alert rule: %w", err)
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

// marshalRuleFields marshals the JSON-valued columns of an alert rule.
func marshalRuleFields(rule *AlertRule) (condition, actions string, err error) {
	condBytes, err := json.Marshal(rule.Condition)
	if err != nil {
		return "", "", fmt.Errorf("marshalling condition: %w", err)
	}
	if rule.Actions == nil {
		rule.Actions = []Action{}
	}
	actionsBytes, err := json.Marshal(rule.Actions)
	if err != nil {
		return "", "", fmt.Errorf("marshalling actions: %w", err)
	}
	return string(condBytes), string(actionsBytes), nil
}

// scanAlertRule scans an alert rule from a row scanner.
func scanAlertRule(row interface{ Scan(...any) error }) (*AlertRule, error) {
	var rule AlertRule
	var condJSON, actionsJSON, severity, createdAt, updatedAt string
	var enabled int

	if err := row.Scan(
		&rule.ID, &rule.TenantID, &rule.Name, &rule.Description,
		&condJSON, &rule.DeviceTypeID, &severity, &enabled,
		&actionsJSON, &rule.CooldownMinutes,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(condJSON), &rule.Condition); err != nil {
		return nil, fmt.Errorf("unmarshalling condition: %w", err)
	}
	if err := json.Unmarshal([]byte(actionsJSON), &rule.Actions); err != nil {
		return nil, fmt.Errorf("unmarshalling actions: %w", err)
	}

	rule.Severity = Severity(severity)
	rule.IsEnabled = enabled != 0
	rule.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // Format is controlled
	rule.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // Format is controlled
	return &rule, nil
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
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
