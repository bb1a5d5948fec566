package mqtt

import (
	"encoding/json"
	"time"
)

// ExportedEvent is the payload published after a package export.
type ExportedEvent struct {
	TenantID    string         `json:"tenant_id"`
	PackageID   string         `json:"package_id"`
	PackageName string         `json:"package_name"`
	Counts      map[string]int `json:"counts"`
	Timestamp   string         `json:"timestamp"`
}

// ImportedEvent is the payload published after a package import finishes.
type ImportedEvent struct {
	TenantID    string         `json:"tenant_id"`
	PackageName string         `json:"package_name"`
	Success     bool           `json:"success"`
	Imported    map[string]int `json:"imported"`
	Failed      int            `json:"failed"`
	Timestamp   string         `json:"timestamp"`
}

// PublishExported announces a completed export on the tenant's migration
// topic. Publishing is best effort: failures are logged, never returned,
// so event delivery cannot fail the export itself.
func (c *Client) PublishExported(event ExportedEvent) {
	event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	c.publishEvent(Topics{}.MigrationExported(event.TenantID), event)
}

// PublishImported announces a finished import on the tenant's migration
// topic. Best effort, like PublishExported.
func (c *Client) PublishImported(event ImportedEvent) {
	event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	c.publishEvent(Topics{}.MigrationImported(event.TenantID), event)
}

func (c *Client) publishEvent(topic string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Error("MQTT event marshal failed", "topic", topic, "error", err)
		}
		return
	}
	if err := c.Publish(topic, payload, byte(c.cfg.QoS), false); err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("MQTT event publish failed", "topic", topic, "error", err)
		}
	}
}
