package mqtt

import "fmt"

// TopicPrefix is the root namespace for all platform MQTT topics.
const TopicPrefix = "gridpoint"

// Topics builds well-known topic strings. The zero value is ready to use.
//
// Topic layout:
//
//	gridpoint/system/status                            service online/offline
//	gridpoint/events/migration/<tenant>/exported       package exported
//	gridpoint/events/migration/<tenant>/imported       package import finished
type Topics struct{}

// SystemStatus is the retained service status topic. The broker publishes
// the LWT here on unexpected disconnect.
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// MigrationExported is the per-tenant topic announcing a completed export.
func (Topics) MigrationExported(tenantID string) string {
	return fmt.Sprintf("%s/events/migration/%s/exported", TopicPrefix, tenantID)
}

// MigrationImported is the per-tenant topic announcing a finished import,
// successful or not.
func (Topics) MigrationImported(tenantID string) string {
	return fmt.Sprintf("%s/events/migration/%s/imported", TopicPrefix, tenantID)
}
