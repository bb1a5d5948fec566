// Package mqtt wraps the Eclipse Paho client for publishing platform
// events to an MQTT broker.
//
// The service announces its own lifecycle on a retained status topic
// (with a Last Will message for crash detection) and publishes migration
// events per tenant so external consumers can react to package exports
// and imports without polling the API.
//
// The broker connection is optional: when MQTT is disabled in config the
// rest of the platform runs without it, and event publishing is always
// best effort.
package mqtt
