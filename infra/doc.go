// Package infra contains technical adapters: the MQTT risk publisher,
// metrics exporters, the CSV dataset and SQL stores, the remote model
// client and Sentry. These packages depend only on the interfaces
// defined in the core packages.
package infra
