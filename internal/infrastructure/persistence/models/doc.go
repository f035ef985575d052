// Package models contains the GORM persistence models backing the
// regularization engine. Domain types stay free of ORM tags; each model
// carries its table mapping and converts to and from its domain type.
//
// Files:
//   - base.go: shared ID and timestamp columns
//   - regularization.go: financial periods, expenses, settlement records
//   - leasing.go: read models for properties, units, tenants and leases
//   - messaging.go: conversations and messages
//   - outbox.go: transactional outbox entries
package models
