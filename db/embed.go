// Package db provides embedded database schema and seed files.
package db

import _ "embed"

// Schema contains the DDL statements for the catalog tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// SeedCatalog is the default catalog loaded by cmd/seed-db.
//
//go:embed seed/catalog.json
var SeedCatalog []byte
