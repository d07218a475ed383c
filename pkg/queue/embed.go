package queue

import "embed"

// Migrations holds the queue_jobs schema for pg.Migrate.
//
//go:embed migrations/*.sql
var Migrations embed.FS
