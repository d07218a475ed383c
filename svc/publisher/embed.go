package publisher

import "embed"

// Migrations holds the post_jobs schema for pg.Migrate.
//
//go:embed migrations/*.sql
var Migrations embed.FS
