package postgres

import "embed"

// SchemaVersion is the highest migration version shipped with the agent
const SchemaVersion = 1

//go:embed migrations/*.sql
var migrationFS embed.FS
