package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is the ordered schema history of the quiz store. Each file
// registering into it must be named <version>_<name>.go.
var Migrations = migrate.NewMigrations()
