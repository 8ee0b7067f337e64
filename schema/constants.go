package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for caching and history.
	DatabaseBackend string
)

// All output modes supported.
const (
	TextOut OutputMode = "text" // default
	JSONOut OutputMode = "json"
	CSVOut  OutputMode = "csv"
	EnvOut  OutputMode = "env"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite"
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none" // default
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	TextOut: {},
	JSONOut: {},
	CSVOut:  {},
	EnvOut:  {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// Descriptor conventions.
const (
	DescriptorClass     = "Migration"  // class holding the operation list
	OperationsAttribute = "operations" // attribute assigned the operation list
	DescriptorExt       = ".py"
	DefaultMigrationDir = "migrations"
)

// CI sink defaults.
const (
	DefaultEnvKey      = "MIGRATION_CHANGES"
	DefaultEnvFile     = ".migdelta_output"
	GitHubOutputEnvVar = "GITHUB_OUTPUT"
)
