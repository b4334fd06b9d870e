package config

import (
	"github.com/spf13/viper"
)

type Database struct {
	// Path to the DuckDB database file.
	// Overridden by --duckdb-path or the DUCKDB_PATH environment variable.
	Path string
}

func setDatabaseDefaults() {
	viper.SetDefault("Database.Path", "")
}
