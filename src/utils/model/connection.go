package model

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/cassc/smart-contract-database-builder/src/utils/config"
	l "github.com/cassc/smart-contract-database-builder/src/utils/logger"

	_ "github.com/duckdb/duckdb-go/v2"
)

// DuckDB doesn't support CREATE TYPE IF NOT EXISTS, the enum statements are
// executed separately and their failure on an already initialized database is
// ignored.
var enumStatements = []string{
	`CREATE TYPE source_type_enum AS ENUM ('json', 'vyper', 'single_sol', 'multi_sol')`,
	`CREATE TYPE status_enum AS ENUM ('pending', 'indexed', 'failed', 'skipped')`,
}

const schema = `
CREATE TABLE IF NOT EXISTS contract (
	id VARCHAR PRIMARY KEY,
	address VARCHAR,
	name VARCHAR,
	compiler_version VARCHAR,
	constructor_args VARCHAR,
	sources VARCHAR,
	settings VARCHAR,
	source_type source_type_enum,
	status status_enum DEFAULT 'pending'
);

CREATE TABLE IF NOT EXISTS function (
	contract_id VARCHAR,
	contract_name VARCHAR,
	name VARCHAR,
	signature VARCHAR,
	selector VARCHAR,
	mutability VARCHAR,
	visibility VARCHAR,
	PRIMARY KEY (contract_id, selector)
);
`

// NewConnection opens the DuckDB database file and makes sure the schema
// exists. The returned Storage is the only database handle of the run and is
// passed explicitly to each stage.
func NewConnection(ctx context.Context, config *config.Config) (self *Storage, err error) {
	log := l.NewSublogger("db")

	path := config.Database.Path
	if parent := filepath.Dir(path); parent != "." {
		err = os.MkdirAll(parent, 0o755)
		if err != nil {
			return
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return
	}

	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return
	}

	for _, stmt := range enumStatements {
		_, enumErr := db.ExecContext(ctx, stmt)
		if enumErr != nil {
			// Type already exists
			log.WithError(enumErr).Debug("Skipped enum creation")
		}
	}

	_, err = db.ExecContext(ctx, schema)
	if err != nil {
		db.Close()
		return
	}

	self = &Storage{db: db, log: log}
	return
}
