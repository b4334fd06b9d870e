package model

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Thin transactional gateway around the DuckDB store. All writes of the
// pipeline go through this type, workers never touch the database directly.
type Storage struct {
	db  *sql.DB
	log *logrus.Entry
}

// Outcome of processing one contract, committed atomically per chunk
// together with the contract's status flip.
type ContractResult struct {
	ContractId string
	Status     Status
	Functions  []*Function
}

func (self *Storage) Close() error {
	return self.db.Close()
}

// InsertContracts appends a chunk of contracts. Rows whose content-derived id
// is already present are skipped, so re-running pre-process on the same
// corpus is idempotent.
func (self *Storage) InsertContracts(ctx context.Context, contracts []*Contract) (inserted int64, err error) {
	tx, err := self.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO contract (id, address, name, compiler_version, constructor_args, sources, settings, source_type, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("prepare contract insert: %w", err)
	}
	defer stmt.Close()

	for _, contract := range contracts {
		var sources, settings []byte
		sources, err = json.Marshal(contract.Sources)
		if err != nil {
			return 0, err
		}
		settings, err = json.Marshal(contract.Settings)
		if err != nil {
			return 0, err
		}

		var result sql.Result
		result, err = stmt.ExecContext(ctx,
			contract.Id,
			contract.Address,
			contract.Name,
			contract.CompilerVersion,
			contract.ConstructorArgs,
			string(sources),
			string(settings),
			string(contract.SourceType),
			string(StatusPending))
		if err != nil {
			return 0, fmt.Errorf("insert contract %s: %w", contract.Id, err)
		}

		var n int64
		n, err = result.RowsAffected()
		if err != nil {
			// The inserted count feeds the idempotence accounting, it must
			// not silently under-report
			return 0, fmt.Errorf("rows affected for %s: %w", contract.Id, err)
		}
		inserted += n
	}

	err = tx.Commit()
	if err != nil {
		return 0, fmt.Errorf("commit contract chunk: %w", err)
	}
	return
}

// GetContract returns nil without an error when the id is unknown
func (self *Storage) GetContract(ctx context.Context, id string) (contract *Contract, err error) {
	row := self.db.QueryRowContext(ctx,
		`SELECT id, address, name, compiler_version, constructor_args, sources, settings, source_type::varchar, status::varchar
		 FROM contract WHERE id = ?`, id)

	contract, err = scanContract(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return
}

// GetPendingContracts loads the next chunk of contracts that still await
// indexing. The status of every returned row changes on chunk commit, so
// repeated calls don't need a cursor.
func (self *Storage) GetPendingContracts(ctx context.Context, limit int) (contracts []*Contract, err error) {
	rows, err := self.db.QueryContext(ctx,
		`SELECT id, address, name, compiler_version, constructor_args, sources, settings, source_type::varchar, status::varchar
		 FROM contract WHERE status = ? ORDER BY id LIMIT ?`, string(StatusPending), limit)
	if err != nil {
		return nil, fmt.Errorf("select pending contracts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var contract *Contract
		contract, err = scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, contract)
	}
	return contracts, rows.Err()
}

func (self *Storage) CountContracts(ctx context.Context) (count int64, err error) {
	err = self.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contract`).Scan(&count)
	return
}

func (self *Storage) CountContractsByStatus(ctx context.Context, status Status) (count int64, err error) {
	err = self.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contract WHERE status = ?`, string(status)).Scan(&count)
	return
}

func (self *Storage) GetFunctions(ctx context.Context, contractId string) (functions []*Function, err error) {
	rows, err := self.db.QueryContext(ctx,
		`SELECT contract_id, contract_name, name, signature, selector, mutability, visibility
		 FROM function WHERE contract_id = ? ORDER BY selector`, contractId)
	if err != nil {
		return nil, fmt.Errorf("select functions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		function := new(Function)
		err = rows.Scan(&function.ContractId, &function.ContractName, &function.Name,
			&function.Signature, &function.Selector, &function.Mutability, &function.Visibility)
		if err != nil {
			return nil, err
		}
		functions = append(functions, function)
	}
	return functions, rows.Err()
}

// CommitChunk writes one indexed chunk in a single transaction: for every
// contract its old function rows are replaced and its status is flipped.
// A partially committed chunk is never visible, either all of this lands or
// none of it does.
func (self *Storage) CommitChunk(ctx context.Context, results []*ContractResult) (err error) {
	tx, err := self.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chunk transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, result := range results {
		// Upsert semantics: re-indexing replaces prior rows
		_, err = tx.ExecContext(ctx, `DELETE FROM function WHERE contract_id = ?`, result.ContractId)
		if err != nil {
			return fmt.Errorf("delete stale functions of %s: %w", result.ContractId, err)
		}

		for _, function := range result.Functions {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO function (contract_id, contract_name, name, signature, selector, mutability, visibility)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				function.ContractId,
				function.ContractName,
				function.Name,
				function.Signature,
				function.Selector,
				string(function.Mutability),
				string(function.Visibility))
			if err != nil {
				return fmt.Errorf("insert function %s of %s: %w", function.Signature, result.ContractId, err)
			}
		}

		_, err = tx.ExecContext(ctx, `UPDATE contract SET status = ? WHERE id = ?`,
			string(result.Status), result.ContractId)
		if err != nil {
			return fmt.Errorf("update status of %s: %w", result.ContractId, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit chunk: %w", err)
	}
	return
}

type scannable interface {
	Scan(dest ...any) error
}

func scanContract(row scannable) (contract *Contract, err error) {
	contract = new(Contract)
	var sources, settings, sourceType, status string
	err = row.Scan(&contract.Id, &contract.Address, &contract.Name, &contract.CompilerVersion,
		&contract.ConstructorArgs, &sources, &settings, &sourceType, &status)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal([]byte(sources), &contract.Sources)
	if err != nil {
		return nil, fmt.Errorf("decode sources of %s: %w", contract.Id, err)
	}
	err = json.Unmarshal([]byte(settings), &contract.Settings)
	if err != nil {
		return nil, fmt.Errorf("decode settings of %s: %w", contract.Id, err)
	}

	contract.SourceType = SourceType(sourceType)
	contract.Status = Status(status)
	return
}
