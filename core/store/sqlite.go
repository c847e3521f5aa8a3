package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/openvest/vestd/core/vesting"
)

// SQLiteStore persists allocations to a SQLite database. Each record is
// stored as a JSON document keyed by beneficiary so schedule history stays
// append-only at the document level.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS allocations (
        beneficiary TEXT PRIMARY KEY,
        withdrawn INTEGER NOT NULL,
        record TEXT NOT NULL
    );`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, beneficiary string) (vesting.Allocation, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM allocations WHERE beneficiary = ?`, beneficiary).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return vesting.Allocation{}, vesting.ErrNoAllocation
	}
	if err != nil {
		return vesting.Allocation{}, err
	}
	var a vesting.Allocation
	if err := json.Unmarshal([]byte(data), &a); err != nil {
		return vesting.Allocation{}, fmt.Errorf("unmarshal allocation: %w", err)
	}
	return a, nil
}

func (s *SQLiteStore) Put(ctx context.Context, alloc vesting.Allocation) error {
	b, err := json.Marshal(alloc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO allocations (beneficiary, withdrawn, record) VALUES (?, ?, ?)
         ON CONFLICT(beneficiary) DO UPDATE SET withdrawn = excluded.withdrawn, record = excluded.record`,
		alloc.Beneficiary, int64(alloc.Withdrawn), string(b))
	return err
}

// Rekey moves an allocation under a new beneficiary key in one transaction.
func (s *SQLiteStore) Rekey(ctx context.Context, from, to string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var data string
	err = tx.QueryRowContext(ctx,
		`SELECT record FROM allocations WHERE beneficiary = ?`, from).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return vesting.ErrNoAllocation
	}
	if err != nil {
		return err
	}
	var a vesting.Allocation
	if err := json.Unmarshal([]byte(data), &a); err != nil {
		return fmt.Errorf("unmarshal allocation: %w", err)
	}
	a.Beneficiary = to
	b, err := json.Marshal(a)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM allocations WHERE beneficiary = ?`, from); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO allocations (beneficiary, withdrawn, record) VALUES (?, ?, ?)`,
		to, int64(a.Withdrawn), string(b)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) List(ctx context.Context, q ListQuery) ([]vesting.Allocation, error) {
	limit := clampLimit(q.Limit)
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM allocations WHERE beneficiary > ? ORDER BY beneficiary LIMIT ?`,
		q.StartAfter, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []vesting.Allocation
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var a vesting.Allocation
		if err := json.Unmarshal([]byte(data), &a); err != nil {
			return nil, fmt.Errorf("unmarshal allocation: %w", err)
		}
		res = append(res, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
