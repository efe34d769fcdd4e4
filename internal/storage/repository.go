// Package storage reads the starting ledger from a SQLite database whose
// schema and default rows are managed by embedded migrations.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"runpay/internal/core"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	version uint
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, version: version}, nil
}

// DB exposes the pool for stats collection.
func (r *SQLiteRepository) DB() *sql.DB { return r.db }

func (r *SQLiteRepository) SchemaVersion() uint { return r.version }

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ReadSeed implements seed.Reader.
func (r *SQLiteRepository) ReadSeed(ctx context.Context) (core.Seed, error) {
	var s core.Seed

	treasury, err := r.readTreasury(ctx)
	if err != nil {
		return core.Seed{}, err
	}
	s.Treasury = treasury

	if s.Employees, err = r.readEmployees(ctx); err != nil {
		return core.Seed{}, err
	}
	if s.Integrations, err = r.readIntegrations(ctx); err != nil {
		return core.Seed{}, err
	}
	if err := s.Validate(); err != nil {
		return core.Seed{}, fmt.Errorf("invalid seed in database: %w", err)
	}

	slog.InfoContext(ctx, "Seed loaded from SQLite",
		"employees", len(s.Employees),
		"integrations", len(s.Integrations),
		"schema_version", r.version)
	return s, nil
}

func (r *SQLiteRepository) readTreasury(ctx context.Context) (core.Account, error) {
	var (
		a              core.Account
		balance, yield string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, balance, yield_rate FROM treasury LIMIT 1`,
	).Scan(&a.ID, &a.Name, &balance, &yield)
	if err == sql.ErrNoRows {
		return core.Account{}, fmt.Errorf("treasury row missing")
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("query treasury: %w", err)
	}
	if a.Balance, err = decimal.NewFromString(balance); err != nil {
		return core.Account{}, fmt.Errorf("treasury balance %q: %w", balance, err)
	}
	if a.YieldRate, err = decimal.NewFromString(yield); err != nil {
		return core.Account{}, fmt.Errorf("treasury yield rate %q: %w", yield, err)
	}
	return a, nil
}

func (r *SQLiteRepository) readEmployees(ctx context.Context) ([]core.Employee, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, role, email, balance FROM employees ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	var out []core.Employee
	for rows.Next() {
		var (
			e       core.Employee
			balance string
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Role, &e.Email, &balance); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		if e.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("employee %s balance %q: %w", e.ID, balance, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) readIntegrations(ctx context.Context) ([]core.Integration, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, connected FROM integrations ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("query integrations: %w", err)
	}
	defer rows.Close()

	var out []core.Integration
	for rows.Next() {
		var in core.Integration
		if err := rows.Scan(&in.ID, &in.Name, &in.Description, &in.Connected); err != nil {
			return nil, fmt.Errorf("scan integration: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}
