package thingdef

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/chazu/thingdef/vm"
)

// SQLiteDump stores generated functions in a SQLite database so that runs
// can be queried and compared. Every row carries the run ID.
type SQLiteDump struct {
	db    *sql.DB
	runID string
}

// NewSQLiteDump opens (or creates) the database at path.
func NewSQLiteDump(path string) (*SQLiteDump, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started TEXT NOT NULL,
			code_bytes INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS functions (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			label TEXT NOT NULL,
			name TEXT NOT NULL,
			num_regd INTEGER NOT NULL,
			num_regf INTEGER NOT NULL,
			num_rega INTEGER NOT NULL,
			num_regs INTEGER NOT NULL,
			max_param INTEGER NOT NULL,
			num_args INTEGER NOT NULL,
			PRIMARY KEY (run_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS instructions (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			pc INTEGER NOT NULL,
			opcode TEXT NOT NULL,
			word INTEGER NOT NULL,
			text TEXT NOT NULL,
			PRIMARY KEY (run_id, seq, pc)
		)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating tables: %w", err)
		}
	}

	return &SQLiteDump{db: db}, nil
}

// Begin records a new run. Functions dumped afterwards belong to it.
func (d *SQLiteDump) Begin(runID uuid.UUID) error {
	d.runID = runID.String()
	_, err := d.db.Exec("INSERT INTO runs (id, started) VALUES (?, ?)", d.runID, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// DumpFunction stores fn and its instructions.
func (d *SQLiteDump) DumpFunction(label string, fn *vm.ScriptFunction) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var seq int
	if err := tx.QueryRow("SELECT COUNT(*) FROM functions WHERE run_id = ?", d.runID).Scan(&seq); err != nil {
		return fmt.Errorf("counting functions: %w", err)
	}
	_, err = tx.Exec(`INSERT INTO functions
		(run_id, seq, label, name, num_regd, num_regf, num_rega, num_regs, max_param, num_args)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.runID, seq, label, fn.Name(), fn.NumRegD, fn.NumRegF, fn.NumRegA, fn.NumRegS, fn.MaxParam, fn.NumArgs)
	if err != nil {
		return fmt.Errorf("saving function %s: %w", label, err)
	}
	for pc, ins := range fn.Code {
		_, err = tx.Exec("INSERT INTO instructions (run_id, seq, pc, opcode, word, text) VALUES (?, ?, ?, ?, ?, ?)",
			d.runID, seq, pc, ins.Op().String(), int64(ins), vm.DisassembleInstruction(fn, pc))
		if err != nil {
			return fmt.Errorf("saving instruction %d of %s: %w", pc, label, err)
		}
	}
	return tx.Commit()
}

// Finish records the run's code size.
func (d *SQLiteDump) Finish(codeBytes int) error {
	if _, err := d.db.Exec("UPDATE runs SET code_bytes = ? WHERE id = ?", codeBytes, d.runID); err != nil {
		return fmt.Errorf("updating run: %w", err)
	}
	return nil
}

// Functions returns the labels stored for the run, in dump order.
func (d *SQLiteDump) Functions() ([]string, error) {
	rows, err := d.db.Query("SELECT label FROM functions WHERE run_id = ? ORDER BY seq", d.runID)
	if err != nil {
		return nil, fmt.Errorf("querying functions: %w", err)
	}
	defer rows.Close()
	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, err
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}

// Close closes the database.
func (d *SQLiteDump) Close() error {
	return d.db.Close()
}
