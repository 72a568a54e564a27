package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Store persists the ledger.
type Store interface {
	Load(ctx context.Context) (LoadResult, error)
	Save(ctx context.Context, picks []Pick) error
	Close() error
}

// SQLiteStore keeps the ledger in a single SQLite table keyed by pick_id.
type SQLiteStore struct {
	db      *sql.DB
	missing []string
	dropped []string
}

// NewSQLiteStore opens (or creates) the ledger database and migrates it.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One writer per run; a single connection keeps transactions simple.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	var defs []string
	for _, c := range Columns {
		defs = append(defs, c.Name+" "+c.SQLType)
	}
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS picks (
		%s
	);

	CREATE INDEX IF NOT EXISTS idx_picks_event ON picks(event_id);
	CREATE INDEX IF NOT EXISTS idx_picks_status ON picks(status);
	`, strings.Join(defs, ",\n\t\t"))

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}

	existing, err := s.existingColumns()
	if err != nil {
		return err
	}
	for name := range existing {
		if !knownColumn(name) {
			s.dropped = append(s.dropped, name)
		}
	}
	sort.Strings(s.dropped)

	for _, c := range Columns {
		if existing[c.Name] {
			continue
		}
		// PRIMARY KEY cannot be added after the fact; pick_id always exists.
		if _, err := s.db.Exec(fmt.Sprintf("ALTER TABLE picks ADD COLUMN %s %s", c.Name, c.SQLType)); err != nil {
			return fmt.Errorf("adding column %s: %w", c.Name, err)
		}
		s.missing = append(s.missing, c.Name)
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
		return fmt.Errorf("setting schema version: %w", err)
	}
	return nil
}

func (s *SQLiteStore) existingColumns() (map[string]bool, error) {
	rows, err := s.db.Query("PRAGMA table_info(picks)")
	if err != nil {
		return nil, fmt.Errorf("reading table info: %w", err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scanning table info: %w", err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load reads every pick. Columns the table lacked before migration are
// reported in Missing so the caller can rebuild derived values; legacy
// columns the schema no longer uses are reported in Dropped.
func (s *SQLiteStore) Load(ctx context.Context) (LoadResult, error) {
	names := ColumnNames()
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM picks", strings.Join(names, ", ")))
	if err != nil {
		return LoadResult{}, fmt.Errorf("querying picks: %w", err)
	}
	defer rows.Close()

	res := LoadResult{
		Missing: append([]string(nil), s.missing...),
		Dropped: append([]string(nil), s.dropped...),
	}
	for rows.Next() {
		vals := make([]sql.NullString, len(names))
		ptrs := make([]any, len(names))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return LoadResult{}, fmt.Errorf("scanning pick row: %w", err)
		}

		row := make(map[string]string, len(names))
		for i, n := range names {
			row[n] = vals[i].String
		}
		p, ok, err := decodePick(row)
		if err != nil {
			return LoadResult{}, fmt.Errorf("decoding pick %s: %w", row["pick_id"], err)
		}
		if !ok {
			res.Seeds++
			continue
		}
		res.Picks = append(res.Picks, p)
	}
	return res, rows.Err()
}

// Save upserts every pick in one transaction; either the whole run's
// ledger lands or none of it does.
func (s *SQLiteStore) Save(ctx context.Context, picks []Pick) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	names := ColumnNames()
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	var updates []string
	for _, n := range names[1:] {
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", n, n))
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO picks (%s) VALUES (%s) ON CONFLICT(pick_id) DO UPDATE SET %s",
		strings.Join(names, ", "), placeholders, strings.Join(updates, ", ")))
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range picks {
		vals := encodePick(p)
		args := make([]any, len(vals))
		for i, v := range vals {
			args[i] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("upserting pick %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing ledger: %w", err)
	}
	s.missing = nil
	return nil
}
