package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// CSVStore keeps the ledger as a flat CSV file with a header row. Older
// files with extra or missing columns load fine; the next Save rewrites
// the file in the current column order.
type CSVStore struct {
	path string
}

// NewCSVStore creates a store for path. The file need not exist yet.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Close is a no-op; the file is only open during Load and Save.
func (c *CSVStore) Close() error { return nil }

// Load reads the file. A missing file is an empty ledger.
func (c *CSVStore) Load(_ context.Context) (LoadResult, error) {
	f, err := os.Open(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return LoadResult{}, nil
	}
	if err != nil {
		return LoadResult{}, fmt.Errorf("opening ledger csv: %w", err)
	}
	defer f.Close()

	return readCSV(f)
}

func readCSV(r io.Reader) (LoadResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return LoadResult{}, nil
	}
	if err != nil {
		return LoadResult{}, fmt.Errorf("reading ledger header: %w", err)
	}

	var res LoadResult
	present := make(map[string]bool)
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		header[i] = h
		present[h] = true
		if !knownColumn(h) {
			res.Dropped = append(res.Dropped, h)
		}
	}
	for _, col := range Columns {
		if !present[col.Name] {
			res.Missing = append(res.Missing, col.Name)
		}
	}

	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return LoadResult{}, fmt.Errorf("reading ledger line %d: %w", line, err)
		}

		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) && knownColumn(h) {
				row[h] = rec[i]
			}
		}
		p, ok, err := decodePick(row)
		if err != nil {
			return LoadResult{}, fmt.Errorf("decoding ledger line %d: %w", line, err)
		}
		if !ok {
			res.Seeds++
			continue
		}
		res.Picks = append(res.Picks, p)
	}
	return res, nil
}

// Save writes every pick to a temp file in the same directory and renames
// it over the ledger, so a crash leaves either the old or the new file.
func (c *CSVStore) Save(_ context.Context, picks []Pick) error {
	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp ledger: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := csv.NewWriter(tmp)
	if err := w.Write(ColumnNames()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing ledger header: %w", err)
	}
	for _, p := range picks {
		if err := w.Write(encodePick(p)); err != nil {
			tmp.Close()
			return fmt.Errorf("writing pick %s: %w", p.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flushing ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp ledger: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		return fmt.Errorf("replacing ledger: %w", err)
	}
	return nil
}
