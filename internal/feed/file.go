package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileSource reads quotes and scores from JSON files laid out as
// <dir>/<sport>.odds.json and <dir>/<sport>.scores.json. A missing file
// yields no records.
type FileSource struct {
	dir string
}

// NewFileSource creates a source rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// Quotes implements QuoteSource.
func (f *FileSource) Quotes(_ context.Context, sport string) ([]QuoteRecord, error) {
	var records []QuoteRecord
	if err := f.read(sport+".odds.json", &records); err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].Sport == "" {
			records[i].Sport = sport
		}
	}
	return records, nil
}

// Scores implements ScoreSource.
func (f *FileSource) Scores(_ context.Context, sport string) ([]ScoreRecord, error) {
	var records []ScoreRecord
	if err := f.read(sport+".scores.json", &records); err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].Sport == "" {
			records[i].Sport = sport
		}
	}
	return records, nil
}

func (f *FileSource) read(name string, out any) error {
	data, err := os.ReadFile(filepath.Join(f.dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	return nil
}
