package monetize

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/marque-journal/marque/builder/models"
)

// TableFile is the monetization table inside the content directory.
const TableFile = "monetize.json"

// Table is an immutable lookup of monetization rows keyed by monetizeKey.
type Table struct {
	rows map[string]models.MonetizeConfig
}

// NewTable indexes rows by key. Rows without a key are dropped and the
// last row wins on duplicates.
func NewTable(rows []models.MonetizeConfig) *Table {
	t := &Table{rows: make(map[string]models.MonetizeConfig, len(rows))}
	for _, r := range rows {
		k := strings.TrimSpace(r.MonetizeKey)
		if k == "" {
			continue
		}
		r.MonetizeKey = k
		t.rows[k] = r
	}
	return t
}

// LoadTable reads <dir>/monetize.json. A missing file is an empty table.
// The file may be a JSON array of rows or an object keyed by monetizeKey.
func LoadTable(fs afero.Fs, dir string) (*Table, error) {
	path := filepath.Join(dir, TableFile)
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewTable(nil), nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var rows []models.MonetizeConfig
	if err := json.Unmarshal(data, &rows); err == nil {
		return NewTable(rows), nil
	}

	var keyed map[string]models.MonetizeConfig
	if err := json.Unmarshal(data, &keyed); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for k, r := range keyed {
		if r.MonetizeKey == "" {
			r.MonetizeKey = k
		}
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].MonetizeKey < rows[j].MonetizeKey })
	return NewTable(rows), nil
}

// Lookup returns the row for key. There is no fallback row.
func (t *Table) Lookup(key string) (models.MonetizeConfig, bool) {
	if t == nil {
		return models.MonetizeConfig{}, false
	}
	r, ok := t.rows[strings.TrimSpace(key)]
	return r, ok
}

// Keys returns every key in sorted order.
func (t *Table) Keys() []string {
	if t == nil {
		return nil
	}
	keys := make([]string, 0, len(t.rows))
	for k := range t.rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}
