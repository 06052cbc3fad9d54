// Package csvstore persists bank state as three CSV files in one directory.
//
// A save writes all three files to temporaries next to their targets and
// renames them into place only once every write has succeeded, so a failed
// save leaves the previous files intact. Columns are matched by header name,
// not position.
package csvstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mybank/banking-system/internal/domain"
)

const (
	UsersFile        = "users.csv"
	AccountsFile     = "accounts.csv"
	TransactionsFile = "transactions.csv"
)

type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("csvstore.New: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

type table struct {
	columns map[string]int
	rows    [][]string
}

func (t *table) value(row []string, column string) (string, error) {
	i, ok := t.columns[column]
	if !ok {
		return "", fmt.Errorf("missing column %q", column)
	}
	if i >= len(row) {
		return "", nil
	}
	return row[i], nil
}

// optional returns "" when column is absent from the file.
func (t *table) optional(row []string, column string) string {
	v, _ := t.value(row, column)
	return v
}

// readTable returns an empty table when the file does not exist yet.
func readTable(ctx context.Context, path string) (*table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &table{columns: map[string]int{}}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	t := &table{columns: map[string]int{}}
	if len(records) == 0 {
		return t, nil
	}
	for i, name := range records[0] {
		t.columns[name] = i
	}
	for _, rec := range records[1:] {
		if len(rec) == 1 && rec[0] == "" {
			continue
		}
		t.rows = append(t.rows, rec)
	}
	return t, nil
}

// Save writes users, accounts and the existing transactions followed by the
// new ones. Transactions whose id is already on file are skipped, so a retried
// save does not duplicate them.
func (s *Store) Save(ctx context.Context, st domain.State) error {
	existing, err := s.LoadTransactions(ctx)
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}

	// Users are renamed before accounts so an interrupted rename never leaves
	// an account whose owner is missing.
	files := []struct {
		name   string
		header []string
		rows   [][]string
	}{
		{TransactionsFile, transactionHeader, transactionRows(appendNew(existing, st.Transactions))},
		{UsersFile, userHeader, userRows(st.Users)},
		{AccountsFile, accountHeader, accountRows(st.Accounts)},
	}

	staged := make([]stagedFile, 0, len(files))
	for _, f := range files {
		sf, err := stage(ctx, s.path(f.name), f.header, f.rows)
		if err != nil {
			discard(staged)
			return fmt.Errorf("Save: %s: %w", f.name, err)
		}
		staged = append(staged, sf)
	}

	for i, sf := range staged {
		if err := os.Rename(sf.tmp, sf.path); err != nil {
			discard(staged[i:])
			return fmt.Errorf("Save: %s: %w", filepath.Base(sf.path), err)
		}
	}
	return nil
}

// stagedFile is a fully written temporary waiting to replace path.
type stagedFile struct {
	tmp  string
	path string
}

// stage writes header and rows to a temp file in the same directory as path.
func stage(ctx context.Context, path string, header []string, rows [][]string) (sf stagedFile, err error) {
	if err := ctx.Err(); err != nil {
		return stagedFile{}, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return stagedFile{}, err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		return stagedFile{}, err
	}
	if err := w.WriteAll(rows); err != nil {
		return stagedFile{}, err
	}
	if err := tmp.Sync(); err != nil {
		return stagedFile{}, err
	}
	if err := tmp.Close(); err != nil {
		return stagedFile{}, err
	}
	return stagedFile{tmp: tmp.Name(), path: path}, nil
}

func discard(files []stagedFile) {
	for _, sf := range files {
		os.Remove(sf.tmp)
	}
}
