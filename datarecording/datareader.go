package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/fatih/structs"
)

// QueryParams selects and pages the rows of a table.
type QueryParams struct {
	// Where is a filter without the WHERE keyword, e.g. "Seq > ?".
	Where string
	Args  []any

	// OrderBy is a sort clause without the ORDER BY keywords.
	OrderBy string

	// A zero Limit returns every row after Offset.
	Limit  int
	Offset int
}

// DataReader reads tables written by a DataRecorder.
type DataReader interface {
	// MapTable binds a table to the struct type its rows are read into. A
	// table must be mapped before it is queried.
	MapTable(tableName string, sampleEntry any)

	// StoredTables lists the tables present in the database.
	StoredTables(ctx context.Context) ([]string, error)

	// Query returns pointers to new structs of the mapped type, along with
	// the number of rows matching params.Where regardless of paging.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	Close() error
}

type tableMapping struct {
	entryType reflect.Type
	columns   []string
}

type sqliteReader struct {
	db *sql.DB

	lock     sync.RWMutex
	mappings map[string]tableMapping
}

// NewReader opens an existing database file.
func NewReader(dbFilename string) (DataReader, error) {
	if _, err := os.Stat(dbFilename); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbFilename)
	if err != nil {
		return nil, err
	}

	return NewReaderWithDB(db), nil
}

// NewReaderWithDB creates a DataReader over an open database.
func NewReaderWithDB(db *sql.DB) DataReader {
	return &sqliteReader{
		db:       db,
		mappings: make(map[string]tableMapping),
	}
}

func (r *sqliteReader) MapTable(tableName string, sampleEntry any) {
	if err := checkStructFields(sampleEntry); err != nil {
		panic(err)
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	r.mappings[tableName] = tableMapping{
		entryType: reflect.TypeOf(sampleEntry),
		columns:   structs.Names(sampleEntry),
	}
}

func (r *sqliteReader) mapping(tableName string) (tableMapping, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	m, ok := r.mappings[tableName]

	return m, ok
}

func (r *sqliteReader) StoredTables(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := []string{}

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}

		tables = append(tables, name)
	}

	return tables, rows.Err()
}

func quote(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

func (r *sqliteReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	m, ok := r.mapping(tableName)
	if !ok {
		return nil, 0, fmt.Errorf("table %s is not mapped", tableName)
	}

	columns := make([]string, len(m.columns))
	for i, c := range m.columns {
		columns[i] = quote(c)
	}

	var b strings.Builder

	fmt.Fprintf(&b, "SELECT %s, COUNT(*) OVER () FROM %s",
		strings.Join(columns, ", "), quote(tableName))

	if params.Where != "" {
		b.WriteString(" WHERE " + params.Where)
	}

	if params.OrderBy != "" {
		b.WriteString(" ORDER BY " + params.OrderBy)
	}

	switch {
	case params.Limit > 0:
		fmt.Fprintf(&b, " LIMIT %d OFFSET %d", params.Limit, params.Offset)
	case params.Offset > 0:
		fmt.Fprintf(&b, " LIMIT -1 OFFSET %d", params.Offset)
	}

	rows, err := r.db.QueryContext(ctx, b.String(), params.Args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	results, total, err := scanEntries(rows, m)
	if err != nil {
		return nil, 0, err
	}

	// Paging past the last row leaves no row to carry the window count.
	if len(results) == 0 && params.Offset > 0 {
		total, err = r.count(ctx, tableName, params)
		if err != nil {
			return nil, 0, err
		}
	}

	return results, total, nil
}

func (r *sqliteReader) count(
	ctx context.Context,
	tableName string,
	params QueryParams,
) (int, error) {
	query := "SELECT COUNT(*) FROM " + quote(tableName)
	if params.Where != "" {
		query += " WHERE " + params.Where
	}

	var n int
	err := r.db.QueryRowContext(ctx, query, params.Args...).Scan(&n)

	return n, err
}

func scanEntries(rows *sql.Rows, m tableMapping) ([]any, int, error) {
	var (
		results []any
		total   int
	)

	targets := make([]any, len(m.columns)+1)
	targets[len(m.columns)] = &total

	for rows.Next() {
		entry := reflect.New(m.entryType)
		for i, c := range m.columns {
			targets[i] = entry.Elem().FieldByName(c).Addr().Interface()
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, 0, err
		}

		results = append(results, entry.Interface())
	}

	return results, total, rows.Err()
}

func (r *sqliteReader) Close() error {
	return r.db.Close()
}
