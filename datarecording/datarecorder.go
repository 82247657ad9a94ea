// Package datarecording stores flat Go structs in SQLite tables and reads
// them back.
package datarecording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
	"github.com/tliron/commonlog"
)

var logger = commonlog.GetLogger("gxfifo.datarecording")

// ErrInvalidEntry is returned for entries that are not flat structs of
// scalar fields and byte slices.
var ErrInvalidEntry = errors.New("entry is invalid")

// DataRecorder is a backend that can record and store data.
type DataRecorder interface {
	// CreateTable creates a new table whose columns are the fields of
	// sampleEntry.
	CreateTable(tableName string, sampleEntry any)

	// InsertData buffers an entry for a table that already exists.
	InsertData(tableName string, entry any)

	// ListTables returns the names of all tables, in creation order.
	ListTables() []string

	// Flush writes all the buffered entries into the database.
	Flush()

	// Close flushes and closes the database.
	Close() error
}

// New creates a DataRecorder writing to path with the .sqlite3 extension
// added. An empty path picks a unique name. The file must not exist.
func New(path string) (DataRecorder, error) {
	if path == "" {
		path = "gxfifo_capture_" + xid.New().String()
	}

	filename := path + ".sqlite3"

	if _, err := os.Stat(filename); err == nil {
		return nil, fmt.Errorf("file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, err
	}

	// Touch the header so that the file exists for readers right away.
	if _, err := db.Exec("PRAGMA user_version = 1"); err != nil {
		db.Close()
		return nil, err
	}

	logger.Noticef("recording to %s", filename)

	return NewWithDB(db), nil
}

// NewWithDB creates a DataRecorder on an open database.
func NewWithDB(db *sql.DB) DataRecorder {
	w := &sqliteWriter{
		db:        db,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { w.Flush() })

	return w
}

// table buffers the rows of one table until the next flush.
type table struct {
	name      string
	entryType reflect.Type
	insert    *sql.Stmt
	pending   [][]any
}

type sqliteWriter struct {
	db *sql.DB

	lock      sync.Mutex
	tables    map[string]*table
	order     []*table
	pending   int
	batchSize int
	closed    bool
}

// columnType maps a field kind to a SQLite column type. Unsupported kinds
// return an empty string.
func columnType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64:
		return "INTEGER"
	case reflect.Float32, reflect.Float64:
		return "REAL"
	case reflect.String:
		return "TEXT"
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return "BLOB"
		}
	}

	return ""
}

func checkStructFields(entry any) error {
	t := reflect.TypeOf(entry)
	if t == nil || t.Kind() != reflect.Struct {
		return fmt.Errorf("%w: %T is not a struct", ErrInvalidEntry, entry)
	}

	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || columnType(f.Type) == "" {
			return fmt.Errorf("%w: field %s of %s", ErrInvalidEntry,
				f.Name, t)
		}
	}

	return nil
}

func (w *sqliteWriter) CreateTable(tableName string, sampleEntry any) {
	if err := checkStructFields(sampleEntry); err != nil {
		panic(err)
	}

	w.lock.Lock()
	defer w.lock.Unlock()

	if _, exists := w.tables[tableName]; exists {
		panic(fmt.Sprintf("table %s already exists", tableName))
	}

	fields := structs.Fields(sampleEntry)
	columns := make([]string, len(fields))
	defs := make([]string, len(fields))
	marks := make([]string, len(fields))

	for i, f := range fields {
		columns[i] = quote(f.Name())
		defs[i] = columns[i] + " " +
			columnType(reflect.TypeOf(f.Value()))
		marks[i] = "?"
	}

	w.mustExecute(fmt.Sprintf("CREATE TABLE %s (%s)",
		quote(tableName), strings.Join(defs, ", ")))

	insert, err := w.db.Prepare(fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)", quote(tableName),
		strings.Join(columns, ", "), strings.Join(marks, ", ")))
	if err != nil {
		panic(err)
	}

	t := &table{
		name:      tableName,
		entryType: reflect.TypeOf(sampleEntry),
		insert:    insert,
	}
	w.tables[tableName] = t
	w.order = append(w.order, t)
}

func (w *sqliteWriter) InsertData(tableName string, entry any) {
	w.lock.Lock()
	defer w.lock.Unlock()

	t, exists := w.tables[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != t.entryType {
		panic(fmt.Sprintf("table %s holds %s, not %T",
			tableName, t.entryType, entry))
	}

	t.pending = append(t.pending, structs.Values(entry))

	w.pending++
	if w.pending >= w.batchSize {
		w.flush()
	}
}

func (w *sqliteWriter) ListTables() []string {
	w.lock.Lock()
	defer w.lock.Unlock()

	names := make([]string, len(w.order))
	for i, t := range w.order {
		names[i] = t.name
	}

	return names
}

func (w *sqliteWriter) Flush() {
	w.lock.Lock()
	defer w.lock.Unlock()

	w.flush()
}

func (w *sqliteWriter) Close() error {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.closed {
		return nil
	}

	w.flush()
	w.closed = true

	for _, t := range w.order {
		t.insert.Close()
	}

	return w.db.Close()
}

func (w *sqliteWriter) flush() {
	if w.pending == 0 || w.closed {
		return
	}

	tx, err := w.db.Begin()
	if err != nil {
		panic(err)
	}

	for _, t := range w.order {
		if len(t.pending) == 0 {
			continue
		}

		stmt := tx.Stmt(t.insert)
		for _, values := range t.pending {
			if _, err := stmt.Exec(values...); err != nil {
				tx.Rollback()
				logger.Errorf("failed to insert into %s", t.name)
				panic(err)
			}
		}

		t.pending = nil
	}

	if err := tx.Commit(); err != nil {
		panic(err)
	}

	w.pending = 0
}

func (w *sqliteWriter) mustExecute(query string) {
	if _, err := w.db.Exec(query); err != nil {
		logger.Errorf("failed to execute: %s", query)
		panic(err)
	}
}
