// Package datarecording stores records of dataflow runs in SQLite, MySQL,
// ClickHouse or MongoDB.
package datarecording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/fatih/structs"
	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// DataRecorder is a backend that can record and store data
type DataRecorder interface {
	// CreateTable creates a table whose columns are the fields of
	// sampleEntry.
	CreateTable(tableName string, sampleEntry any)

	// InsertData buffers an entry for a table that already exists.
	InsertData(tableName string, entry any)

	// ListTables returns the names of all tables created so far.
	ListTables() []string

	// Flush writes all the buffered entries into the database.
	Flush()

	// Close flushes and closes the database.
	Close()
}

// NewDataRecorder creates a recorder that writes into path.sqlite3. An empty
// path picks a unique name. The recorder also keeps the start and end of the
// program in the exec_info table.
func NewDataRecorder(path string) DataRecorder {
	w := newSQLWriter(sqliteDialect)
	w.openSQLite(path)

	w.exec = newExecRecorder(w)
	w.exec.Start()

	atexit.Register(func() { w.Close() })

	return w
}

// NewDataRecorderWithDB creates a recorder that writes into an open SQLite
// database.
func NewDataRecorderWithDB(db *sql.DB) DataRecorder {
	w := newSQLWriter(sqliteDialect)
	w.DB = db

	atexit.Register(func() { w.Flush() })

	return w
}

type table struct {
	structType reflect.Type
	entries    []any
}

// A dialect is what differs between the SQL databases a sqlWriter talks to.
type dialect struct {
	name string

	// columnType returns the declared type of a column, or "" to leave the
	// column untyped.
	columnType func(kind reflect.Kind) string
}

var sqliteDialect = dialect{
	name:       "sqlite3",
	columnType: func(reflect.Kind) string { return "" },
}

// sqlWriter is the writer that writes data into a SQL database
type sqlWriter struct {
	*sql.DB

	dialect    dialect
	dbName     string
	tables     map[string]*table
	tableOrder []string
	batchSize  int
	entryCount int
	exec       *execRecorder
	closed     bool
}

func newSQLWriter(d dialect) *sqlWriter {
	return &sqlWriter{
		dialect:   d,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}
}

// DefaultDBName returns a database name that no other run uses.
func DefaultDBName() string {
	return "arrayflow_" + xid.New().String()
}

func (t *sqlWriter) openSQLite(path string) {
	t.dbName = path
	if t.dbName == "" {
		t.dbName = DefaultDBName()
	}

	filename := t.dbName + ".sqlite3"

	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", filename)

	db, err := sql.Open(t.dialect.name, filename)
	if err != nil {
		panic(err)
	}

	t.DB = db
}

func isAllowedKind(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

// recordedFields returns the fields of entry that become columns.
func recordedFields(entry any) ([]*structs.Field, error) {
	if entry == nil || !structs.IsStruct(entry) {
		return nil, errors.New("entry must be a struct")
	}

	fields := structs.Fields(entry)
	if len(fields) != reflect.Indirect(reflect.ValueOf(entry)).NumField() {
		return nil, fmt.Errorf("%T has unexported fields", entry)
	}

	for _, f := range fields {
		if !isAllowedKind(f.Kind()) {
			return nil, fmt.Errorf("field %s cannot be recorded", f.Name())
		}
	}

	return fields, nil
}

func columnNames(entry any) ([]string, error) {
	fields, err := recordedFields(entry)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name()
	}

	return names, nil
}

func (t *sqlWriter) CreateTable(tableName string, sampleEntry any) {
	fields, err := recordedFields(sampleEntry)
	if err != nil {
		panic(err)
	}

	if _, exists := t.tables[tableName]; exists {
		panic(fmt.Sprintf("table %s already exists", tableName))
	}

	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name()
		if typ := t.dialect.columnType(f.Kind()); typ != "" {
			columns[i] += " " + typ
		}
	}

	query := `CREATE TABLE ` + tableName +
		` (` + "\n\t" + strings.Join(columns, ", \n\t") + "\n" + `);`
	t.mustExecute(query)

	t.tables[tableName] = &table{
		structType: reflect.TypeOf(sampleEntry),
	}
	t.tableOrder = append(t.tableOrder, tableName)
}

func (t *sqlWriter) InsertData(tableName string, entry any) {
	table, exists := t.tables[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != table.structType {
		panic(fmt.Sprintf("entry of type %T does not fit table %s",
			entry, tableName))
	}

	table.entries = append(table.entries, entry)

	t.entryCount++
	if t.entryCount >= t.batchSize {
		t.Flush()
	}
}

func (t *sqlWriter) ListTables() []string {
	return append([]string(nil), t.tableOrder...)
}

func (t *sqlWriter) Flush() {
	if t.entryCount == 0 || t.closed {
		return
	}

	tx, err := t.Begin()
	if err != nil {
		panic(err)
	}

	for _, tableName := range t.tableOrder {
		table := t.tables[tableName]
		if len(table.entries) == 0 {
			continue
		}

		stmt := t.prepareStatement(tx, tableName,
			len(structs.Names(table.entries[0])))

		for _, entry := range table.entries {
			if _, err := stmt.Exec(structs.Values(entry)...); err != nil {
				panic(err)
			}
		}

		table.entries = nil

		stmt.Close()
	}

	if err := tx.Commit(); err != nil {
		panic(err)
	}

	t.entryCount = 0
}

func (t *sqlWriter) Close() {
	if t.closed {
		return
	}

	if t.exec != nil {
		t.exec.End()
	}

	t.Flush()
	t.closed = true

	if err := t.DB.Close(); err != nil {
		panic(err)
	}
}

func (t *sqlWriter) mustExecute(query string) sql.Result {
	res, err := t.Exec(query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute: %s\n", query)
		panic(err)
	}

	return res
}

func (t *sqlWriter) prepareStatement(
	tx *sql.Tx,
	table string,
	numFields int,
) *sql.Stmt {
	marks := make([]string, numFields)
	for i := range marks {
		marks[i] = "?"
	}

	sqlStr := "INSERT INTO " + table + " VALUES (" + strings.Join(marks, ", ") + ")"

	stmt, err := tx.Prepare(sqlStr)
	if err != nil {
		panic(err)
	}

	return stmt
}
