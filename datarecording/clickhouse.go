package datarecording

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/fatih/structs"
	"github.com/tebeka/atexit"
)

// clickHouseWriter records into a ClickHouse server. Entries are buffered per
// table and sent as native batches.
type clickHouseWriter struct {
	conn      clickhouse.Conn
	mu        sync.Mutex
	batchSize int

	tables     map[string]*table
	tableOrder []string
	entryCount int
	exec       *execRecorder
	closed     bool
}

// NewClickHouseRecorder connects to the ClickHouse server described by dsn,
// for example "clickhouse://localhost:9000/arrayflow?username=default". It
// panics if the server cannot be reached.
func NewClickHouseRecorder(dsn string) DataRecorder {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		panic(fmt.Errorf("bad ClickHouse address %q: %w", dsn, err))
	}

	if opts.DialTimeout == 0 {
		opts.DialTimeout = 30 * time.Second
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		panic(fmt.Errorf("failed to connect to ClickHouse: %w", err))
	}

	if err := conn.Ping(context.Background()); err != nil {
		panic(fmt.Errorf("failed to ping ClickHouse: %w", err))
	}

	fmt.Fprintf(os.Stderr, "Recording into ClickHouse: %s\n",
		strings.Join(opts.Addr, ","))

	w := newClickHouseWriter(conn)

	w.exec = newExecRecorder(w)
	w.exec.Start()

	atexit.Register(func() { w.Close() })

	return w
}

func newClickHouseWriter(conn clickhouse.Conn) *clickHouseWriter {
	return &clickHouseWriter{
		conn:      conn,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}
}

func clickHouseType(kind reflect.Kind) string {
	switch kind {
	case reflect.Bool:
		return "Bool"
	case reflect.Int, reflect.Int64:
		return "Int64"
	case reflect.Int8:
		return "Int8"
	case reflect.Int16:
		return "Int16"
	case reflect.Int32:
		return "Int32"
	case reflect.Uint, reflect.Uint64:
		return "UInt64"
	case reflect.Uint8:
		return "UInt8"
	case reflect.Uint16:
		return "UInt16"
	case reflect.Uint32:
		return "UInt32"
	case reflect.Float32:
		return "Float32"
	case reflect.Float64:
		return "Float64"
	case reflect.String:
		return "String"
	default:
		panic(fmt.Sprintf("kind %s cannot be recorded", kind))
	}
}

// createTableSQL orders rows by the first column.
func createTableSQL(tableName string, sampleEntry any) (string, error) {
	fields, err := recordedFields(sampleEntry)
	if err != nil {
		return "", err
	}

	if len(fields) == 0 {
		return "", fmt.Errorf("table %s has no columns", tableName)
	}

	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name() + " " + clickHouseType(f.Kind())
	}

	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n\t%s\n) ENGINE = MergeTree()\nORDER BY %s",
		tableName, strings.Join(columns, ",\n\t"), fields[0].Name()), nil
}

// rowValues widens int and uint fields to the 64-bit types their columns
// hold.
func rowValues(entry any) []any {
	fields := structs.Fields(entry)
	values := make([]any, len(fields))

	for i, f := range fields {
		switch v := f.Value().(type) {
		case int:
			values[i] = int64(v)
		case uint:
			values[i] = uint64(v)
		default:
			values[i] = v
		}
	}

	return values
}

func (w *clickHouseWriter) CreateTable(tableName string, sampleEntry any) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.tables[tableName]; exists {
		panic(fmt.Sprintf("table %s already exists", tableName))
	}

	query, err := createTableSQL(tableName, sampleEntry)
	if err != nil {
		panic(err)
	}

	if err := w.conn.Exec(context.Background(), query); err != nil {
		panic(fmt.Errorf("failed to create table %s: %w", tableName, err))
	}

	w.tables[tableName] = &table{structType: reflect.TypeOf(sampleEntry)}
	w.tableOrder = append(w.tableOrder, tableName)
}

func (w *clickHouseWriter) InsertData(tableName string, entry any) {
	w.mu.Lock()

	t, exists := w.tables[tableName]
	if !exists {
		w.mu.Unlock()
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != t.structType {
		w.mu.Unlock()
		panic(fmt.Sprintf("entry of type %T does not fit table %s",
			entry, tableName))
	}

	t.entries = append(t.entries, entry)
	w.entryCount++
	full := w.entryCount >= w.batchSize

	w.mu.Unlock()

	if full {
		w.Flush()
	}
}

func (w *clickHouseWriter) ListTables() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return append([]string(nil), w.tableOrder...)
}

func (w *clickHouseWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.entryCount == 0 || w.closed {
		return
	}

	ctx := context.Background()

	for _, tableName := range w.tableOrder {
		t := w.tables[tableName]
		if len(t.entries) == 0 {
			continue
		}

		w.flushTable(ctx, tableName, t)
		t.entries = nil
	}

	w.entryCount = 0
}

func (w *clickHouseWriter) flushTable(
	ctx context.Context,
	tableName string,
	t *table,
) {
	batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO "+tableName)
	if err != nil {
		panic(fmt.Errorf("failed to prepare batch for %s: %w",
			tableName, err))
	}

	for _, entry := range t.entries {
		if err := batch.Append(rowValues(entry)...); err != nil {
			panic(fmt.Errorf("failed to append to %s: %w", tableName, err))
		}
	}

	if err := batch.Send(); err != nil {
		panic(fmt.Errorf("failed to send batch for %s: %w", tableName, err))
	}
}

func (w *clickHouseWriter) Close() {
	if w.closed {
		return
	}

	if w.exec != nil {
		w.exec.End()
	}

	w.Flush()

	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	if err := w.conn.Close(); err != nil {
		panic(err)
	}
}
