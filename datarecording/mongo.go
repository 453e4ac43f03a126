package datarecording

import (
	"context"
	"fmt"
	"log"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/tebeka/atexit"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoTimeout = 10 * time.Second

// mongoWriter keeps every table as a collection. Documents carry the
// lower-cased field names of the entries.
type mongoWriter struct {
	client *mongo.Client
	db     *mongo.Database

	tables     map[string]*table
	tableOrder []string
	batchSize  int
	entryCount int
	exec       *execRecorder
	closed     bool
}

// NewMongoRecorder records into the MongoDB server at uri, for example
// "mongodb://localhost:27017". An empty database name picks a unique one.
func NewMongoRecorder(uri, database string) DataRecorder {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		log.Panic(err)
	}

	if database == "" {
		database = DefaultDBName()
	}

	fmt.Fprintf(os.Stderr, "Recording into MongoDB database: %s\n", database)

	w := &mongoWriter{
		client:    client,
		db:        client.Database(database),
		tables:    make(map[string]*table),
		batchSize: 100000,
	}

	w.exec = newExecRecorder(w)
	w.exec.Start()

	atexit.Register(func() { w.Close() })

	return w
}

// mongoKey is the document key the bson encoder uses for a field.
func mongoKey(field string) string {
	return strings.ToLower(field)
}

func (w *mongoWriter) CreateTable(tableName string, sampleEntry any) {
	names, err := columnNames(sampleEntry)
	if err != nil {
		panic(err)
	}

	if _, exists := w.tables[tableName]; exists {
		panic(fmt.Sprintf("table %s already exists", tableName))
	}

	if len(names) > 0 {
		w.createIndex(tableName, mongoKey(names[0]))
	}

	w.tables[tableName] = &table{structType: reflect.TypeOf(sampleEntry)}
	w.tableOrder = append(w.tableOrder, tableName)
}

func (w *mongoWriter) createIndex(tableName, key string) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()

	_, err := w.db.Collection(tableName).Indexes().CreateOne(ctx,
		mongo.IndexModel{
			Keys: bson.D{bson.E{Key: key, Value: 1}},
		},
	)
	if err != nil {
		log.Panic(err)
	}
}

func (w *mongoWriter) InsertData(tableName string, entry any) {
	t, exists := w.tables[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != t.structType {
		panic(fmt.Sprintf("entry of type %T does not fit table %s",
			entry, tableName))
	}

	t.entries = append(t.entries, entry)

	w.entryCount++
	if w.entryCount >= w.batchSize {
		w.Flush()
	}
}

func (w *mongoWriter) ListTables() []string {
	return append([]string(nil), w.tableOrder...)
}

func (w *mongoWriter) Flush() {
	if w.entryCount == 0 || w.closed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()

	for _, tableName := range w.tableOrder {
		t := w.tables[tableName]
		if len(t.entries) == 0 {
			continue
		}

		_, err := w.db.Collection(tableName).InsertMany(ctx, t.entries)
		if err != nil {
			log.Panic(err)
		}

		t.entries = nil
	}

	w.entryCount = 0
}

func (w *mongoWriter) Close() {
	if w.closed {
		return
	}

	if w.exec != nil {
		w.exec.End()
	}

	w.Flush()
	w.closed = true

	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()

	if err := w.client.Disconnect(ctx); err != nil {
		log.Panic(err)
	}
}
