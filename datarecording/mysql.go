package datarecording

import (
	"database/sql"
	"fmt"
	"os"
	"reflect"

	"github.com/go-sql-driver/mysql"
	"github.com/tebeka/atexit"
)

var mysqlDialect = dialect{
	name:       "mysql",
	columnType: mysqlColumnType,
}

func mysqlColumnType(kind reflect.Kind) string {
	switch kind {
	case reflect.Bool:
		return "BOOLEAN"
	case reflect.Int8:
		return "TINYINT"
	case reflect.Int16:
		return "SMALLINT"
	case reflect.Int32:
		return "INT"
	case reflect.Int, reflect.Int64:
		return "BIGINT"
	case reflect.Uint8:
		return "TINYINT UNSIGNED"
	case reflect.Uint16:
		return "SMALLINT UNSIGNED"
	case reflect.Uint32:
		return "INT UNSIGNED"
	case reflect.Uint, reflect.Uint64:
		return "BIGINT UNSIGNED"
	case reflect.Float32:
		return "FLOAT"
	case reflect.Float64:
		return "DOUBLE"
	case reflect.String:
		return "TEXT"
	default:
		panic(fmt.Sprintf("kind %s cannot be recorded", kind))
	}
}

// NewMySQLRecorder records into a MySQL server, for example
// "user:password@tcp(localhost:3306)/". Without a database in the address, a
// new database with a unique name is created.
func NewMySQLRecorder(dsn string) DataRecorder {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		panic(fmt.Errorf("bad MySQL address %q: %w", dsn, err))
	}

	if cfg.DBName == "" {
		cfg.DBName = DefaultDBName()
		createMySQLDatabase(cfg)
	}

	db, err := sql.Open(mysqlDialect.name, cfg.FormatDSN())
	if err != nil {
		panic(err)
	}

	if err := db.Ping(); err != nil {
		panic(fmt.Errorf("failed to ping MySQL: %w", err))
	}

	fmt.Fprintf(os.Stderr, "Recording into MySQL database: %s\n", cfg.DBName)

	w := newSQLWriter(mysqlDialect)
	w.DB = db
	w.dbName = cfg.DBName

	w.exec = newExecRecorder(w)
	w.exec.Start()

	atexit.Register(func() { w.Close() })

	return w
}

func createMySQLDatabase(cfg *mysql.Config) {
	server := cfg.Clone()
	server.DBName = ""

	db, err := sql.Open(mysqlDialect.name, server.FormatDSN())
	if err != nil {
		panic(err)
	}
	defer db.Close()

	if _, err := db.Exec("CREATE DATABASE " + cfg.DBName); err != nil {
		panic(fmt.Errorf("failed to create database %s: %w", cfg.DBName, err))
	}
}
