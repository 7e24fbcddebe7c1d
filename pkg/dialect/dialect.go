// Package dialect holds the per-backend conventions: SQL type keywords,
// DDL/DML rendering, placeholder syntax, introspection queries and value
// encoding for SQLite, PostgreSQL and MySQL
package dialect

import (
	"fmt"
	"maps"
	"strings"

	"github.com/mizuchilabs/vegaorm/pkg/errors"
	"github.com/mizuchilabs/vegaorm/pkg/schema"
)

// Name identifies a dialect
type Name string

const (
	SQLiteName   Name = "sqlite"
	PostgresName Name = "postgres"
	MySQLName    Name = "mysql"
)

// Dialect describes one SQL backend. Values are immutable; the With*
// methods return modified copies.
type Dialect struct {
	name       Name
	driver     string
	keywords   map[schema.NativeType]string
	defaults   map[schema.NativeType]int
	primaryKey string
	modify     string // format for changing a column type: column, type
	canAlter   bool
	nativeBool bool
	returning  bool
	numbered   bool // $1, $2 placeholders instead of ?
}

// SQLite returns the embedded dialect. It cannot alter tables.
func SQLite() *Dialect {
	return &Dialect{
		name:   SQLiteName,
		driver: "sqlite",
		keywords: map[schema.NativeType]string{
			schema.String:  "VARCHAR",
			schema.Integer: "INTEGER",
			schema.Boolean: "BOOLEAN",
		},
		defaults:   map[schema.NativeType]int{},
		primaryKey: "INTEGER PRIMARY KEY AUTOINCREMENT",
	}
}

// Postgres returns the PostgreSQL dialect
func Postgres() *Dialect {
	return &Dialect{
		name:   PostgresName,
		driver: "pgx",
		keywords: map[schema.NativeType]string{
			schema.String:  "varchar",
			schema.Integer: "integer",
			schema.Boolean: "boolean",
		},
		defaults:   map[schema.NativeType]int{},
		primaryKey: "SERIAL PRIMARY KEY",
		modify:     "ALTER COLUMN %s TYPE %s",
		canAlter:   true,
		nativeBool: true,
		returning:  true,
		numbered:   true,
	}
}

// MySQL returns the MySQL dialect. Strings without a declared length are
// stored as varchar(4096).
func MySQL() *Dialect {
	return &Dialect{
		name:   MySQLName,
		driver: "mysql",
		keywords: map[schema.NativeType]string{
			schema.String:  "varchar",
			schema.Integer: "int",
			schema.Boolean: "tinyint",
		},
		defaults:   map[schema.NativeType]int{schema.String: 4096},
		primaryKey: "INT AUTO_INCREMENT PRIMARY KEY",
		modify:     "MODIFY COLUMN %s %s",
		canAlter:   true,
	}
}

// ByName returns the dialect registered under name
func ByName(name string) (*Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sqlite", "sqlite3":
		return SQLite(), nil
	case "postgres", "postgresql", "pg":
		return Postgres(), nil
	case "mysql", "mariadb":
		return MySQL(), nil
	}
	return nil, errors.Newf(errors.ErrTypeConfig, "unknown dialect %q (expected sqlite, postgres or mysql)", name)
}

// Name returns the dialect name
func (d *Dialect) Name() Name { return d.name }

// DriverName returns the database/sql driver the dialect is registered under
func (d *Dialect) DriverName() string { return d.driver }

// CanAlter reports whether existing tables can be modified in place
func (d *Dialect) CanAlter() bool { return d.canAlter }

// NativeBool reports whether the backend has a boolean column type
func (d *Dialect) NativeBool() bool { return d.nativeBool }

// Returning reports whether inserts report the new id with RETURNING
func (d *Dialect) Returning() bool { return d.returning }

func (d *Dialect) String() string { return string(d.name) }

// WithDefaultLength returns a copy of the dialect that uses n as the length
// of fields of type t declared without one. n = 0 removes the default.
func (d *Dialect) WithDefaultLength(t schema.NativeType, n int) *Dialect {
	c := *d
	c.defaults = maps.Clone(d.defaults)
	if n > 0 {
		c.defaults[t] = n
	} else {
		delete(c.defaults, t)
	}
	return &c
}

// DefaultLength returns the length applied to fields of type t declared
// without one
func (d *Dialect) DefaultLength(t schema.NativeType) int {
	return d.defaults[t]
}

// SQLType renders the column type of f, e.g. VARCHAR(32)
func (d *Dialect) SQLType(f schema.Field) (string, error) {
	keyword, ok := d.keywords[f.Type]
	if !ok {
		return "", errors.UnsupportedNativeType(string(f.Type), string(d.name))
	}

	if n := d.Normalize(f).MaxLength; n > 0 {
		return fmt.Sprintf("%s(%d)", keyword, n), nil
	}
	return keyword, nil
}

// Normalize returns f as the backend stores it, with the dialect's default
// length applied
func (d *Dialect) Normalize(f schema.Field) schema.Field {
	if f.MaxLength == 0 {
		f.MaxLength = d.defaults[f.Type]
	}
	return f
}

// NormalizeSnapshot applies Normalize to every column
func (d *Dialect) NormalizeSnapshot(s schema.Snapshot) schema.Snapshot {
	out := make(schema.Snapshot, len(s))
	for name, f := range s {
		out[name] = d.Normalize(f)
	}
	return out
}
