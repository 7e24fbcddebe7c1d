package dialect

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/mizuchilabs/vegaorm/pkg/diff"
	"github.com/mizuchilabs/vegaorm/pkg/errors"
	"github.com/mizuchilabs/vegaorm/pkg/schema"
)

var bookFields = []schema.FieldDef{
	schema.Char("name", 32),
	schema.Int("pages"),
	schema.Bool("available"),
}

func TestSQLType(t *testing.T) {
	tests := []struct {
		dialect *Dialect
		field   schema.Field
		want    string
	}{
		{SQLite(), schema.CharField(32), "VARCHAR(32)"},
		{SQLite(), schema.CharField(0), "VARCHAR"},
		{SQLite(), schema.IntField(), "INTEGER"},
		{SQLite(), schema.BoolField(), "BOOLEAN"},
		{Postgres(), schema.CharField(64), "varchar(64)"},
		{Postgres(), schema.CharField(0), "varchar"},
		{Postgres(), schema.IntField(), "integer"},
		{Postgres(), schema.BoolField(), "boolean"},
		{MySQL(), schema.CharField(64), "varchar(64)"},
		{MySQL(), schema.CharField(0), "varchar(4096)"},
		{MySQL(), schema.IntField(), "int"},
		{MySQL(), schema.BoolField(), "tinyint"},
	}

	for _, tt := range tests {
		t.Run(tt.dialect.String()+"/"+tt.want, func(t *testing.T) {
			got, err := tt.dialect.SQLType(tt.field)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSQLTypeUnsupported(t *testing.T) {
	_, err := Postgres().SQLType(schema.Field{Type: "float"})
	assert.True(t, errors.IsType(err, errors.ErrTypeUnsupportedNativeType))
}

func TestWithDefaultLength(t *testing.T) {
	base := SQLite()
	custom := base.WithDefaultLength(schema.String, 255)

	typ, err := custom.SQLType(schema.CharField(0))
	require.NoError(t, err)
	assert.Equal(t, "VARCHAR(255)", typ)

	typ, err = base.SQLType(schema.CharField(0))
	require.NoError(t, err)
	assert.Equal(t, "VARCHAR", typ, "the receiver keeps its defaults")

	unbounded := MySQL().WithDefaultLength(schema.String, 0)
	typ, err = unbounded.SQLType(schema.CharField(0))
	require.NoError(t, err)
	assert.Equal(t, "varchar", typ)
	assert.Equal(t, 4096, MySQL().DefaultLength(schema.String))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, schema.CharField(4096), MySQL().Normalize(schema.CharField(0)))
	assert.Equal(t, schema.CharField(12), MySQL().Normalize(schema.CharField(12)))
	assert.Equal(t, schema.IntField(), MySQL().Normalize(schema.IntField()))
	assert.Equal(t, schema.CharField(0), Postgres().Normalize(schema.CharField(0)))

	s := MySQL().NormalizeSnapshot(schema.Snapshot{"name": schema.CharField(0), "ok": schema.BoolField()})
	assert.Equal(t, schema.Snapshot{"name": schema.CharField(4096), "ok": schema.BoolField()}, s)
}

func TestByName(t *testing.T) {
	for name, want := range map[string]Name{
		"sqlite":     SQLiteName,
		"SQLite3":    SQLiteName,
		"postgresql": PostgresName,
		"pg":         PostgresName,
		"mysql":      MySQLName,
	} {
		d, err := ByName(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, d.Name())
	}

	_, err := ByName("oracle")
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}

func TestCapabilities(t *testing.T) {
	assert.False(t, SQLite().CanAlter())
	assert.True(t, Postgres().CanAlter())
	assert.True(t, MySQL().CanAlter())

	assert.True(t, Postgres().NativeBool())
	assert.False(t, MySQL().NativeBool())
	assert.True(t, Postgres().Returning())

	assert.Equal(t, "sqlite", SQLite().DriverName())
	assert.Equal(t, "pgx", Postgres().DriverName())
	assert.Equal(t, "mysql", MySQL().DriverName())
}

func TestCreateTableSQL(t *testing.T) {
	tests := []struct {
		dialect *Dialect
		want    string
	}{
		{SQLite(), "CREATE TABLE book (id INTEGER PRIMARY KEY AUTOINCREMENT, name VARCHAR(32), pages INTEGER, available BOOLEAN)"},
		{Postgres(), "CREATE TABLE book (id SERIAL PRIMARY KEY, name varchar(32), pages integer, available boolean)"},
		{MySQL(), "CREATE TABLE book (id INT AUTO_INCREMENT PRIMARY KEY, name varchar(32), pages int, available tinyint)"},
	}

	for _, tt := range tests {
		t.Run(tt.dialect.String(), func(t *testing.T) {
			got, err := tt.dialect.CreateTableSQL("book", bookFields)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAlterTableSQL(t *testing.T) {
	actions := diff.Diff(
		schema.Snapshot{"name": schema.CharField(64), "author": schema.CharField(128)},
		schema.Snapshot{"name": schema.CharField(32), "pages": schema.IntField(), "available": schema.BoolField()},
	)

	got, err := Postgres().AlterTableSQL("book", actions)
	require.NoError(t, err)
	assert.Equal(t,
		"ALTER TABLE book DROP COLUMN available, DROP COLUMN pages, ADD COLUMN author varchar(128), ALTER COLUMN name TYPE varchar(64)",
		got)

	got, err = MySQL().AlterTableSQL("book", actions)
	require.NoError(t, err)
	assert.Equal(t,
		"ALTER TABLE book DROP COLUMN available, DROP COLUMN pages, ADD COLUMN author varchar(128), MODIFY COLUMN name varchar(64)",
		got)

	_, err = SQLite().AlterTableSQL("book", actions)
	assert.True(t, errors.IsType(err, errors.ErrTypeFeatureNotImplemented))
	assert.Contains(t, err.Error(), "Modify table")

	_, err = MySQL().AlterTableSQL("book", nil)
	assert.Error(t, err)
}

func TestInsertSQL(t *testing.T) {
	cols := []string{"name", "pages", "available"}

	assert.Equal(t, "INSERT INTO book (name, pages, available) VALUES (?, ?, ?)", SQLite().InsertSQL("book", cols))
	assert.Equal(t, "INSERT INTO book (name, pages, available) VALUES (?, ?, ?)", MySQL().InsertSQL("book", cols))
	assert.Equal(t, "INSERT INTO book (name, pages, available) VALUES ($1, $2, $3) RETURNING id", Postgres().InsertSQL("book", cols))

	assert.Equal(t, "INSERT INTO empty DEFAULT VALUES", SQLite().InsertSQL("empty", nil))
	assert.Equal(t, "INSERT INTO empty () VALUES ()", MySQL().InsertSQL("empty", nil))
	assert.Equal(t, "INSERT INTO empty DEFAULT VALUES RETURNING id", Postgres().InsertSQL("empty", nil))
}

func TestUpdateSQL(t *testing.T) {
	cols := []string{"name", "pages"}

	assert.Equal(t, "UPDATE book SET name = ?, pages = ? WHERE id = ?", MySQL().UpdateSQL("book", cols))
	assert.Equal(t, "UPDATE book SET name = $1, pages = $2 WHERE id = $3", Postgres().UpdateSQL("book", cols))
}

func TestSelectSQL(t *testing.T) {
	cols := []string{"name", "pages"}

	assert.Equal(t, "SELECT id, name, pages FROM book ORDER BY id ASC", SQLite().SelectSQL("book", cols, nil, 0))
	assert.Equal(t,
		"SELECT id, name, pages FROM book WHERE author = ? AND available = ? ORDER BY id ASC LIMIT 1",
		MySQL().SelectSQL("book", cols, []Condition{{Column: "author"}, {Column: "available"}}, 1))
	assert.Equal(t,
		"SELECT id, name, pages FROM book WHERE name = $1 ORDER BY id ASC LIMIT 5",
		Postgres().SelectSQL("book", cols, []Condition{{Column: "name"}}, 5))
	assert.Equal(t,
		"SELECT id, name, pages FROM book WHERE author IS NULL AND name = $1 AND pages = $2 ORDER BY id ASC",
		Postgres().SelectSQL("book", cols, []Condition{{Column: "author", IsNull: true}, {Column: "name"}, {Column: "pages"}}, 0))
}

func TestDropAndListSQL(t *testing.T) {
	assert.Equal(t, "DROP TABLE IF EXISTS book CASCADE", Postgres().DropTableSQL("book"))
	assert.Equal(t, "DROP TABLE IF EXISTS book", MySQL().DropTableSQL("book"))
	assert.Contains(t, SQLite().ListTablesSQL(), "sqlite_master")
	assert.Contains(t, Postgres().ListTablesSQL(), "current_schema()")
	assert.Contains(t, MySQL().ListTablesSQL(), "DATABASE()")
}

func TestParseColumn(t *testing.T) {
	null := sql.NullInt64{}
	length := func(n int64) sql.NullInt64 { return sql.NullInt64{Int64: n, Valid: true} }

	tests := []struct {
		name     string
		dialect  *Dialect
		dataType string
		length   sql.NullInt64
		want     schema.Field
	}{
		{"sqlite varchar", SQLite(), "VARCHAR(32)", null, schema.CharField(32)},
		{"sqlite spaced", SQLite(), "varchar ( 32 )", null, schema.CharField(32)},
		{"sqlite unbounded", SQLite(), "VARCHAR", null, schema.CharField(0)},
		{"sqlite integer", SQLite(), "INTEGER", null, schema.IntField()},
		{"sqlite boolean", SQLite(), "BOOLEAN", null, schema.BoolField()},
		{"postgres varchar", Postgres(), "character varying", length(64), schema.CharField(64)},
		{"postgres unbounded", Postgres(), "character varying", null, schema.CharField(0)},
		{"postgres integer", Postgres(), "integer", null, schema.IntField()},
		{"postgres boolean", Postgres(), "boolean", null, schema.BoolField()},
		{"mysql varchar", MySQL(), "varchar", length(4096), schema.CharField(4096)},
		{"mysql int", MySQL(), "int", null, schema.IntField()},
		{"mysql tinyint", MySQL(), "tinyint", null, schema.BoolField()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, field, err := tt.dialect.ParseColumn("Name", tt.dataType, tt.length)
			require.NoError(t, err)
			assert.Equal(t, "name", name)
			assert.Equal(t, tt.want, field)
		})
	}

	_, _, err := SQLite().ParseColumn("price", "REAL", null)
	assert.True(t, errors.IsType(err, errors.ErrTypeUnsupportedNativeType))

	_, _, err = MySQL().ParseColumn("price", "decimal", null)
	assert.True(t, errors.IsType(err, errors.ErrTypeUnsupportedNativeType))
}

func TestEncodeArgs(t *testing.T) {
	args := []any{"x", int64(3), true, false, nil}

	assert.Equal(t, []any{"x", int64(3), int64(1), int64(0), nil}, SQLite().EncodeArgs(args))
	assert.Equal(t, []any{"x", int64(3), int64(1), int64(0), nil}, MySQL().EncodeArgs(args))
	assert.Equal(t, args, Postgres().EncodeArgs(args))
}

func TestDecodeValue(t *testing.T) {
	tests := []struct {
		name  string
		field schema.Field
		raw   any
		want  any
	}{
		{"null", schema.CharField(0), nil, nil},
		{"string", schema.CharField(0), "1984", "1984"},
		{"bytes as string", schema.CharField(0), []byte("1984"), "1984"},
		{"int64", schema.IntField(), int64(328), int64(328)},
		{"int", schema.IntField(), 328, int64(328)},
		{"bytes as int", schema.IntField(), []byte("-4"), int64(-4)},
		{"native bool", schema.BoolField(), true, true},
		{"int as bool", schema.BoolField(), int64(1), true},
		{"zero as bool", schema.BoolField(), int64(0), false},
		{"bytes as bool", schema.BoolField(), []byte("0"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MySQL().DecodeValue("col", tt.field, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := SQLite().DecodeValue("available", schema.BoolField(), int64(2))
	assert.True(t, errors.IsType(err, errors.ErrTypeInvalidFieldValue))

	_, err = SQLite().DecodeValue("pages", schema.IntField(), "many")
	assert.True(t, errors.IsType(err, errors.ErrTypeInvalidFieldValue))

	_, err = SQLite().DecodeValue("name", schema.CharField(0), 3.5)
	assert.True(t, errors.IsType(err, errors.ErrTypeInvalidFieldValue))
}

func TestSQLiteIntrospection(t *testing.T) {
	d := SQLite()
	db, err := sql.Open(d.DriverName(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	rows, err := db.Query(d.IntrospectSQL(), "book")
	require.NoError(t, err)
	assert.False(t, rows.Next(), "missing table should yield no rows")
	require.NoError(t, rows.Close())

	create, err := d.CreateTableSQL("book", bookFields)
	require.NoError(t, err)
	_, err = db.Exec(create)
	require.NoError(t, err)

	rows, err = db.Query(d.IntrospectSQL(), "book")
	require.NoError(t, err)
	defer func() {
		_ = rows.Close()
	}()

	got := schema.Snapshot{}
	for rows.Next() {
		var name, dataType string
		var length sql.NullInt64
		require.NoError(t, rows.Scan(&name, &dataType, &length))

		col, field, err := d.ParseColumn(name, dataType, length)
		require.NoError(t, err)
		got[col] = field
	}
	require.NoError(t, rows.Err())

	assert.Equal(t, schema.Snapshot{
		"id":        schema.IntField(),
		"name":      schema.CharField(32),
		"pages":     schema.IntField(),
		"available": schema.BoolField(),
	}, got)
}

func TestSQLiteBooleanRoundTrip(t *testing.T) {
	d := SQLite()
	db, err := sql.Open(d.DriverName(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	create, err := d.CreateTableSQL("book", bookFields)
	require.NoError(t, err)
	_, err = db.Exec(create)
	require.NoError(t, err)

	cols := []string{"name", "pages", "available"}
	_, err = db.Exec(d.InsertSQL("book", cols), d.EncodeArgs([]any{"1984", int64(328), true})...)
	require.NoError(t, err)

	var raw any
	require.NoError(t, db.QueryRow("SELECT available FROM book").Scan(&raw))

	v, err := d.DecodeValue("available", schema.BoolField(), raw)
	require.NoError(t, err)
	assert.Equal(t, true, v)
}
