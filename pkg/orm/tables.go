package orm

import (
	"context"
	"database/sql"
	"strings"

	"github.com/mizuchilabs/vegaorm/pkg/diff"
	"github.com/mizuchilabs/vegaorm/pkg/errors"
	"github.com/mizuchilabs/vegaorm/pkg/schema"
)

// Introspection is the live state of a table. Columns includes id.
type Introspection struct {
	Exists  bool
	Columns schema.Snapshot
}

// Plan is what CreateTable would run for one model
type Plan struct {
	Table   string
	Exists  bool          // the table is already present
	Actions []diff.Action // column changes, empty for a create
	SQL     []string      // statements to execute, empty when in sync
}

// Empty reports whether the table is already in sync
func (p Plan) Empty() bool {
	return len(p.SQL) == 0
}

// Destructive reports whether applying the plan may lose data
func (p Plan) Destructive() bool {
	return diff.HasDestructive(p.Actions)
}

// TableSchema introspects the live table of a model
func (d *Database) TableSchema(ctx context.Context, m *schema.Model) (Introspection, error) {
	return d.Introspect(ctx, m.TableName())
}

// Introspect reads the columns of a table. A table without columns is
// reported as missing.
func (d *Database) Introspect(ctx context.Context, table string) (Introspection, error) {
	columns := schema.Snapshot{}

	err := d.query(ctx, d.dialect.IntrospectSQL(), []any{strings.ToLower(table)}, func(rows *sql.Rows) error {
		var name, dataType string
		var length sql.NullInt64
		if err := rows.Scan(&name, &dataType, &length); err != nil {
			return errors.Wrapf(err, errors.ErrTypeDatabase, "scan columns of %s", table)
		}

		if strings.EqualFold(name, schema.IDColumn) {
			columns[schema.IDColumn] = schema.IntField()
			return nil
		}

		col, field, err := d.dialect.ParseColumn(name, dataType, length)
		if err != nil {
			return err
		}
		columns[col] = field
		return nil
	})
	if err != nil {
		return Introspection{}, err
	}

	if len(columns) == 0 {
		return Introspection{Exists: false}, nil
	}
	return Introspection{Exists: true, Columns: columns}, nil
}

// Plan introspects the table of m and returns the statements that would
// bring it in line with the declared fields, without running them. On a
// dialect that cannot alter tables, a table that differs yields the actions
// together with a feature_not_implemented error.
func (d *Database) Plan(ctx context.Context, m *schema.Model) (Plan, error) {
	table := m.TableName()

	info, err := d.TableSchema(ctx, m)
	if err != nil {
		return Plan{Table: table}, err
	}

	if !info.Exists {
		stmt, err := d.dialect.CreateTableSQL(table, m.Fields())
		if err != nil {
			return Plan{Table: table}, err
		}
		return Plan{Table: table, SQL: []string{stmt}}, nil
	}

	declared := d.dialect.NormalizeSnapshot(m.DeclaredFields())
	live := d.dialect.NormalizeSnapshot(info.Columns.Without(schema.IDColumn))
	if declared.Equal(live) {
		return Plan{Table: table, Exists: true}, nil
	}

	plan := Plan{Table: table, Exists: true, Actions: diff.Diff(declared, live)}
	stmt, err := d.dialect.AlterTableSQL(table, plan.Actions)
	if err != nil {
		return plan, err
	}
	plan.SQL = []string{stmt}
	return plan, nil
}

// Apply executes the statements of a plan
func (d *Database) Apply(ctx context.Context, plan Plan) error {
	for _, stmt := range plan.SQL {
		if _, err := d.exec(ctx, stmt); err != nil {
			return err
		}
	}

	switch {
	case plan.Empty():
		d.logger.Debug("table in sync", "table", plan.Table)
	case plan.Exists:
		d.logger.Info("table altered", "table", plan.Table, "actions", len(plan.Actions))
	default:
		d.logger.Info("table created", "table", plan.Table)
	}
	return nil
}

// CreateTable creates the table of m, or alters it to match the declared
// fields. Nothing is executed when the table is already in sync.
func (d *Database) CreateTable(ctx context.Context, m *schema.Model) error {
	plan, err := d.Plan(ctx, m)
	if err != nil {
		return err
	}
	return d.Apply(ctx, plan)
}

// ListTables returns the user tables of the connected database
func (d *Database) ListTables(ctx context.Context) ([]string, error) {
	var tables []string

	err := d.query(ctx, d.dialect.ListTablesSQL(), nil, func(rows *sql.Rows) error {
		var name string
		if err := rows.Scan(&name); err != nil {
			return errors.Wrap(err, errors.ErrTypeDatabase, "scan table name")
		}
		tables = append(tables, name)
		return nil
	})
	return tables, err
}

// DropTables drops every user table and returns how many were dropped
func (d *Database) DropTables(ctx context.Context) (int, error) {
	tables, err := d.ListTables(ctx)
	if err != nil {
		return 0, err
	}

	for i, table := range tables {
		if _, err := d.exec(ctx, d.dialect.DropTableSQL(table)); err != nil {
			return i, err
		}
	}

	d.logger.Info("tables dropped", "count", len(tables))
	return len(tables), nil
}
