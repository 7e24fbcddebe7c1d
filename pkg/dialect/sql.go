package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mizuchilabs/vegaorm/pkg/diff"
	"github.com/mizuchilabs/vegaorm/pkg/errors"
	"github.com/mizuchilabs/vegaorm/pkg/schema"
)

// Placeholder returns the bind marker for the i-th argument, starting at 1
func (d *Dialect) Placeholder(i int) string {
	if d.numbered {
		return "$" + strconv.Itoa(i)
	}
	return "?"
}

func (d *Dialect) placeholders(from, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = d.Placeholder(from + i)
	}
	return out
}

// CreateTableSQL renders CREATE TABLE with the id primary key first and the
// fields in declaration order
func (d *Dialect) CreateTableSQL(table string, fields []schema.FieldDef) (string, error) {
	cols := make([]string, 0, len(fields)+1)
	cols = append(cols, schema.IDColumn+" "+d.primaryKey)

	for _, def := range fields {
		typ, err := d.SQLType(def.Field)
		if err != nil {
			return "", err
		}
		cols = append(cols, def.Name+" "+typ)
	}

	return fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(cols, ", ")), nil
}

// AlterTableSQL renders a single ALTER TABLE statement carrying every action
func (d *Dialect) AlterTableSQL(table string, actions []diff.Action) (string, error) {
	if !d.canAlter {
		return "", errors.FeatureNotImplemented("Modify table")
	}
	if len(actions) == 0 {
		return "", errors.Newf(errors.ErrTypeInternal, "no changes to apply to table %s", table)
	}

	clauses := make([]string, 0, len(actions))
	for _, a := range actions {
		switch a.Type {
		case diff.DropColumn:
			clauses = append(clauses, "DROP COLUMN "+a.Column)
		case diff.AddColumn:
			typ, err := d.SQLType(a.Field)
			if err != nil {
				return "", err
			}
			clauses = append(clauses, "ADD COLUMN "+a.Column+" "+typ)
		case diff.AlterColumnType:
			typ, err := d.SQLType(a.Field)
			if err != nil {
				return "", err
			}
			clauses = append(clauses, fmt.Sprintf(d.modify, a.Column, typ))
		default:
			return "", errors.Newf(errors.ErrTypeInternal, "unknown action %q", a.Type)
		}
	}

	return fmt.Sprintf("ALTER TABLE %s %s", table, strings.Join(clauses, ", ")), nil
}

// InsertSQL renders an INSERT over cols. PostgreSQL appends RETURNING id.
func (d *Dialect) InsertSQL(table string, cols []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s ", table)

	switch {
	case len(cols) > 0:
		fmt.Fprintf(&sb, "(%s) VALUES (%s)", strings.Join(cols, ", "), strings.Join(d.placeholders(1, len(cols)), ", "))
	case d.name == MySQLName:
		sb.WriteString("() VALUES ()")
	default:
		sb.WriteString("DEFAULT VALUES")
	}

	if d.returning {
		sb.WriteString(" RETURNING " + schema.IDColumn)
	}
	return sb.String()
}

// UpdateSQL renders an UPDATE of cols by id. The id is bound last.
func (d *Dialect) UpdateSQL(table string, cols []string) string {
	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = col + " = " + d.Placeholder(i+1)
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		table, strings.Join(sets, ", "), schema.IDColumn, d.Placeholder(len(cols)+1))
}

// Condition is one equality term of a WHERE clause. IsNull renders
// "col IS NULL", which takes no argument.
type Condition struct {
	Column string
	IsNull bool
}

// SelectSQL renders a SELECT of id and cols with the conditions joined by
// AND, ordered by id. limit <= 0 means no limit.
func (d *Dialect) SelectSQL(table string, cols []string, where []Condition, limit int) string {
	var sb strings.Builder

	selected := append([]string{schema.IDColumn}, cols...)
	fmt.Fprintf(&sb, "SELECT %s FROM %s", strings.Join(selected, ", "), table)

	if len(where) > 0 {
		conds := make([]string, len(where))
		n := 0
		for i, c := range where {
			if c.IsNull {
				conds[i] = c.Column + " IS NULL"
				continue
			}
			n++
			conds[i] = c.Column + " = " + d.Placeholder(n)
		}
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}

	sb.WriteString(" ORDER BY " + schema.IDColumn + " ASC")
	if limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", limit)
	}
	return sb.String()
}

// ListTablesSQL lists the user tables of the connected database
func (d *Dialect) ListTablesSQL() string {
	switch d.name {
	case PostgresName:
		return "SELECT table_name FROM information_schema.tables " +
			"WHERE table_schema = current_schema() AND table_type = 'BASE TABLE' ORDER BY table_name"
	case MySQLName:
		return "SELECT table_name FROM information_schema.tables " +
			"WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE' ORDER BY table_name"
	}
	return "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
}

// DropTableSQL renders DROP TABLE for one table
func (d *Dialect) DropTableSQL(table string) string {
	if d.name == PostgresName {
		return fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)
	}
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", table)
}
