package orm

import (
	"context"
	"database/sql"
	"strings"

	"github.com/mizuchilabs/vegaorm/pkg/dialect"
	"github.com/mizuchilabs/vegaorm/pkg/diff"
	"github.com/mizuchilabs/vegaorm/pkg/errors"
	"github.com/mizuchilabs/vegaorm/pkg/record"
	"github.com/mizuchilabs/vegaorm/pkg/schema"
)

// Save inserts a record without id and assigns the generated id, or updates
// the row of a record that already has one
func (d *Database) Save(ctx context.Context, r *record.Record) error {
	m := r.Model()
	cols := m.FieldNames()

	if id, ok := r.ID(); ok {
		if len(cols) == 0 {
			return nil
		}
		args := append(r.Args(), id)
		_, err := d.exec(ctx, d.dialect.UpdateSQL(m.TableName(), cols), args...)
		return err
	}

	id, err := d.insert(ctx, d.dialect.InsertSQL(m.TableName(), cols), r.Args()...)
	if err != nil {
		return err
	}
	return r.AssignID(id)
}

// Fetch selects the rows of m matching every criterion, ordered by id.
// limit <= 0 fetches all rows. A nil criterion matches NULL.
func (d *Database) Fetch(ctx context.Context, m *schema.Model, criteria map[string]any, limit int) ([]*record.Record, error) {
	where, args, err := conditions(m, criteria)
	if err != nil {
		return nil, err
	}

	cols := m.FieldNames()
	fields := m.AllFields()
	names := append([]string{schema.IDColumn}, cols...)
	query := d.dialect.SelectSQL(m.TableName(), cols, where, limit)

	var records []*record.Record
	err = d.query(ctx, query, args, func(rows *sql.Rows) error {
		r, err := d.scanRecord(rows, m, names, fields)
		if err != nil {
			return err
		}
		records = append(records, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (d *Database) scanRecord(rows *sql.Rows, m *schema.Model, names []string, fields schema.Snapshot) (*record.Record, error) {
	raw := make([]any, len(names))
	dest := make([]any, len(names))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeDatabase, "scan %s row", m.Name())
	}

	values := make(map[string]any, len(names))
	for i, name := range names {
		v, err := d.dialect.DecodeValue(name, fields[name], raw[i])
		if err != nil {
			return nil, err
		}
		values[name] = v
	}
	return record.New(m, values)
}

// conditions validates criteria against m and turns them into WHERE terms
// in sorted column order together with their bound arguments
func conditions(m *schema.Model, criteria map[string]any) ([]dialect.Condition, []any, error) {
	if err := m.Validate(criteria); err != nil {
		return nil, nil, err
	}

	normalized := make(map[string]any, len(criteria))
	for name, v := range criteria {
		normalized[strings.ToLower(name)] = v
	}

	where := make([]dialect.Condition, 0, len(normalized))
	args := make([]any, 0, len(normalized))
	for _, col := range diff.SortedKeys(normalized) {
		v, err := record.FromAny(normalized[col])
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.ErrTypeInvalidFieldValue, col)
		}
		if v.IsNull() {
			where = append(where, dialect.Condition{Column: col, IsNull: true})
			continue
		}
		where = append(where, dialect.Condition{Column: col})
		args = append(args, v.Any())
	}
	return where, args, nil
}
