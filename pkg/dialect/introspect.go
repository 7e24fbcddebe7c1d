package dialect

import (
	"database/sql"
	"regexp"
	"strconv"
	"strings"

	"github.com/mizuchilabs/vegaorm/pkg/errors"
	"github.com/mizuchilabs/vegaorm/pkg/schema"
)

// typeRe splits a declared type such as "varchar(32)" into keyword and length
var typeRe = regexp.MustCompile(`^([a-z][a-z0-9 ]*?)(?:\((\d+)\))?$`)

// postgres reports information_schema type names, not the keywords used in DDL
var postgresAliases = map[string]string{
	"character varying": "varchar",
	"int4":              "integer",
	"bool":              "boolean",
}

// IntrospectSQL returns the query listing (column name, data type, max
// length) of a table. It takes the table name as its only argument and
// returns no rows when the table does not exist.
func (d *Dialect) IntrospectSQL() string {
	switch d.name {
	case PostgresName:
		return "SELECT column_name, data_type, character_maximum_length FROM information_schema.columns " +
			"WHERE table_name = $1 AND table_schema = current_schema() ORDER BY ordinal_position"
	case MySQLName:
		return "SELECT column_name, data_type, character_maximum_length FROM information_schema.columns " +
			"WHERE table_name = ? AND table_schema = DATABASE() ORDER BY ordinal_position"
	}
	return "SELECT name, type, NULL FROM pragma_table_info(?) ORDER BY cid"
}

// ParseColumn converts one introspection row into a column name and
// descriptor. SQLite reports the declared type text with its length, the
// server dialects report the length separately.
func (d *Dialect) ParseColumn(name, dataType string, length sql.NullInt64) (string, schema.Field, error) {
	typeName := normalizeTypeName(dataType)

	m := typeRe.FindStringSubmatch(typeName)
	if m == nil {
		return "", schema.Field{}, errors.UnsupportedNativeType(dataType, string(d.name))
	}

	keyword := m[1]
	if alias, ok := postgresAliases[keyword]; ok && d.name == PostgresName {
		keyword = alias
	}

	var field schema.Field
	found := false
	for t, kw := range d.keywords {
		if strings.EqualFold(kw, keyword) {
			field.Type, found = t, true
			break
		}
	}
	if !found {
		return "", schema.Field{}, errors.UnsupportedNativeType(dataType, string(d.name))
	}

	if m[2] != "" {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return "", schema.Field{}, errors.Wrapf(err, errors.ErrTypeInvalidFieldValue, "column %s has invalid length", name)
		}
		field.MaxLength = n
	} else if length.Valid && field.Type == schema.String {
		field.MaxLength = int(length.Int64)
	}

	return strings.ToLower(name), field, nil
}

// normalizeTypeName lower-cases a type name and collapses its whitespace so
// "VARCHAR (32)" and "varchar(32)" compare equal
func normalizeTypeName(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))

	for _, ch := range []string{"(", ")"} {
		s = strings.ReplaceAll(s, " "+ch, ch)
		s = strings.ReplaceAll(s, ch+" ", ch)
	}

	return strings.TrimSpace(s)
}
