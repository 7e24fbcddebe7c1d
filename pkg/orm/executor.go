package orm

import (
	"context"
	"database/sql"
	"time"

	"github.com/mizuchilabs/vegaorm/pkg/errors"
	"github.com/mizuchilabs/vegaorm/pkg/pool"
)

// acquire leases a connection, retrying a fixed number of times while the
// pool is exhausted
func (d *Database) acquire(ctx context.Context) (*pool.Conn, error) {
	var lastErr error

	for attempt := 1; attempt <= d.attempts; attempt++ {
		conn, err := d.provider.Acquire(ctx)
		if err == nil {
			return conn, nil
		}
		if !errors.Is(err, pool.ErrExhausted) {
			return nil, errors.Wrap(err, errors.ErrTypeDatabase, "acquire connection")
		}

		lastErr = err
		d.logger.Debug("connection pool exhausted", "attempt", attempt, "attempts", d.attempts)
		if attempt == d.attempts {
			break
		}

		timer := time.NewTimer(d.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, errors.NoConnection(ctx.Err())
		case <-timer.C:
		}
	}

	d.logger.Warn("no connection available", "attempts", d.attempts, "delay", d.delay)
	return nil, errors.NoConnection(lastErr)
}

// withConn runs fn on a leased connection and always releases it. A
// database error from fn discards the connection instead of returning it to
// the pool, other errors such as row decoding keep it.
func (d *Database) withConn(ctx context.Context, fn func(conn *pool.Conn) error) error {
	conn, err := d.acquire(ctx)
	if err != nil {
		return err
	}

	discard := false
	defer func() {
		if err := d.provider.Release(conn, discard); err != nil {
			d.logger.Warn("release connection", "lease", conn.ID, "error", err)
		}
	}()

	if err := fn(conn); err != nil {
		if errors.IsType(err, errors.ErrTypeDatabase) {
			discard = true
			d.logger.Warn("discarding connection", "lease", conn.ID, "error", err)
		}
		return err
	}
	return nil
}

// exec runs one statement and returns the number of affected rows
func (d *Database) exec(ctx context.Context, query string, args ...any) (int64, error) {
	var affected int64

	err := d.withConn(ctx, func(conn *pool.Conn) error {
		d.logger.Debug("exec", "sql", query, "lease", conn.ID)

		res, err := conn.ExecContext(ctx, query, d.dialect.EncodeArgs(args)...)
		if err != nil {
			return errors.Wrapf(err, errors.ErrTypeDatabase, "exec %s", query)
		}
		affected, err = res.RowsAffected()
		if err != nil {
			return errors.Wrapf(err, errors.ErrTypeDatabase, "exec %s", query)
		}
		return nil
	})
	return affected, err
}

// insert runs an INSERT and returns the generated id, read either from a
// RETURNING clause or from the driver's last insert id
func (d *Database) insert(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64

	err := d.withConn(ctx, func(conn *pool.Conn) error {
		d.logger.Debug("insert", "sql", query, "lease", conn.ID)
		encoded := d.dialect.EncodeArgs(args)

		if d.dialect.Returning() {
			if err := conn.QueryRowContext(ctx, query, encoded...).Scan(&id); err != nil {
				return errors.Wrapf(err, errors.ErrTypeDatabase, "insert %s", query)
			}
			return nil
		}

		res, err := conn.ExecContext(ctx, query, encoded...)
		if err != nil {
			return errors.Wrapf(err, errors.ErrTypeDatabase, "insert %s", query)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return errors.Wrapf(err, errors.ErrTypeDatabase, "read id after %s", query)
		}
		return nil
	})
	return id, err
}

// query runs a SELECT, calls scan for every row and drains the result set
// before the connection is released
func (d *Database) query(ctx context.Context, query string, args []any, scan func(*sql.Rows) error) error {
	return d.withConn(ctx, func(conn *pool.Conn) error {
		d.logger.Debug("query", "sql", query, "lease", conn.ID)

		rows, err := conn.QueryContext(ctx, query, d.dialect.EncodeArgs(args)...)
		if err != nil {
			return errors.Wrapf(err, errors.ErrTypeDatabase, "query %s", query)
		}
		defer func() {
			_ = rows.Close()
		}()

		for rows.Next() {
			if err := scan(rows); err != nil {
				return err
			}
		}
		if err := rows.Err(); err != nil {
			return errors.Wrapf(err, errors.ErrTypeDatabase, "query %s", query)
		}
		return nil
	})
}
