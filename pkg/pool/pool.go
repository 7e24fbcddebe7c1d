// Package pool hands out leased connections from a *sql.DB. Bounded caps
// the number of concurrent leases and fails fast when the cap is reached;
// Direct never refuses a lease.
package pool

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrExhausted is returned by Acquire when every connection is leased
var ErrExhausted = errors.New("connection pool exhausted")

// Conn is one leased connection. ID correlates log lines of a lease.
type Conn struct {
	*sql.Conn
	ID       string
	Acquired time.Time
}

// Stats is a snapshot of a provider's counters
type Stats struct {
	Leased    int64  // currently leased connections
	Acquired  uint64 // leases handed out since creation
	Discarded uint64 // leases closed instead of returned to the pool
}

// Provider leases connections. Acquire never blocks waiting for a free
// slot; it returns ErrExhausted instead.
type Provider interface {
	Acquire(ctx context.Context) (*Conn, error)
	// Release returns the connection. With discard set the underlying
	// driver connection is closed instead of being reused.
	Release(conn *Conn, discard bool) error
	Stats() Stats
}

type counters struct {
	leased    atomic.Int64
	acquired  atomic.Uint64
	discarded atomic.Uint64
}

func (c *counters) stats() Stats {
	return Stats{
		Leased:    c.leased.Load(),
		Acquired:  c.acquired.Load(),
		Discarded: c.discarded.Load(),
	}
}

func (c *counters) lease(ctx context.Context, db *sql.DB) (*Conn, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("open connection: %w", err)
	}

	c.leased.Add(1)
	c.acquired.Add(1)
	return &Conn{Conn: conn, ID: uuid.NewString(), Acquired: time.Now()}, nil
}

func (c *counters) release(conn *Conn, discard bool) error {
	defer c.leased.Add(-1)

	if discard {
		c.discarded.Add(1)
		// Returning ErrBadConn from Raw makes database/sql drop the driver
		// connection instead of putting it back in its idle pool.
		_ = conn.Raw(func(any) error { return driver.ErrBadConn })
		if err := conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			return err
		}
		return nil
	}
	return conn.Close()
}

// Bounded allows at most maxConn concurrent leases
type Bounded struct {
	db     *sql.DB
	tokens chan struct{}
	counters
}

// NewBounded configures db to keep minConn idle and maxConn open connections
// and limits leases to maxConn
func NewBounded(db *sql.DB, minConn, maxConn int) *Bounded {
	if maxConn < 1 {
		maxConn = 1
	}
	if minConn < 0 {
		minConn = 0
	}
	if minConn > maxConn {
		minConn = maxConn
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(minConn)

	return &Bounded{
		db:     db,
		tokens: make(chan struct{}, maxConn),
	}
}

// Acquire leases a connection or returns ErrExhausted when maxConn leases
// are outstanding
func (p *Bounded) Acquire(ctx context.Context) (*Conn, error) {
	select {
	case p.tokens <- struct{}{}:
	default:
		return nil, ErrExhausted
	}

	conn, err := p.lease(ctx, p.db)
	if err != nil {
		<-p.tokens
		return nil, err
	}
	return conn, nil
}

func (p *Bounded) Release(conn *Conn, discard bool) error {
	defer func() { <-p.tokens }()
	return p.release(conn, discard)
}

func (p *Bounded) Stats() Stats { return p.stats() }

// Cap returns the maximum number of concurrent leases
func (p *Bounded) Cap() int { return cap(p.tokens) }

// Direct leases a connection per call without a cap. It backs the embedded
// dialect, where connections are cheap file handles.
type Direct struct {
	db *sql.DB
	counters
}

func NewDirect(db *sql.DB) *Direct {
	return &Direct{db: db}
}

func (p *Direct) Acquire(ctx context.Context) (*Conn, error) {
	return p.lease(ctx, p.db)
}

func (p *Direct) Release(conn *Conn, discard bool) error {
	return p.release(conn, discard)
}

func (p *Direct) Stats() Stats { return p.stats() }
