package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	ie "github.com/voidshard/taskqueue/pkg/errors"
	"github.com/voidshard/taskqueue/pkg/structs"
)

const tableTasks = "tasks"

// Postgres is a lease queue held in a postgres table.
//
// Leasing uses SELECT .. FOR UPDATE SKIP LOCKED so competing workers never lease the same row,
// and a lease is simply a timestamp in the future; once it passes the row can be leased again.
type Postgres struct {
	opts *Options
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewPostgres returns a new Postgres backend. The schema is expected to exist (see MigratePostgres).
func NewPostgres(ctx context.Context, opts *Options) (*Postgres, error) {
	opts.SetDefaults()
	pool, err := pgxpool.New(ctx, opts.expandURL())
	if err != nil {
		return nil, err
	}
	return &Postgres{
		opts: opts,
		pool: pool,
		log:  opts.Logger.With().Str("backend", string(structs.KindPostgres)).Str("queue", opts.Name).Logger(),
	}, nil
}

// Close shuts down the database connection.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// Insert adds a task to the queue
func (p *Postgres) Insert(ctx context.Context, in *structs.InsertRequest) error {
	qstr, args := toInsertSqlArgs(uuid.NewString(), p.opts.Name, in)
	return p.exec(ctx, qstr, args...)
}

// Lease up to in.NumTasks tasks
func (p *Postgres) Lease(ctx context.Context, in *structs.LeaseRequest) ([]*structs.Record, error) {
	in.Sanitize()
	qstr, args := toLeaseSqlArgs(p.opts.Name, in)

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, qstr, args...)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

// Delete removes a task from the queue
func (p *Postgres) Delete(ctx context.Context, id string) error {
	qstr := fmt.Sprintf(`DELETE FROM %s WHERE id=$1 AND queue=$2;`, tableTasks)
	return p.exec(ctx, qstr, id, p.opts.Name)
}

// List returns up to 100 tasks, oldest first
func (p *Postgres) List(ctx context.Context) ([]*structs.Record, error) {
	qstr := fmt.Sprintf(`SELECT id, tag, payload FROM %s WHERE queue=$1 ORDER BY created_at LIMIT $2;`, tableTasks)

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, qstr, p.opts.Name, maxList)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

// Get returns a single task
func (p *Postgres) Get(ctx context.Context, id string) (*structs.Record, error) {
	qstr := fmt.Sprintf(`SELECT id, tag, payload FROM %s WHERE id=$1 AND queue=$2;`, tableTasks)

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rec := &structs.Record{}
	err = conn.QueryRow(ctx, qstr, id, p.opts.Name).Scan(&rec.ID, &rec.Tag, &rec.Payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w task %s", ie.ErrNotFound, id)
	}
	return rec, err
}

// Stats returns counts of all, leased & available tasks
func (p *Postgres) Stats(ctx context.Context) (*structs.Stats, error) {
	qstr := fmt.Sprintf(`SELECT count(*), count(*) FILTER (WHERE lease_until > now()) FROM %s WHERE queue=$1;`, tableTasks)

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	st := &structs.Stats{Queue: p.opts.Name, Kind: structs.KindPostgres}
	err = conn.QueryRow(ctx, qstr, p.opts.Name).Scan(&st.Enqueued, &st.Leased)
	st.Available = st.Enqueued - st.Leased
	return st, err
}

// Enqueued returns the number of tasks in the queue
func (p *Postgres) Enqueued(ctx context.Context) (int64, error) {
	qstr := fmt.Sprintf(`SELECT count(*) FROM %s WHERE queue=$1;`, tableTasks)

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	var count int64
	err = conn.QueryRow(ctx, qstr, p.opts.Name).Scan(&count)
	return count, err
}

// Purge deletes every task in the queue
func (p *Postgres) Purge(ctx context.Context) error {
	qstr := fmt.Sprintf(`DELETE FROM %s WHERE queue=$1;`, tableTasks)
	return p.exec(ctx, qstr, p.opts.Name)
}

// RenewLease sets a task's lease to expire seconds from now
func (p *Postgres) RenewLease(ctx context.Context, id string, seconds int) error {
	if seconds <= 0 {
		return fmt.Errorf("%w lease seconds must be > 0", ie.ErrInvalidArg)
	}
	qstr, args := toSetLeaseSqlArgs(p.opts.Name, id, seconds)
	return p.update(ctx, id, qstr, args...)
}

// CancelLease releases the lease on a task
func (p *Postgres) CancelLease(ctx context.Context, id string) error {
	qstr, args := toSetLeaseSqlArgs(p.opts.Name, id, 0)
	return p.update(ctx, id, qstr, args...)
}

func (p *Postgres) update(ctx context.Context, id, qstr string, args ...interface{}) error {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	info, err := conn.Exec(ctx, qstr, args...)
	if err != nil {
		return err
	}
	if info.RowsAffected() == 0 {
		return fmt.Errorf("%w task %s", ie.ErrNotFound, id)
	}
	return nil
}

func (p *Postgres) exec(ctx context.Context, qstr string, args ...interface{}) error {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, qstr, args...)
	return err
}

func scanRecords(rows pgx.Rows) ([]*structs.Record, error) {
	defer rows.Close()
	out := []*structs.Record{}
	for rows.Next() {
		rec := &structs.Record{}
		err := rows.Scan(&rec.ID, &rec.Tag, &rec.Payload)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// toInsertSqlArgs returns the insert statement & args for a new task
func toInsertSqlArgs(id, queue string, in *structs.InsertRequest) (string, []interface{}) {
	qstr := fmt.Sprintf(`INSERT INTO %s (id, queue, tag, payload) VALUES ($1, $2, $3, $4);`, tableTasks)
	return qstr, []interface{}{id, queue, in.Tag, in.Payload}
}

// toLeaseSqlArgs returns a statement that leases & returns up to NumTasks rows whose
// lease has expired (or that were never leased), oldest first.
func toLeaseSqlArgs(queue string, in *structs.LeaseRequest) (string, []interface{}) {
	args := []interface{}{queue, float64(in.Seconds), in.NumTasks}
	where := "queue=$1 AND lease_until <= now()"
	if in.GroupByTag {
		where += " AND tag=$4"
		args = append(args, in.Tag)
	}
	qstr := fmt.Sprintf(`UPDATE %s SET lease_until=now() + make_interval(secs => $2), leased_count=leased_count + 1 `+
		`WHERE id IN (SELECT id FROM %s WHERE %s ORDER BY created_at LIMIT $3 FOR UPDATE SKIP LOCKED) `+
		`RETURNING id, tag, payload;`,
		tableTasks, tableTasks, where,
	)
	return qstr, args
}

// toSetLeaseSqlArgs returns a statement that sets the lease on a task to expire seconds from now.
// Zero seconds releases the lease.
func toSetLeaseSqlArgs(queue, id string, seconds int) (string, []interface{}) {
	qstr := fmt.Sprintf(`UPDATE %s SET lease_until=now() + make_interval(secs => $3) WHERE id=$1 AND queue=$2;`, tableTasks)
	return qstr, []interface{}{id, queue, float64(seconds)}
}
