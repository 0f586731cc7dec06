package db

import (
	"context"
	"database/sql"

	_ "embed"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// Queries wraps the harvest manifest database. One row is kept per
// resolved partition key, re-runs replace it.
type Queries struct {
	db *sql.DB
}

func New(database *sql.DB) *Queries {
	return &Queries{db: database}
}

type Partition struct {
	Category  string
	Key       string
	Outcome   string
	QueryID   string
	RowCount  int64
	File      string
	FetchedAt int64
}

func (q *Queries) RecordPartition(ctx context.Context, p Partition) error {
	_, err := q.db.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO partitions
			(category, key, outcome, query_id, row_count, file, fetched_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Category, p.Key, p.Outcome, p.QueryID, p.RowCount, p.File, p.FetchedAt,
	)
	return err
}

func (q *Queries) ListPartitions(ctx context.Context) ([]Partition, error) {
	rows, err := q.db.QueryContext(
		ctx,
		`SELECT category, key, outcome, query_id, row_count, file, fetched_at
			FROM partitions ORDER BY category, key`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Partition
	for rows.Next() {
		var p Partition
		err := rows.Scan(
			&p.Category, &p.Key, &p.Outcome,
			&p.QueryID, &p.RowCount, &p.File, &p.FetchedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (q *Queries) GetPartition(ctx context.Context, category, key string) (Partition, error) {
	var p Partition
	err := q.db.QueryRowContext(
		ctx,
		`SELECT category, key, outcome, query_id, row_count, file, fetched_at
			FROM partitions WHERE category = ? AND key = ?`,
		category, key,
	).Scan(
		&p.Category, &p.Key, &p.Outcome,
		&p.QueryID, &p.RowCount, &p.File, &p.FetchedAt,
	)
	return p, err
}
