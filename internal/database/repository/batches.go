package repository

import (
	"context"
	"database/sql"
	"time"
)

// BatchRepo records ingest runs in ingest_batches.
type BatchRepo struct {
	db *sql.DB
}

func NewBatchRepo(db *sql.DB) *BatchRepo { return &BatchRepo{db: db} }

// Add records b inside tx.
func (r *BatchRepo) Add(ctx context.Context, tx *sql.Tx, b Batch) error {
	_, err := tx.ExecContext(ctx, `
	INSERT INTO ingest_batches(id, file_name, fingerprint, row_count, ingested_at)
	VALUES(?, ?, ?, ?, ?);
	`, b.ID, b.FileName, b.Fingerprint, b.RowCount, b.IngestedAt)
	return err
}

// SeenFingerprint reports whether a batch with fingerprint was ingested before.
func (r *BatchRepo) SeenFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ingest_batches WHERE fingerprint = ?`, fingerprint).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List returns batches newest first.
func (r *BatchRepo) List(ctx context.Context, limit int) ([]Batch, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, file_name, fingerprint, row_count, ingested_at
	FROM ingest_batches ORDER BY ingested_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// DeleteAll clears the audit trail inside tx.
func (r *BatchRepo) DeleteAll(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM ingest_batches`)
	return err
}

func scanBatch(s scanner) (Batch, error) {
	var b Batch
	var at time.Time
	if err := s.Scan(&b.ID, &b.FileName, &b.Fingerprint, &b.RowCount, &at); err != nil {
		return b, err
	}
	b.IngestedAt = at.UTC()
	return b, nil
}
