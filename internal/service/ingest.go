package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/jask/jangbu/internal/database"
	"github.com/jask/jangbu/internal/database/repository"
	"github.com/jask/jangbu/internal/ingest"
	"github.com/jask/jangbu/internal/ledger"
	"github.com/jask/jangbu/internal/logger"
	"github.com/jask/jangbu/internal/metrics"
)

// IngestService appends spreadsheet batches to the ledger.
type IngestService struct {
	DB      *sql.DB
	Ledger  *repository.LedgerRepo
	Batches *repository.BatchRepo
	Layout  ingest.Layout
	Sheet   string
	// HeaderRows are skipped at the top of every file.
	HeaderRows int
	Metrics    *metrics.Metrics
}

type IngestResult struct {
	BatchID        string
	Rows           int
	Fingerprint    string
	PreviouslySeen bool
}

// Import reads name from r, normalizes every data row and appends the batch
// atomically together with table creation and the audit row. A file that
// cannot supply the layout is rejected whole.
func (s *IngestService) Import(ctx context.Context, name string, r io.Reader) (res IngestResult, err error) {
	log := logger.FromContext(ctx).With().Str("file", name).Logger()
	defer func() { s.Metrics.ObserveIngest(res.Rows, err) }()

	src, err := ingest.Read(name, r, ingest.ReadOptions{
		Sheet:      s.Sheet,
		HeaderRows: s.HeaderRows,
		MinColumns: s.Layout.Width(),
	})
	if err != nil {
		log.Error().Err(err).Msg("ingest rejected")
		return IngestResult{}, fmt.Errorf("ingest %s: %w", name, err)
	}

	n := ingest.Normalizer{Layout: s.Layout}
	recs := make([]ledger.Record, 0, len(src.Rows))
	for _, row := range src.Rows {
		recs = append(recs, n.Normalize(row))
	}

	seen, err := s.Batches.SeenFingerprint(ctx, src.Fingerprint)
	if err != nil {
		return IngestResult{}, fmt.Errorf("ingest %s: %w", name, err)
	}
	if seen {
		log.Warn().Str("fingerprint", src.Fingerprint).Msg("file was ingested before; appending again")
	}

	batch := repository.Batch{
		ID:          uuid.NewString(),
		FileName:    name,
		Fingerprint: src.Fingerprint,
		RowCount:    len(recs),
		IngestedAt:  database.Now(),
	}
	var appended int
	err = database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		if err := s.Ledger.EnsureSchema(ctx, tx); err != nil {
			return err
		}
		var err error
		if appended, err = s.Ledger.AppendBatch(ctx, tx, recs); err != nil {
			return err
		}
		return s.Batches.Add(ctx, tx, batch)
	})
	if err != nil {
		log.Error().Err(err).Msg("ingest failed")
		return IngestResult{}, fmt.Errorf("ingest %s: %w", name, err)
	}

	log.Info().Str("batch", batch.ID).Int("rows", appended).Msg("batch appended")
	return IngestResult{BatchID: batch.ID, Rows: appended, Fingerprint: src.Fingerprint, PreviouslySeen: seen}, nil
}

// History lists recent ingest runs.
func (s *IngestService) History(ctx context.Context, limit int) ([]repository.Batch, error) {
	return s.Batches.List(ctx, limit)
}
