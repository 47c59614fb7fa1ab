package service

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jask/jangbu/internal/database"
	"github.com/jask/jangbu/internal/database/repository"
	"github.com/jask/jangbu/internal/ingest"
	"github.com/jask/jangbu/internal/metrics"
)

type services struct {
	db          *sql.DB
	ingest      *IngestService
	search      *SearchService
	reconciler  *Reconciler
	maintenance *MaintenanceService
}

func newServices(t *testing.T) (context.Context, services) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	dbPath := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, database.RunMigrations(dbPath))
	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	lr := repository.NewLedgerRepo(db)
	br := repository.NewBatchRepo(db)
	m := metrics.New()
	return ctx, services{
		db:          db,
		ingest:      &IngestService{DB: db, Ledger: lr, Batches: br, Layout: ingest.DefaultLayout, HeaderRows: 1, Metrics: m},
		search:      &SearchService{Ledger: lr, Metrics: m},
		reconciler:  &Reconciler{Ledger: lr, Metrics: m},
		maintenance: &MaintenanceService{DB: db, Ledger: lr, Batches: br, Metrics: m},
	}
}

var header = []any{"구분", "관", "항", "목", "세목", "코드", "적요", "금액", "계좌", "일자"}

func sheet(t *testing.T, rows ...[]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	all := append([][]any{header}, rows...)
	for i, row := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(f.GetSheetName(0), cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func importSheet(t *testing.T, ctx context.Context, s services, rows ...[]any) IngestResult {
	t.Helper()
	res, err := s.ingest.Import(ctx, "ledger.xlsx", bytes.NewReader(sheet(t, rows...)))
	require.NoError(t, err)
	return res
}
