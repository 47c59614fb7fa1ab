package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jask/jangbu/internal/database"
	"github.com/jask/jangbu/internal/database/repository"
	"github.com/jask/jangbu/internal/ingest"
	"github.com/jask/jangbu/internal/ledger"
	"github.com/jask/jangbu/internal/logger"
	"github.com/jask/jangbu/internal/metrics"
)

var (
	// ErrNotConfirmed is returned by Reset without explicit confirmation.
	ErrNotConfirmed = errors.New("bulk delete not confirmed")
	// ErrInvalidValue is returned for an update value a column cannot hold.
	ErrInvalidValue = errors.New("invalid value")
)

// MaintenanceService houses corrective and destructive ledger actions.
type MaintenanceService struct {
	DB      *sql.DB
	Ledger  *repository.LedgerRepo
	Batches *repository.BatchRepo
	Metrics *metrics.Metrics
}

// UpdateRecord sets the given columns on record id. Keys may be identifiers or
// labels; every key is checked against the allow-list before any SQL is
// built. It reports whether a row changed; a missing id is not an error.
func (s *MaintenanceService) UpdateRecord(ctx context.Context, id int64, changes map[string]any) (changed bool, err error) {
	defer func() { s.Metrics.ObserveMutation("update", err) }()

	set := make(map[string]any, len(changes))
	for key, val := range changes {
		col, ok := ledger.ColumnForLabel(key)
		if !ok || !ledger.IsUpdatable(col) {
			return false, fmt.Errorf("ledger: update: %w", ledger.UnknownColumn(key))
		}
		v, err := coerce(col, val)
		if err != nil {
			return false, fmt.Errorf("ledger: update %s: %w", col, err)
		}
		set[col] = v
	}
	n, err := s.Ledger.Update(ctx, id, set)
	if err != nil {
		return false, fmt.Errorf("ledger: update: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().Int64("id", id).Int("columns", len(set)).Int64("changed", n).Msg("record updated")
	return n > 0, nil
}

// DeleteRecord removes record id. It reports whether a row was removed.
func (s *MaintenanceService) DeleteRecord(ctx context.Context, id int64) (removed bool, err error) {
	defer func() { s.Metrics.ObserveMutation("delete", err) }()

	n, err := s.Ledger.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("ledger: delete: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().Int64("id", id).Int64("removed", n).Msg("record deleted")
	return n > 0, nil
}

// Reset wipes every ledger record and the ingest audit trail. It refuses to
// run unless confirmed is true.
func (s *MaintenanceService) Reset(ctx context.Context, confirmed bool) (removed int64, err error) {
	defer func() { s.Metrics.ObserveMutation("reset", err) }()

	if !confirmed {
		return 0, ErrNotConfirmed
	}
	if s.DB == nil {
		return 0, fmt.Errorf("maintenance: db not configured")
	}
	err = database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		if err := s.Ledger.EnsureSchema(ctx, tx); err != nil {
			return err
		}
		var err error
		if removed, err = s.Ledger.DeleteAll(ctx, tx); err != nil {
			return fmt.Errorf("reset ledger: %w", err)
		}
		if err := s.Batches.DeleteAll(ctx, tx); err != nil {
			return fmt.Errorf("reset batches: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	log := logger.FromContext(ctx)
	if _, err := s.DB.ExecContext(ctx, "VACUUM"); err != nil {
		log.Warn().Err(err).Msg("vacuum after reset failed")
	}
	log.Warn().Int64("removed", removed).Msg("ledger reset")
	return removed, nil
}

// coerce converts an incoming value to what col stores. Text is cleaned the
// way ingest cleans it and nil becomes ""; amount must be numeric and
// reg_date must parse. An empty date clears it.
func coerce(col string, val any) (any, error) {
	switch col {
	case ledger.ColAmount:
		n, err := coerceAmount(val)
		if err != nil {
			return nil, err
		}
		return n, nil
	case ledger.ColRegDate:
		s := strings.TrimSpace(fmt.Sprint(valueOrEmpty(val)))
		if s == "" {
			return nil, nil
		}
		d := ingest.ParseDate(s)
		if d == nil {
			return nil, fmt.Errorf("%w: date %q", ErrInvalidValue, s)
		}
		return *d, nil
	case ledger.ColGwan, ledger.ColHang, ledger.ColMok, ledger.ColSemok:
		return ingest.CleanCategory(fmt.Sprint(valueOrEmpty(val))), nil
	case ledger.ColAccountName:
		return ingest.CleanAccount(fmt.Sprint(valueOrEmpty(val))), nil
	default:
		return strings.TrimSpace(fmt.Sprint(valueOrEmpty(val))), nil
	}
}

func coerceAmount(val any) (int64, error) {
	switch v := val.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v >= math.MaxInt64 || v < math.MinInt64 {
			return 0, fmt.Errorf("%w: amount %v", ErrInvalidValue, v)
		}
		return int64(v), nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return coerceAmount(f)
		}
	}
	return 0, fmt.Errorf("%w: amount %v", ErrInvalidValue, val)
}

func valueOrEmpty(v any) any {
	if v == nil {
		return ""
	}
	return v
}
