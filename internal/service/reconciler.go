package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jask/jangbu/internal/database/repository"
	"github.com/jask/jangbu/internal/ledger"
	"github.com/jask/jangbu/internal/logger"
	"github.com/jask/jangbu/internal/metrics"
)

// Reconciler finds exact duplicate records. Detection is always computed
// against the current store and never modifies it.
type Reconciler struct {
	Ledger  *repository.LedgerRepo
	Metrics *metrics.Metrics
}

// Duplicates returns every record that shares its key with at least one other
// record, ordered by reg_date, mok, id.
func (r *Reconciler) Duplicates(ctx context.Context) (recs []ledger.Record, err error) {
	defer func(start time.Time) { r.Metrics.ObserveQuery("duplicates", start, err) }(time.Now())

	recs, err = r.Ledger.Duplicates(ctx)
	if err != nil {
		return nil, err
	}
	r.Metrics.SetDuplicates(len(recs))
	log := logger.FromContext(ctx)
	log.Debug().Int("records", len(recs)).Msg("duplicate scan")
	return recs, nil
}

// Groups partitions the duplicates into their key groups, in order of first
// appearance.
func (r *Reconciler) Groups(ctx context.Context) ([][]ledger.Record, error) {
	recs, err := r.Duplicates(ctx)
	if err != nil {
		return nil, err
	}
	return GroupByKey(recs), nil
}

// GroupByKey groups records by DuplicateKey with absent values equal to "".
func GroupByKey(recs []ledger.Record) [][]ledger.Record {
	index := map[string]int{}
	var groups [][]ledger.Record
	for _, rec := range recs {
		k := duplicateKey(rec)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], rec)
	}
	return groups
}

func duplicateKey(rec ledger.Record) string {
	parts := make([]string, len(repository.DuplicateKey))
	for i, c := range repository.DuplicateKey {
		switch v := rec.Value(c).(type) {
		case string:
			parts[i] = v
		case int64:
			parts[i] = strconv.FormatInt(v, 10)
		}
	}
	return strings.Join(parts, "\x00")
}
