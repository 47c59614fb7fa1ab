// Package testdata generates sample ledger records for demos and tests.
package testdata

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"github.com/jask/jangbu/internal/database"
	"github.com/jask/jangbu/internal/database/repository"
	"github.com/jask/jangbu/internal/ledger"
)

type category struct {
	gwan, hang, mok string
	semok           []string
	income          bool
}

var categories = []category{
	{gwan: "사업비", hang: "보조금", mok: "지원금", semok: []string{"국고", "지방비"}, income: true},
	{gwan: "회비", hang: "정기회비", mok: "월회비", semok: []string{"개인", "단체"}, income: true},
	{gwan: "운영비", hang: "인건비", mok: "급여", semok: []string{"상근", "시간제"}},
	{gwan: "운영비", hang: "관리비", mok: "식대", semok: []string{"점심", "회의"}},
	{gwan: "운영비", hang: "관리비", mok: "통신비", semok: []string{"인터넷", "전화"}},
	{gwan: "사업비", hang: "행사비", mok: "대관료", semok: []string{"강당", "회의실"}},
}

var (
	details  = []string{"카드", "현금", "이체", "영수증없음", "세금계산서"}
	accounts = []string{"국민", "신한", "농협"}
)

// Records returns n pseudo-random records. The same seed yields the same
// records; dates fall in the days before base.
func Records(n int, seed int64, base time.Time) []ledger.Record {
	rng := rand.New(rand.NewSource(seed))
	out := make([]ledger.Record, 0, n)
	for i := 0; i < n; i++ {
		c := categories[rng.Intn(len(categories))]
		typ := ledger.ExpenseMarker
		if c.income {
			typ = ledger.IncomeMarker
		}
		date := base.AddDate(0, 0, -rng.Intn(90)).Format("2006-01-02")
		out = append(out, ledger.Record{
			Type:        typ,
			Gwan:        c.gwan,
			Hang:        c.hang,
			Mok:         c.mok,
			Semok:       c.semok[rng.Intn(len(c.semok))],
			Detail1:     fmt.Sprintf("%s %d", c.mok, i+1),
			Detail2:     details[rng.Intn(len(details))],
			Amount:      int64(rng.Intn(200)+1) * 1000,
			AccountName: accounts[rng.Intn(len(accounts))],
			RegDate:     &date,
		})
	}
	return out
}

// Seed appends n generated records in one transaction and returns how many
// were written.
func Seed(ctx context.Context, db *sql.DB, repo *repository.LedgerRepo, n int, seed int64) (int, error) {
	recs := Records(n, seed, time.Now())
	var written int
	err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
		if err := repo.EnsureSchema(ctx, tx); err != nil {
			return err
		}
		var err error
		written, err = repo.AppendBatch(ctx, tx, recs)
		return err
	})
	return written, err
}
