package repository

import "time"

// Batch is one audited ingest run.
type Batch struct {
	ID          string
	FileName    string
	Fingerprint string
	RowCount    int
	IngestedAt  time.Time
}

// DuplicateKey lists the fields two records must share, nulls and empty
// strings treated alike, to count as duplicates. Category levels gwan and
// hang are not part of the key.
var DuplicateKey = []string{
	"reg_date", "type", "mok", "semok",
	"detail_1", "detail_2", "detail_3", "detail_4",
	"amount",
}
