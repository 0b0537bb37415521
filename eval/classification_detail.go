package eval

import (
	"os"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// detailRow is one aligned (generated, ground-truth) comparison, the
// columnar shape written to the classification evaluator's optional
// parquet diagnostic.
type detailRow struct {
	RowIndex  int    `parquet:"row_index"`
	Generated string `parquet:"generated"`
	Truth     string `parquet:"truth"`
	Match     bool   `parquet:"match"`
}

// writeDetailSnapshot writes one parquet row per compared record. The
// comparison itself still reads its inputs as CSV — this snapshot is
// diagnostic output only.
func writeDetailSnapshot(path string, resultRows [][]string, resultIdx int, truthRows [][]string, truthIdx int) error {
	rows := make([]detailRow, len(resultRows))
	for i := range resultRows {
		gen := strings.TrimSpace(valueAt(resultRows[i], resultIdx))
		truth := strings.TrimSpace(valueAt(truthRows[i], truthIdx))
		rows[i] = detailRow{RowIndex: i, Generated: gen, Truth: truth, Match: gen == truth}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := parquet.NewGenericWriter[detailRow](f)
	if _, err := w.Write(rows); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
