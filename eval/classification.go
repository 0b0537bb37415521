package eval

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/erayyap/scriptbench/types"
)

// targetColumnCandidates is the ordered list of column names the
// evaluator prefers, falling back to the last column if none match.
var targetColumnCandidates = []string{"target", "result", "Durum", "label", "class", "classification"}

// Classification loads the generated file and the ground-truth file from
// workspace, auto-detecting UTF-16 vs UTF-8 encoding, and compares their
// target columns row by row. When detailPath is non-empty, a columnar
// parquet snapshot of the aligned (generated, ground-truth) rows is
// written there — an optional diagnostic alongside the
// evaluation_details map, never required for the pass/fail decision
// itself.
func Classification(t *types.Task, ws *types.Workspace, detailPath string) (bool, map[string]any) {
	if t.Result.Threshold == 0 || t.Result.GroundTruthFile == "" {
		return false, map[string]any{"error": "missing threshold or ground_truth_file in task configuration"}
	}
	if t.Inputs.File == "" {
		return false, map[string]any{"error": "task_file not specified for classification"}
	}

	resultPath := filepath.Join(ws.Root, filepath.Base(t.Inputs.File))
	truthPath := filepath.Join(ws.Root, filepath.Base(t.Result.GroundTruthFile))

	if _, err := os.Stat(resultPath); err != nil {
		return false, map[string]any{"error": fmt.Sprintf("result file not found: %s", resultPath)}
	}
	if _, err := os.Stat(truthPath); err != nil {
		return false, map[string]any{"error": fmt.Sprintf("ground truth file not found: %s", truthPath)}
	}

	resultRows, header1, err := readCSVWithEncoding(resultPath)
	if err != nil {
		return false, map[string]any{"error": err.Error()}
	}
	truthRows, header2, err := readCSVWithEncoding(truthPath)
	if err != nil {
		return false, map[string]any{"error": err.Error()}
	}

	if len(resultRows) != len(truthRows) {
		return false, map[string]any{"error": fmt.Sprintf("row count mismatch: result=%d, ground_truth=%d", len(resultRows), len(truthRows))}
	}
	if len(resultRows) == 0 {
		return false, map[string]any{"error": "no data rows found in files"}
	}

	resultCol, resultIdx := findTargetColumn(header1)
	truthCol, truthIdx := findTargetColumn(header2)
	if resultCol == "" || truthCol == "" {
		return false, map[string]any{"error": fmt.Sprintf("target column not found. result columns: %v, truth columns: %v", header1, header2)}
	}

	matches := 0
	total := len(resultRows)
	for i := range resultRows {
		rv := strings.TrimSpace(valueAt(resultRows[i], resultIdx))
		tv := strings.TrimSpace(valueAt(truthRows[i], truthIdx))
		if rv == tv {
			matches++
		}
	}

	score := float64(matches) / float64(total)
	pass := score >= t.Result.Threshold

	details := map[string]any{
		"matches":              matches,
		"total":                total,
		"score":                score,
		"threshold":            t.Result.Threshold,
		"result_file":          resultPath,
		"ground_truth_file":    truthPath,
		"result_target_column": resultCol,
		"truth_target_column":  truthCol,
	}

	if detailPath != "" {
		if err := writeDetailSnapshot(detailPath, resultRows, resultIdx, truthRows, truthIdx); err != nil {
			details["detail_snapshot_error"] = err.Error()
		} else {
			details["detail_snapshot"] = detailPath
		}
	}

	return pass, details
}

func valueAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// findTargetColumn returns the column name and its index, preferring the
// ordered candidate list and falling back to the last column.
func findTargetColumn(header []string) (string, int) {
	for _, candidate := range targetColumnCandidates {
		for i, col := range header {
			if col == candidate {
				return col, i
			}
		}
	}
	if len(header) > 0 {
		return header[len(header)-1], len(header) - 1
	}
	return "", -1
}

// readCSVWithEncoding detects a UTF-16 byte-order mark and decodes
// accordingly, falling back to UTF-8 for everything else. BOM sniffing
// keeps the UTF-16-before-UTF-8 preference deterministic instead of
// relying on trial decoding.
func readCSVWithEncoding(path string) (rows [][]string, header []string, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var r io.Reader = strings.NewReader(string(raw))
	if len(raw) >= 2 && ((raw[0] == 0xFF && raw[1] == 0xFE) || (raw[0] == 0xFE && raw[1] == 0xFF)) {
		endian := unicode.LittleEndian
		if raw[0] == 0xFE {
			endian = unicode.BigEndian
		}
		decoder := unicode.UTF16(endian, unicode.ExpectBOM).NewDecoder()
		r = transform.NewReader(strings.NewReader(string(raw)), decoder)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty file: %s", path)
	}
	return records[1:], records[0], nil
}
