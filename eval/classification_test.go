package eval

import (
	"os"
	"path/filepath"
	"testing"
	"unicode/utf16"

	"github.com/erayyap/scriptbench/types"
)

func classificationTask(threshold float64) *types.Task {
	return &types.Task{
		ID: "t1",
		Inputs: types.Inputs{
			File: "predictions.csv",
		},
		Result: types.ResultSpec{
			Kind:            types.ResultClassification,
			GroundTruthFile: "truth.csv",
			Threshold:       threshold,
		},
	}
}

func writeUTF8CSV(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func writeUTF16CSV(t *testing.T, path, content string) {
	t.Helper()
	encoded := utf16.Encode([]rune(content))
	buf := make([]byte, 2+2*len(encoded))
	buf[0], buf[1] = 0xFF, 0xFE // little-endian BOM
	for i, u := range encoded {
		buf[2+2*i] = byte(u)
		buf[2+2*i+1] = byte(u >> 8)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestClassification_AllMatchPasses(t *testing.T) {
	root := t.TempDir()
	writeUTF8CSV(t, filepath.Join(root, "predictions.csv"), "id,target\n1,cat\n2,dog\n")
	writeUTF8CSV(t, filepath.Join(root, "truth.csv"), "id,target\n1,cat\n2,dog\n")

	ws := &types.Workspace{Root: root}
	pass, details := Classification(classificationTask(0.9), ws, "")
	if !pass {
		t.Fatalf("expected pass, got %v", details)
	}
	if details["matches"] != 2 {
		t.Errorf("expected 2 matches, got %v", details["matches"])
	}
}

func TestClassification_WritesParquetDetailWhenRequested(t *testing.T) {
	root := t.TempDir()
	writeUTF8CSV(t, filepath.Join(root, "predictions.csv"), "id,target\n1,cat\n2,dog\n")
	writeUTF8CSV(t, filepath.Join(root, "truth.csv"), "id,target\n1,cat\n2,cat\n")

	ws := &types.Workspace{Root: root}
	detailPath := filepath.Join(root, "classification_detail.parquet")
	pass, details := Classification(classificationTask(0.4), ws, detailPath)
	if !pass {
		t.Fatalf("expected pass, got %v", details)
	}
	if details["detail_snapshot_error"] != nil {
		t.Fatalf("unexpected detail snapshot error: %v", details["detail_snapshot_error"])
	}
	if details["detail_snapshot"] != detailPath {
		t.Errorf("expected detail_snapshot=%s, got %v", detailPath, details["detail_snapshot"])
	}
	info, err := os.Stat(detailPath)
	if err != nil {
		t.Fatalf("expected parquet file at %s: %v", detailPath, err)
	}
	if info.Size() == 0 {
		t.Errorf("expected non-empty parquet file")
	}
}

func TestClassification_BelowThresholdFails(t *testing.T) {
	root := t.TempDir()
	writeUTF8CSV(t, filepath.Join(root, "predictions.csv"), "id,target\n1,cat\n2,cat\n")
	writeUTF8CSV(t, filepath.Join(root, "truth.csv"), "id,target\n1,cat\n2,dog\n")

	ws := &types.Workspace{Root: root}
	pass, details := Classification(classificationTask(0.9), ws, "")
	if pass {
		t.Fatalf("expected failure below threshold, got %v", details)
	}
}

func TestClassification_UTF16ResultFileDecoded(t *testing.T) {
	root := t.TempDir()
	writeUTF16CSV(t, filepath.Join(root, "predictions.csv"), "id,target\n1,cat\n")
	writeUTF8CSV(t, filepath.Join(root, "truth.csv"), "id,target\n1,cat\n")

	ws := &types.Workspace{Root: root}
	pass, details := Classification(classificationTask(1.0), ws, "")
	if !pass {
		t.Fatalf("expected pass reading UTF-16 result file, got %v", details)
	}
}

func TestClassification_HeaderOnlyZeroRowsFails(t *testing.T) {
	root := t.TempDir()
	writeUTF8CSV(t, filepath.Join(root, "predictions.csv"), "id,target\n")
	writeUTF8CSV(t, filepath.Join(root, "truth.csv"), "id,target\n")

	ws := &types.Workspace{Root: root}
	pass, details := Classification(classificationTask(0.5), ws, "")
	if pass {
		t.Fatalf("expected failure for zero data rows")
	}
	if details["error"] == nil {
		t.Errorf("expected error detail for header-only file")
	}
}

func TestClassification_RowCountMismatchFails(t *testing.T) {
	root := t.TempDir()
	writeUTF8CSV(t, filepath.Join(root, "predictions.csv"), "id,target\n1,cat\n")
	writeUTF8CSV(t, filepath.Join(root, "truth.csv"), "id,target\n1,cat\n2,dog\n")

	ws := &types.Workspace{Root: root}
	pass, details := Classification(classificationTask(0.5), ws, "")
	if pass {
		t.Fatalf("expected failure for row count mismatch")
	}
	if details["error"] == nil {
		t.Errorf("expected error detail")
	}
}

func TestClassification_FallsBackToLastColumnWhenNoCandidateMatches(t *testing.T) {
	root := t.TempDir()
	writeUTF8CSV(t, filepath.Join(root, "predictions.csv"), "id,prediction\n1,cat\n")
	writeUTF8CSV(t, filepath.Join(root, "truth.csv"), "id,prediction\n1,cat\n")

	ws := &types.Workspace{Root: root}
	pass, details := Classification(classificationTask(1.0), ws, "")
	if !pass {
		t.Fatalf("expected pass via last-column fallback, got %v", details)
	}
}
