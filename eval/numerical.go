// Package eval implements the four grading strategies. Each returns
// (passed, details), but their inputs differ: Numerical and String take
// the run output, Classification and Checker take the workspace. There
// is no single shared evaluate signature; the orchestrator calls each
// one by result kind.
package eval

import (
	"regexp"
	"strconv"

	"github.com/erayyap/scriptbench/types"
)

// tolerance is the absolute comparison tolerance for the numerical
// evaluator.
const tolerance = 1e-9

var answerNumberPattern = regexp.MustCompile(`ANSWER=(-?\d+(?:\.\d+)?)`)

// Numerical scans run output for the first ANSWER=<number> and compares
// it to task.Result.Expected within an absolute tolerance.
func Numerical(t *types.Task, runOutput string) (bool, map[string]any) {
	details := map[string]any{
		"expected_answer":       t.Result.Expected,
		"extraction_successful": false,
		"extracted_answer":      nil,
		"comparison_result":     false,
	}

	m := answerNumberPattern.FindStringSubmatch(runOutput)
	if m == nil {
		details["error"] = "no answer pattern found in output"
		return false, details
	}

	actual, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		details["error"] = "could not convert extracted value to number: " + err.Error()
		return false, details
	}

	details["extraction_successful"] = true
	details["extracted_answer"] = actual

	diff := actual - t.Result.Expected
	if diff < 0 {
		diff = -diff
	}
	pass := diff < tolerance
	details["comparison_result"] = pass
	return pass, details
}
