package eval

import (
	"regexp"
	"strings"

	"github.com/erayyap/scriptbench/types"
)

// RE2 has no backreferences, so a single quote-or-bare pattern like
// `ANSWER=(["\']?)(...)\1` cannot be expressed directly. It is split
// into three ordered attempts instead: double-quoted, single-quoted,
// then a bare-token fallback.
var (
	doubleQuotedAnswer = regexp.MustCompile(`ANSWER="([^"\n\r]+)"`)
	singleQuotedAnswer = regexp.MustCompile(`ANSWER='([^'\n\r]+)'`)
	bareAnswer         = regexp.MustCompile(`ANSWER=([^\s\n\r]+)`)
)

// String scans run output for ANSWER=<value>, bare or quoted, and
// compares it to task.Result.ExpectedString with the task's configured
// case sensitivity.
func String(t *types.Task, runOutput string) (bool, map[string]any) {
	details := map[string]any{
		"expected_answer":       t.Result.ExpectedString,
		"extraction_successful": false,
		"extracted_answer":      nil,
		"comparison_result":     false,
		"case_sensitive":        t.Result.CaseSensitive,
	}

	extracted, found := extractAnswerString(runOutput)
	if !found {
		details["error"] = "no answer pattern found in output"
		return false, details
	}

	details["extraction_successful"] = true
	details["extracted_answer"] = extracted

	match := extracted == t.Result.ExpectedString
	if !t.Result.CaseSensitive {
		match = strings.EqualFold(extracted, t.Result.ExpectedString)
	}
	details["comparison_result"] = match
	return match, details
}

func extractAnswerString(runOutput string) (string, bool) {
	if m := doubleQuotedAnswer.FindStringSubmatch(runOutput); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if m := singleQuotedAnswer.FindStringSubmatch(runOutput); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if m := bareAnswer.FindStringSubmatch(runOutput); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}
