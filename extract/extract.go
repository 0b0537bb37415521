// Package extract parses an inference backend's raw text output into OS
// packages, interpreter packages, and a script body.
package extract

import (
	"regexp"
	"strings"

	"github.com/erayyap/scriptbench/types"
)

// bashBlockPattern matches fenced blocks tagged bash/sh/shell (or
// untagged, since the language tag is optional in the grammar) and
// captures their body.
var bashBlockPattern = regexp.MustCompile(`(?is)` + "```" + `(?:bash|sh|shell)?\s*\n(.*?)\n` + "```")

// pythonBlockPattern captures the body of the first fenced block tagged
// "python".
var pythonBlockPattern = regexp.MustCompile(`(?s)` + "```python\\s*\\n(.*?)\\n```")

var pipInstallPattern = regexp.MustCompile(`pip install\s+(.+?)(?:\s*$|&&|;)`)
var aptInstallPattern = regexp.MustCompile(`apt-get.*?install.*?-y\s+(.*?)(?:\s*$|&&|;)`)

// Extract parses rawText into a Submission. If no python-tagged block is
// present it returns a nil Submission and an error for which
// IsSubmissionAbsent reports true — such a submission is invalid.
func Extract(rawText string) (*types.Submission, error) {
	script := extractScript(rawText)
	if script == "" {
		return nil, errSubmissionAbsent
	}

	return &types.Submission{
		OSPackages:          extractAptPackages(rawText),
		InterpreterPackages: extractPipPackages(rawText),
		ScriptBody:          script,
		RawTranscript:       rawText,
	}, nil
}

var errSubmissionAbsent = submissionAbsentError{}

type submissionAbsentError struct{}

func (submissionAbsentError) Error() string {
	return "submission is missing a python script block"
}

// IsSubmissionAbsent reports whether err is the "no script block found"
// error Extract returns, so callers can map it onto
// types.CategorySubmissionAbsent without string matching.
func IsSubmissionAbsent(err error) bool {
	_, ok := err.(submissionAbsentError)
	return ok
}

func extractScript(rawText string) string {
	m := pythonBlockPattern.FindStringSubmatch(rawText)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// extractPipPackages scans every shell-tagged fenced block for `pip
// install` lines, tokenises them, drops flags and the literal "pip"
// token, and drops `pip install --upgrade pip` lines entirely. Order of
// first appearance is preserved; duplicates are not de-duplicated (a
// package listed twice yields it twice, which the consuming installer
// treats idempotently).
func extractPipPackages(rawText string) []string {
	var packages []string
	for _, block := range bashBlocks(rawText) {
		for _, line := range strings.Split(block, "\n") {
			line = strings.TrimSpace(line)
			if !strings.Contains(line, "pip install") {
				continue
			}
			if strings.Contains(line, "--upgrade pip") || strings.Contains(line, "pip install --upgrade pip") {
				continue
			}
			m := pipInstallPattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			for _, pkg := range strings.Fields(m[1]) {
				if pkg == "" || strings.HasPrefix(pkg, "-") || pkg == "pip" {
					continue
				}
				packages = append(packages, pkg)
			}
		}
	}
	return packages
}

// extractAptPackages scans every shell-tagged fenced block for `apt-get
// ... install -y ...` lines.
func extractAptPackages(rawText string) []string {
	var packages []string
	for _, block := range bashBlocks(rawText) {
		for _, line := range strings.Split(block, "\n") {
			line = strings.TrimSpace(line)
			if !strings.Contains(line, "apt-get") || !strings.Contains(line, "install") {
				continue
			}
			m := aptInstallPattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			for _, pkg := range strings.Fields(m[1]) {
				if pkg == "" || strings.HasPrefix(pkg, "-") {
					continue
				}
				packages = append(packages, pkg)
			}
		}
	}
	return packages
}

func bashBlocks(rawText string) []string {
	matches := bashBlockPattern.FindAllStringSubmatch(rawText, -1)
	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, m[1])
	}
	return blocks
}
