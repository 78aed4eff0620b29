// Package text prepares extracted document text for indexing.
package text

import (
	"regexp"
	"strings"
)

var (
	urlRe       = regexp.MustCompile(`https?://\S+|www\.\S+`)
	emailRe     = regexp.MustCompile(`[\p{L}\p{N}_.\-]+@[\p{L}\p{N}_.\-]+\.[\p{L}\p{N}_]+`)
	disallowRe  = regexp.MustCompile(`[^\p{L}\p{N}_\s.,!?;:'"()\[\]{}\-]`)
	hspaceRe    = regexp.MustCompile(`[^\S\n]+`)
	blankLineRe = regexp.MustCompile(`\n\s*\n`)
)

// Clean strips URLs, e-mail addresses and characters outside a word/punctuation
// allowlist, collapses horizontal whitespace to single spaces, collapses
// consecutive blank lines to one, and trims every line.
func Clean(s string) string {
	s = urlRe.ReplaceAllString(s, "")
	s = emailRe.ReplaceAllString(s, "")
	s = disallowRe.ReplaceAllString(s, " ")
	s = hspaceRe.ReplaceAllString(s, " ")
	s = blankLineRe.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
