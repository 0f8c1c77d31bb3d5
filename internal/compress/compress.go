// Package compress shrinks raw text to fit fixed character budgets while
// preserving structural signal (headings, list markers). Both operations are
// pure and deterministic; budgets are counted in runes so multi-byte text is
// never split mid-character.
package compress

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// headBudget and tailBudget bound the leading and trailing slices kept
	// when context text does not fit its budget.
	headBudget = 8000
	tailBudget = 2000

	// maxHeadings caps how many heading anchors are retained in the extract.
	maxHeadings = 200

	// headingWindow is the heading line plus up to 5 following lines.
	headingWindow = 6

	// longFenceRunes is the threshold above which a fenced code block is
	// replaced by a placeholder.
	longFenceRunes = 2000

	fencePlaceholder = "```(已省略超长代码块)```"
)

var (
	blankRunRe = regexp.MustCompile(`\n{3,}`)
	spaceRunRe = regexp.MustCompile(`[ \t]+`)
	orderedRe  = regexp.MustCompile(`^\d+\.`)
)

// Methodology compresses pre-structured methodology text to maxChars runes.
// If the normalized text already fits it is returned unchanged. Otherwise
// only blank lines, headings and list items are kept, greedily until the
// next line would exceed the budget. An empty filter result falls back to a
// hard left-truncation. The result never exceeds maxChars runes.
func Methodology(text string, maxChars int) string {
	if text == "" || maxChars <= 0 {
		return ""
	}

	normalized := collapseBlankRuns(normalizeNewlines(text))
	if utf8.RuneCountInString(normalized) <= maxChars {
		return normalized
	}

	var kept []string
	total := 0
	for _, line := range strings.Split(normalized, "\n") {
		s := strings.TrimSpace(line)
		keep := s == "" ||
			strings.HasPrefix(s, "###") ||
			strings.HasPrefix(s, "*") ||
			strings.HasPrefix(s, "-") ||
			orderedRe.MatchString(s)
		if !keep {
			continue
		}
		cost := utf8.RuneCountInString(line) + 1
		if total+cost > maxChars {
			break
		}
		kept = append(kept, line)
		total += cost
	}

	compact := strings.TrimSpace(collapseBlankRuns(strings.Join(kept, "\n")))
	if compact == "" {
		compact = truncateRunes(normalized, maxChars)
	}
	return truncateRunes(compact, maxChars)
}

// Context compresses arbitrary prose/markdown (OCR output) to maxChars runes.
// The text is first normalized: line endings unified, space/tab runs and
// excess blank lines collapsed, and over-long fenced code blocks replaced by
// a placeholder. If the normalized form fits, it is returned with
// shortened=false. Otherwise the result is head + heading-anchored extract +
// tail, blank-line separated and hard-capped, with shortened=true.
//
// shortened reports content loss: it is true only when the extract path ran,
// never for whitespace-only normalization.
func Context(text string, maxChars int) (string, bool) {
	if text == "" || maxChars <= 0 {
		return "", false
	}

	t := normalizeNewlines(text)
	t = spaceRunRe.ReplaceAllString(t, " ")
	t = collapseBlankRuns(t)
	t = collapseLongFences(t)

	if utf8.RuneCountInString(t) <= maxChars {
		return t, false
	}

	lines := strings.Split(t, "\n")
	var headings []int
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			headings = append(headings, i)
			if len(headings) == maxHeadings {
				break
			}
		}
	}

	keep := make(map[int]struct{}, len(headings)*headingWindow)
	for _, h := range headings {
		for j := h; j < h+headingWindow && j < len(lines); j++ {
			keep[j] = struct{}{}
		}
	}
	var extractLines []string
	for i, line := range lines {
		if _, ok := keep[i]; ok {
			extractLines = append(extractLines, line)
		}
	}
	extract := strings.TrimSpace(strings.Join(extractLines, "\n"))

	head := strings.TrimSpace(truncateRunes(t, headBudget))
	tail := ""
	if utf8.RuneCountInString(t) > tailBudget {
		tail = strings.TrimSpace(lastRunes(t, tailBudget))
	}

	var parts []string
	for _, p := range []string{head, extract, tail} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	combined := collapseBlankRuns(strings.Join(parts, "\n\n"))
	return truncateRunes(combined, maxChars), true
}

// Truncate returns at most n leading runes of s, for callers that need a
// hard cap without the extract heuristics.
func Truncate(s string, n int) string {
	return truncateRunes(s, n)
}

// normalizeNewlines converts CRLF and lone CR line endings to LF.
func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// collapseBlankRuns collapses 3+ consecutive newlines to exactly one blank line.
func collapseBlankRuns(s string) string {
	return blankRunRe.ReplaceAllString(s, "\n\n")
}

// collapseLongFences replaces every fenced code block whose inner content
// exceeds longFenceRunes with a short placeholder. Unpaired fences are left
// untouched.
func collapseLongFences(s string) string {
	const fence = "```"
	var b strings.Builder
	for {
		open := strings.Index(s, fence)
		if open < 0 {
			break
		}
		closing := strings.Index(s[open+len(fence):], fence)
		if closing < 0 {
			break
		}
		inner := s[open+len(fence) : open+len(fence)+closing]
		b.WriteString(s[:open])
		if utf8.RuneCountInString(inner) > longFenceRunes {
			b.WriteString(fencePlaceholder)
		} else {
			b.WriteString(fence)
			b.WriteString(inner)
			b.WriteString(fence)
		}
		s = s[open+len(fence)+closing+len(fence):]
	}
	b.WriteString(s)
	return b.String()
}

// truncateRunes returns at most n leading runes of s.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// lastRunes returns at most n trailing runes of s.
func lastRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
