package speech

import (
	"regexp"
	"strings"
)

var (
	mdLink     = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdHeading  = regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s*`)
	mdBullet   = regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+[.)])\s+`)
	mdEmphasis = regexp.MustCompile("[*_`~]+")
	lineBreaks = regexp.MustCompile(`\s*\n+\s*`)
	spaces     = regexp.MustCompile(`[ \t]+`)
)

// StripMarkdown turns assistant markdown into speakable text: emphasis
// markers, headings and list bullets are removed, links keep their label and
// line breaks become sentence pauses.
func StripMarkdown(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = mdLink.ReplaceAllString(s, "$1")
	s = mdHeading.ReplaceAllString(s, "")
	s = mdBullet.ReplaceAllString(s, "")
	s = mdEmphasis.ReplaceAllString(s, "")

	lines := lineBreaks.Split(strings.TrimSpace(s), -1)
	var sb strings.Builder
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(line)
		if i < len(lines)-1 && !strings.ContainsAny(line[len(line)-1:], ".,;:!?") {
			sb.WriteString(".")
		}
	}
	return spaces.ReplaceAllString(sb.String(), " ")
}
