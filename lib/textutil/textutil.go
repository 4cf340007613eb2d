package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName collapses runs of whitespace and trims the ends.
func NormalizeName(name string) string {
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, " ")
	return name
}

// the first bolded link of a blurb is the featured article itself, either
// as '''[[Title|label]]''' or as <b>[[Title]]</b>
var boldLinkRegexes = []*regexp.Regexp{
	regexp.MustCompile(`'''\s*\[\[\s*([^|\]]+?)\s*(?:\|[^\]]+)?\]\][a-z]*\s*'''`),
	regexp.MustCompile(`<b>\s*\[\[\s*([^|\]]+?)\s*(?:\|[^\]]+)?\]\]\s*</b>`),
}

// FirstBoldLink returns the target of the first bolded wikilink in some
// wikitext, or "" if there is none.
func FirstBoldLink(wikitext string) string {
	for _, re := range boldLinkRegexes {
		groups := re.FindStringSubmatch(wikitext)
		if len(groups) < 2 {
			continue
		}
		return NormalizeName(groups[1])
	}
	return ""
}

// ConfigLines returns the meaningful lines of an on-wiki list, blank lines
// and lines starting with '#' are skipped.
func ConfigLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
