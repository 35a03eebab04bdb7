// Package parser provides tag-input parsing and Markdown stripping for
// note previews and plain-text export.
package parser

import (
	"regexp"
	"strings"
)

// Preview character budgets.
const (
	ListPreviewBudget    = 120
	ArchivePreviewBudget = 140
)

var (
	headingRe  = regexp.MustCompile(`(?m)^#+\s`)
	boldRe     = regexp.MustCompile(`(\*\*|__)(.*?)(\*\*|__)`)
	emphasisRe = regexp.MustCompile(`[*_]`)
	exportRe   = regexp.MustCompile("[#*`>-]")
	unsafeRe   = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// TagsFromInput derives a tag list from a comma-separated input string.
// Tags are trimmed, empties are dropped, input order is preserved, and
// duplicates are kept as typed.
func TagsFromInput(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		t := strings.TrimSpace(part)
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}

// NormalizeTags applies the same policy to an already-split tag list.
func NormalizeTags(tags []string) []string {
	out := []string{}
	for _, part := range tags {
		t := strings.TrimSpace(part)
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Preview strips heading, bold, and italic markup from content and
// truncates it to budget characters. The ellipsis marker is appended
// only when truncation occurred.
func Preview(content string, budget int) string {
	plain := headingRe.ReplaceAllString(content, "")
	plain = boldRe.ReplaceAllString(plain, "$2")
	plain = emphasisRe.ReplaceAllString(plain, "")

	runes := []rune(plain)
	if len(runes) <= budget {
		return plain
	}
	return string(runes[:budget]) + "…"
}

// StripMarkdown removes common Markdown punctuation for plain-text
// export.
func StripMarkdown(content string) string {
	return strings.TrimSpace(exportRe.ReplaceAllString(content, ""))
}

// SafeFileName converts a note title into a filesystem-safe export name.
func SafeFileName(title string) string {
	if title == "" {
		title = "note"
	}
	name := unsafeRe.ReplaceAllString(title, "_")
	runes := []rune(name)
	if len(runes) > 60 {
		name = string(runes[:60])
	}
	return name
}
