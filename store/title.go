package store

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultTitlePrefix starts every auto-assigned window title.
const DefaultTitlePrefix = "New Chat"

// titleSnippetLen bounds the title adopted from the first user message.
const titleSnippetLen = 30

var autoTitlePattern = regexp.MustCompile(`^New Chat \((\d+)\)$`)

// NextAutoTitle returns the next auto title, with a counter strictly greater
// than every counter already present in existing titles. Titles that do not
// match the auto pattern are ignored.
func NextAutoTitle(existing []string) string {
	max := 0
	for _, title := range existing {
		m := autoTitlePattern.FindStringSubmatch(title)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s (%d)", DefaultTitlePrefix, max+1)
}

// IsDefaultTitle reports whether a title is still auto-assigned, meaning the
// first user message may overwrite it.
func IsDefaultTitle(title string) bool {
	return title == DefaultTitlePrefix || autoTitlePattern.MatchString(title)
}

// TitleFromMessage derives a window title from the first user message: the
// leading snippet of its content, ellipsized when truncated.
func TitleFromMessage(content string) string {
	content = strings.TrimSpace(content)
	runes := []rune(content)
	if len(runes) <= titleSnippetLen {
		return content
	}
	return string(runes[:titleSnippetLen]) + "..."
}
