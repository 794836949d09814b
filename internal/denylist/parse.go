package denylist

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const bom = "\uFEFF"

var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Parse extracts normalized entries from denylist file content.
// Lines end with LF, CRLF or a bare CR. Blank lines and lines starting with '#' are skipped; everything else is
// trimmed and lowercased. Duplicates collapse.
func Parse(content string) map[string]struct{} {
	entries := make(map[string]struct{})
	// Notepad saves with a BOM, which would otherwise stick to the first entry.
	content = strings.TrimPrefix(content, bom)
	content = lineBreaks.Replace(content)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries[Normalize(line)] = struct{}{}
	}
	return entries
}

// Normalize returns the comparison key for a player name.
func Normalize(name string) string {
	return strings.ToLower(name)
}

func decode(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("content is not valid UTF-8")
	}
	return string(data), nil
}
