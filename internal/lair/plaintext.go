package lair

import (
	"strings"
	"unicode/utf8"
)

const maxLineName = 80

// ScanPlainText is the fallback for files without a syntax tree: one element
// of type other per line containing a keyword.
func ScanPlainText(path, language string, content []byte, keywords []string) []CodeElement {
	normalized := NormalizeKeywords(keywords)
	if len(normalized) == 0 || len(content) == 0 {
		return nil
	}

	var elements []CodeElement
	text := string(content)
	offset := 0
	for row := 0; offset <= len(text); row++ {
		end := strings.IndexByte(text[offset:], '\n')
		var line string
		if end < 0 {
			line = text[offset:]
		} else {
			line = text[offset : offset+end]
		}
		line = strings.TrimSuffix(line, "\r")

		if containsAny(line, normalized) {
			elements = append(elements, CodeElement{
				ID:            newID(),
				Type:          TypeOther,
				Name:          lineName(line),
				FilePath:      path,
				Language:      language,
				StartPosition: Position{Row: row, Column: 0},
				EndPosition:   Position{Row: row, Column: len(line)},
				StartIndex:    offset,
				EndIndex:      offset + len(line),
				CodeSnippet:   line,
			})
		}

		if end < 0 {
			break
		}
		offset += end + 1
	}
	return elements
}

func lineName(line string) string {
	name := strings.TrimSpace(line)
	if utf8.RuneCountInString(name) <= maxLineName {
		return name
	}
	runes := []rune(name)
	return string(runes[:maxLineName]) + "..."
}
