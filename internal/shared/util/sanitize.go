package util

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxFileNameBytes = 255

// SanitizeFileName reduces a client-supplied file name to a safe display
// name: directories and control characters are removed and the result is
// capped at 255 bytes. Names that are empty or only dots yield "".
func SanitizeFileName(name string) string {
	s := strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	if strings.Trim(s, ".") == "" {
		return ""
	}
	for len(s) > maxFileNameBytes {
		_, size := utf8.DecodeLastRuneInString(s)
		s = s[:len(s)-size]
	}
	return s
}
