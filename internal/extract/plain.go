package extract

import (
	"strings"
	"unicode/utf8"
)

// validUTF8 returns content as string, replacing invalid UTF-8 sequences with the
// replacement character.
func validUTF8(content []byte) string {
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "�")
	}
	return string(content)
}
