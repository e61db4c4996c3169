package message

import (
	"strconv"
	"unicode/utf16"
)

// Hash is a deterministic 32-bit string hash (multiplier 31 over UTF-16 code units)
// rendered as the base-36 absolute value.
func Hash(text string) string {
	var h int32
	for _, c := range utf16.Encode([]rune(text)) {
		h = h*31 + int32(c)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 36)
}
