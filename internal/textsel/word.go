package textsel

// Span is a half-open byte interval inside one line
type Span struct {
	Start int
	End   int
}

// WordAt expands offset to the boundaries of the token under it.
//
// A token made only of digits and dots that contains at least one dot
// (an IP address, a version) is taken as a whole with leading and trailing
// dots trimmed. Anything else expands over word characters [A-Za-z0-9_].
// ok is false when offset is out of range or the byte there is neither a
// word character nor a dot.
func WordAt(text string, offset int) (Span, bool) {
	if offset < 0 || offset >= len(text) {
		return Span{}, false
	}
	if !isWordByte(text[offset]) && text[offset] != '.' {
		return Span{}, false
	}

	start, end := offset, offset
	if inDottedNumber(text, offset) {
		for start > 0 && isNumericByte(text[start-1]) {
			start--
		}
		for end < len(text) && isNumericByte(text[end]) {
			end++
		}
		for start < end && text[start] == '.' {
			start++
		}
		for end > start && text[end-1] == '.' {
			end--
		}
		return Span{Start: start, End: end}, true
	}

	for start > 0 && isWordByte(text[start-1]) {
		start--
	}
	for end < len(text) && isWordByte(text[end]) {
		end++
	}
	return Span{Start: start, End: end}, true
}

// inDottedNumber reports whether the [0-9.] run around offset contains a dot.
// The run is scanned backwards from the byte before offset and forwards from
// offset itself, so a non-numeric byte at offset ends the forward scan at once.
func inDottedNumber(text string, offset int) bool {
	start, end := offset, offset
	for start > 0 && isNumericByte(text[start-1]) {
		start--
	}
	for end < len(text) && isNumericByte(text[end]) {
		end++
	}
	for i := start; i < end; i++ {
		if text[i] == '.' {
			return true
		}
	}
	return false
}

func isNumericByte(c byte) bool {
	return (c >= '0' && c <= '9') || c == '.'
}

func isWordByte(c byte) bool {
	return c == '_' ||
		(c >= '0' && c <= '9') ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z')
}
