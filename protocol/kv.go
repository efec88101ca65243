package protocol

import "strings"

// Pair is one key=value token.
type Pair struct {
	Key   string
	Value string
}

// EachPair walks a comma-separated line in order. Tokens without '=' are
// skipped; surrounding whitespace is trimmed. Returning false from fn stops
// the walk.
func EachPair(line string, fn func(key, value string) bool) {
	for len(line) > 0 {
		var tok string
		if i := strings.IndexByte(line, ','); i >= 0 {
			tok, line = line[:i], line[i+1:]
		} else {
			tok, line = line, ""
		}
		eq := strings.IndexByte(tok, '=')
		if eq < 0 {
			continue
		}
		key := strings.TrimSpace(tok[:eq])
		if key == "" {
			continue
		}
		if !fn(key, strings.TrimSpace(tok[eq+1:])) {
			return
		}
	}
}

// ParsePairs collects every pair of a line.
func ParsePairs(line string) []Pair {
	var pairs []Pair
	EachPair(line, func(k, v string) bool {
		pairs = append(pairs, Pair{Key: k, Value: v})
		return true
	})
	return pairs
}

// MessageText returns the text of a message line and whether line is one.
// The text is taken verbatim; it may itself contain commas or '='.
func MessageText(line string) (string, bool) {
	prefix := KeyMessage + "="
	if !strings.HasPrefix(line, prefix) {
		return "", false
	}
	return strings.TrimRight(line[len(prefix):], "\r\n"), true
}
