// internal/morse/table.go
package morse

// Unknown is returned for a pattern with no table entry.
const Unknown = '#'

// Entry pairs a character with its keyed pattern.
type Entry struct {
	Char    rune
	Pattern Pattern
}

// table holds the 26 letters and 10 digits in display order.
// Trailing zeros are padding, not part of the code.
var table = [...]Entry{
	{'A', Pattern{1, 2, 0, 0, 0, 0}},
	{'B', Pattern{2, 1, 1, 1, 0, 0}},
	{'C', Pattern{2, 1, 2, 1, 0, 0}},
	{'D', Pattern{2, 1, 1, 0, 0, 0}},
	{'E', Pattern{1, 0, 0, 0, 0, 0}},
	{'F', Pattern{1, 1, 2, 1, 0, 0}},
	{'G', Pattern{2, 2, 1, 0, 0, 0}},
	{'H', Pattern{1, 1, 1, 1, 0, 0}},
	{'I', Pattern{1, 1, 0, 0, 0, 0}},
	{'J', Pattern{1, 2, 2, 2, 0, 0}},
	{'K', Pattern{2, 1, 2, 0, 0, 0}},
	{'L', Pattern{1, 2, 1, 1, 0, 0}},
	{'M', Pattern{2, 2, 0, 0, 0, 0}},
	{'N', Pattern{2, 1, 0, 0, 0, 0}},
	{'O', Pattern{2, 2, 2, 0, 0, 0}},
	{'P', Pattern{1, 2, 2, 1, 0, 0}},
	{'Q', Pattern{2, 2, 1, 2, 0, 0}},
	{'R', Pattern{1, 2, 1, 0, 0, 0}},
	{'S', Pattern{1, 1, 1, 0, 0, 0}},
	{'T', Pattern{2, 0, 0, 0, 0, 0}},
	{'U', Pattern{1, 1, 2, 0, 0, 0}},
	{'V', Pattern{1, 1, 1, 2, 0, 0}},
	{'W', Pattern{1, 2, 2, 0, 0, 0}},
	{'X', Pattern{2, 1, 1, 2, 0, 0}},
	{'Y', Pattern{2, 1, 2, 2, 0, 0}},
	{'Z', Pattern{2, 2, 1, 1, 0, 0}},

	{'0', Pattern{2, 2, 2, 2, 2, 0}},
	{'1', Pattern{1, 2, 2, 2, 2, 0}},
	{'2', Pattern{1, 1, 2, 2, 2, 0}},
	{'3', Pattern{1, 1, 1, 2, 2, 0}},
	{'4', Pattern{1, 1, 1, 1, 2, 0}},
	{'5', Pattern{1, 1, 1, 1, 1, 0}},
	{'6', Pattern{2, 1, 1, 1, 1, 0}},
	{'7', Pattern{2, 2, 1, 1, 1, 0}},
	{'8', Pattern{2, 2, 2, 1, 1, 0}},
	{'9', Pattern{2, 2, 2, 2, 1, 0}},
}

var (
	byPattern = make(map[Pattern]rune, len(table))
	byChar    = make(map[rune]Pattern, len(table))
)

func init() {
	for _, e := range table {
		byPattern[e.Pattern] = e.Char
		byChar[e.Char] = e.Pattern
	}
}

// Lookup resolves an exact pattern to its character, or Unknown.
func Lookup(p Pattern) rune {
	if r, ok := byPattern[p]; ok {
		return r
	}
	return Unknown
}

// Encode returns the pattern for an upper-case letter or digit.
func Encode(r rune) (Pattern, bool) {
	p, ok := byChar[r]
	return p, ok
}

// Table returns a copy of every entry in display order.
func Table() []Entry {
	out := make([]Entry, len(table))
	copy(out, table[:])
	return out
}
