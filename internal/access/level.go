package access

import "strings"

// Level is a channel privilege. Levels are ordered so that comparisons like
// lvl >= HalfOp mean "half-op or better".
type Level int

const (
	None Level = iota
	Voice
	HalfOp
	Op
	Admin
	Owner
)

func (l Level) String() string {
	switch l {
	case Voice:
		return "voice"
	case HalfOp:
		return "halfop"
	case Op:
		return "op"
	case Admin:
		return "admin"
	case Owner:
		return "owner"
	}
	return "none"
}

// FromMode maps a channel mode letter to a level.
func FromMode(mode rune) (Level, bool) {
	switch mode {
	case 'v':
		return Voice, true
	case 'h':
		return HalfOp, true
	case 'o':
		return Op, true
	case 'a':
		return Admin, true
	case 'q':
		return Owner, true
	}
	return None, false
}

// DefaultPrefix is used when the server does not advertise PREFIX.
const DefaultPrefix = "(qaohv)~&@%+"

// Prefixes maps the PREFIX ISUPPORT token to mode letters and symbols.
type Prefixes struct {
	modes   string
	symbols string
}

// ParsePrefixes parses a PREFIX value such as "(ohv)@%+". An unparseable
// value falls back to DefaultPrefix.
func ParsePrefixes(isupport string) Prefixes {
	if p, ok := parsePrefixes(isupport); ok {
		return p
	}
	p, _ := parsePrefixes(DefaultPrefix)
	return p
}

func parsePrefixes(s string) (Prefixes, bool) {
	if !strings.HasPrefix(s, "(") {
		return Prefixes{}, false
	}
	end := strings.IndexByte(s, ')')
	if end < 0 {
		return Prefixes{}, false
	}
	modes, symbols := s[1:end], s[end+1:]
	if len(modes) != len(symbols) || len(modes) == 0 {
		return Prefixes{}, false
	}
	return Prefixes{modes: modes, symbols: symbols}, true
}

// IsMode reports whether mode is a prefix mode (takes a nick argument).
func (p Prefixes) IsMode(mode rune) bool {
	return strings.ContainsRune(p.modes, mode)
}

// ModeForSymbol returns the mode letter for a prefix symbol like '@'.
func (p Prefixes) ModeForSymbol(sym rune) (rune, bool) {
	i := strings.IndexRune(p.symbols, sym)
	if i < 0 {
		return 0, false
	}
	return rune(p.modes[i]), true
}

// Split strips all leading prefix symbols from a NAMES entry and returns the
// bare nick with the mode letters it carried.
func (p Prefixes) Split(entry string) (nick string, modes []rune) {
	i := 0
	for i < len(entry) {
		m, ok := p.ModeForSymbol(rune(entry[i]))
		if !ok {
			break
		}
		modes = append(modes, m)
		i++
	}
	return entry[i:], modes
}

// Highest returns the highest level among the given mode letters.
func Highest(modes []rune) Level {
	lvl := None
	for _, m := range modes {
		if l, ok := FromMode(m); ok && l > lvl {
			lvl = l
		}
	}
	return lvl
}
