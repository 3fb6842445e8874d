package views

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/tview"
)

// clean prepares backend text for a tview cell or TextView: it drops
// codepoints tcell renders badly, replaces control characters other than
// newlines with spaces and escapes tview color tags.
func clean(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		switch {
		case r == utf8.RuneError && size == 1:
			continue
		case r == '\n':
			b.WriteRune(r)
		case unicode.IsControl(r):
			b.WriteByte(' ')
		case !isProblematicRune(r):
			b.WriteRune(r)
		}
	}
	return tview.Escape(b.String())
}

// oneLine is clean for single-line cells.
func oneLine(s string) string {
	return strings.ReplaceAll(clean(s), "\n", " ")
}

// isProblematicRune matches emoji modifiers that make tcell miscount cell
// widths, turning e.g. a thumbs up with a skin tone into a plain one.
func isProblematicRune(r rune) bool {
	switch {
	case r >= 0x1F3FB && r <= 0x1F3FF: // skin tone modifiers
		return true
	case r == 0x200D: // zero width joiner
		return true
	case r >= 0xFE00 && r <= 0xFE0F, r >= 0xE0100 && r <= 0xE01EF: // variation selectors
		return true
	default:
		return false
	}
}
