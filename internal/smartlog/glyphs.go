// Package smartlog renders the commit graph as styled terminal lines.
package smartlog

import "github.com/untoldecay/Branchless/internal/ui"

// Glyphs is the character set used to draw the graph. Exactly one
// cursor glyph exists for each combination of (main, visible, head).
type Glyphs struct {
	Line             string
	LineWithOffshoot string
	Slash            string
	VerticalEllipsis string

	CommitVisible        string
	CommitVisibleHead    string
	CommitHidden         string
	CommitHiddenHead     string
	CommitMain           string
	CommitMainHead       string
	CommitMainHidden     string
	CommitMainHiddenHead string
}

// ASCIIGlyphs is the portable glyph set.
func ASCIIGlyphs() Glyphs {
	return Glyphs{
		Line:             "|",
		LineWithOffshoot: "|",
		Slash:            "\\",
		VerticalEllipsis: ":",

		CommitVisible:        "o",
		CommitVisibleHead:    "@",
		CommitHidden:         "x",
		CommitHiddenHead:     "%",
		CommitMain:           "O",
		CommitMainHead:       "@",
		CommitMainHidden:     "X",
		CommitMainHiddenHead: "%",
	}
}

// UnicodeGlyphs is the pretty glyph set for capable terminals.
func UnicodeGlyphs() Glyphs {
	return Glyphs{
		Line:             "┃",
		LineWithOffshoot: "┣",
		Slash:            "━┓",
		VerticalEllipsis: "⋮",

		CommitVisible:        "◯",
		CommitVisibleHead:    "●",
		CommitHidden:         "✕",
		CommitHiddenHead:     "⦻",
		CommitMain:           "◇",
		CommitMainHead:       "◆",
		CommitMainHidden:     "✕",
		CommitMainHiddenHead: "⦻",
	}
}

// DetectGlyphs picks the glyph set for the current terminal. asciiOnly
// forces the portable set regardless of terminal capabilities.
func DetectGlyphs(asciiOnly bool) Glyphs {
	if asciiOnly || !ui.ShouldUseUnicode() {
		return ASCIIGlyphs()
	}
	return UnicodeGlyphs()
}

// CursorGlyph returns the cursor glyph for a commit's state. It is a
// pure function of the three flags.
func (g Glyphs) CursorGlyph(isMain, isVisible, isHead bool) string {
	switch {
	case isMain && isVisible && isHead:
		return g.CommitMainHead
	case isMain && isVisible:
		return g.CommitMain
	case isMain && isHead:
		return g.CommitMainHiddenHead
	case isMain:
		return g.CommitMainHidden
	case isVisible && isHead:
		return g.CommitVisibleHead
	case isVisible:
		return g.CommitVisible
	case isHead:
		return g.CommitHiddenHead
	default:
		return g.CommitHidden
	}
}
