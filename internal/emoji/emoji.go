// Package emoji expands colon-delimited shorthand tokens (":heart:") embedded
// in free text into their native display glyphs.
package emoji

import (
	"regexp"
	"strings"
)

// Catalog resolves a shorthand name to its native glyph. The glyph catalog
// itself lives outside this module; MapCatalog is the default adapter.
type Catalog interface {
	Lookup(name string) (glyph string, ok bool)
}

var shorthandPattern = regexp.MustCompile(`:[A-Za-z0-9_+-]+:`)

// Expand replaces every resolvable shorthand token in text with its glyph.
// Tokens whose name is unknown to the catalog, or that resolve to an entry
// without a native glyph, are re-wrapped verbatim. Stray single colons are
// left untouched. The input is never mutated; expansion is a pure function
// of (text, catalog snapshot) and re-applying it is a no-op.
func Expand(text string, catalog Catalog) string {
	if catalog == nil {
		return text
	}
	return shorthandPattern.ReplaceAllStringFunc(text, func(token string) string {
		name := strings.Trim(token, ":")
		if glyph, ok := catalog.Lookup(name); ok && glyph != "" {
			return glyph
		}
		return ":" + name + ":"
	})
}

// MapCatalog is a map-backed Catalog.
type MapCatalog map[string]string

func (c MapCatalog) Lookup(name string) (string, bool) {
	glyph, ok := c[name]
	return glyph, ok
}

// Builtin returns a small catalog of common shorthands, enough for running
// without a full catalog service attached.
func Builtin() MapCatalog {
	return MapCatalog{
		"heart":      "❤️",
		"smile":      "\U0001F604",
		"grin":       "\U0001F600",
		"joy":        "\U0001F602",
		"wink":       "\U0001F609",
		"thumbsup":   "\U0001F44D",
		"+1":         "\U0001F44D",
		"thumbsdown": "\U0001F44E",
		"-1":         "\U0001F44E",
		"fire":       "\U0001F525",
		"tada":       "\U0001F389",
		"rocket":     "\U0001F680",
		"eyes":       "\U0001F440",
		"cry":        "\U0001F622",
		"sob":        "\U0001F62D",
		"point_up":   "☝️",
		"clap":       "\U0001F44F",
		"wave":       "\U0001F44B",
		"pray":       "\U0001F64F",
		"thinking":   "\U0001F914",
		"check":      "✅",
		"x":          "❌",
		"star":       "⭐",
		"coffee":     "☕",
		"sunglasses": "\U0001F60E",
		"facepalm":   "\U0001F926",
		"shrug":      "\U0001F937",
		"wave_hand":  "\U0001F44B",
		"hundred":    "\U0001F4AF",
		"partying":   "\U0001F973",
	}
}
