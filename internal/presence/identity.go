package presence

import "hash/fnv"

// Visual identity derivation. The avatar glyph and color are a stable hash
// of the seed string into fixed palettes, so identical seeds always produce
// identical visual identity across reconnects.

var avatarPalette = []string{
	"🦊", "🦉", "🦡", "🐙", "🦅", "🐺", "🦎", "🐢",
	"🐝", "🦜", "🐠", "🦔", "🐸", "🦦", "🐧", "🦩",
}

var colorPalette = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8",
	"#f58231", "#911eb4", "#46f0f0", "#f032e6",
	"#bcf60c", "#fabebe", "#008080", "#e6beff",
	"#9a6324", "#fffac8", "#800000", "#aaffc3",
}

func paletteIndex(seed string, size int) int {
	h := fnv.New32a()
	h.Write([]byte(seed))
	return int(h.Sum32() % uint32(size))
}

// DeriveAvatar maps a seed string to a glyph from the fixed avatar palette.
func DeriveAvatar(seed string) string {
	return avatarPalette[paletteIndex(seed, len(avatarPalette))]
}

// DeriveColor maps a seed string to a hex color from the fixed palette.
func DeriveColor(seed string) string {
	return colorPalette[paletteIndex(seed, len(colorPalette))]
}
