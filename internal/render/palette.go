package render

// NumTokens is the number of color bands of a heat map, 0 (no events) to 6 (at or above the scale maximum).
const NumTokens = 7

// Palette is a 7-step ramp of xterm 256-color indexes, one per token.
type Palette struct {
	Name   string
	Colors [NumTokens]int
}

var (
	// BluePalette goes from white to deep blue and is used for frequency.
	BluePalette = Palette{Name: "blue", Colors: [NumTokens]int{15, 51, 45, 39, 33, 27, 21}}
	// RedPalette goes from white through yellow to red and is used for intensity.
	RedPalette = Palette{Name: "red", Colors: [NumTokens]int{15, 226, 220, 214, 208, 202, 196}}
)

// Token maps a value onto a color band given the scale maximum.
// Zero and negative values (a counter reset upstream) map to 0.
func Token(value, maxVal float64) int {
	switch {
	case value <= 0:
		return 0
	case value >= maxVal:
		return NumTokens - 1
	}
	return int(value*float64(NumTokens-1)/maxVal) + 1
}
