package render

import (
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// HueStep is the rotation between consecutive category colors. 360/40 gives
// nine distinct hues before the rotation wraps.
const HueStep = 40

const (
	saturation = 0.70
	lightness  = 0.60
)

// Color is a category color on the hue wheel at fixed saturation and lightness.
type Color struct {
	Hue int // 0-359
}

// CSS returns the color as a CSS hsl() value.
func (c Color) CSS() string {
	return fmt.Sprintf("hsl(%d, %d%%, %d%%)", c.Hue, int(saturation*100), int(lightness*100))
}

// Drawing returns the color for go-chart slice fills.
func (c Color) Drawing() drawing.Color {
	r, g, b := hslToRGB(float64(c.Hue), saturation, lightness)
	return drawing.Color{R: r, G: g, B: b, A: 255}
}

func hslToRGB(h, s, l float64) (uint8, uint8, uint8) {
	chroma := (1 - math.Abs(2*l-1)) * s
	hp := math.Mod(h, 360) / 60
	x := chroma * (1 - math.Abs(math.Mod(hp, 2)-1))

	var r, g, b float64
	switch {
	case hp < 1:
		r, g, b = chroma, x, 0
	case hp < 2:
		r, g, b = x, chroma, 0
	case hp < 3:
		r, g, b = 0, chroma, x
	case hp < 4:
		r, g, b = 0, x, chroma
	case hp < 5:
		r, g, b = x, 0, chroma
	default:
		r, g, b = chroma, 0, x
	}
	m := l - chroma/2
	to8 := func(v float64) uint8 { return uint8(math.Round((v + m) * 255)) }
	return to8(r), to8(g), to8(b)
}
