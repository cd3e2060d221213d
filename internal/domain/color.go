package domain

import (
	"fmt"
	"math"
)

const (
	painColorMild   = "#90EE90"
	painColorSevere = "#DC143C"
)

// PainColor maps a pain scale to a display color. Values below 1 and from 10
// up are clamped to fixed hex colors; everything in between is interpolated
// green -> yellow-orange (1..5) and yellow-orange -> red (5..10).
func PainColor(scale float64) string {
	if scale < 1 {
		return painColorMild
	}
	if scale >= 10 {
		return painColorSevere
	}

	// The float64 conversions keep each product rounded on its own so the
	// compiler cannot fuse it into the following add.
	if scale <= 5 {
		ratio := (scale - 1) / 4
		r := round(144 + float64((255-144)*ratio))
		g := round(238 + float64((215-238)*ratio))
		b := round(float64(144 * (1 - ratio)))
		return rgb(r, g, b)
	}

	ratio := (scale - 5) / 5
	r := round(255 - float64(float64((255-220)*ratio)*0.2))
	g := round(float64(215 * (1 - ratio)))
	b := round(float64(60 * (1 - ratio)))
	return rgb(r, g, b)
}

// round rounds half up, toward +Inf.
func round(v float64) int {
	return int(math.Floor(v + 0.5))
}

func rgb(r, g, b int) string {
	return fmt.Sprintf("rgb(%d, %d, %d)", r, g, b)
}
