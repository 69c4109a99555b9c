package calendar

import (
	"fmt"
	"strings"
)

// Luminance returns the relative luminance of a "#rrggbb" color with sRGB
// channels normalized to [0,1]: L = 0.2126R + 0.7152G + 0.0722B.
func Luminance(hexColor string) (float64, error) {
	s := strings.TrimPrefix(hexColor, "#")
	if len(s) != 6 {
		return 0, fmt.Errorf("color %q is not #rrggbb", hexColor)
	}
	var r, g, b int
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return 0, fmt.Errorf("color %q is not #rrggbb: %w", hexColor, err)
	}
	return 0.2126*float64(r)/255 + 0.7152*float64(g)/255 + 0.0722*float64(b)/255, nil
}

// TextColorFor picks a readable foreground for the given background:
// dark text on light backgrounds (L > 0.5), light text otherwise.
// An unparseable background defaults to light text.
func TextColorFor(background string) string {
	l, err := Luminance(background)
	if err == nil && l > 0.5 {
		return "#000000"
	}
	return "#ffffff"
}
