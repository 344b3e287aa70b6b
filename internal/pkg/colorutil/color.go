// Package colorutil converts sRGB colors to CIELAB and measures perceptual
// color difference with the CIE94 formula.
package colorutil

import (
	"math"
	"regexp"
	"strconv"
)

// RGB is an 8-bit sRGB triple.
type RGB [3]int

// Lab is a CIELAB triple (L, a, b).
type Lab [3]float64

// D65 reference white.
const (
	refX = 95.047
	refY = 100.0
	refZ = 108.883
)

// CIE94 graphic-arts weighting.
const (
	weightL = 1.0
	weightC = 1.0
	weightH = 1.0
)

var hexPattern = regexp.MustCompile(`(?i)^#?([a-f\d]{2})([a-f\d]{2})([a-f\d]{2})$`)

// HexToRGB decodes "#RRGGBB" (leading '#' optional, any case).
// ok is false for any other shape.
func HexToRGB(hex string) (rgb RGB, ok bool) {
	m := hexPattern.FindStringSubmatch(hex)
	if m == nil {
		return RGB{}, false
	}
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseUint(m[i+1], 16, 8)
		if err != nil {
			return RGB{}, false
		}
		rgb[i] = int(v)
	}
	return rgb, true
}

// RGBToCIELab converts an sRGB color to CIELAB under D65.
func RGBToCIELab(r, g, b int) Lab {
	x, y, z := rgbToXYZ(r, g, b)
	return xyzToCIELab(x, y, z)
}

// Lab returns the CIELAB form of the color.
func (c RGB) Lab() Lab {
	return RGBToCIELab(c[0], c[1], c[2])
}

func linearize(c float64) float64 {
	if c > 0.04045 {
		return math.Pow((c+0.055)/1.055, 2.4)
	}
	return c / 12.92
}

func rgbToXYZ(r, g, b int) (x, y, z float64) {
	rl := linearize(float64(r)/255) * 100
	gl := linearize(float64(g)/255) * 100
	bl := linearize(float64(b)/255) * 100

	x = rl*0.4124 + gl*0.3576 + bl*0.1805
	y = rl*0.2126 + gl*0.7152 + bl*0.0722
	z = rl*0.0193 + gl*0.1192 + bl*0.9505
	return x, y, z
}

func labF(t float64) float64 {
	if t > 0.008856 {
		return math.Cbrt(t)
	}
	return 7.787*t + 16.0/116.0
}

func xyzToCIELab(x, y, z float64) Lab {
	fx := labF(x / refX)
	fy := labF(y / refY)
	fz := labF(z / refZ)

	return Lab{
		116*fy - 16,
		500 * (fx - fy),
		200 * (fy - fz),
	}
}

// DeltaE94 returns the CIE94 difference between two Lab colors.
//
// The chroma weighting is taken from the first argument only, so the result is
// not symmetric; callers that rank by it anchor on a fixed first color.
func DeltaE94(lab1, lab2 Lab) float64 {
	l1, a1, b1 := lab1[0], lab1[1], lab1[2]
	l2, a2, b2 := lab2[0], lab2[1], lab2[2]

	dL := l1 - l2
	da := a1 - a2
	db := b1 - b2

	c1 := math.Sqrt(a1*a1 + b1*b1)
	c2 := math.Sqrt(a2*a2 + b2*b2)

	xDL := l2 - l1
	xDC := c2 - c1
	xDE := math.Sqrt(dL*dL + da*da + db*db)

	// Hue difference is only taken when it clearly dominates; near-identical
	// colors would otherwise hit a negative radicand.
	xDH := 0.0
	if math.Sqrt(xDE) > math.Sqrt(math.Abs(xDL))+math.Sqrt(math.Abs(xDC)) {
		xDH = math.Sqrt(math.Max(0, xDE*xDE-xDL*xDL-xDC*xDC))
	}

	sC := 1 + 0.045*c1
	sH := 1 + 0.015*c1

	xDL /= weightL
	xDC /= weightC * sC
	xDH /= weightH * sH

	return math.Sqrt(xDL*xDL + xDC*xDC + xDH*xDH)
}
