// Package imaging classifies snapshot candidates. It samples a coarse
// luminance/alpha grid over an image and decides whether the capture is
// blank or low-detail, and how much visual detail it carries.
//
// The thresholds below are empirically tuned heuristics: they were
// calibrated against the site set the capture profiles target and are not
// guaranteed to generalise. They are named here so callers can reason about
// them, not because their exact values are principled.
package imaging

import "image"

const (
	// MinSamplesPerAxis sets the sampling stride so the grid keeps at
	// least this many samples per axis.
	MinSamplesPerAxis = 120

	// BlankOpaqueRatio: below this opaque-pixel ratio a capture is blank.
	BlankOpaqueRatio = 0.02

	// BlankMaxLuminance and BlankBrightRatio together catch the all-black
	// capture: nothing bright and no bright pixels to speak of.
	BlankMaxLuminance = 0.04
	BlankBrightRatio  = 0.002

	// LowDetailVarianceFloor is the minimal luminance variance a usable
	// capture shows. UniformVarianceFloor is the slightly higher bar
	// applied when the image is almost entirely bright or entirely dark.
	LowDetailVarianceFloor = 0.0008
	UniformVarianceFloor   = 0.0025

	// UniformRatio: bright or dark share above which the image counts as
	// uniform for the stricter variance bar.
	UniformRatio = 0.99

	// BrightLuminance / DarkLuminance bound the midtone band.
	BrightLuminance = 0.82
	DarkLuminance   = 0.18

	// OpaqueAlpha: normalised alpha above which a sample counts as opaque.
	OpaqueAlpha = 0.9

	// Detail score weights: variance dominates, midtone share breaks ties
	// between equally flat candidates.
	DetailVarianceWeight = 12.0
	DetailMidtoneWeight  = 1.0
)

// Stats summarises the sampled grid of an image.
type Stats struct {
	Samples      int
	OpaqueRatio  float64
	MaxLuminance float64
	BrightRatio  float64
	DarkRatio    float64
	MidtoneRatio float64
	Variance     float64
}

// Analyze samples img on a coarse grid and computes its Stats. The stride
// is chosen so at least MinSamplesPerAxis samples land on each axis.
func Analyze(img image.Image) Stats {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return Stats{}
	}

	strideX := max(1, w/MinSamplesPerAxis)
	strideY := max(1, h/MinSamplesPerAxis)

	var (
		st           Stats
		opaque       int
		bright, dark int
		sum, sumSq   float64
	)

	for y := b.Min.Y; y < b.Max.Y; y += strideY {
		for x := b.Min.X; x < b.Max.X; x += strideX {
			st.Samples++
			r, g, bl, a := img.At(x, y).RGBA()
			if float64(a)/0xffff < OpaqueAlpha {
				continue
			}
			opaque++

			lum := (0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(bl)) / 0xffff
			if lum > st.MaxLuminance {
				st.MaxLuminance = lum
			}
			switch {
			case lum >= BrightLuminance:
				bright++
			case lum <= DarkLuminance:
				dark++
			}
			sum += lum
			sumSq += lum * lum
		}
	}

	if st.Samples == 0 {
		return st
	}
	st.OpaqueRatio = float64(opaque) / float64(st.Samples)
	if opaque > 0 {
		n := float64(opaque)
		st.BrightRatio = float64(bright) / n
		st.DarkRatio = float64(dark) / n
		st.MidtoneRatio = float64(opaque-bright-dark) / n
		mean := sum / n
		st.Variance = sumSq/n - mean*mean
		if st.Variance < 0 {
			st.Variance = 0
		}
	}
	return st
}

// Blank reports whether the stats describe an empty capture: almost nothing
// opaque, or nothing but darkness.
func (s Stats) Blank() bool {
	if s.OpaqueRatio < BlankOpaqueRatio {
		return true
	}
	return s.MaxLuminance < BlankMaxLuminance && s.BrightRatio < BlankBrightRatio
}

// LowDetail reports whether the capture lacks the visual variance of a
// rendered page: transparent, flat, or uniformly bright/dark.
func (s Stats) LowDetail() bool {
	if s.OpaqueRatio < BlankOpaqueRatio {
		return true
	}
	if s.Variance < LowDetailVarianceFloor {
		return true
	}
	if s.BrightRatio > UniformRatio && s.Variance < UniformVarianceFloor {
		return true
	}
	if s.DarkRatio > UniformRatio && s.Variance < UniformVarianceFloor {
		return true
	}
	return false
}

// DetailScore ranks imperfect candidates: luminance variance weighted
// heavily plus a smaller midtone-share term.
func (s Stats) DetailScore() float64 {
	return s.Variance*DetailVarianceWeight + s.MidtoneRatio*DetailMidtoneWeight
}
