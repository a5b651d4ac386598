package imaging

import (
	"image"
	"image/color"
	"math/rand"
	"testing"
)

func uniformImage(c color.Color, w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func noisyImage(w, h int) image.Image {
	rng := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(rng.Intn(256))
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestAnalyze_TransparentIsBlank(t *testing.T) {
	st := Analyze(uniformImage(color.RGBA{}, 400, 300))
	if !st.Blank() {
		t.Errorf("transparent image: Blank() = false, want true (opaque ratio %.3f)", st.OpaqueRatio)
	}
	if !st.LowDetail() {
		t.Error("transparent image: LowDetail() = false, want true")
	}
}

func TestAnalyze_BlackIsBlank(t *testing.T) {
	st := Analyze(uniformImage(color.RGBA{A: 255}, 400, 300))
	if !st.Blank() {
		t.Errorf("black image: Blank() = false, want true (maxLum %.3f bright %.4f)",
			st.MaxLuminance, st.BrightRatio)
	}
}

func TestAnalyze_WhiteIsLowDetailNotBlank(t *testing.T) {
	st := Analyze(uniformImage(color.White, 400, 300))
	if st.Blank() {
		t.Error("white image: Blank() = true, want false")
	}
	if !st.LowDetail() {
		t.Errorf("white image: LowDetail() = false, want true (variance %.6f)", st.Variance)
	}
}

func TestAnalyze_NoisyPassesBoth(t *testing.T) {
	st := Analyze(noisyImage(400, 300))
	if st.Blank() {
		t.Error("noisy image: Blank() = true, want false")
	}
	if st.LowDetail() {
		t.Errorf("noisy image: LowDetail() = true, want false (variance %.6f)", st.Variance)
	}
}

func TestDetailScore_Ordering(t *testing.T) {
	flat := Analyze(uniformImage(color.White, 400, 300))
	noisy := Analyze(noisyImage(400, 300))
	if noisy.DetailScore() <= flat.DetailScore() {
		t.Errorf("detail score: noisy %.4f <= flat %.4f", noisy.DetailScore(), flat.DetailScore())
	}
}

func TestAnalyze_SampleGridDensity(t *testing.T) {
	st := Analyze(noisyImage(1920, 1080))
	// stride 1920/120=16, 1080/120=9 → at least 120 samples per axis.
	if st.Samples < MinSamplesPerAxis*MinSamplesPerAxis {
		t.Errorf("samples: got %d, want >= %d", st.Samples, MinSamplesPerAxis*MinSamplesPerAxis)
	}
}

func TestFitInto_PreservesAspect(t *testing.T) {
	// A 500x500 white source into 1920x1080 leaves white bars at the
	// sides but the canvas is exactly the viewport.
	out := FitInto(uniformImage(color.RGBA{R: 10, G: 10, B: 10, A: 255}, 500, 500), 1920, 1080)
	b := out.Bounds()
	if b.Dx() != 1920 || b.Dy() != 1080 {
		t.Fatalf("bounds: got %dx%d, want 1920x1080", b.Dx(), b.Dy())
	}
	// Centre pixel comes from the dark source, corner from the white fill.
	_, _, _, ca := out.At(960, 540).RGBA()
	if ca == 0 {
		t.Error("centre pixel transparent, want opaque")
	}
	r, g, bl, _ := out.At(5, 540).RGBA()
	if r < 0xf000 || g < 0xf000 || bl < 0xf000 {
		t.Error("left margin not white fill")
	}
	r, _, _, _ = out.At(960, 540).RGBA()
	if r > 0x2000 {
		t.Errorf("centre pixel not from source: r=%#x", r)
	}
}
