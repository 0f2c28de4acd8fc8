package photkernel

import (
	"math"
	"testing"

	"github.com/forcepho-go/kernel/photpatch"
	"gonum.org/v1/gonum/floats/scalar"
)

func TestCreateImageGaussiansIdentityGeometry(t *testing.T) {
	t.Parallel()
	patch := singleGaussianPatch(5, 2, 2, 1)
	proposal := []photpatch.Source{testSource(10)}

	out := make([]photpatch.ImageGaussian, 1)
	n := CreateImageGaussians(patch, proposal, 0, 0, out)
	if n != 1 {
		t.Fatalf("CreateImageGaussians wrote %d entries, want 1", n)
	}

	g := out[0]
	if !scalar.EqualWithinAbs(float64(g.XCen), 2, 1e-6) || !scalar.EqualWithinAbs(float64(g.YCen), 2, 1e-6) {
		t.Fatalf("center = (%f, %f), want (2, 2)", g.XCen, g.YCen)
	}

	// sigma = rad2[0]*I + PSFcovar(I) = 2I, so F = 0.5I, detF = 0.25.
	if !scalar.EqualWithinAbs(float64(g.Fxx), 0.5, 1e-6) || !scalar.EqualWithinAbs(float64(g.Fyy), 0.5, 1e-6) {
		t.Fatalf("F diagonal = (%f, %f), want (0.5, 0.5)", g.Fxx, g.Fyy)
	}
	if !scalar.EqualWithinAbs(float64(g.Fxy), 0, 1e-6) {
		t.Fatalf("Fxy = %f, want 0", g.Fxy)
	}

	wantAmp := 10.0 * math.Sqrt(0.25) / (2 * math.Pi)
	if !scalar.EqualWithinRel(float64(g.Amp), wantAmp, 1e-5) {
		t.Fatalf("Amp = %f, want %f", g.Amp, wantAmp)
	}
}

func TestCreateImageGaussiansZeroFluxZeroesDADFlux(t *testing.T) {
	t.Parallel()
	patch := singleGaussianPatch(5, 2, 2, 1)
	proposal := []photpatch.Source{testSource(0)}

	out := make([]photpatch.ImageGaussian, 1)
	CreateImageGaussians(patch, proposal, 0, 0, out)

	if out[0].Amp != 0 {
		t.Fatalf("Amp = %f, want 0 for zero-flux source", out[0].Amp)
	}
	if out[0].DADFlux != 0 {
		t.Fatalf("DADFlux = %f, want 0 for zero-flux source (avoids 0/0)", out[0].DADFlux)
	}
}

func TestCreateImageGaussiansTwoSourcesIndependentOffsets(t *testing.T) {
	t.Parallel()
	patch := singleGaussianPatch(11, 5, 5, 2)
	proposal := []photpatch.Source{testSource(1), testSource(1)}
	proposal[1].RA = 3
	proposal[1].Dec = -2

	out := make([]photpatch.ImageGaussian, 2)
	CreateImageGaussians(patch, proposal, 0, 0, out)

	if !scalar.EqualWithinAbs(float64(out[0].XCen), 5, 1e-6) {
		t.Fatalf("source 0 XCen = %f, want 5", out[0].XCen)
	}
	if !scalar.EqualWithinAbs(float64(out[1].XCen), 8, 1e-6) || !scalar.EqualWithinAbs(float64(out[1].YCen), 3, 1e-6) {
		t.Fatalf("source 1 center = (%f, %f), want (8, 3)", out[1].XCen, out[1].YCen)
	}
}
