package photkernel

import (
	"github.com/forcepho-go/kernel/internal/linalg"
	"github.com/forcepho-go/kernel/photpatch"
)

// singleGaussianPatch builds a one-band, one-exposure patch on an nxn
// grid of unit-spaced pixels centered at (cx, cy), with an isotropic
// unit-covariance PSF component (a delta-like PSF: the whole profile
// shape comes from the source's own Sersic-mixture covariance) and
// identity astrometry, so the model reduces to a single 2D Gaussian
// per source that test cases can reason about directly.
func singleGaussianPatch(n int, cx, cy float32, nSources int) *photpatch.Patch {
	pixCount := n * n
	xpix := make([]float32, pixCount)
	ypix := make([]float32, pixCount)
	i := 0
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			xpix[i] = float32(x)
			ypix[i] = float32(y)
			i++
		}
	}

	p := &photpatch.Patch{
		NBands: 1, NSources: nSources, NRadii: 1,
		BandStart:     []int32{0},
		BandN:         []int32{1},
		NPSFPerSource: []int32{1},
		ExposureStart: []int32{0},
		ExposureN:     []int32{int32(pixCount)},
		PSFGaussStart: []int32{0},
		Gain:          []float32{1},
		CRPix:         [][2]float32{{cx, cy}},
		CRVal:         [][2]float32{{0, 0}},
		XPix:          xpix,
		YPix:          ypix,
		Data:          make([]float32, pixCount),
		IErr:          onesFloat32(pixCount),
		Residual:      make([]float32, pixCount),
		Rad2:          []float32{1},
	}

	p.D = [][]linalg.Mat2{make([]linalg.Mat2, nSources)}
	p.CW = [][]linalg.Mat2{make([]linalg.Mat2, nSources)}
	for s := 0; s < nSources; s++ {
		p.D[0][s] = linalg.Identity()
		p.CW[0][s] = linalg.Identity()
	}
	// One PSF component, shared by every source in this exposure.
	p.PSFGauss = []photpatch.PSFSourceGaussian{{Amp: 1, Cxx: 1, Cyy: 1, SersicRadiusBin: 0}}
	return p
}

func onesFloat32(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

func testSource(flux float32) photpatch.Source {
	s := photpatch.Source{Q: 1, PA: 0, SersicN: 1, Rh: 1}
	s.Fluxes[0] = flux
	s.MixtureAmplitudes[0] = 1
	return s
}
