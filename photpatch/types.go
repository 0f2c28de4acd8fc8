// Package photpatch defines the data model consumed and produced by
// the photkernel evaluator: the read-only Patch (pixels, astrometry,
// PSF mixtures) and Proposal (active source parameters), the
// preparation-stage scratch records, and the Response the kernel
// writes back. Types here carry no behavior beyond layout and
// (de)serialization; all arithmetic lives in photkernel.
package photpatch

import "github.com/forcepho-go/kernel/internal/linalg"

// Source is one active galaxy: the seven sky parameters the gradient
// is taken with respect to, plus precomputed Sersic-mixture
// coefficients. Field order matches the flat Proposal layout in §6.
type Source struct {
	RA, Dec float32
	Q, PA   float32
	SersicN float32
	Rh      float32

	Fluxes [MaxBands]float32

	MixtureAmplitudes  [MaxRadii]float32
	DAmplitudeDNSersic [MaxRadii]float32
	DAmplitudeDRh      [MaxRadii]float32
}

// PSFSourceGaussian is one component of a per-exposure Gaussian-mixture
// PSF, in pixel coordinates, paired with a Sersic radial bin.
type PSFSourceGaussian struct {
	Amp        float32
	XCen, YCen float32
	Cxx, Cyy, Cxy float32

	// SersicRadiusBin indexes Patch.Rad2 and the per-source
	// MixtureAmplitudes/DAmplitudeD* arrays.
	SersicRadiusBin int32
}

// ImageGaussian is the compact, fully convolved image-plane Gaussian
// produced by CreateImageGaussians: one per (source, PSF component)
// pair, 21 floats, six Gaussian parameters plus fifteen Jacobian
// entries to the seven sky parameters.
type ImageGaussian struct {
	Amp        float32
	XCen, YCen float32
	Fxx, Fyy, Fxy float32

	DADFlux float32

	DXDAlpha, DYDAlpha float32
	DXDDelta, DYDDelta float32

	DADQ, DFxxDQ, DFyyDQ, DFxyDQ float32
	DADPA, DFxxDPA, DFyyDPA, DFxyDPA float32

	DADSersic float32
	DADRh     float32
}

// PixGaussian groups the per-(source, PSF-component) preparation
// intermediates. CreateImageGaussians keeps these values in local
// variables and does not use this type.
type PixGaussian struct {
	Covar    float32
	ScovarIm linalg.Mat2

	XCen, YCen float32
	Flux       float32
	Gain       float32

	Amp      float32
	DAmpDN   float32
	DAmpDRh  float32

	CW linalg.Mat2

	T     linalg.Mat2
	DTDQ  linalg.Mat2
	DTDPA linalg.Mat2
}

// Patch is the read-only description of one astronomical cutout: all
// pixels, astrometry, and PSF mixtures needed to evaluate every band
// and exposure relevant to a small region of sky.
//
// Patch.NSources is fixed equal to len(Proposal) for the Patch's
// lifetime: D and CW are addressed [exposure][source] with exactly one
// entry per active source, so a Proposal evaluated against a Patch must
// have the same length the Patch was built for.
type Patch struct {
	NBands, NSources, NRadii int

	// Per-band index ranges into the exposure arrays below, and the
	// number of PSF components used per source for that band.
	BandStart      []int32
	BandN          []int32
	NPSFPerSource  []int32

	// Per-exposure index ranges into the flat pixel arrays below, the
	// offset into PSFGauss, and photometric/astrometric parameters.
	ExposureStart []int32
	ExposureN     []int32
	PSFGaussStart []int32
	Gain          []float32
	CRPix         [][2]float32
	CRVal         [][2]float32

	// D and CW are indexed [exposure][source]: the pixel-scale matrix
	// and the world-coordinate Jacobian for that (exposure, source)
	// pair.
	D  [][]linalg.Mat2
	CW [][]linalg.Mat2

	// Flat pixel arrays, concatenated across exposures in
	// ExposureStart/ExposureN order.
	XPix, YPix []float32
	Data, IErr []float32

	// Rad2 holds the squared Sersic-mixture radii, global to the patch.
	Rad2 []float32

	// PSFGauss is the flat list of PSF mixture components, sliced per
	// exposure via PSFGaussStart and per band via NPSFPerSource.
	PSFGauss []PSFSourceGaussian

	// Residual is scratch that EvaluateProposal fills with each pixel's
	// ComputeResidualImage result, one entry per pixel, indexed
	// identically to XPix/YPix/Data/IErr.
	Residual []float32
}

// NumPixels returns the total number of pixels across all exposures.
func (p *Patch) NumPixels() int {
	return len(p.XPix)
}

// ExposuresForBand returns the half-open exposure index range [start,
// end) belonging to band b.
func (p *Patch) ExposuresForBand(b int) (start, end int) {
	start = int(p.BandStart[b])
	end = start + int(p.BandN[b])
	return
}

// PixelsForExposure returns the half-open pixel index range [start,
// end) belonging to exposure e.
func (p *Patch) PixelsForExposure(e int) (start, end int) {
	start = int(p.ExposureStart[e])
	end = start + int(p.ExposureN[e])
	return
}

// PSFGaussForExposure returns the slice of PSF components used by
// exposure e for the given band: n_psf_per_source[band] entries,
// shared across every source in that exposure (the PSF mixture is a
// property of the exposure, not of any individual source).
func (p *Patch) PSFGaussForExposure(e, band int) []PSFSourceGaussian {
	start := int(p.PSFGaussStart[e])
	n := int(p.NPSFPerSource[band])
	return p.PSFGauss[start : start+n]
}

// Response is the per-band output: the chi-square goodness of fit and
// the gradient of chi-square with respect to every active source
// parameter, laid out [source][param] with param order (flux, ra,
// dec, q, pa, sersic_n, rh).
type Response struct {
	Chi2        float32
	DChi2DParam []float32
}

// NewResponse allocates a Response sized for nActive sources.
func NewResponse(nActive int) Response {
	return Response{DChi2DParam: make([]float32, nActive*NParams)}
}
