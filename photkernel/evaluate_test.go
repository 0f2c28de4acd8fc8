package photkernel

import (
	"math"
	"testing"

	"github.com/forcepho-go/kernel/photpatch"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats/scalar"
)

// directChi2 recomputes chi-square by brute force over every pixel,
// independent of EvaluateProposal's band/worker partitioning, so tests
// can check the kernel against a trusted baseline (Property 1).
func directChi2(patch *photpatch.Patch, proposal []photpatch.Source, band int) float64 {
	nPSF := int(patch.NPSFPerSource[band])
	gaussians := make([]photpatch.ImageGaussian, len(proposal)*nPSF)

	start, end := patch.ExposuresForBand(band)
	chi2 := 0.0
	for e := start; e < end; e++ {
		CreateImageGaussians(patch, proposal, e, band, gaussians)
		pxStart, pxEnd := patch.PixelsForExposure(e)
		for p := pxStart; p < pxEnd; p++ {
			residual := ComputeResidualImage(patch.XPix[p], patch.YPix[p], patch.Data[p], gaussians)
			chi := float64(residual) * float64(patch.IErr[p])
			chi2 += chi * chi
		}
	}
	return chi2
}

func TestEvaluateProposalMatchesDirectChi2(t *testing.T) {
	t.Parallel()
	patch := singleGaussianPatch(9, 4, 4, 2)
	proposal := []photpatch.Source{testSource(5), testSource(3)}
	proposal[1].RA = 2

	for i := range patch.Data {
		patch.Data[i] = 0.01 * float32(i%7)
	}

	want := directChi2(patch, proposal, 0)

	responses := EvaluateProposal(patch, proposal, Options{Workers: 3})
	if len(responses) != 1 {
		t.Fatalf("len(responses) = %d, want 1", len(responses))
	}
	got := float64(responses[0].Chi2)

	if got < 0 {
		t.Fatalf("chi2 = %f, want >= 0", got)
	}
	if !scalar.EqualWithinRel(got, want, 1e-5) {
		t.Fatalf("EvaluateProposal chi2 = %f, direct chi2 = %f", got, want)
	}
}

func TestEvaluateProposalZeroIErrZerosEverything(t *testing.T) {
	t.Parallel()
	patch := singleGaussianPatch(7, 3, 3, 1)
	for i := range patch.IErr {
		patch.IErr[i] = 0
	}
	proposal := []photpatch.Source{testSource(7)}

	responses := EvaluateProposal(patch, proposal, Options{Workers: 2})
	if responses[0].Chi2 != 0 {
		t.Fatalf("Chi2 = %f, want 0 with ierr==0 everywhere", responses[0].Chi2)
	}
	for i, v := range responses[0].DChi2DParam {
		if v != 0 {
			t.Fatalf("DChi2DParam[%d] = %f, want 0 with ierr==0 everywhere", i, v)
		}
	}
}

func TestEvaluateProposalZeroFluxZerosGradient(t *testing.T) {
	t.Parallel()
	patch := singleGaussianPatch(7, 3, 3, 1)
	proposal := []photpatch.Source{testSource(0)}

	responses := EvaluateProposal(patch, proposal, Options{Workers: 2})
	for i, v := range responses[0].DChi2DParam {
		if v != 0 {
			t.Fatalf("DChi2DParam[%d] = %f, want 0 for a zero-flux source", i, v)
		}
	}
}

func TestEvaluateProposalModelEqualsDataZeroesChi2(t *testing.T) {
	t.Parallel()
	patch := singleGaussianPatch(9, 4, 4, 1)
	proposal := []photpatch.Source{testSource(6)}

	nPSF := int(patch.NPSFPerSource[0])
	gaussians := make([]photpatch.ImageGaussian, len(proposal)*nPSF)
	CreateImageGaussians(patch, proposal, 0, 0, gaussians)
	for p := range patch.XPix {
		// residual = data - model, so setting data = model directly
		// makes ComputeResidualImage(..., data, ...) return 0.
		zeroResidual := ComputeResidualImage(patch.XPix[p], patch.YPix[p], 0, gaussians)
		patch.Data[p] = -zeroResidual
	}

	responses := EvaluateProposal(patch, proposal, Options{Workers: 2})
	if math.Abs(float64(responses[0].Chi2)) > 1e-6 {
		t.Fatalf("Chi2 = %f, want ~0 when data == model", responses[0].Chi2)
	}
	for i, v := range responses[0].DChi2DParam {
		if math.Abs(float64(v)) > 1e-6 {
			t.Fatalf("DChi2DParam[%d] = %f, want ~0 when data == model", i, v)
		}
	}
}

func TestEvaluateProposalGradientMatchesFiniteDifference(t *testing.T) {
	t.Parallel()
	patch := singleGaussianPatch(9, 4, 4, 1)

	chi2At := func(ra float64) float64 {
		p := testSource(5)
		p.RA = float32(ra)
		responses := EvaluateProposal(patch, []photpatch.Source{p}, Options{Workers: 2})
		return float64(responses[0].Chi2)
	}

	base := testSource(5)
	base.RA = 0.3
	responses := EvaluateProposal(patch, []photpatch.Source{base}, Options{Workers: 2})
	analyticDChi2DRA := float64(responses[0].DChi2DParam[photpatch.ParamRA])

	fdDChi2DRA := fd.Derivative(chi2At, 0.3, &fd.Settings{
		Formula: fd.Central,
		Step:    1e-3,
	})

	if !scalar.EqualWithinAbs(analyticDChi2DRA, fdDChi2DRA, 1e-2) {
		t.Fatalf("analytic dChi2/dRA = %f, finite-difference estimate = %f", analyticDChi2DRA, fdDChi2DRA)
	}
}

func TestEvaluateProposalGradientMatchesFiniteDifferenceFlux(t *testing.T) {
	t.Parallel()
	patch := singleGaussianPatch(9, 4, 4, 1)
	for i := range patch.Data {
		patch.Data[i] = 0.3 * float32(math.Mod(float64(i), 5))
	}

	chi2At := func(flux float64) float64 {
		p := testSource(float32(flux))
		responses := EvaluateProposal(patch, []photpatch.Source{p}, Options{Workers: 2})
		return float64(responses[0].Chi2)
	}

	base := testSource(5)
	responses := EvaluateProposal(patch, []photpatch.Source{base}, Options{Workers: 2})
	analytic := float64(responses[0].DChi2DParam[photpatch.ParamFlux])

	estimate := fd.Derivative(chi2At, 5, &fd.Settings{
		Formula: fd.Central,
		Step:    1e-3,
	})

	if !scalar.EqualWithinAbs(analytic, estimate, 5e-2) {
		t.Fatalf("analytic dChi2/dFlux = %f, finite-difference estimate = %f", analytic, estimate)
	}
}

func TestEvaluateProposalDuplicatedExposureDoublesChi2(t *testing.T) {
	t.Parallel()
	patch := singleGaussianPatch(7, 3, 3, 1)
	// Duplicate the single exposure into two equal-contribution
	// exposures sharing the same pixel data and astrometry.
	patch.ExposureStart = []int32{0, int32(len(patch.XPix))}
	patch.ExposureN = []int32{int32(len(patch.XPix)), int32(len(patch.XPix))}
	patch.PSFGaussStart = []int32{0, 0}
	patch.BandN = []int32{2}
	patch.Gain = append(patch.Gain, patch.Gain[0])
	patch.CRPix = append(patch.CRPix, patch.CRPix[0])
	patch.CRVal = append(patch.CRVal, patch.CRVal[0])
	patch.D = append(patch.D, patch.D[0])
	patch.CW = append(patch.CW, patch.CW[0])

	patch.XPix = append(append([]float32{}, patch.XPix...), patch.XPix...)
	patch.YPix = append(append([]float32{}, patch.YPix...), patch.YPix...)
	patch.Data = append(append([]float32{}, patch.Data...), patch.Data...)
	patch.IErr = append(append([]float32{}, patch.IErr...), patch.IErr...)
	patch.Residual = make([]float32, len(patch.XPix))

	proposal := []photpatch.Source{testSource(4)}
	responses := EvaluateProposal(patch, proposal, Options{Workers: 2})

	expectedScale := 2.0 // same geometry duplicated, so chi2 doubles
	base := singleGaussianPatch(7, 3, 3, 1)
	baseResp := EvaluateProposal(base, proposal, Options{Workers: 2})

	if !scalar.EqualWithinRel(float64(responses[0].Chi2), expectedScale*float64(baseResp[0].Chi2), 5e-6) {
		t.Fatalf("duplicated-exposure chi2 = %f, want %f", responses[0].Chi2, expectedScale*float64(baseResp[0].Chi2))
	}
}
