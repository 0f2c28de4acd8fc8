package photkernel

import (
	"math"

	"github.com/forcepho-go/kernel/internal/linalg"
	"github.com/forcepho-go/kernel/photpatch"
)

// CreateImageGaussians fills out with one ImageGaussian per (source,
// PSF-component) pair for the given exposure, in [source][component]
// row-major order (so len(out) must be at least
// len(proposal)*patch.NPSFPerSource[band]). It returns the number of
// entries written.
//
// The preparation is embarrassingly parallel across the
// n_sources*n_psf_per_source[band] pairs; this implementation runs it
// sequentially per exposure since it is invoked from within a single
// worker's exposure loop in EvaluateProposal, not fanned out itself.
func CreateImageGaussians(patch *photpatch.Patch, proposal []photpatch.Source, exposure, band int, out []photpatch.ImageGaussian) int {
	nPSF := int(patch.NPSFPerSource[band])
	psf := patch.PSFGaussForExposure(exposure, band)
	crpix := patch.CRPix[exposure]
	crval := patch.CRVal[exposure]

	idx := 0
	for si := range proposal {
		src := &proposal[si]
		D := patch.D[exposure][si]
		CW := patch.CW[exposure][si]

		R := linalg.Rot(src.PA)
		dR := linalg.RotDeriv(src.PA)
		S := linalg.Scale(src.Q)
		dS := linalg.ScaleDeriv(src.Q)

		T := D.Mul(R).Mul(S)
		dTdq := D.Mul(R).Mul(dS)
		dTdpa := D.Mul(dR).Mul(S)

		var skyOffset [2]float32
		skyOffset[0] = src.RA - crval[0]
		skyOffset[1] = src.Dec - crval[1]
		linalg.Av(CW, &skyOffset)

		flux := src.Fluxes[band]

		for pc := 0; pc < nPSF; pc++ {
			g := psf[pc]
			s := int(g.SersicRadiusBin)
			covar := patch.Rad2[s]

			sigmaIm := T.AAt().Scl(covar)
			sigmaPSF := linalg.New(g.Cxx, g.Cxy, g.Cxy, g.Cyy)
			sigma := sigmaIm.Add(sigmaPSF)

			F := sigma.Inv()
			detF := F.Det()
			sqrtDetF := float32(math.Sqrt(float64(detF)))

			xcen := skyOffset[0] + crpix[0] + g.XCen
			ycen := skyOffset[1] + crpix[1] + g.YCen

			aS := src.MixtureAmplitudes[s]
			amp := flux * patch.Gain[exposure] * aS * g.Amp * sqrtDetF / (2 * math.Pi)

			dSigmaDq := T.Mul(dTdq.T()).Add(dTdq.Mul(T.T())).Scl(covar)
			dSigmaDpa := T.Mul(dTdpa.T()).Add(dTdpa.Mul(T.T())).Scl(covar)

			dFdq := linalg.ABA(F, dSigmaDq).Neg()
			dFdpa := linalg.ABA(F, dSigmaDpa).Neg()

			ddetFdq := detF * sigma.Mul(dFdq).Trace()
			ddetFdpa := detF * sigma.Mul(dFdpa).Trace()

			// dA/dflux would read amp/flux, which is 0/0 at flux==0
			// since amp itself vanishes there; guard it the same way
			// a zero ierr naturally zeroes a chi2 contribution rather
			// than dividing by it.
			var dAdflux float32
			if amp != 0 {
				dAdflux = amp / flux
			}

			out[idx] = photpatch.ImageGaussian{
				Amp: amp, XCen: xcen, YCen: ycen,
				Fxx: F.V11, Fyy: F.V22, Fxy: F.V12,

				DADFlux: dAdflux,

				DXDAlpha: CW.V11, DYDAlpha: CW.V21,
				DXDDelta: CW.V12, DYDDelta: CW.V22,

				DADQ: amp * ddetFdq / (2 * detF), DFxxDQ: dFdq.V11, DFyyDQ: dFdq.V22, DFxyDQ: dFdq.V12,
				DADPA: amp * ddetFdpa / (2 * detF), DFxxDPA: dFdpa.V11, DFyyDPA: dFdpa.V22, DFxyDPA: dFdpa.V12,

				DADSersic: amp * (src.DAmplitudeDNSersic[s] / aS),
				DADRh:     amp * (src.DAmplitudeDRh[s] / aS),
			}
			idx++
		}
	}
	return idx
}
