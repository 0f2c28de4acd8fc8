package photkernel

import "github.com/forcepho-go/kernel/photpatch"

// ComputeGaussianDerivative accumulates r * dmodel/dp for one galaxy at
// pixel (xp, yp) into out, which must have length photpatch.NParams and
// be zeroed by the caller before the call. gs is the set of
// ImageGaussians belonging to a single source (one per PSF component);
// r is the pre-scaled residual residual*ierr^2 the caller computed once
// for this pixel, so out receives -0.5 times this pixel's contribution
// to dchi2/dp (EvaluateProposal applies the factor -2).
func ComputeGaussianDerivative(xp, yp, r float32, gs []photpatch.ImageGaussian, out []float32) {
	for i := range gs {
		g := &gs[i]
		t := evalPixelTerms(g, xp, yp)
		if t.skip {
			continue
		}

		c := r * g.Amp * t.gp * t.h

		// dC/dA = C/amp algebraically, but computed here as r*Gp*H
		// directly so it stays well-defined (and, paired with
		// ImageGaussian.DADFlux's own zero guard, exactly zero) when
		// amp is exactly zero.
		dCdA := r * t.gp * t.h
		dCdx := c*t.vx - (c/t.h)*(g.Fxx*t.vx+g.Fxy*t.vy)/12
		dCdy := c*t.vy - (c/t.h)*(g.Fyy*t.vy+g.Fxy*t.vx)/12
		dCdfxx := -0.5*c*t.dx*t.dx - (c/t.h)*(1-2*t.dx*t.vx)/24
		dCdfyy := -0.5*c*t.dy*t.dy - (c/t.h)*(1-2*t.dy*t.vy)/24
		dCdfxy := -c*t.dx*t.dy + (c/t.h)*(t.dy*t.vx+t.dx*t.vy)/12

		out[photpatch.ParamFlux] += g.DADFlux * dCdA
		out[photpatch.ParamRA] += g.DXDAlpha*dCdx + g.DYDAlpha*dCdy
		out[photpatch.ParamDec] += g.DXDDelta*dCdx + g.DYDDelta*dCdy
		out[photpatch.ParamQ] += g.DADQ*dCdA + g.DFxxDQ*dCdfxx + g.DFxyDQ*dCdfxy + g.DFyyDQ*dCdfyy
		out[photpatch.ParamPA] += g.DADPA*dCdA + g.DFxxDPA*dCdfxx + g.DFxyDPA*dCdfxy + g.DFyyDPA*dCdfyy
		out[photpatch.ParamSersicN] += g.DADSersic * dCdA
		out[photpatch.ParamRh] += g.DADRh * dCdA
	}
}
