// Package photkernel implements the per-patch likelihood-and-gradient
// evaluator: Gaussian preparation (CreateImageGaussians), the per-pixel
// residual and derivative routines, and the EvaluateProposal driver
// that dispatches one goroutine batch per band.
//
// Every exported function here is a pure function of its arguments; the
// package holds no package-level state, matching the "total, stateless
// kernel" contract the data model documents.
package photkernel

import (
	"math"

	"github.com/forcepho-go/kernel/photpatch"
)

// pixelTerms holds the intermediates ComputeResidualImage and
// ComputeGaussianDerivative both need for a single (Gaussian, pixel)
// pair. Each routine calls evalPixelTerms itself, so both use the same
// formulas; the terms are computed anew by each call.
type pixelTerms struct {
	dx, dy float32
	vx, vy float32
	gp, h  float32
	skip   bool
}

// evalPixelTerms evaluates one ImageGaussian at (xp, yp), applying the
// MAX_EXP_ARG early-skip guard.
func evalPixelTerms(g *photpatch.ImageGaussian, xp, yp float32) pixelTerms {
	dx := xp - g.XCen
	dy := yp - g.YCen
	vx := g.Fxx*dx + g.Fxy*dy
	vy := g.Fyy*dy + g.Fxy*dx
	arg := dx*vx + dy*vy
	if arg >= photpatch.MaxExpArg {
		return pixelTerms{skip: true}
	}
	gp := float32(math.Exp(-0.5 * float64(arg)))
	h := 1 + (vx*vx+vy*vy-g.Fxx-g.Fyy)/24
	return pixelTerms{dx: dx, dy: dy, vx: vx, vy: vy, gp: gp, h: h}
}
