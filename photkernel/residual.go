package photkernel

import "github.com/forcepho-go/kernel/photpatch"

// ComputeResidualImage returns data minus the sum of every ImageGaussian
// in gs evaluated at (xp, yp), applying the second-order pixel-integral
// correction H and the MAX_EXP_ARG early-skip guard to each component.
func ComputeResidualImage(xp, yp, data float32, gs []photpatch.ImageGaussian) float32 {
	model := float32(0)
	for i := range gs {
		g := &gs[i]
		t := evalPixelTerms(g, xp, yp)
		if t.skip {
			continue
		}
		model += g.Amp * t.gp * t.h
	}
	return data - model
}
