// Package kernel implements the numerical core of a forward-modeling
// galaxy photometry engine.
//
// Given a proposed set of on-sky galaxy parameters (a Proposal) and a
// prepared image cutout (a Patch: pixels, astrometry, and PSF mixtures
// for one or more exposures across one or more photometric bands),
// EvaluateProposal computes, for every band, the chi-square goodness
// of fit between the mixture-of-Gaussians model image and the observed
// pixels, and the gradient of that chi-square with respect to every
// active sky parameter.
//
// Each galaxy is represented as a mixture of 2D Gaussians approximating
// a Sersic radial profile, convolved with a per-exposure Gaussian
// mixture point-spread function and projected through a per-exposure
// astrometric transform. The result is a compact ImageGaussian per
// (source, PSF component) pair, evaluated analytically together with
// its full Jacobian with respect to the seven sky parameters of its
// source.
//
// # Architecture overview
//
// The engine consists of the following packages:
//
//   - internal/linalg: the 2x2 matrix value type used throughout the
//     Gaussian-preparation algebra (rotation, scaling, inversion, the
//     A*B*A triple product used for derivatives of a matrix inverse).
//   - photpatch: the data model (Patch, Source, Proposal, Response,
//     PSFSourceGaussian, ImageGaussian) and its flat binary
//     serialization.
//   - photkernel: Gaussian preparation, per-pixel residual and
//     derivative evaluation, and the EvaluateProposal driver that
//     dispatches one compute block per band.
//   - internal/arena: a fixed-size, cache-aligned scratch arena
//     standing in for GPU shared memory, sized per band from that
//     band's ImageGaussian count.
//   - internal/workerpool: a persistent goroutine pool standing in for
//     a GPU block's warp of worker lanes.
//   - internal/reduce: a stride-doubling tree reduction standing in for
//     warp-shuffle reduction.
//   - photlog: structured logging for the CLI drivers.
//
// # Performance characteristics
//
// EvaluateProposal is designed for the same shape of workload a GPU
// kernel would see: thousands of independent (source, PSF-component,
// pixel) evaluations reduced hierarchically into a handful of
// (chi-square, gradient) numbers per band. On CPU this is achieved
// through:
//
//   - Pre-planned scratch memory: ImageGaussians are carved out of a
//     fixed-size arena sized once per band, and the per-worker reduction
//     buffers are allocated once per band, not per pixel.
//   - A persistent worker pool reused across exposures, avoiding
//     per-exposure goroutine spawn overhead.
//   - A fixed-shape tree reduction so that chi-square and gradient
//     accumulation order is deterministic for a given worker count.
//
// # Basic usage
//
//	patch := &photpatch.Patch{ /* populated by the host */ }
//	proposal := []photpatch.Source{ /* active sources */ }
//	responses := photkernel.EvaluateProposal(patch, proposal, photkernel.DefaultOptions())
//	for band, resp := range responses {
//	    fmt.Printf("band %d: chi2=%f\n", band, resp.Chi2)
//	}
//
// # Package structure
//
//   - internal/linalg: 2x2 matrix primitive
//   - internal/arena: zero-allocation scratch memory management
//   - internal/workerpool: persistent worker pool
//   - internal/reduce: tree reduction
//   - photpatch: data model and serialization
//   - photkernel: Gaussian preparation, per-pixel evaluation, kernel driver
//   - photlog: structured logging
//   - cmd/photoeval, cmd/photobench: command-line drivers
package kernel
