package photkernel

import (
	"runtime"
	"sync"
	"unsafe"

	"github.com/forcepho-go/kernel/internal/arena"
	"github.com/forcepho-go/kernel/internal/reduce"
	"github.com/forcepho-go/kernel/internal/workerpool"
	"github.com/forcepho-go/kernel/photpatch"
)

// Options configures an EvaluateProposal call. Its zero value behaves
// like DefaultOptions.
type Options struct {
	// Workers is the number of pixel-level worker lanes assigned per
	// band block, analogous to a CUDA block's thread count. Zero or
	// negative means runtime.GOMAXPROCS(0).
	Workers int
}

// DefaultOptions returns an Options sized to the host's available
// cores.
func DefaultOptions() Options {
	return Options{Workers: runtime.GOMAXPROCS(0)}
}

// EvaluateProposal computes, for every band in patch, the chi-square
// goodness of fit between the model implied by proposal and the
// observed pixels, together with the gradient of chi-square with
// respect to every active source's seven sky parameters.
//
// One goroutine is dispatched per band (the "grid of blocks"); each
// band goroutine drives its own exposures sequentially and shares a
// single persistent workerpool.Pool for pixel-level parallelism within
// an exposure (the "block of warps"). The closures running on the pool's
// lanes never submit work onto the pool themselves, so nesting cannot
// deadlock it.
func EvaluateProposal(patch *photpatch.Patch, proposal []photpatch.Source, opts Options) []photpatch.Response {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	pool := workerpool.New(opts.Workers)
	defer pool.Close()

	responses := make([]photpatch.Response, patch.NBands)

	var wg sync.WaitGroup
	wg.Add(patch.NBands)
	for b := 0; b < patch.NBands; b++ {
		go func(band int) {
			defer wg.Done()
			responses[band] = evaluateBand(patch, proposal, band, pool)
		}(b)
	}
	wg.Wait()

	return responses
}

func evaluateBand(patch *photpatch.Patch, proposal []photpatch.Source, band int, pool *workerpool.Pool) photpatch.Response {
	nActive := len(proposal)
	resp := photpatch.NewResponse(nActive)

	nPSF := int(patch.NPSFPerSource[band])
	nGauss := nActive * nPSF

	workers := pool.NumWorkers()

	var imgGaussian photpatch.ImageGaussian
	scratchSize := uintptr(nGauss)*unsafe.Sizeof(imgGaussian) + 2*arena.CacheLineSize
	scratch := arena.New(scratchSize)

	chi2Partial := make([]float32, workers)
	gradPartial := make([][]float32, workers)
	for w := range gradPartial {
		gradPartial[w] = make([]float32, nActive*photpatch.NParams)
	}

	start, end := patch.ExposuresForBand(band)
	for e := start; e < end; e++ {
		scratch.Reset()
		gaussians, err := allocGaussians(scratch, nGauss)
		if err != nil {
			// The pre-sized arena should never be exhausted for this
			// band's own gaussian count; fall back to a heap
			// allocation rather than losing the exposure.
			gaussians = make([]photpatch.ImageGaussian, nGauss)
		}
		CreateImageGaussians(patch, proposal, e, band, gaussians)

		for w := 0; w < workers; w++ {
			chi2Partial[w] = 0
			for j := range gradPartial[w] {
				gradPartial[w][j] = 0
			}
		}

		pxStart, pxEnd := patch.PixelsForExposure(e)
		n := pxEnd - pxStart

		pool.ParallelFor(workers, func(wStart, wEnd int) {
			var galGrad [photpatch.NParams]float32
			for w := wStart; w < wEnd; w++ {
				lo, hi := chunkRange(n, workers, w)
				for i := lo; i < hi; i++ {
					p := pxStart + i
					xp, yp := patch.XPix[p], patch.YPix[p]
					data, ierr := patch.Data[p], patch.IErr[p]

					residual := ComputeResidualImage(xp, yp, data, gaussians)
					patch.Residual[p] = residual

					chi := residual * ierr
					chi2Partial[w] += chi * chi

					r2 := residual * ierr * ierr
					for gi := 0; gi < nActive; gi++ {
						for k := range galGrad {
							galGrad[k] = 0
						}
						galGaussians := gaussians[gi*nPSF : (gi+1)*nPSF]
						ComputeGaussianDerivative(xp, yp, r2, galGaussians, galGrad[:])
						base := gi * photpatch.NParams
						for k := 0; k < photpatch.NParams; k++ {
							gradPartial[w][base+k] += galGrad[k]
						}
					}
				}
			}
		})

		resp.Chi2 += reduce.Sum(append([]float32(nil), chi2Partial...))

		gradTotal := make([]float32, nActive*photpatch.NParams)
		reduce.SumInto(gradPartial, gradTotal)
		// gradTotal holds sum(residual*ierr^2 * dmodel/dp), which is
		// -0.5*dchi2/dp; scale by -2 to store the chi-square gradient.
		for j := range gradTotal {
			resp.DChi2DParam[j] -= 2 * gradTotal[j]
		}
	}

	return resp
}

// chunkRange returns the [lo, hi) index range worker w owns when [0, n)
// is split into `workers` contiguous chunks, matching the static
// chunking workerpool.Pool.ParallelFor itself uses.
func chunkRange(n, workers, w int) (int, int) {
	if workers <= 0 {
		workers = 1
	}
	chunk := (n + workers - 1) / workers
	lo := w * chunk
	hi := lo + chunk
	if lo > n {
		lo = n
	}
	if hi > n {
		hi = n
	}
	return lo, hi
}

// allocGaussians carves n ImageGaussians off ar's scratch buffer.
func allocGaussians(ar *arena.Arena, n int) ([]photpatch.ImageGaussian, error) {
	if n == 0 {
		return nil, nil
	}
	var g photpatch.ImageGaussian
	buf, err := ar.Alloc(uintptr(n) * unsafe.Sizeof(g))
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*photpatch.ImageGaussian)(unsafe.Pointer(&buf[0])), n), nil
}
