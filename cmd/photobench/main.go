package main

import (
	"flag"
	"fmt"
	"math/rand"
	"runtime"
	"time"

	"github.com/forcepho-go/kernel/internal/linalg"
	"github.com/forcepho-go/kernel/photkernel"
	"github.com/forcepho-go/kernel/photpatch"
)

var (
	testType = flag.String("test", "all", "Test type: all, gaussians, residual, evaluate")
	n        = flag.Int("n", 32, "Grid side length in pixels for the synthetic patch")
	sources  = flag.Int("sources", 4, "Number of active sources in the synthetic proposal")
	iter     = flag.Int("iter", 100, "Number of iterations")
	workers  = flag.Int("workers", runtime.GOMAXPROCS(0), "Worker lanes passed to EvaluateProposal")
)

func main() {
	flag.Parse()

	fmt.Printf("Patch Evaluator Performance Analysis Tool\n")
	fmt.Printf("==========================================\n")
	fmt.Printf("Go Version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("CPUs: %d\n", runtime.NumCPU())
	fmt.Printf("Grid: %dx%d, Sources: %d, Iterations: %d, Workers: %d\n\n", *n, *n, *sources, *iter, *workers)

	switch *testType {
	case "all":
		runGaussiansBench()
		runResidualBench()
		runEvaluateBench()
	case "gaussians":
		runGaussiansBench()
	case "residual":
		runResidualBench()
	case "evaluate":
		runEvaluateBench()
	default:
		fmt.Printf("Unknown test type: %s\n", *testType)
	}
}

func runGaussiansBench() {
	fmt.Printf("CreateImageGaussians Performance\n")
	fmt.Printf("---------------------------------\n")

	patch, proposal := syntheticPatch(*n, *sources)
	nPSF := int(patch.NPSFPerSource[0])
	out := make([]photpatch.ImageGaussian, len(proposal)*nPSF)

	start := time.Now()
	for i := 0; i < *iter; i++ {
		photkernel.CreateImageGaussians(patch, proposal, 0, 0, out)
	}
	elapsed := time.Since(start)

	perCall := elapsed / time.Duration(*iter)
	fmt.Printf("%d sources x %d PSF components: %v/call (%v total)\n\n", len(proposal), nPSF, perCall, elapsed)
}

func runResidualBench() {
	fmt.Printf("ComputeResidualImage Performance\n")
	fmt.Printf("----------------------------------\n")

	patch, proposal := syntheticPatch(*n, *sources)
	nPSF := int(patch.NPSFPerSource[0])
	gaussians := make([]photpatch.ImageGaussian, len(proposal)*nPSF)
	photkernel.CreateImageGaussians(patch, proposal, 0, 0, gaussians)

	start := time.Now()
	var acc float32
	for i := 0; i < *iter; i++ {
		for p := range patch.XPix {
			acc += photkernel.ComputeResidualImage(patch.XPix[p], patch.YPix[p], patch.Data[p], gaussians)
		}
	}
	elapsed := time.Since(start)

	pixelsPerSecond := float64(len(patch.XPix)*(*iter)) / elapsed.Seconds()
	fmt.Printf("%d pixels x %d gaussians: %.2f Mpixels/s (sink=%g)\n\n", len(patch.XPix), len(gaussians), pixelsPerSecond/1e6, acc)
}

func runEvaluateBench() {
	fmt.Printf("EvaluateProposal Performance\n")
	fmt.Printf("------------------------------\n")

	patch, proposal := syntheticPatch(*n, *sources)
	opts := photkernel.Options{Workers: *workers}

	start := time.Now()
	var chi2Sum float32
	for i := 0; i < *iter; i++ {
		responses := photkernel.EvaluateProposal(patch, proposal, opts)
		for _, r := range responses {
			chi2Sum += r.Chi2
		}
	}
	elapsed := time.Since(start)

	perCall := elapsed / time.Duration(*iter)
	pixelsPerSecond := float64(patch.NumPixels()*(*iter)) / elapsed.Seconds()
	fmt.Printf("%v/call, %.2f Mpixels/s (chi2 sink=%g)\n\n", perCall, pixelsPerSecond/1e6, chi2Sum)
}

// syntheticPatch builds a single-band, single-exposure patch on an nxn
// grid with nSources randomly offset sources of flux 10 to 20, for repeatable
// throughput measurement rather than correctness checking.
func syntheticPatch(n, nSources int) (*photpatch.Patch, []photpatch.Source) {
	rng := rand.New(rand.NewSource(1))

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

	patch := &photpatch.Patch{
		NBands: 1, NSources: nSources, NRadii: 1,
		BandStart:     []int32{0},
		BandN:         []int32{1},
		NPSFPerSource: []int32{1},
		ExposureStart: []int32{0},
		ExposureN:     []int32{int32(pixCount)},
		PSFGaussStart: []int32{0},
		Gain:          []float32{1},
		CRPix:         [][2]float32{{float32(n) / 2, float32(n) / 2}},
		CRVal:         [][2]float32{{0, 0}},
		XPix:          xpix,
		YPix:          ypix,
		Data:          make([]float32, pixCount),
		IErr:          onesFloat32(pixCount),
		Residual:      make([]float32, pixCount),
		Rad2:          []float32{1},
	}

	patch.D = [][]linalg.Mat2{make([]linalg.Mat2, nSources)}
	patch.CW = [][]linalg.Mat2{make([]linalg.Mat2, nSources)}
	// One PSF component, shared by every source in this exposure.
	patch.PSFGauss = []photpatch.PSFSourceGaussian{{Amp: 1, Cxx: 1, Cyy: 1}}

	proposal := make([]photpatch.Source, nSources)
	for s := 0; s < nSources; s++ {
		patch.D[0][s] = linalg.Identity()
		patch.CW[0][s] = linalg.Identity()

		proposal[s] = photpatch.Source{
			RA: rng.Float32() * float32(n), Dec: rng.Float32() * float32(n),
			Q: 1, PA: 0, SersicN: 1, Rh: 1,
		}
		proposal[s].Fluxes[0] = 10 + rng.Float32()*10
		proposal[s].MixtureAmplitudes[0] = 1
	}

	for p := range patch.Data {
		patch.Data[p] = rng.Float32()
	}

	return patch, proposal
}

func onesFloat32(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = 1
	}
	return out
}
