package photpatch

// Compile-time caps mirroring the fixed-size allocations a GPU kernel
// would need. NParams is entangled with the ImageGaussian layout and
// the derivative chain rule in photkernel — changing it requires
// changing both.
const (
	MaxBands   = 30
	MaxSources = 30
	NParams    = 7
	MaxExpArg  = 36.0
	NumAccums  = 1
	MaxRadii   = 10
)

// Gradient parameter indices, in the row order the response layout
// fixes: (flux, ra, dec, q, pa, sersic_n, rh).
const (
	ParamFlux = iota
	ParamRA
	ParamDec
	ParamQ
	ParamPA
	ParamSersicN
	ParamRh
)
