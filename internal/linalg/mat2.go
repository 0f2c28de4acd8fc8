// Package linalg provides the 2x2 matrix value type used throughout the
// Gaussian-preparation algebra: covariance transforms, and the
// Jacobian of the inverse covariance with respect to axis ratio and
// position angle.
//
// A dedicated value type (rather than a general dense-matrix library)
// keeps this arithmetic register-resident: CreateImageGaussians calls
// into it once per (source, PSF-component) pair, of which there can be
// tens of thousands per patch, so the cost of a heap allocation or an
// interface dispatch per multiply would dominate the kernel.
package linalg

import "math"

// Mat2 is a 2x2 matrix in row-major order:
//
//	[ V11 V12 ]
//	[ V21 V22 ]
type Mat2 struct {
	V11, V12, V21, V22 float32
}

// New builds a Mat2 from four scalars in row-major order.
func New(v11, v12, v21, v22 float32) Mat2 {
	return Mat2{V11: v11, V12: v12, V21: v21, V22: v22}
}

// FromSlice builds a Mat2 from the first four elements of buf, in
// row-major order.
func FromSlice(buf []float32) Mat2 {
	return Mat2{V11: buf[0], V12: buf[1], V21: buf[2], V22: buf[3]}
}

// Identity returns the 2x2 identity matrix.
func Identity() Mat2 {
	return Mat2{V11: 1, V22: 1}
}

// Rot returns the 2D rotation matrix by angle theta (radians).
func Rot(theta float32) Mat2 {
	s, c := sincos(theta)
	return Mat2{V11: c, V12: -s, V21: s, V22: c}
}

// RotDeriv returns d/dtheta of Rot(theta).
func RotDeriv(theta float32) Mat2 {
	s, c := sincos(theta)
	return Mat2{V11: -s, V12: -c, V21: c, V22: -s}
}

// Scale returns the diagonal scale matrix parameterized by axis-ratio
// squared q: diag(sqrt(q), 1/sqrt(q)). This choice keeps det(Scale(q))
// == 1 for all q, so changing a source's ellipticity redistributes its
// light between axes without changing the total flux normalization —
// only the Sersic radius and the PSF convolution do that.
func Scale(q float32) Mat2 {
	s := float32(math.Sqrt(float64(q)))
	return Mat2{V11: s, V22: 1 / s}
}

// ScaleDeriv returns d/dq of Scale(q).
func ScaleDeriv(q float32) Mat2 {
	s := float32(math.Sqrt(float64(q)))
	dsdq := float32(0.5) / s
	dinvsdq := -dsdq / q
	return Mat2{V11: dsdq, V22: dinvsdq}
}

func sincos(theta float32) (float32, float32) {
	s, c := math.Sincos(float64(theta))
	return float32(s), float32(c)
}

// Det returns the determinant.
func (m Mat2) Det() float32 {
	return m.V11*m.V22 - m.V12*m.V21
}

// Trace returns the trace.
func (m Mat2) Trace() float32 {
	return m.V11 + m.V22
}

// T returns the transpose.
func (m Mat2) T() Mat2 {
	return Mat2{V11: m.V11, V12: m.V21, V21: m.V12, V22: m.V22}
}

// Inv returns the matrix inverse. Callers guarantee m is invertible
// (in practice symmetric positive-definite); no singularity guard is
// applied, per the "callers guarantee positive-definiteness" precondition.
func (m Mat2) Inv() Mat2 {
	invDet := 1 / m.Det()
	return Mat2{
		V11: m.V22 * invDet,
		V12: -m.V12 * invDet,
		V21: -m.V21 * invDet,
		V22: m.V11 * invDet,
	}
}

// Mul returns m * other.
func (m Mat2) Mul(o Mat2) Mat2 {
	return Mat2{
		V11: m.V11*o.V11 + m.V12*o.V21,
		V12: m.V11*o.V12 + m.V12*o.V22,
		V21: m.V21*o.V11 + m.V22*o.V21,
		V22: m.V21*o.V12 + m.V22*o.V22,
	}
}

// Scl returns m scaled by a scalar.
func (m Mat2) Scl(s float32) Mat2 {
	return Mat2{V11: m.V11 * s, V12: m.V12 * s, V21: m.V21 * s, V22: m.V22 * s}
}

// Add returns m + o.
func (m Mat2) Add(o Mat2) Mat2 {
	return Mat2{V11: m.V11 + o.V11, V12: m.V12 + o.V12, V21: m.V21 + o.V21, V22: m.V22 + o.V22}
}

// Neg returns -m.
func (m Mat2) Neg() Mat2 {
	return Mat2{V11: -m.V11, V12: -m.V12, V21: -m.V21, V22: -m.V22}
}

// AAt returns m * m^T, the outer-product form used to build a
// covariance matrix from a transform matrix.
func (m Mat2) AAt() Mat2 {
	return m.Mul(m.T())
}

// ABA returns a * b * a, the triple product used when differentiating
// a matrix inverse: d(inv(Sigma))/dp = -inv(Sigma) * dSigma/dp * inv(Sigma).
func ABA(a, b Mat2) Mat2 {
	return a.Mul(b).Mul(a)
}

// Av applies m to the 2-vector v in place: v <- m*v.
func Av(m Mat2, v *[2]float32) {
	x, y := v[0], v[1]
	v[0] = m.V11*x + m.V12*y
	v[1] = m.V21*x + m.V22*y
}
