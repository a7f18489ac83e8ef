package tensor

import "math/cmplx"

// ToComplex widens a real array to complex128.
func ToComplex(a *Dense[float64]) *Dense[complex128] {
	b := NewDense[complex128](a.shape...)
	for i, v := range a.data {
		b.data[i] = complex(v, 0)
	}
	return b
}

// Real narrows a complex array to its real part.
func Real(a *Dense[complex128]) *Dense[float64] {
	b := NewDense[float64](a.shape...)
	for i, v := range a.data {
		b.data[i] = real(v)
	}
	return b
}

// SameShape reports whether two shapes are identical.
func SameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// EqualApprox reports whether two arrays have the same shape and agree
// elementwise within tol.
func EqualApprox[T Scalar](a, b *Dense[T], tol float64) bool {
	if !SameShape(a.shape, b.shape) {
		return false
	}
	for i := range a.data {
		if absDiff(a.data[i], b.data[i]) > tol {
			return false
		}
	}
	return true
}

func absDiff[T Scalar](x, y T) float64 {
	switch d := any(x - y).(type) {
	case float64:
		if d < 0 {
			return -d
		}
		return d
	case complex128:
		return cmplx.Abs(d)
	}
	return 0
}
