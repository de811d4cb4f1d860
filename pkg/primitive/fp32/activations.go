package fp32

import (
	"github.com/chewxy/math32"
)

const expMax = 88.0 // max magnitude for exp before float32 overflow

// ReLU applies dst[i] = max(0, src[i]). dst and src may be the same slice.
func ReLU(dst, src []float32, num int) {
	for i := 0; i < num; i++ {
		if src[i] > 0 {
			dst[i] = src[i]
		} else {
			dst[i] = 0
		}
	}
}

// Sigmoid applies dst[i] = 1 / (1 + exp(-src[i])). dst and src may be the
// same slice.
func Sigmoid(dst, src []float32, num int) {
	for i := 0; i < num; i++ {
		x := -src[i]
		switch {
		case x > expMax:
			dst[i] = 0
		case x < -expMax:
			dst[i] = 1
		default:
			dst[i] = 1 / (1 + math32.Exp(x))
		}
	}
}

// HardSigmoid applies the piecewise-linear sigmoid approximation:
// 0 for x ≤ -3, 1 for x ≥ 3, x/6 + 0.5 otherwise.
func HardSigmoid(dst, src []float32, num int) {
	for i := 0; i < num; i++ {
		x := src[i]
		switch {
		case x <= -3:
			dst[i] = 0
		case x >= 3:
			dst[i] = 1
		default:
			dst[i] = x/6 + 0.5
		}
	}
}

// HardSwish applies 0 for x ≤ -3, x for x ≥ 3, x*(x+3)/6 otherwise.
func HardSwish(dst, src []float32, num int) {
	for i := 0; i < num; i++ {
		x := src[i]
		switch {
		case x <= -3:
			dst[i] = 0
		case x >= 3:
			dst[i] = x
		default:
			dst[i] = x * (x + 3) / 6
		}
	}
}
